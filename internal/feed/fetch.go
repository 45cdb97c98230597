package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Fetch downloads the feed CSV from url to path, creating parent directories
// as needed. The download lands in a temp file and is renamed into place so
// a cancelled fetch never leaves a truncated feed behind.
func Fetch(ctx context.Context, url, path string, logger zerolog.Logger) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build feed request: %w", err)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}

	logger.Info().
		Str("url", url).
		Int64("content_length", resp.ContentLength).
		Msg("downloading feed")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create feed dir: %w", err)
		}
	}

	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create feed file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write feed file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("finalize feed file: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("feed downloaded")
	return n, nil
}
