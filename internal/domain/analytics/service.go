package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type Repository interface {
	RunQuery(ctx context.Context, sql string) (columns []string, rows [][]string, err error)
}

// QueryResult describes one analytics query run and where its CSV landed.
type QueryResult struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Path string `json:"path,omitempty"`
	Err  string `json:"error,omitempty"`
}

// Ok reports whether the query ran and its output was written.
func (r QueryResult) Ok() bool { return r.Err == "" }

// Service runs the canned analytics queries and writes each result set as a
// CSV file. A failing query is recorded and the rest still run.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Run executes every query and writes <name>_results.csv under outDir.
func (s *Service) Run(ctx context.Context, outDir string) ([]QueryResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var results []QueryResult
	for _, q := range Queries() {
		res := QueryResult{Name: q.Name}

		columns, rows, err := s.repo.RunQuery(ctx, q.SQL)
		if err != nil {
			res.Err = err.Error()
			s.logger.Error().Err(err).Str("query", q.Name).Msg("analytics query failed")
			results = append(results, res)
			continue
		}

		path := filepath.Join(outDir, q.Name+"_results.csv")
		if err := os.WriteFile(path, renderCSV(columns, rows), 0o644); err != nil {
			res.Err = err.Error()
			s.logger.Error().Err(err).Str("query", q.Name).Msg("write analytics output")
			results = append(results, res)
			continue
		}

		res.Rows = len(rows)
		res.Path = path
		s.logger.Info().Str("query", q.Name).Int("rows", res.Rows).Str("path", path).Msg("analytics query complete")
		results = append(results, res)
	}
	return results, nil
}

func renderCSV(columns []string, rows [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}
