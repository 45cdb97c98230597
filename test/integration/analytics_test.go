package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/radpipe/radpipe/internal/domain/analytics"
)

func TestAnalyticsWritesResultCSVs(t *testing.T) {
	ctx := context.Background()
	resetAll(t, ctx)
	arrangeStarInput(t, ctx)
	if _, err := newBuilder().Rebuild(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	outDir := t.TempDir()
	svc := analytics.NewService(analytics.NewRepo(globalDB.Pool), testLogger())
	results, err := svc.Run(ctx, outDir)
	if err != nil {
		t.Fatalf("run analytics: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	wantNames := []string{"encounters_per_month", "top_diagnoses_by_age", "avg_procedures_per_patient"}
	for i, res := range results {
		if res.Name != wantNames[i] {
			t.Errorf("result[%d].name = %s, want %s", i, res.Name, wantNames[i])
		}
		if !res.Ok() {
			t.Errorf("result[%d] failed: %s", i, res.Err)
		}
		if res.Rows == 0 {
			t.Errorf("result[%d] returned no rows", i)
		}
		if _, err := os.Stat(res.Path); err != nil {
			t.Errorf("result[%d] output missing: %v", i, err)
		}
	}

	// All three encounters land in June 2024.
	raw, err := os.ReadFile(filepath.Join(outDir, "encounters_per_month_results.csv"))
	if err != nil {
		t.Fatalf("read encounters csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want 2; content:\n%s", len(lines), raw)
	}
	if lines[0] != "year,month,month_name,total_encounters" {
		t.Errorf("csv header = %q", lines[0])
	}
	if lines[1] != "2024,6,June,3" {
		t.Errorf("csv row = %q, want 2024,6,June,3", lines[1])
	}
}

func TestAnalyticsOnEmptyWarehouse(t *testing.T) {
	ctx := context.Background()
	resetAll(t, ctx)

	outDir := t.TempDir()
	svc := analytics.NewService(analytics.NewRepo(globalDB.Pool), testLogger())
	results, err := svc.Run(ctx, outDir)
	if err != nil {
		t.Fatalf("run analytics: %v", err)
	}

	// Empty warehouse still produces headers-only files, not errors.
	for _, res := range results {
		if !res.Ok() {
			t.Errorf("query %s failed: %s", res.Name, res.Err)
		}
		if res.Rows != 0 {
			t.Errorf("query %s rows = %d, want 0", res.Name, res.Rows)
		}
	}
}
