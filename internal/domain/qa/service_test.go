package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type mockResult struct {
	columns []string
	rows    [][]string
	err     error
}

type mockRepo struct {
	bySQL map[string]mockResult
}

func newQAMock() *mockRepo {
	return &mockRepo{bySQL: map[string]mockResult{}}
}

func (m *mockRepo) RunCheck(ctx context.Context, sql string) ([]string, [][]string, error) {
	res := m.bySQL[sql]
	return res.columns, res.rows, res.err
}

func TestChecksBattery(t *testing.T) {
	checks := Checks()
	if len(checks) != 9 {
		t.Fatalf("expected 9 checks, got %d", len(checks))
	}
	seen := map[string]bool{}
	for i, c := range checks {
		if c.ID != i+1 {
			t.Errorf("check %d has id %d, want sequential ids", i, c.ID)
		}
		if c.Description == "" || c.SQL == "" {
			t.Errorf("check %d incomplete", c.ID)
		}
		if seen[c.Description] {
			t.Errorf("duplicate description %q", c.Description)
		}
		seen[c.Description] = true
	}
	if !strings.Contains(checks[8].SQL, "generate_series") {
		t.Error("calendar gap check should scan the full date range")
	}
}

func TestRunAllPass(t *testing.T) {
	s := NewService(newQAMock(), zerolog.Nop())

	report := s.Run(context.Background())
	if !report.Ok() {
		t.Errorf("report not ok: %+v", report)
	}
	if report.Passed != 9 || report.Failed != 0 || report.Errored != 0 {
		t.Errorf("counts = %d/%d/%d, want 9/0/0", report.Passed, report.Failed, report.Errored)
	}
	if len(report.Results) != 9 {
		t.Fatalf("results = %d, want 9", len(report.Results))
	}
	for i, res := range report.Results {
		if res.Status != StatusPass {
			t.Errorf("check %d status = %s, want PASS", i+1, res.Status)
		}
	}
}

func TestRunRecordsFailureEvidence(t *testing.T) {
	repo := newQAMock()
	checks := Checks()
	repo.bySQL[checks[3].SQL] = mockResult{
		columns: []string{"encounter_id", "count"},
		rows:    [][]string{{"101", "2"}},
	}
	s := NewService(repo, zerolog.Nop())

	report := s.Run(context.Background())
	if report.Ok() {
		t.Error("report ok despite failing check")
	}
	if report.Passed != 8 || report.Failed != 1 {
		t.Errorf("counts = %d/%d, want 8 passed, 1 failed", report.Passed, report.Failed)
	}

	res := report.Results[3]
	if res.Status != StatusFail {
		t.Fatalf("status = %s, want FAIL", res.Status)
	}
	if len(res.Rows) != 1 || res.Rows[0][0] != "101" {
		t.Errorf("evidence = %+v", res.Rows)
	}
	if res.Columns[0] != "encounter_id" {
		t.Errorf("columns = %v", res.Columns)
	}
}

func TestRunContinuesAfterError(t *testing.T) {
	repo := newQAMock()
	checks := Checks()
	repo.bySQL[checks[0].SQL] = mockResult{err: errors.New(`relation "dim_patient" does not exist`)}
	s := NewService(repo, zerolog.Nop())

	report := s.Run(context.Background())
	if len(report.Results) != 9 {
		t.Fatalf("results = %d, want all checks to run", len(report.Results))
	}
	if report.Errored != 1 || report.Passed != 8 {
		t.Errorf("counts = %d errored, %d passed, want 1/8", report.Errored, report.Passed)
	}
	if report.Results[0].Status != StatusError {
		t.Errorf("first check status = %s, want ERROR", report.Results[0].Status)
	}
	if !strings.Contains(report.Results[0].Err, "dim_patient") {
		t.Errorf("error message lost: %q", report.Results[0].Err)
	}
}
