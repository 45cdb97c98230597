package qa

import (
	"strings"
	"testing"
)

func TestReportMarkdown(t *testing.T) {
	report := &Report{
		Results: []CheckResult{
			{ID: 1, Description: "Check for duplicate patient IDs", Status: StatusPass},
			{
				ID:          4,
				Description: "Check for duplicate encounter IDs",
				Status:      StatusFail,
				Columns:     []string{"encounter_id", "count"},
				Rows:        [][]string{{"101", "2"}, {"102", "3"}},
			},
			{
				ID:          9,
				Description: "Check for calendar gaps in dim_time",
				Status:      StatusError,
				Err:         `relation "dim_time" does not exist`,
			},
		},
		Passed:  1,
		Failed:  1,
		Errored: 1,
	}

	md := report.Markdown()

	if !strings.HasPrefix(md, "# Warehouse QA Results\n\n") {
		t.Error("missing document title")
	}
	if !strings.Contains(md, "## 1. Check for duplicate patient IDs — PASS") {
		t.Error("missing pass heading")
	}
	if !strings.Contains(md, "_No rows returned — OK_") {
		t.Error("missing pass body")
	}
	if !strings.Contains(md, "## 4. Check for duplicate encounter IDs — FAIL") {
		t.Error("missing fail heading")
	}
	if !strings.Contains(md, "| encounter_id | count |") {
		t.Error("missing table header")
	}
	if !strings.Contains(md, "|:------------|:-----|") {
		t.Error("missing table separator")
	}
	if !strings.Contains(md, "| 101 | 2 |") || !strings.Contains(md, "| 102 | 3 |") {
		t.Error("missing evidence rows")
	}
	if !strings.Contains(md, "## 9. Check for calendar gaps in dim_time — ERROR") {
		t.Error("missing error heading")
	}
	if !strings.Contains(md, `relation "dim_time" does not exist`) {
		t.Error("missing error message")
	}
}

func TestReportMarkdownPadsShortColumns(t *testing.T) {
	report := &Report{
		Results: []CheckResult{
			{
				ID:          2,
				Description: "Check for missing patient demographics",
				Status:      StatusFail,
				Columns:     []string{"id"},
				Rows:        [][]string{{"7"}},
			},
		},
		Failed: 1,
	}
	md := report.Markdown()
	if !strings.Contains(md, "|:---|") {
		t.Error("short column separator should pad to three dashes")
	}
}
