package qa

import (
	"fmt"
	"strings"
)

// Markdown renders the report as the reviewer-facing summary document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Warehouse QA Results\n\n")

	for _, res := range r.Results {
		fmt.Fprintf(&b, "## %d. %s — %s\n\n", res.ID, res.Description, res.Status)

		switch {
		case res.Status == StatusError:
			b.WriteString(res.Err + "\n\n")
		case len(res.Rows) > 0:
			writeTable(&b, res.Columns, res.Rows)
		default:
			b.WriteString("_No rows returned — OK_\n\n")
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, columns []string, rows [][]string) {
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|")
	for _, col := range columns {
		width := len(col)
		if width < 3 {
			width = 3
		}
		b.WriteString(":" + strings.Repeat("-", width) + "|")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	b.WriteString("\n")
}
