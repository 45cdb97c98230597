package qa

import "time"

// Status of one executed check.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

// Check is one invariant predicate. The query returns zero rows when the
// invariant holds; any returned rows are the violation evidence.
type Check struct {
	ID          int
	Description string
	SQL         string
}

// CheckResult is the outcome of one check. Columns and Rows carry the
// evidence for failures; Err carries the message when the query itself broke.
type CheckResult struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Columns     []string   `json:"columns,omitempty"`
	Rows        [][]string `json:"rows,omitempty"`
	Err         string     `json:"error,omitempty"`
}

// Report is the outcome of one full battery run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Results   []CheckResult `json:"results"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Errored   int           `json:"errored"`
}

// Ok reports whether every check passed.
func (r *Report) Ok() bool { return r.Failed == 0 && r.Errored == 0 }
