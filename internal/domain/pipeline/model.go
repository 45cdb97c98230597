package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline stages in execution order. The full sequence is what the run
// command drives; the ops server triggers the middle three individually.
const (
	StageSeed      = "seed"
	StageFetch     = "fetch"
	StageLoad      = "load"
	StageTransform = "transform"
	StageQA        = "qa"
	StageAnalytics = "analytics"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one stage execution, mapped to the pipeline_runs audit table. Detail
// carries the stage's counters (or its error) as free-form JSON.
type Run struct {
	RunID      uuid.UUID              `db:"run_id" json:"run_id"`
	Stage      string                 `db:"stage" json:"stage"`
	Status     string                 `db:"status" json:"status"`
	StartedAt  time.Time              `db:"started_at" json:"started_at"`
	FinishedAt *time.Time             `db:"finished_at" json:"finished_at,omitempty"`
	Detail     map[string]interface{} `db:"detail" json:"detail,omitempty"`
}
