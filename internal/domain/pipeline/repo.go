package pipeline

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, run *Run) error
	Finish(ctx context.Context, runID uuid.UUID, status string, detail map[string]interface{}) error
	Get(ctx context.Context, runID uuid.UUID) (*Run, error)
	Recent(ctx context.Context, limit int) ([]Run, error)
}
