package warehouse

import (
	"context"
	"time"
)

// Repository covers the set-based statements the rebuild runs. Population
// methods return rows written; all are conflict-safe on their derived keys.
type Repository interface {
	TruncateAll(ctx context.Context) error

	EncounterDateRange(ctx context.Context) (first, last *time.Time, err error)
	InsertTimeRows(ctx context.Context, rows []TimeRow) (int64, error)

	PopulateDimPatient(ctx context.Context) (int64, error)
	PopulateDimProcedure(ctx context.Context) (int64, error)
	PopulateDimDiagnosis(ctx context.Context) (int64, error)
	PopulateFactEncounters(ctx context.Context) (int64, error)
	PopulateBridgeProcedures(ctx context.Context) (int64, error)
	PopulateBridgeDiagnoses(ctx context.Context) (int64, error)
}
