package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/platform/db"
	"github.com/radpipe/radpipe/internal/platform/telemetry"
)

// Service rebuilds the star schema from the operational store. The rebuild is
// not incremental: it truncates every warehouse table and repopulates from
// scratch, which keeps the two schemas consistent without change tracking.
type Service struct {
	repo   Repository
	logger zerolog.Logger

	inTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(pool *pgxpool.Pool, repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		inTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}
}

// Rebuild truncates and repopulates the warehouse. The truncate and each
// population stage commit separately, in strict order; a failing stage rolls
// back alone and aborts the rebuild, leaving earlier stages committed.
func (s *Service) Rebuild(ctx context.Context) (*TransformStats, error) {
	stats := &TransformStats{}
	start := time.Now()

	if err := s.inTx(ctx, s.repo.TruncateAll); err != nil {
		return stats, fmt.Errorf("clear warehouse: %w", err)
	}
	s.logger.Info().Msg("warehouse cleared")

	stages := []struct {
		table string
		fn    func(ctx context.Context) (int64, error)
		out   *int64
	}{
		{"dim_time", s.rebuildDimTime, &stats.DimTimeRows},
		{"dim_patient", s.repo.PopulateDimPatient, &stats.DimPatientRows},
		{"dim_procedure", s.repo.PopulateDimProcedure, &stats.DimProcedureRows},
		{"dim_diagnosis", s.repo.PopulateDimDiagnosis, &stats.DimDiagnosisRows},
		{"fact_encounters", s.repo.PopulateFactEncounters, &stats.FactEncounterRows},
		{"bridge_encounter_procedures", s.repo.PopulateBridgeProcedures, &stats.BridgeProcedureRows},
		{"bridge_encounter_diagnoses", s.repo.PopulateBridgeDiagnoses, &stats.BridgeDiagnosisRows},
	}
	for _, stage := range stages {
		var rows int64
		err := s.inTx(ctx, func(ctx context.Context) error {
			var err error
			rows, err = stage.fn(ctx)
			return err
		})
		if err != nil {
			return stats, fmt.Errorf("populate %s: %w", stage.table, err)
		}
		*stage.out = rows
		telemetry.RecordWarehouseRows(stage.table, rows)
		s.logger.Info().Str("table", stage.table).Int64("rows", rows).Msg("warehouse table populated")
	}

	s.logger.Info().
		Int64("dim_time", stats.DimTimeRows).
		Int64("dim_patient", stats.DimPatientRows).
		Int64("dim_procedure", stats.DimProcedureRows).
		Int64("dim_diagnosis", stats.DimDiagnosisRows).
		Int64("fact_encounters", stats.FactEncounterRows).
		Int64("bridge_procedures", stats.BridgeProcedureRows).
		Int64("bridge_diagnoses", stats.BridgeDiagnosisRows).
		Dur("elapsed", time.Since(start)).
		Msg("warehouse rebuild complete")
	return stats, nil
}

func (s *Service) rebuildDimTime(ctx context.Context) (int64, error) {
	first, last, err := s.repo.EncounterDateRange(ctx)
	if err != nil {
		return 0, err
	}
	if first == nil || last == nil {
		s.logger.Warn().Msg("no encounter dates found, dim_time left empty")
		return 0, nil
	}
	return s.repo.InsertTimeRows(ctx, BuildCalendar(*first, *last))
}
