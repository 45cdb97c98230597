package qa

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/platform/telemetry"
)

type Repository interface {
	RunCheck(ctx context.Context, sql string) (columns []string, rows [][]string, err error)
}

// Service runs the warehouse invariant battery. Every check always runs: a
// failing or erroring predicate is recorded and the battery moves on.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Run executes all checks in order and returns the aggregated report.
func (s *Service) Run(ctx context.Context) *Report {
	report := &Report{StartedAt: time.Now()}

	for _, check := range Checks() {
		result := CheckResult{ID: check.ID, Description: check.Description}

		columns, rows, err := s.repo.RunCheck(ctx, check.SQL)
		switch {
		case err != nil:
			result.Status = StatusError
			result.Err = err.Error()
			report.Errored++
			s.logger.Error().Err(err).Int("check", check.ID).Str("description", check.Description).Msg("qa check errored")
		case len(rows) > 0:
			result.Status = StatusFail
			result.Columns = columns
			result.Rows = rows
			report.Failed++
			s.logger.Warn().Int("check", check.ID).Str("description", check.Description).Int("rows", len(rows)).Msg("qa check failed")
		default:
			result.Status = StatusPass
			report.Passed++
			s.logger.Debug().Int("check", check.ID).Str("description", check.Description).Msg("qa check passed")
		}

		telemetry.RecordQACheck(strings.ToLower(string(result.Status)))
		report.Results = append(report.Results, result)
	}

	s.logger.Info().
		Int("passed", report.Passed).
		Int("failed", report.Failed).
		Int("errored", report.Errored).
		Msg("qa battery complete")
	return report
}
