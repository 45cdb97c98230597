package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/platform/telemetry"
)

var (
	// ErrRunActive is returned when a stage is triggered while another one
	// is still executing in this process.
	ErrRunActive = errors.New("a pipeline run is already active")

	// ErrUnknownStage is returned for stage names with no registered runner.
	ErrUnknownStage = errors.New("unknown pipeline stage")
)

// StageFunc executes one pipeline stage and returns its counters for the
// run's detail document.
type StageFunc func(ctx context.Context) (map[string]interface{}, error)

// Service sequences stage executions and records each one in pipeline_runs.
// A process-wide mutex serializes triggered runs; the engines themselves
// assume single-instance execution, so concurrent triggers are refused, not
// queued.
type Service struct {
	repo   Repository
	stages map[string]StageFunc
	logger zerolog.Logger

	mu sync.Mutex
}

func NewService(repo Repository, stages map[string]StageFunc, logger zerolog.Logger) *Service {
	return &Service{repo: repo, stages: stages, logger: logger}
}

// Stages lists the registered stage names in canonical execution order.
func (s *Service) Stages() []string {
	order := []string{StageSeed, StageFetch, StageLoad, StageTransform, StageQA, StageAnalytics}
	var names []string
	for _, name := range order {
		if _, ok := s.stages[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Execute runs one stage under the single-flight lock, bracketing it with a
// running row and a succeeded/failed update. The returned Run reflects the
// final state; the stage's error comes back alongside it so callers can both
// inspect the audit trail and propagate the failure.
func (s *Service) Execute(ctx context.Context, stage string) (*Run, error) {
	fn, ok := s.stages[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if !s.mu.TryLock() {
		return nil, ErrRunActive
	}
	defer s.mu.Unlock()

	return s.execute(ctx, stage, fn)
}

// Sequence runs the named stages strictly in the given order, stopping at the
// first failure. It holds the single-flight lock for the whole sequence.
func (s *Service) Sequence(ctx context.Context, stages []string) ([]Run, error) {
	for _, stage := range stages {
		if _, ok := s.stages[stage]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
		}
	}
	if !s.mu.TryLock() {
		return nil, ErrRunActive
	}
	defer s.mu.Unlock()

	var runs []Run
	for _, stage := range stages {
		run, err := s.execute(ctx, stage, s.stages[stage])
		if run != nil {
			runs = append(runs, *run)
		}
		if err != nil {
			return runs, fmt.Errorf("stage %s: %w", stage, err)
		}
	}
	return runs, nil
}

func (s *Service) execute(ctx context.Context, stage string, fn StageFunc) (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		Stage:     stage,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}

	logger := s.logger.With().Str("run_id", run.RunID.String()).Str("stage", stage).Logger()
	logger.Info().Msg("stage started")
	start := time.Now()

	detail, stageErr := fn(ctx)
	elapsed := time.Since(start)
	telemetry.RecordStage(stage, elapsed, stageErr)

	status := StatusSucceeded
	if stageErr != nil {
		status = StatusFailed
		if detail == nil {
			detail = map[string]interface{}{}
		}
		detail["error"] = stageErr.Error()
	}
	if err := s.repo.Finish(ctx, run.RunID, status, detail); err != nil {
		logger.Error().Err(err).Msg("record run finish")
		if stageErr == nil {
			stageErr = fmt.Errorf("record run finish: %w", err)
			status = StatusFailed
		}
	}

	run.Status = status
	run.Detail = detail
	now := time.Now().UTC()
	run.FinishedAt = &now

	if stageErr != nil {
		logger.Error().Err(stageErr).Dur("elapsed", elapsed).Msg("stage failed")
		return run, stageErr
	}
	logger.Info().Dur("elapsed", elapsed).Msg("stage succeeded")
	return run, nil
}

// Get returns one run by id.
func (s *Service) Get(ctx context.Context, runID uuid.UUID) (*Run, error) {
	return s.repo.Get(ctx, runID)
}

// Recent returns the latest runs, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Run, error) {
	return s.repo.Recent(ctx, limit)
}
