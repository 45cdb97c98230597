package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radpipe/radpipe/internal/platform/db"
)

// ErrRunNotFound is returned when no pipeline run matches the requested id.
var ErrRunNotFound = errors.New("pipeline run not found")

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Insert(ctx context.Context, run *Run) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pipeline_runs (run_id, stage, status, started_at, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		run.RunID, run.Stage, run.Status, run.StartedAt, run.Detail,
	)
	return err
}

func (r *repoPG) Finish(ctx context.Context, runID uuid.UUID, status string, detail map[string]interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE pipeline_runs
		SET status = $2, finished_at = NOW(), detail = $3
		WHERE run_id = $1`,
		runID, status, detail,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `run_id, stage, status, started_at, finished_at, detail`

func (r *repoPG) Get(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE run_id = $1`, runID)

	var run Run
	err := row.Scan(&run.RunID, &run.Stage, &run.Status, &run.StartedAt, &run.FinishedAt, &run.Detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repoPG) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.Stage, &run.Status, &run.StartedAt, &run.FinishedAt, &run.Detail); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
