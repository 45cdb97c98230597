package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/platform/db"
)

// Result reports how many reference rows a seed run actually wrote. Re-runs
// against an already-seeded store report zero.
type Result struct {
	Diagnoses  int64 `json:"diagnoses"`
	Facilities int64 `json:"facilities"`
}

// Seeder installs the reference data the load engine depends on: the
// diagnosis catalog and the facility roster. Seeding is idempotent; existing
// rows are left untouched.
type Seeder struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewSeeder(pool *pgxpool.Pool, logger zerolog.Logger) *Seeder {
	return &Seeder{pool: pool, logger: logger}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (s *Seeder) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

// Seed writes the diagnosis catalog and a generated facility roster of
// facilityCount entries in one transaction.
func (s *Seeder) Seed(ctx context.Context, facilityCount int, randSeed int64) (*Result, error) {
	start := time.Now()
	res := &Result{}

	err := db.RunInTx(ctx, s.pool, func(ctx context.Context) error {
		n, err := s.insertDiagnoses(ctx, Catalog())
		if err != nil {
			return fmt.Errorf("seed diagnoses: %w", err)
		}
		res.Diagnoses = n

		n, err = s.insertFacilities(ctx, GenerateFacilities(facilityCount, randSeed))
		if err != nil {
			return fmt.Errorf("seed facilities: %w", err)
		}
		res.Facilities = n
		return nil
	})
	if err != nil {
		return res, err
	}

	s.logger.Info().
		Int64("diagnoses", res.Diagnoses).
		Int64("facilities", res.Facilities).
		Dur("elapsed", time.Since(start)).
		Msg("reference data seeded")
	return res, nil
}

func (s *Seeder) insertDiagnoses(ctx context.Context, diagnoses []Diagnosis) (int64, error) {
	b := &pgx.Batch{}
	for _, d := range diagnoses {
		b.Queue(`
			INSERT INTO diagnoses (diagnosis_id, diagnosis_code, diagnosis_name,
				diagnosis_category, severity, is_chronic, is_reportable, description)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT DO NOTHING`,
			d.ID, d.Code, d.Name, d.Category, d.Severity, d.IsChronic, d.IsReportable, d.Description,
		)
	}
	return execBatch(ctx, s.conn(ctx), b)
}

func (s *Seeder) insertFacilities(ctx context.Context, facilities []Facility) (int64, error) {
	b := &pgx.Batch{}
	for _, f := range facilities {
		b.Queue(`
			INSERT INTO facilities (facility_id, facility_name, facility_type, address_line1,
				address_city, address_state, address_zipcode, phone,
				total_beds, has_emergency, has_icu)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (facility_id) DO NOTHING`,
			f.ID, f.Name, f.Type, f.AddressLine1,
			f.City, f.State, f.Zipcode, f.Phone,
			f.TotalBeds, f.HasEmergency, f.HasICU,
		)
	}
	return execBatch(ctx, s.conn(ctx), b)
}

func execBatch(ctx context.Context, q querier, b *pgx.Batch) (int64, error) {
	br := q.SendBatch(ctx, b)
	var written int64
	for i := 0; i < b.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return written, err
		}
		written += tag.RowsAffected()
	}
	return written, br.Close()
}
