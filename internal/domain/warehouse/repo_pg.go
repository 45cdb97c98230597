package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radpipe/radpipe/internal/platform/db"
)

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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
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

// TruncateAll clears the warehouse in foreign-key dependency order.
func (r *repoPG) TruncateAll(ctx context.Context) error {
	tables := []string{
		"bridge_encounter_diagnoses",
		"bridge_encounter_procedures",
		"fact_encounters",
		"dim_diagnosis",
		"dim_procedure",
		"dim_patient",
		"dim_time",
	}
	q := r.conn(ctx)
	for _, table := range tables {
		if _, err := q.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) EncounterDateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var first, last *time.Time
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT MIN(encounter_date), MAX(encounter_date) FROM encounters`).Scan(&first, &last)
	if err != nil {
		return nil, nil, err
	}
	return first, last, nil
}

func (r *repoPG) InsertTimeRows(ctx context.Context, rows []TimeRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(`
			INSERT INTO dim_time (date_id, full_date, year, quarter, month, month_name,
				week, day_of_month, day_of_week, day_name, is_weekend,
				is_holiday, fiscal_year, fiscal_quarter)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (date_id) DO NOTHING`,
			row.DateID, row.FullDate, row.Year, row.Quarter, row.Month, row.MonthName,
			row.Week, row.DayOfMonth, row.DayOfWeek, row.DayName, row.IsWeekend,
			row.IsHoliday, row.FiscalYear, row.FiscalQuarter,
		)
	}
	return execBatch(ctx, r.conn(ctx), b)
}

// PopulateDimPatient maps operational patients to integer keys by digit
// extraction. Age is taken at the patient's earliest encounter; patients with
// no encounters carry a NULL age, which the CASE sends to the Elderly bucket.
func (r *repoPG) PopulateDimPatient(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dim_patient (patient_id, age, sex, age_group, location)
		SELECT
			CAST(REGEXP_REPLACE(p.patient_id, '\D', '', 'g') AS INTEGER) AS patient_id,
			EXTRACT(YEAR FROM AGE(MIN(e.encounter_date), p.date_of_birth))::INTEGER AS age,
			p.gender AS sex,
			CASE
				WHEN EXTRACT(YEAR FROM AGE(MIN(e.encounter_date), p.date_of_birth)) < 18 THEN 'Pediatric'
				WHEN EXTRACT(YEAR FROM AGE(MIN(e.encounter_date), p.date_of_birth)) BETWEEN 18 AND 35 THEN 'Young Adult'
				WHEN EXTRACT(YEAR FROM AGE(MIN(e.encounter_date), p.date_of_birth)) BETWEEN 36 AND 55 THEN 'Middle Age'
				WHEN EXTRACT(YEAR FROM AGE(MIN(e.encounter_date), p.date_of_birth)) BETWEEN 56 AND 75 THEN 'Senior'
				ELSE 'Elderly'
			END AS age_group,
			'Kigali' AS location
		FROM patients p
		LEFT JOIN encounters e ON p.patient_id = e.patient_id
		GROUP BY p.patient_id, p.date_of_birth, p.gender
		ON CONFLICT (patient_id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) PopulateDimProcedure(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dim_procedure (procedure_id, external_procedure_id, procedure_code,
			procedure_name, modality, projection, body_part)
		SELECT DISTINCT
			p.procedure_id,
			NULL::VARCHAR(100),
			p.procedure_code,
			p.procedure_name,
			p.modality,
			p.view_position AS projection,
			p.body_part
		FROM procedures p
		WHERE p.procedure_id IS NOT NULL
		ON CONFLICT (procedure_id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) PopulateDimDiagnosis(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dim_diagnosis (diagnosis_id, diagnosis_code, diagnosis_name, category, severity)
		SELECT
			CAST(REGEXP_REPLACE(d.diagnosis_id, '\D', '', 'g') AS INTEGER) AS diagnosis_id,
			d.diagnosis_code,
			d.diagnosis_name,
			d.diagnosis_category AS category,
			d.severity
		FROM diagnoses d
		ON CONFLICT (diagnosis_id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PopulateFactEncounters joins dim_patient INNER, so encounters whose patient
// never made it into the dimension are excluded rather than null-padded.
// COUNT(DISTINCT ...) keeps the LEFT JOIN fan-out from inflating counts.
func (r *repoPG) PopulateFactEncounters(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO fact_encounters (encounter_id, patient_key, date_id, facility_id,
			encounter_type, procedure_count, diagnosis_count, report_count)
		SELECT
			CAST(REGEXP_REPLACE(e.encounter_id, '\D', '', 'g') AS INTEGER) AS encounter_id,
			dp.patient_key,
			TO_CHAR(e.encounter_date, 'YYYYMMDD')::INTEGER AS date_id,
			CAST(REGEXP_REPLACE(e.facility_id, '\D', '', 'g') AS INTEGER) AS facility_id,
			e.encounter_type,
			COALESCE(COUNT(DISTINCT p.procedure_id), 0) AS procedure_count,
			COALESCE(COUNT(DISTINCT ed.diagnosis_id), 0) AS diagnosis_count,
			COALESCE(COUNT(DISTINCT r.report_id), 0) AS report_count
		FROM encounters e
		JOIN dim_patient dp
		  ON dp.patient_id = CAST(REGEXP_REPLACE(e.patient_id, '\D', '', 'g') AS INTEGER)
		LEFT JOIN procedures p
		  ON e.encounter_id = p.encounter_id
		LEFT JOIN encounter_diagnoses ed
		  ON e.encounter_id = ed.encounter_id
		LEFT JOIN reports r
		  ON e.encounter_id = r.encounter_id
		GROUP BY e.encounter_id, dp.patient_key, e.encounter_date, e.facility_id, e.encounter_type
		ON CONFLICT (encounter_id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) PopulateBridgeProcedures(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bridge_encounter_procedures (encounter_key, procedure_key)
		SELECT DISTINCT
			f.encounter_key,
			dp.procedure_key
		FROM fact_encounters f
		JOIN encounters e
		  ON CAST(REGEXP_REPLACE(e.encounter_id, '\D', '', 'g') AS INTEGER) = f.encounter_id
		JOIN procedures p
		  ON e.encounter_id = p.encounter_id
		JOIN dim_procedure dp
		  ON dp.procedure_id = p.procedure_id
		ON CONFLICT (encounter_key, procedure_key) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) PopulateBridgeDiagnoses(ctx context.Context) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bridge_encounter_diagnoses (encounter_key, diagnosis_key, diagnosis_type)
		SELECT DISTINCT
			f.encounter_key,
			dd.diagnosis_key,
			CASE WHEN ed.is_primary THEN 'Primary' ELSE 'Secondary' END AS diagnosis_type
		FROM fact_encounters f
		JOIN encounters e
		  ON CAST(REGEXP_REPLACE(e.encounter_id, '\D', '', 'g') AS INTEGER) = f.encounter_id
		JOIN encounter_diagnoses ed
		  ON e.encounter_id = ed.encounter_id
		JOIN dim_diagnosis dd
		  ON dd.diagnosis_id = CAST(REGEXP_REPLACE(ed.diagnosis_id, '\D', '', 'g') AS INTEGER)
		ON CONFLICT (encounter_key, diagnosis_key) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
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
