package ingest

import (
	"context"

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

func (r *repoPG) DiagnosisCodes(ctx context.Context) (map[string]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT diagnosis_code, diagnosis_id FROM diagnoses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[string]string)
	for rows.Next() {
		var code, id string
		if err := rows.Scan(&code, &id); err != nil {
			return nil, err
		}
		codes[code] = id
	}
	return codes, rows.Err()
}

func (r *repoPG) HospitalFacilityIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT facility_id FROM facilities WHERE facility_type = 'Hospital' ORDER BY facility_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) PatientIDsByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	if len(emails) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT contact_email, patient_id FROM patients WHERE contact_email = ANY($1)`, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byEmail := make(map[string]string, len(emails))
	for rows.Next() {
		var email, id string
		if err := rows.Scan(&email, &id); err != nil {
			return nil, err
		}
		byEmail[email] = id
	}
	return byEmail, rows.Err()
}

func (r *repoPG) MaxFeedPatientID(ctx context.Context) (string, error) {
	var max *string
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT MAX(patient_id) FROM patients WHERE patient_id LIKE 'PAT%'`).Scan(&max)
	if err != nil {
		return "", err
	}
	if max == nil {
		return "", nil
	}
	return *max, nil
}

func (r *repoPG) ExistingProcedureCodes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT procedure_code FROM procedures WHERE procedure_code LIKE 'NIH_%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

func (r *repoPG) InsertPatients(ctx context.Context, patients []Patient) (int64, error) {
	if len(patients) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, p := range patients {
		b.Queue(`
			INSERT INTO patients (patient_id, date_of_birth, gender, ethnicity, primary_language,
				contact_email, contact_phone, address_line1, address_city,
				address_state, address_zipcode, insurance_provider, insurance_id, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			p.PatientID, p.DateOfBirth, p.Gender, p.Ethnicity, p.PrimaryLanguage,
			p.ContactEmail, p.ContactPhone, p.AddressLine1, p.AddressCity,
			p.AddressState, p.AddressZipcode, p.InsuranceProvider, p.InsuranceID, p.IsActive,
		)
	}
	return execBatch(ctx, r.conn(ctx), b)
}

func (r *repoPG) InsertEncounters(ctx context.Context, encounters []Encounter) (int64, error) {
	if len(encounters) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, e := range encounters {
		b.Queue(`
			INSERT INTO encounters (encounter_id, patient_id, facility_id, encounter_date,
				encounter_datetime, encounter_type, admission_source,
				discharge_disposition, primary_physician, referring_physician, visit_reason)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (encounter_id) DO NOTHING`,
			e.EncounterID, e.PatientID, e.FacilityID, e.EncounterDate,
			e.EncounterDatetime, e.EncounterType, e.AdmissionSource,
			e.DischargeDisposition, e.PrimaryPhysician, e.ReferringPhysician, e.VisitReason,
		)
	}
	return execBatch(ctx, r.conn(ctx), b)
}

func (r *repoPG) InsertProcedures(ctx context.Context, procedures []Procedure) (int64, error) {
	if len(procedures) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, p := range procedures {
		b.Queue(`
			INSERT INTO procedures (encounter_id, procedure_code, procedure_name, procedure_category,
				body_part, laterality, view_position, modality, performing_radiologist,
				procedure_datetime, procedure_duration_minutes, radiation_dose_mgy)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (encounter_id, procedure_code) DO NOTHING`,
			p.EncounterID, p.ProcedureCode, p.ProcedureName, p.ProcedureCategory,
			p.BodyPart, p.Laterality, p.ViewPosition, p.Modality, p.PerformingRadiologist,
			p.ProcedureDatetime, p.DurationMinutes, p.RadiationDoseMGy,
		)
	}
	return execBatch(ctx, r.conn(ctx), b)
}

func (r *repoPG) InsertDiagnoses(ctx context.Context, assignments []DiagnosisAssignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, d := range assignments {
		b.Queue(`
			INSERT INTO encounter_diagnoses (encounter_id, diagnosis_id, diagnosis_rank,
				is_primary, diagnosis_confidence, diagnosed_by, diagnosis_datetime, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (encounter_id, diagnosis_id) DO NOTHING`,
			d.EncounterID, d.DiagnosisID, d.Rank,
			d.IsPrimary, d.Confidence, d.DiagnosedBy, d.DiagnosisDatetime, d.Notes,
		)
	}
	return execBatch(ctx, r.conn(ctx), b)
}

func (r *repoPG) InsertReports(ctx context.Context, reports []Report) (int64, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for _, rep := range reports {
		b.Queue(`
			INSERT INTO reports (encounter_id, report_type, report_status, report_text,
				findings, impression, recommendations, radiologist_name,
				dictated_datetime, signed_datetime, critical_finding, critical_notification_datetime)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULL)`,
			rep.EncounterID, rep.ReportType, rep.ReportStatus, rep.ReportText,
			rep.Findings, rep.Impression, rep.Recommendations, rep.RadiologistName,
			rep.DictatedDatetime, rep.SignedDatetime, rep.CriticalFinding,
		)
	}
	return execBatch(ctx, r.conn(ctx), b)
}

// execBatch pipelines the queued statements over one round trip and sums the
// rows each statement actually wrote.
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
