package ingest

import "context"

type Repository interface {
	// Reference data
	DiagnosisCodes(ctx context.Context) (map[string]string, error)
	HospitalFacilityIDs(ctx context.Context) ([]string, error)

	// Identity resolution
	PatientIDsByEmail(ctx context.Context, emails []string) (map[string]string, error)
	MaxFeedPatientID(ctx context.Context) (string, error)
	InsertPatients(ctx context.Context, patients []Patient) (int64, error)

	// Incremental filter
	ExistingProcedureCodes(ctx context.Context) (map[string]struct{}, error)

	// Batched loads; each insert is conflict-safe on its natural key and
	// returns the number of rows actually written.
	InsertEncounters(ctx context.Context, encounters []Encounter) (int64, error)
	InsertProcedures(ctx context.Context, procedures []Procedure) (int64, error)
	InsertDiagnoses(ctx context.Context, assignments []DiagnosisAssignment) (int64, error)
	InsertReports(ctx context.Context, reports []Report) (int64, error)
}
