package ingest

import "time"

// Patient maps to the patients table. Feed-originated rows carry a PAT-prefixed
// id and a correlation email derived from the external patient id.
type Patient struct {
	PatientID         string     `db:"patient_id" json:"patient_id"`
	DateOfBirth       time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender            string     `db:"gender" json:"gender"`
	Ethnicity         *string    `db:"ethnicity" json:"ethnicity,omitempty"`
	PrimaryLanguage   string     `db:"primary_language" json:"primary_language"`
	ContactEmail      string     `db:"contact_email" json:"contact_email"`
	ContactPhone      string     `db:"contact_phone" json:"contact_phone"`
	AddressLine1      string     `db:"address_line1" json:"address_line1"`
	AddressCity       string     `db:"address_city" json:"address_city"`
	AddressState      string     `db:"address_state" json:"address_state"`
	AddressZipcode    string     `db:"address_zipcode" json:"address_zipcode"`
	InsuranceProvider string     `db:"insurance_provider" json:"insurance_provider"`
	InsuranceID       string     `db:"insurance_id" json:"insurance_id"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	CreatedAt         *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// Encounter maps to the encounters table.
type Encounter struct {
	EncounterID          string    `db:"encounter_id" json:"encounter_id"`
	PatientID            string    `db:"patient_id" json:"patient_id"`
	FacilityID           string    `db:"facility_id" json:"facility_id"`
	EncounterDate        time.Time `db:"encounter_date" json:"encounter_date"`
	EncounterDatetime    time.Time `db:"encounter_datetime" json:"encounter_datetime"`
	EncounterType        string    `db:"encounter_type" json:"encounter_type"`
	AdmissionSource      string    `db:"admission_source" json:"admission_source"`
	DischargeDisposition string    `db:"discharge_disposition" json:"discharge_disposition"`
	PrimaryPhysician     string    `db:"primary_physician" json:"primary_physician"`
	ReferringPhysician   *string   `db:"referring_physician" json:"referring_physician,omitempty"`
	VisitReason          string    `db:"visit_reason" json:"visit_reason"`
}

// Procedure maps to the procedures table. The serial procedure_id is assigned
// by the database; the natural key is (encounter_id, procedure_code).
type Procedure struct {
	EncounterID           string    `db:"encounter_id" json:"encounter_id"`
	ProcedureCode         string    `db:"procedure_code" json:"procedure_code"`
	ProcedureName         string    `db:"procedure_name" json:"procedure_name"`
	ProcedureCategory     string    `db:"procedure_category" json:"procedure_category"`
	BodyPart              string    `db:"body_part" json:"body_part"`
	Laterality            string    `db:"laterality" json:"laterality"`
	ViewPosition          string    `db:"view_position" json:"view_position"`
	Modality              string    `db:"modality" json:"modality"`
	PerformingRadiologist string    `db:"performing_radiologist" json:"performing_radiologist"`
	ProcedureDatetime     time.Time `db:"procedure_datetime" json:"procedure_datetime"`
	DurationMinutes       int       `db:"procedure_duration_minutes" json:"procedure_duration_minutes"`
	RadiationDoseMGy      *float64  `db:"radiation_dose_mgy" json:"radiation_dose_mgy,omitempty"`
}

// DiagnosisAssignment maps to the encounter_diagnoses table.
type DiagnosisAssignment struct {
	EncounterID       string    `db:"encounter_id" json:"encounter_id"`
	DiagnosisID       string    `db:"diagnosis_id" json:"diagnosis_id"`
	Rank              int       `db:"diagnosis_rank" json:"diagnosis_rank"`
	IsPrimary         bool      `db:"is_primary" json:"is_primary"`
	Confidence        float64   `db:"diagnosis_confidence" json:"diagnosis_confidence"`
	DiagnosedBy       string    `db:"diagnosed_by" json:"diagnosed_by"`
	DiagnosisDatetime time.Time `db:"diagnosis_datetime" json:"diagnosis_datetime"`
	Notes             string    `db:"notes" json:"notes"`
}

// Report maps to the reports table. Reports have no natural conflict key and
// accumulate across loads.
type Report struct {
	EncounterID      string    `db:"encounter_id" json:"encounter_id"`
	ReportType       string    `db:"report_type" json:"report_type"`
	ReportStatus     string    `db:"report_status" json:"report_status"`
	ReportText       string    `db:"report_text" json:"report_text"`
	Findings         string    `db:"findings" json:"findings"`
	Impression       string    `db:"impression" json:"impression"`
	Recommendations  string    `db:"recommendations" json:"recommendations"`
	RadiologistName  string    `db:"radiologist_name" json:"radiologist_name"`
	DictatedDatetime time.Time `db:"dictated_datetime" json:"dictated_datetime"`
	SignedDatetime   time.Time `db:"signed_datetime" json:"signed_datetime"`
	CriticalFinding  bool      `db:"critical_finding" json:"critical_finding"`
}

// PatientSeed is the slice of a feed record that identity resolution needs.
type PatientSeed struct {
	ExternalID string
	Age        int
	Gender     string
}

// LoadStats accumulates counters across all batches of one load run.
type LoadStats struct {
	RecordsProcessed  int `json:"records_processed"`
	RecordsSkipped    int `json:"records_skipped"`
	PatientsCreated   int `json:"patients_created"`
	EncountersCreated int `json:"encounters_created"`
	ProceduresCreated int `json:"procedures_created"`
	DiagnosesAssigned int `json:"diagnoses_assigned"`
	ReportsCreated    int `json:"reports_created"`
}
