package warehouse

import "time"

// TimeRow is one calendar day of the dim_time dimension.
type TimeRow struct {
	DateID        int       `db:"date_id" json:"date_id"`
	FullDate      time.Time `db:"full_date" json:"full_date"`
	Year          int       `db:"year" json:"year"`
	Quarter       int       `db:"quarter" json:"quarter"`
	Month         int       `db:"month" json:"month"`
	MonthName     string    `db:"month_name" json:"month_name"`
	Week          int       `db:"week" json:"week"`
	DayOfMonth    int       `db:"day_of_month" json:"day_of_month"`
	DayOfWeek     int       `db:"day_of_week" json:"day_of_week"`
	DayName       string    `db:"day_name" json:"day_name"`
	IsWeekend     bool      `db:"is_weekend" json:"is_weekend"`
	IsHoliday     bool      `db:"is_holiday" json:"is_holiday"`
	FiscalYear    int       `db:"fiscal_year" json:"fiscal_year"`
	FiscalQuarter int       `db:"fiscal_quarter" json:"fiscal_quarter"`
}

// TransformStats reports rows written per warehouse table in one rebuild.
type TransformStats struct {
	DimTimeRows         int64 `json:"dim_time_records"`
	DimPatientRows      int64 `json:"dim_patient_records"`
	DimProcedureRows    int64 `json:"dim_procedure_records"`
	DimDiagnosisRows    int64 `json:"dim_diagnosis_records"`
	FactEncounterRows   int64 `json:"fact_encounters_records"`
	BridgeProcedureRows int64 `json:"bridge_procedures_records"`
	BridgeDiagnosisRows int64 `json:"bridge_diagnoses_records"`
}
