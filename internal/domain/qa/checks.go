package qa

// Checks returns the battery in execution order. Checks 1 through 7 guard the
// core star-schema invariants; 8 and 9 extend the battery to diagnosis
// bridges and calendar continuity.
func Checks() []Check {
	return []Check{
		{
			ID:          1,
			Description: "Check for duplicate patient IDs",
			SQL:         `SELECT patient_id, COUNT(*) FROM dim_patient GROUP BY patient_id HAVING COUNT(*) > 1`,
		},
		{
			ID:          2,
			Description: "Check for missing patient demographics",
			SQL:         `SELECT patient_id, age_group, sex FROM dim_patient WHERE age_group IS NULL OR sex IS NULL`,
		},
		{
			ID:          3,
			Description: "Check for orphan encounters",
			SQL: `SELECT f.encounter_id FROM fact_encounters f
				LEFT JOIN dim_patient dp ON f.patient_key = dp.patient_key
				WHERE dp.patient_key IS NULL`,
		},
		{
			ID:          4,
			Description: "Check for duplicate encounter IDs",
			SQL:         `SELECT encounter_id, COUNT(*) FROM fact_encounters GROUP BY encounter_id HAVING COUNT(*) > 1`,
		},
		{
			ID:          5,
			Description: "Check for missing encounter dates",
			SQL:         `SELECT encounter_id FROM fact_encounters WHERE date_id IS NULL`,
		},
		{
			ID:          6,
			Description: "Check for orphan procedures in bridge",
			SQL: `SELECT bp.encounter_key, bp.procedure_key FROM bridge_encounter_procedures bp
				LEFT JOIN dim_procedure dp ON bp.procedure_key = dp.procedure_key
				WHERE dp.procedure_key IS NULL`,
		},
		{
			// Distinct serial procedure ids sharing one code would break the
			// digit-derived key mapping downstream consumers rely on.
			ID:          7,
			Description: "Check for duplicate procedure codes",
			SQL:         `SELECT procedure_code, COUNT(*) FROM dim_procedure GROUP BY procedure_code HAVING COUNT(*) > 1`,
		},
		{
			ID:          8,
			Description: "Check for orphan diagnoses in bridge",
			SQL: `SELECT bd.encounter_key, bd.diagnosis_key FROM bridge_encounter_diagnoses bd
				LEFT JOIN dim_diagnosis dd ON bd.diagnosis_key = dd.diagnosis_key
				WHERE dd.diagnosis_key IS NULL`,
		},
		{
			ID:          9,
			Description: "Check for calendar gaps in dim_time",
			SQL: `SELECT gs.day::DATE AS missing_date
				FROM (SELECT generate_series(MIN(full_date), MAX(full_date), INTERVAL '1 day') AS day FROM dim_time) gs
				LEFT JOIN dim_time t ON t.full_date = gs.day::DATE
				WHERE t.date_id IS NULL`,
		},
	}
}
