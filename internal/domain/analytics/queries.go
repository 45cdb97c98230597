package analytics

// Query is one canned analytics question. Name doubles as the output file
// stem: <name>_results.csv.
type Query struct {
	Name string
	SQL  string
}

// Queries returns the standard analytics set, run in order.
func Queries() []Query {
	return []Query{
		{
			Name: "encounters_per_month",
			SQL: `
				SELECT
					dt.year,
					dt.month,
					dt.month_name,
					COUNT(DISTINCT f.encounter_key) AS total_encounters
				FROM fact_encounters f
				JOIN dim_time dt ON f.date_id = dt.date_id
				GROUP BY dt.year, dt.month, dt.month_name
				ORDER BY dt.year, dt.month`,
		},
		{
			Name: "top_diagnoses_by_age",
			SQL: `
				WITH ranked_diagnoses AS (
					SELECT
						dp.age_group,
						dd.diagnosis_name,
						COUNT(*) AS frequency,
						RANK() OVER (PARTITION BY dp.age_group ORDER BY COUNT(*) DESC) AS rank
					FROM fact_encounters f
					JOIN dim_patient dp ON f.patient_key = dp.patient_key
					JOIN bridge_encounter_diagnoses bd ON f.encounter_key = bd.encounter_key
					JOIN dim_diagnosis dd ON bd.diagnosis_key = dd.diagnosis_key
					WHERE bd.diagnosis_type = 'Primary'
					GROUP BY dp.age_group, dd.diagnosis_name
				)
				SELECT age_group, diagnosis_name, frequency, rank
				FROM ranked_diagnoses
				WHERE rank <= 5
				ORDER BY age_group, rank`,
		},
		{
			Name: "avg_procedures_per_patient",
			SQL: `
				SELECT
					dp.age_group,
					COUNT(DISTINCT dp.patient_key) AS patient_count,
					SUM(f.procedure_count) AS total_procedures,
					ROUND(SUM(f.procedure_count)::NUMERIC /
					      NULLIF(COUNT(DISTINCT dp.patient_key), 0), 2) AS avg_procedures_per_patient
				FROM fact_encounters f
				JOIN dim_patient dp ON f.patient_key = dp.patient_key
				GROUP BY dp.age_group
				ORDER BY dp.age_group`,
		},
	}
}
