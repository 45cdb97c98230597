package ingest

import (
	"context"
	"strings"
)

// mockRepo is an in-memory Repository. Inserts honor the same conflict
// semantics as the Postgres implementation: natural-key collisions write
// nothing and are excluded from the returned count.
type mockRepo struct {
	diagnoses  map[string]string
	facilities []string

	patients   map[string]Patient // keyed by contact email
	encounters map[string]Encounter
	procRows   map[string]Procedure
	diagRows   map[string]DiagnosisAssignment
	reports    []Report

	encounterCalls    int
	failEncounterCall int
	failEncounterErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		diagnoses:  map[string]string{},
		patients:   map[string]Patient{},
		encounters: map[string]Encounter{},
		procRows:   map[string]Procedure{},
		diagRows:   map[string]DiagnosisAssignment{},
	}
}

func (m *mockRepo) DiagnosisCodes(ctx context.Context) (map[string]string, error) {
	return m.diagnoses, nil
}

func (m *mockRepo) HospitalFacilityIDs(ctx context.Context) ([]string, error) {
	return m.facilities, nil
}

func (m *mockRepo) PatientIDsByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	out := map[string]string{}
	for _, email := range emails {
		if p, ok := m.patients[email]; ok {
			out[email] = p.PatientID
		}
	}
	return out, nil
}

func (m *mockRepo) MaxFeedPatientID(ctx context.Context) (string, error) {
	var max string
	for _, p := range m.patients {
		if strings.HasPrefix(p.PatientID, "PAT") && p.PatientID > max {
			max = p.PatientID
		}
	}
	return max, nil
}

func (m *mockRepo) InsertPatients(ctx context.Context, patients []Patient) (int64, error) {
	for _, p := range patients {
		m.patients[p.ContactEmail] = p
	}
	return int64(len(patients)), nil
}

func (m *mockRepo) ExistingProcedureCodes(ctx context.Context) (map[string]struct{}, error) {
	codes := make(map[string]struct{}, len(m.procRows))
	for _, p := range m.procRows {
		if strings.HasPrefix(p.ProcedureCode, "NIH_") {
			codes[p.ProcedureCode] = struct{}{}
		}
	}
	return codes, nil
}

func (m *mockRepo) InsertEncounters(ctx context.Context, encounters []Encounter) (int64, error) {
	m.encounterCalls++
	if m.failEncounterCall > 0 && m.encounterCalls == m.failEncounterCall {
		return 0, m.failEncounterErr
	}
	var n int64
	for _, e := range encounters {
		if _, ok := m.encounters[e.EncounterID]; ok {
			continue
		}
		m.encounters[e.EncounterID] = e
		n++
	}
	return n, nil
}

func (m *mockRepo) InsertProcedures(ctx context.Context, procedures []Procedure) (int64, error) {
	var n int64
	for _, p := range procedures {
		key := p.EncounterID + "|" + p.ProcedureCode
		if _, ok := m.procRows[key]; ok {
			continue
		}
		m.procRows[key] = p
		n++
	}
	return n, nil
}

func (m *mockRepo) InsertDiagnoses(ctx context.Context, assignments []DiagnosisAssignment) (int64, error) {
	var n int64
	for _, d := range assignments {
		key := d.EncounterID + "|" + d.DiagnosisID
		if _, ok := m.diagRows[key]; ok {
			continue
		}
		m.diagRows[key] = d
		n++
	}
	return n, nil
}

func (m *mockRepo) InsertReports(ctx context.Context, reports []Report) (int64, error) {
	m.reports = append(m.reports, reports...)
	return int64(len(reports)), nil
}
