package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/feed"
)

func newTestService(repo Repository, batchSize int) *Service {
	s := NewService(nil, repo, feed.NewSynthesizer(1), batchSize, 1, zerolog.Nop())
	s.inTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	return s
}

// seedReferenceData installs the catalog subset and roster the tests load
// against. Cardiomegaly's code is deliberately absent so its assignments drop.
func seedReferenceData(repo *mockRepo) {
	repo.diagnoses = map[string]string{
		"J18.9": "DIAG001", // Pneumonia
		"J94.8": "DIAG037", // Effusion, Pleural_Thickening
		"R91.8": "DIAG029", // Nodule, No Finding
		"J81.0": "DIAG005", // Edema
		"D49.2": "DIAG028", // Mass
	}
	repo.facilities = []string{"FAC000001"}
}

func studyRecords() []feed.StudyRecord {
	return []feed.StudyRecord{
		{ImageIndex: "00000123_000.png", FindingLabels: "Pneumonia|Effusion", PatientID: "123", PatientAge: 58, PatientGender: "M", ViewPosition: "PA"},
		{ImageIndex: "00000123_001.png", FindingLabels: "No Finding", PatientID: "123", PatientAge: 58, PatientGender: "M", ViewPosition: "AP"},
		{ImageIndex: "00000456_000.png", FindingLabels: "Cardiomegaly", PatientID: "456", PatientAge: 44, PatientGender: "F", ViewPosition: "PA"},
	}
}

func TestLoadCreatesFullGraph(t *testing.T) {
	repo := newMockRepo()
	seedReferenceData(repo)
	s := newTestService(repo, 0)

	stats, err := s.Load(context.Background(), studyRecords())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if stats.RecordsProcessed != 3 || stats.RecordsSkipped != 0 {
		t.Errorf("processed/skipped = %d/%d, want 3/0", stats.RecordsProcessed, stats.RecordsSkipped)
	}
	if stats.PatientsCreated != 2 {
		t.Errorf("patients created = %d, want 2", stats.PatientsCreated)
	}
	if stats.EncountersCreated != 3 {
		t.Errorf("encounters created = %d, want 3", stats.EncountersCreated)
	}
	if stats.ProceduresCreated != 3 {
		t.Errorf("procedures created = %d, want 3", stats.ProceduresCreated)
	}
	// Pneumonia + Effusion, No Finding, and nothing for Cardiomegaly.
	if stats.DiagnosesAssigned != 3 {
		t.Errorf("diagnoses assigned = %d, want 3", stats.DiagnosesAssigned)
	}
	if stats.ReportsCreated != 3 {
		t.Errorf("reports created = %d, want 3", stats.ReportsCreated)
	}

	enc1, ok := repo.encounters["NIH_00000123_000_ENC"]
	if !ok {
		t.Fatal("encounter NIH_00000123_000_ENC missing")
	}
	enc2 := repo.encounters["NIH_00000123_001_ENC"]
	if enc1.PatientID == "" || enc1.PatientID != enc2.PatientID {
		t.Errorf("same-source encounters resolved to %s and %s", enc1.PatientID, enc2.PatientID)
	}
	if enc1.FacilityID != "FAC000001" {
		t.Errorf("facility = %s, want FAC000001", enc1.FacilityID)
	}
	if enc1.AdmissionSource != "Direct Admission" || enc1.DischargeDisposition != "Home" || enc1.VisitReason != "Scheduled Imaging" {
		t.Errorf("unexpected encounter defaults: %+v", enc1)
	}
	now := time.Now()
	if enc1.EncounterDatetime.Before(now.AddDate(0, 0, -731)) || enc1.EncounterDatetime.After(now.AddDate(0, 0, 2)) {
		t.Errorf("encounter datetime %v outside trailing window", enc1.EncounterDatetime)
	}

	proc, ok := repo.procRows["NIH_00000123_000_ENC|NIH_00000123_000"]
	if !ok {
		t.Fatal("procedure NIH_00000123_000 missing")
	}
	if proc.Modality != "X-Ray" || proc.ProcedureName != "X-Ray Chest" || proc.BodyPart != "Chest" {
		t.Errorf("unexpected procedure: %+v", proc)
	}
	if proc.RadiationDoseMGy == nil || *proc.RadiationDoseMGy < 0.1 || *proc.RadiationDoseMGy > 2.0 {
		t.Errorf("radiation dose = %v, want 0.1-2.0 for X-Ray", proc.RadiationDoseMGy)
	}
	if proc.DurationMinutes < 5 || proc.DurationMinutes > 15 {
		t.Errorf("duration = %d, want 5-15", proc.DurationMinutes)
	}

	primary, ok := repo.diagRows["NIH_00000123_000_ENC|DIAG001"]
	if !ok {
		t.Fatal("primary diagnosis missing")
	}
	if primary.Rank != 1 || !primary.IsPrimary || primary.Confidence != 0.95 {
		t.Errorf("primary diagnosis = %+v", primary)
	}
	if primary.Notes != "NIH diagnosis: Pneumonia" {
		t.Errorf("notes = %q", primary.Notes)
	}
	secondary, ok := repo.diagRows["NIH_00000123_000_ENC|DIAG037"]
	if !ok {
		t.Fatal("secondary diagnosis missing")
	}
	if secondary.Rank != 2 || secondary.IsPrimary {
		t.Errorf("secondary diagnosis = %+v", secondary)
	}
	if _, ok := repo.diagRows["NIH_00000456_000_ENC|DIAG001"]; ok {
		t.Error("Cardiomegaly record acquired an unrelated diagnosis")
	}

	if len(repo.reports) != 3 {
		t.Fatalf("reports = %d, want 3", len(repo.reports))
	}
	for _, rep := range repo.reports {
		if rep.ReportText == "" || rep.Findings == "" || rep.Impression == "" {
			t.Errorf("report for %s missing synthesized text", rep.EncounterID)
		}
		if got := rep.SignedDatetime.Sub(rep.DictatedDatetime); got != 2*time.Hour {
			t.Errorf("signed - dictated = %v, want 2h", got)
		}
	}
}

func TestLoadSecondRunSkipsEverything(t *testing.T) {
	repo := newMockRepo()
	seedReferenceData(repo)
	s := newTestService(repo, 0)

	if _, err := s.Load(context.Background(), studyRecords()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	stats, err := s.Load(context.Background(), studyRecords())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if stats.RecordsSkipped != 3 || stats.RecordsProcessed != 0 {
		t.Errorf("processed/skipped = %d/%d, want 0/3", stats.RecordsProcessed, stats.RecordsSkipped)
	}
	if stats.PatientsCreated != 0 || stats.EncountersCreated != 0 || stats.ReportsCreated != 0 {
		t.Errorf("second run wrote rows: %+v", stats)
	}
	if len(repo.encounters) != 3 || len(repo.reports) != 3 {
		t.Errorf("store mutated on second run: %d encounters, %d reports", len(repo.encounters), len(repo.reports))
	}
}

func TestLoadBatchFailureKeepsEarlierBatches(t *testing.T) {
	repo := newMockRepo()
	seedReferenceData(repo)
	repo.failEncounterCall = 3
	repo.failEncounterErr = errors.New("connection reset")
	s := newTestService(repo, 1)

	stats, err := s.Load(context.Background(), studyRecords())
	if err == nil {
		t.Fatal("expected error from third batch")
	}
	if !strings.Contains(err.Error(), "load batch 3/3") {
		t.Errorf("error = %v, want batch position in message", err)
	}
	if stats.EncountersCreated != 2 || stats.ReportsCreated != 2 {
		t.Errorf("encounters/reports = %d/%d, want 2/2 from committed batches", stats.EncountersCreated, stats.ReportsCreated)
	}
	if len(repo.encounters) != 2 {
		t.Errorf("store has %d encounters, want 2", len(repo.encounters))
	}
}

func TestLoadWithoutFacilitiesCreatesPatientsOnly(t *testing.T) {
	repo := newMockRepo()
	repo.diagnoses = map[string]string{"J18.9": "DIAG001"}
	s := newTestService(repo, 0)

	stats, err := s.Load(context.Background(), studyRecords())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.PatientsCreated != 2 {
		t.Errorf("patients created = %d, want 2", stats.PatientsCreated)
	}
	if stats.EncountersCreated != 0 || stats.ProceduresCreated != 0 || stats.DiagnosesAssigned != 0 || stats.ReportsCreated != 0 {
		t.Errorf("expected no encounter-dependent rows, got %+v", stats)
	}
}

func TestLoadCapsDiagnosesAtThree(t *testing.T) {
	repo := newMockRepo()
	seedReferenceData(repo)
	s := newTestService(repo, 0)

	records := []feed.StudyRecord{
		{
			ImageIndex:    "00000999_000.png",
			FindingLabels: "Pneumonia|Effusion|Edema|Nodule|Mass",
			PatientID:     "999",
			PatientAge:    61,
			PatientGender: "M",
			ViewPosition:  "PA",
		},
	}
	stats, err := s.Load(context.Background(), records)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.DiagnosesAssigned != 3 {
		t.Errorf("diagnoses assigned = %d, want 3", stats.DiagnosesAssigned)
	}
	if _, ok := repo.diagRows["NIH_00000999_000_ENC|DIAG029"]; ok {
		t.Error("fourth label assigned despite cap")
	}
	third := repo.diagRows["NIH_00000999_000_ENC|DIAG005"]
	if third.Rank != 3 || third.IsPrimary {
		t.Errorf("third diagnosis = %+v, want rank 3 secondary", third)
	}
}

func TestLoadCarriesFeedReports(t *testing.T) {
	repo := newMockRepo()
	seedReferenceData(repo)
	s := newTestService(repo, 0)

	records := []feed.StudyRecord{
		{
			ImageIndex:      "00000777_000.png",
			FindingLabels:   "Pneumonia",
			PatientID:       "777",
			PatientAge:      50,
			PatientGender:   "F",
			ViewPosition:    "PA",
			ReportText:      "full text",
			Findings:        "focal opacity",
			Impression:      "pneumonia",
			Recommendations: "follow up",
			ReportType:      "Radiology Report",
			ReportStatus:    "Final",
		},
	}
	if _, err := s.Load(context.Background(), records); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(repo.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(repo.reports))
	}
	rep := repo.reports[0]
	if rep.ReportText != "full text" || rep.Findings != "focal opacity" || rep.ReportStatus != "Final" {
		t.Errorf("feed report fields not carried: %+v", rep)
	}
}

func TestLoadNoNewRecords(t *testing.T) {
	repo := newMockRepo()
	seedReferenceData(repo)
	s := newTestService(repo, 0)

	stats, err := s.Load(context.Background(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.RecordsProcessed != 0 || stats.RecordsSkipped != 0 {
		t.Errorf("stats = %+v, want zero run", stats)
	}
}
