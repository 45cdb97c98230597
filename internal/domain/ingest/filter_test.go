package ingest

import (
	"context"
	"testing"

	"github.com/radpipe/radpipe/internal/feed"
)

func TestFilterApply(t *testing.T) {
	repo := newMockRepo()
	repo.procRows["NIH_00000123_000_ENC|NIH_00000123_000"] = Procedure{
		EncounterID:   "NIH_00000123_000_ENC",
		ProcedureCode: "NIH_00000123_000",
	}
	f := NewFilter(repo)

	records := []feed.StudyRecord{
		{ImageIndex: "00000123_000.png", PatientID: "123"},
		{ImageIndex: "00000456_000.png", PatientID: "456"},
	}
	fresh, skipped, err := f.Apply(context.Background(), records)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(fresh) != 1 || fresh[0].ImageIndex != "00000456_000.png" {
		t.Errorf("fresh = %+v, want the unseen record only", fresh)
	}
}

func TestFilterEmptyStorePassesAll(t *testing.T) {
	f := NewFilter(newMockRepo())
	records := []feed.StudyRecord{
		{ImageIndex: "a.png", PatientID: "1"},
		{ImageIndex: "b.png", PatientID: "2"},
	}
	fresh, skipped, err := f.Apply(context.Background(), records)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if skipped != 0 || len(fresh) != 2 {
		t.Errorf("got %d fresh, %d skipped, want all records pass", len(fresh), skipped)
	}
}
