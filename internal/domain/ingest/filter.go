package ingest

import (
	"context"
	"fmt"

	"github.com/radpipe/radpipe/internal/feed"
)

// Filter drops feed records whose derived procedure code is already present
// in the operational store. It reads once per run and never writes.
type Filter struct {
	repo Repository
}

func NewFilter(repo Repository) *Filter {
	return &Filter{repo: repo}
}

// Apply partitions records into new work and a skipped count. An empty store
// passes everything through.
func (f *Filter) Apply(ctx context.Context, records []feed.StudyRecord) ([]feed.StudyRecord, int, error) {
	existing, err := f.repo.ExistingProcedureCodes(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load existing procedure codes: %w", err)
	}
	if len(existing) == 0 {
		return records, 0, nil
	}

	fresh := make([]feed.StudyRecord, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if _, ok := existing[rec.ProcedureCode()]; ok {
			skipped++
			continue
		}
		fresh = append(fresh, rec)
	}
	return fresh, skipped, nil
}
