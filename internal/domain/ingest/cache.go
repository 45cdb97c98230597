package ingest

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
)

// ReferenceCache holds the reference rows the load engine resolves against.
// It is loaded once per run and read-only thereafter. Empty reference sets
// are logged and degrade the dependent assignments to zero rows rather than
// failing the run.
type ReferenceCache struct {
	diagnosisIDs map[string]string
	facilityIDs  []string
}

// LoadReferenceCache reads the diagnosis catalog and the hospital facility
// roster into memory.
func LoadReferenceCache(ctx context.Context, repo Repository, logger zerolog.Logger) (*ReferenceCache, error) {
	diagnoses, err := repo.DiagnosisCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load diagnosis cache: %w", err)
	}
	facilities, err := repo.HospitalFacilityIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load facility cache: %w", err)
	}

	if len(diagnoses) == 0 {
		logger.Warn().Msg("diagnosis catalog is empty, no diagnoses will be assigned")
	}
	if len(facilities) == 0 {
		logger.Warn().Msg("no hospital facilities found, no encounters will be created")
	}
	logger.Debug().
		Int("diagnoses", len(diagnoses)).
		Int("facilities", len(facilities)).
		Msg("reference cache loaded")

	return &ReferenceCache{diagnosisIDs: diagnoses, facilityIDs: facilities}, nil
}

// DiagnosisID resolves a catalog code to its operational diagnosis id.
func (c *ReferenceCache) DiagnosisID(code string) (string, bool) {
	id, ok := c.diagnosisIDs[code]
	return id, ok
}

// RandomFacility draws one hospital facility id. Callers must check
// FacilityCount first; an empty roster returns "".
func (c *ReferenceCache) RandomFacility(rng *rand.Rand) string {
	if len(c.facilityIDs) == 0 {
		return ""
	}
	return c.facilityIDs[rng.Intn(len(c.facilityIDs))]
}

// DiagnosisCount reports the catalog size.
func (c *ReferenceCache) DiagnosisCount() int { return len(c.diagnosisIDs) }

// FacilityCount reports the hospital roster size.
func (c *ReferenceCache) FacilityCount() int { return len(c.facilityIDs) }
