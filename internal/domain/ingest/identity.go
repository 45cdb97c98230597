package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/feed"
)

// feedPatientStart is the numeric suffix new feed patients count up from when
// the store holds none yet.
const feedPatientStart = 5000

// CorrelationEmail derives the unique lookup email that ties an external
// patient id to its operational patient row.
func CorrelationEmail(externalID string) string {
	return fmt.Sprintf("nih_patient_%s@external.com", externalID)
}

// Resolver performs batch find-or-create of patients keyed by correlation
// email. Existing patients are reused across batches and runs; unmatched
// external ids get sequential PAT-prefixed ids assigned from one MAX read
// per batch.
type Resolver struct {
	repo   Repository
	synth  *feed.Synthesizer
	logger zerolog.Logger
}

func NewResolver(repo Repository, synth *feed.Synthesizer, logger zerolog.Logger) *Resolver {
	return &Resolver{repo: repo, synth: synth, logger: logger}
}

// Resolve maps every distinct external id in seeds to an operational patient
// id, creating missing patients in a single bulk insert. Returns the mapping
// and the number of patients created. Duplicate external ids within the batch
// resolve to one patient; the first occurrence wins.
func (r *Resolver) Resolve(ctx context.Context, seeds []PatientSeed) (map[string]string, int, error) {
	if len(seeds) == 0 {
		return map[string]string{}, 0, nil
	}

	seen := make(map[string]struct{}, len(seeds))
	uniq := make([]PatientSeed, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := seen[s.ExternalID]; ok {
			continue
		}
		seen[s.ExternalID] = struct{}{}
		uniq = append(uniq, s)
	}

	emails := make([]string, len(uniq))
	for i, s := range uniq {
		emails[i] = CorrelationEmail(s.ExternalID)
	}
	existing, err := r.repo.PatientIDsByEmail(ctx, emails)
	if err != nil {
		return nil, 0, fmt.Errorf("look up patients by email: %w", err)
	}

	lastSuffix, err := r.nextSuffixBase(ctx)
	if err != nil {
		return nil, 0, err
	}

	patientMap := make(map[string]string, len(uniq))
	var created []Patient
	now := time.Now()
	for _, s := range uniq {
		email := CorrelationEmail(s.ExternalID)
		if id, ok := existing[email]; ok {
			patientMap[s.ExternalID] = id
			continue
		}
		lastSuffix++
		p := Patient{
			PatientID:         fmt.Sprintf("PAT%07d", lastSuffix),
			DateOfBirth:       now.AddDate(0, 0, -s.Age*365),
			Gender:            normalizeGender(s.Gender),
			PrimaryLanguage:   "English",
			ContactEmail:      email,
			ContactPhone:      r.synth.Phone(),
			AddressLine1:      r.synth.StreetAddress(),
			AddressCity:       "Kigali",
			AddressState:      "Kigali Province",
			AddressZipcode:    r.synth.Postcode(),
			InsuranceProvider: "Private Insurance",
			InsuranceID:       "INS" + s.ExternalID,
			IsActive:          true,
		}
		created = append(created, p)
		patientMap[s.ExternalID] = p.PatientID
	}

	if len(created) > 0 {
		if _, err := r.repo.InsertPatients(ctx, created); err != nil {
			return nil, 0, fmt.Errorf("insert patients: %w", err)
		}
		r.logger.Debug().
			Int("new", len(created)).
			Int("existing", len(existing)).
			Msg("patients resolved")
	}
	return patientMap, len(created), nil
}

func (r *Resolver) nextSuffixBase(ctx context.Context) (int, error) {
	maxID, err := r.repo.MaxFeedPatientID(ctx)
	if err != nil {
		return 0, fmt.Errorf("read max patient id: %w", err)
	}
	if maxID == "" {
		return feedPatientStart, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(maxID, "PAT"))
	if err != nil {
		return 0, fmt.Errorf("parse max patient id %q: %w", maxID, err)
	}
	return n, nil
}

func normalizeGender(g string) string {
	switch g {
	case "M", "F":
		return g
	default:
		return "Other"
	}
}
