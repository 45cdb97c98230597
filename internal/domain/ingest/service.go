package ingest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/radpipe/radpipe/internal/feed"
	"github.com/radpipe/radpipe/internal/platform/db"
	"github.com/radpipe/radpipe/internal/platform/telemetry"
	"github.com/radpipe/radpipe/internal/seed"
)

// encounterWindowDays bounds how far back synthesized encounter datetimes
// reach from the load time.
const encounterWindowDays = 730

// maxDiagnosesPerEncounter caps how many finding labels become diagnosis
// assignments for a single encounter.
const maxDiagnosesPerEncounter = 3

var encounterTypes = []string{"Inpatient", "Outpatient", "Emergency"}

// Service is the batch load engine. It filters out already-loaded records,
// then loads the remainder in fixed-size batches, each inside its own
// transaction: resolve identities, then insert encounters, procedures,
// diagnosis assignments, and reports in foreign-key order.
type Service struct {
	repo      Repository
	resolver  *Resolver
	filter    *Filter
	synth     *feed.Synthesizer
	batchSize int
	rng       *rand.Rand
	logger    zerolog.Logger

	inTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService wires a load engine over pool. A zero randSeed draws a
// time-based seed, matching the synthesizer convention.
func NewService(pool *pgxpool.Pool, repo Repository, synth *feed.Synthesizer, batchSize int, randSeed int64, logger zerolog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 2000
	}
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Service{
		repo:      repo,
		resolver:  NewResolver(repo, synth, logger),
		filter:    NewFilter(repo),
		synth:     synth,
		batchSize: batchSize,
		rng:       rand.New(rand.NewSource(randSeed)),
		logger:    logger,
		inTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}
}

// Load runs the full ingest over records. Batches are processed strictly in
// input order and committed one at a time; a failing batch rolls back alone
// and aborts the run with its error. Counters cover the whole run up to the
// point of failure.
func (s *Service) Load(ctx context.Context, records []feed.StudyRecord) (*LoadStats, error) {
	stats := &LoadStats{}
	start := time.Now()

	cache, err := LoadReferenceCache(ctx, s.repo, s.logger)
	if err != nil {
		return stats, err
	}

	fresh, skipped, err := s.filter.Apply(ctx, records)
	if err != nil {
		return stats, err
	}
	stats.RecordsSkipped = skipped
	telemetry.RecordSkipped(skipped)
	if len(fresh) == 0 {
		s.logger.Info().Int("skipped", skipped).Msg("no new records to load")
		return stats, nil
	}
	stats.RecordsProcessed = len(fresh)

	// Records may arrive without report fields when the feed predates the
	// report generator; fill them here so every encounter gets its report.
	s.synth.ReportAll(fresh)

	totalBatches := (len(fresh) + s.batchSize - 1) / s.batchSize
	for i := 0; i < len(fresh); i += s.batchSize {
		end := i + s.batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batchNum := i/s.batchSize + 1

		s.logger.Info().
			Int("batch", batchNum).
			Int("batches", totalBatches).
			Int("records", end-i).
			Msg("loading batch")

		batch := fresh[i:end]
		if err := s.inTx(ctx, func(ctx context.Context) error {
			return s.loadBatch(ctx, cache, batch, stats)
		}); err != nil {
			return stats, fmt.Errorf("load batch %d/%d: %w", batchNum, totalBatches, err)
		}
	}

	s.logger.Info().
		Int("records_processed", stats.RecordsProcessed).
		Int("records_skipped", stats.RecordsSkipped).
		Int("patients_created", stats.PatientsCreated).
		Int("encounters_created", stats.EncountersCreated).
		Int("procedures_created", stats.ProceduresCreated).
		Int("diagnoses_assigned", stats.DiagnosesAssigned).
		Int("reports_created", stats.ReportsCreated).
		Dur("elapsed", time.Since(start)).
		Msg("load complete")
	return stats, nil
}

func (s *Service) loadBatch(ctx context.Context, cache *ReferenceCache, batch []feed.StudyRecord, stats *LoadStats) error {
	seeds := make([]PatientSeed, len(batch))
	for i, rec := range batch {
		seeds[i] = PatientSeed{ExternalID: rec.PatientID, Age: rec.PatientAge, Gender: rec.PatientGender}
	}
	patientMap, created, err := s.resolver.Resolve(ctx, seeds)
	if err != nil {
		return err
	}
	stats.PatientsCreated += created
	telemetry.RecordRowsWritten("patients", int64(created))

	// Encounters require a facility; with no hospitals on file the batch
	// degrades to patient creation only.
	if cache.FacilityCount() == 0 {
		return nil
	}

	encounters := make([]Encounter, len(batch))
	for i, rec := range batch {
		dt := s.randomEncounterTime()
		encounters[i] = Encounter{
			EncounterID:          rec.EncounterID(),
			PatientID:            patientMap[rec.PatientID],
			FacilityID:           cache.RandomFacility(s.rng),
			EncounterDate:        time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, dt.Location()),
			EncounterDatetime:    dt,
			EncounterType:        encounterTypes[s.rng.Intn(len(encounterTypes))],
			AdmissionSource:      "Direct Admission",
			DischargeDisposition: "Home",
			PrimaryPhysician:     s.synth.PersonName(),
			VisitReason:          "Scheduled Imaging",
		}
	}
	n, err := s.repo.InsertEncounters(ctx, encounters)
	if err != nil {
		return fmt.Errorf("insert encounters: %w", err)
	}
	stats.EncountersCreated += int(n)
	telemetry.RecordRowsWritten("encounters", n)

	procedures := make([]Procedure, len(batch))
	for i, rec := range batch {
		modality := feed.Modality(rec.ViewPosition)
		var dose *float64
		if modality == "X-Ray" || modality == "CT" {
			d := math.Round((0.1+s.rng.Float64()*1.9)*100) / 100
			dose = &d
		}
		procedures[i] = Procedure{
			EncounterID:           encounters[i].EncounterID,
			ProcedureCode:         rec.ProcedureCode(),
			ProcedureName:         modality + " Chest",
			ProcedureCategory:     "Diagnostic",
			BodyPart:              "Chest",
			Laterality:            "N/A",
			ViewPosition:          rec.ViewPosition,
			Modality:              modality,
			PerformingRadiologist: s.synth.PersonName(),
			ProcedureDatetime:     encounters[i].EncounterDatetime,
			DurationMinutes:       5 + s.rng.Intn(11),
			RadiationDoseMGy:      dose,
		}
	}
	n, err = s.repo.InsertProcedures(ctx, procedures)
	if err != nil {
		return fmt.Errorf("insert procedures: %w", err)
	}
	stats.ProceduresCreated += int(n)
	telemetry.RecordRowsWritten("procedures", n)

	var assignments []DiagnosisAssignment
	for i, rec := range batch {
		labels := rec.Labels()
		if len(labels) > maxDiagnosesPerEncounter {
			labels = labels[:maxDiagnosesPerEncounter]
		}
		for rank, label := range labels {
			code, ok := seed.FindingCode(label)
			if !ok {
				continue
			}
			diagnosisID, ok := cache.DiagnosisID(code)
			if !ok {
				continue
			}
			assignments = append(assignments, DiagnosisAssignment{
				EncounterID:       encounters[i].EncounterID,
				DiagnosisID:       diagnosisID,
				Rank:              rank + 1,
				IsPrimary:         rank == 0,
				Confidence:        0.95,
				DiagnosedBy:       s.synth.PersonName(),
				DiagnosisDatetime: encounters[i].EncounterDatetime,
				Notes:             "NIH diagnosis: " + label,
			})
		}
	}
	n, err = s.repo.InsertDiagnoses(ctx, assignments)
	if err != nil {
		return fmt.Errorf("insert diagnoses: %w", err)
	}
	stats.DiagnosesAssigned += int(n)
	telemetry.RecordRowsWritten("diagnoses", n)

	reports := make([]Report, len(batch))
	for i, rec := range batch {
		reports[i] = Report{
			EncounterID:      encounters[i].EncounterID,
			ReportType:       rec.ReportType,
			ReportStatus:     rec.ReportStatus,
			ReportText:       rec.ReportText,
			Findings:         rec.Findings,
			Impression:       rec.Impression,
			Recommendations:  rec.Recommendations,
			RadiologistName:  s.synth.PersonName(),
			DictatedDatetime: encounters[i].EncounterDatetime,
			SignedDatetime:   encounters[i].EncounterDatetime.Add(2 * time.Hour),
		}
	}
	n, err = s.repo.InsertReports(ctx, reports)
	if err != nil {
		return fmt.Errorf("insert reports: %w", err)
	}
	stats.ReportsCreated += int(n)
	telemetry.RecordRowsWritten("reports", n)

	return nil
}

func (s *Service) randomEncounterTime() time.Time {
	start := time.Now().AddDate(0, 0, -encounterWindowDays)
	return start.
		AddDate(0, 0, s.rng.Intn(encounterWindowDays+1)).
		Add(time.Duration(s.rng.Intn(24)) * time.Hour)
}
