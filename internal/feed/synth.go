package feed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

type reportTemplate struct {
	findings   []string
	impression []string
}

var reportTemplates = map[string]reportTemplate{
	"Pneumonia": {
		findings: []string{
			"Airspace opacity in the {location} consistent with pneumonia.",
			"Patchy infiltrates in the {location} suggestive of infectious process.",
			"Consolidation in the {location} with air bronchograms.",
		},
		impression: []string{
			"Findings consistent with pneumonia in the {location}.",
			"Acute infectious process involving the {location}.",
			"Radiographic appearance suggests bacterial pneumonia.",
		},
	},
	"Edema": {
		findings: []string{
			"Bilateral perihilar haziness with vascular congestion.",
			"Interstitial edema with Kerley B lines noted.",
			"Diffuse pulmonary edema with cardiomegaly.",
		},
		impression: []string{
			"Findings consistent with pulmonary edema.",
			"Congestive heart failure with pulmonary edema.",
			"Acute pulmonary edema, likely cardiogenic.",
		},
	},
	"Cardiomegaly": {
		findings: []string{
			"Cardiac silhouette is enlarged with cardiothoracic ratio >0.5.",
			"Enlarged cardiac shadow with prominent left ventricle.",
			"Cardiomegaly noted with chamber enlargement.",
		},
		impression: []string{
			"Cardiomegaly, clinical correlation recommended.",
			"Enlarged cardiac silhouette, suggest echocardiogram.",
			"Significant cardiomegaly identified.",
		},
	},
	"Pneumothorax": {
		findings: []string{
			"Absence of lung markings in the {location} with visible visceral pleural line.",
			"Lucency in the {location} consistent with pneumothorax.",
			"Partial collapse of {location} lung with pneumothorax.",
		},
		impression: []string{
			"{severity} pneumothorax in the {location}.",
			"Pneumothorax requiring clinical correlation.",
			"Spontaneous pneumothorax identified.",
		},
	},
	"Atelectasis": {
		findings: []string{
			"Volume loss in the {location} with linear opacities.",
			"Subsegmental atelectasis in the {location}.",
			"Plate-like atelectasis at the lung bases.",
		},
		impression: []string{
			"Atelectasis in the {location}, likely subsegmental.",
			"Mild atelectasis without infiltrate.",
			"Bibasilar atelectasis noted.",
		},
	},
	"Effusion": {
		findings: []string{
			"Blunting of the {location} costophrenic angle with layering fluid.",
			"Moderate pleural effusion in the {location}.",
			"Subpulmonic effusion with meniscus sign on {location}.",
		},
		impression: []string{
			"Pleural effusion in the {location}.",
			"{severity} effusion, consider thoracentesis if symptomatic.",
			"Layering pleural fluid identified.",
		},
	},
	"No Finding": {
		findings: []string{
			"Lungs are clear without focal consolidation, effusion, or pneumothorax.",
			"Cardiac silhouette is normal in size and contour.",
			"No acute cardiopulmonary abnormality detected.",
		},
		impression: []string{
			"No acute cardiopulmonary process.",
			"Normal chest radiograph.",
			"Clear lungs, no acute findings.",
		},
	},
}

var findingSymptoms = map[string][]string{
	"Pneumonia":    {"cough", "fever", "shortness of breath"},
	"Edema":        {"dyspnea", "orthopnea", "lower extremity edema"},
	"Cardiomegaly": {"chest pain", "dyspnea on exertion", "palpitations"},
	"Pneumothorax": {"sudden chest pain", "dyspnea", "trauma"},
	"Atelectasis":  {"postoperative", "decreased breath sounds", "hypoxia"},
	"Effusion":     {"dyspnea", "decreased breath sounds", "pleuritic chest pain"},
	"No Finding":   {"routine examination", "chest pain", "pre-operative clearance"},
}

var findingRecommendations = map[string]string{
	"Pneumonia":    "Recommend clinical correlation and follow-up imaging in 6-8 weeks to document resolution.",
	"Edema":        "Recommend correlation with clinical status and cardiac evaluation.",
	"Cardiomegaly": "Recommend echocardiogram for further evaluation.",
	"Pneumothorax": "Recommend clinical correlation and repeat imaging to assess stability.",
	"Atelectasis":  "Recommend incentive spirometry and repeat imaging if clinically indicated.",
	"Effusion":     "Recommend thoracentesis if symptomatic. Follow-up imaging advised.",
	"No Finding":   "No follow-up imaging required unless clinically indicated.",
}

var (
	findingLocations = []string{
		"right lower lobe", "left lower lobe", "right upper lobe",
		"left upper lobe", "bilateral lower lobes", "right middle lobe",
	}
	impressionLocations = []string{
		"right lower lobe", "left lower lobe", "bilateral lower lobes",
	}
	findingSeverities = []string{"small", "moderate", "large"}

	// Weighted pools: repeats raise selection probability.
	reportTypes    = []string{"Radiology Report", "Radiology Report", "Preliminary Report", "Diagnostic Report"}
	reportStatuses = []string{"Final", "Final", "Preliminary", "Amended"}

	firstNames = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Daniel",
		"Paul", "Andrew", "Eric", "Mary", "Patricia", "Jennifer", "Linda",
		"Sarah", "Karen", "Emily", "Grace", "Anna", "Claire",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Wilson", "Anderson", "Taylor", "Moore",
		"Uwimana", "Mukamana", "Niyonzima", "Habimana",
	}
	streetNames = []string{
		"KN 4 Ave", "KG 7 Ave", "KN 59 St", "KK 15 Rd",
		"Main St", "Oak Ave", "Elm St", "Pine Rd",
	}
)

const standardObservations = "Heart size is within normal limits. Mediastinal contours are unremarkable. Osseous structures are intact."

// Synthesizer fills in the report columns and the synthetic operational
// fields the upstream feed does not carry, such as clinician names and
// patient contact details.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer returns a synthesizer seeded for reproducibility. If seed
// is 0 a time-based seed is chosen.
func NewSynthesizer(seed int64) *Synthesizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

func (s *Synthesizer) pick(pool []string) string {
	return pool[s.rng.Intn(len(pool))]
}

// Report attaches report fields to rec. Records that already carry report
// text pass through untouched.
func (s *Synthesizer) Report(rec *StudyRecord) {
	if rec.HasReport() {
		return
	}
	labels := rec.Labels()
	primary := rec.PrimaryFinding()
	tpl, ok := reportTemplates[primary]
	if !ok {
		tpl = reportTemplates["No Finding"]
	}

	history := s.clinicalHistory(primary, rec.PatientAge, rec.PatientGender)
	technique := techniqueFor(rec.ViewPosition)
	findings := s.findingsSection(tpl, labels)
	impression := s.impressionSection(tpl)
	recommendations := recommendationsSection(primary)

	rec.Findings = findings
	rec.Impression = impression
	rec.Recommendations = recommendations
	rec.ReportText = fmt.Sprintf("%s\n\n%s\n\nFINDINGS:\n%s\n\nIMPRESSION:\n%s\n\n%s",
		history, technique, findings, impression, recommendations)
	rec.ReportType = s.pick(reportTypes)
	rec.ReportStatus = s.pick(reportStatuses)
}

// ReportAll synthesizes report fields for every record lacking them and
// returns how many were filled in.
func (s *Synthesizer) ReportAll(records []StudyRecord) int {
	filled := 0
	for i := range records {
		if records[i].HasReport() {
			continue
		}
		s.Report(&records[i])
		filled++
	}
	return filled
}

func (s *Synthesizer) clinicalHistory(primary string, age int, gender string) string {
	sex := "female"
	if gender == "M" {
		sex = "male"
	}
	symptoms, ok := findingSymptoms[primary]
	if !ok {
		symptoms = []string{"chest pain"}
	}
	return fmt.Sprintf("CLINICAL HISTORY: %d-year-old %s with %s.", age, sex, s.pick(symptoms))
}

func techniqueFor(viewPosition string) string {
	view := "anteroposterior (AP)"
	if viewPosition == "PA" {
		view = "posteroanterior (PA)"
	}
	return fmt.Sprintf("TECHNIQUE: Single frontal chest radiograph, %s view.", view)
}

func (s *Synthesizer) findingsSection(tpl reportTemplate, labels []string) string {
	location := s.pick(findingLocations)
	severity := s.pick(findingSeverities)
	text := fillSlots(s.pick(tpl.findings), location, severity)
	if len(labels) > 1 {
		for _, label := range labels[1:] {
			sec, ok := reportTemplates[label]
			if !ok {
				continue
			}
			text += " " + fillSlots(s.pick(sec.findings), location, severity)
		}
	}
	return text + " " + standardObservations
}

func (s *Synthesizer) impressionSection(tpl reportTemplate) string {
	return fillSlots(s.pick(tpl.impression), s.pick(impressionLocations), s.pick(findingSeverities))
}

func recommendationsSection(primary string) string {
	rec, ok := findingRecommendations[primary]
	if !ok {
		rec = "Clinical correlation advised."
	}
	return "RECOMMENDATIONS: " + rec
}

func fillSlots(tpl, location, severity string) string {
	tpl = strings.ReplaceAll(tpl, "{location}", location)
	return strings.ReplaceAll(tpl, "{severity}", severity)
}

// PersonName returns a synthetic clinician or patient name.
func (s *Synthesizer) PersonName() string {
	return s.pick(firstNames) + " " + s.pick(lastNames)
}

// Phone returns a synthetic contact phone number.
func (s *Synthesizer) Phone() string {
	return fmt.Sprintf("(%03d) %03d-%04d",
		200+s.rng.Intn(800), 200+s.rng.Intn(800), s.rng.Intn(10000))
}

// StreetAddress returns a synthetic street address line.
func (s *Synthesizer) StreetAddress() string {
	return fmt.Sprintf("%d %s", 1+s.rng.Intn(9999), s.pick(streetNames))
}

// Postcode returns a synthetic postal code.
func (s *Synthesizer) Postcode() string {
	return fmt.Sprintf("%05d", s.rng.Intn(100000))
}
