package feed

import "strings"

// StudyRecord is one row of the chest X-ray feed: the metadata columns the
// pipeline consumes plus the report columns appended by the synthesizer.
type StudyRecord struct {
	ImageIndex    string `json:"image_index"`
	FindingLabels string `json:"finding_labels"`
	PatientID     string `json:"patient_id"`
	PatientAge    int    `json:"patient_age"`
	PatientGender string `json:"patient_gender"`
	ViewPosition  string `json:"view_position"`

	ReportText      string `json:"report_text,omitempty"`
	Findings        string `json:"findings,omitempty"`
	Impression      string `json:"impression,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
	ReportType      string `json:"report_type,omitempty"`
	ReportStatus    string `json:"report_status,omitempty"`
}

// ProcedureCode derives the natural procedure key from the image index.
func (r *StudyRecord) ProcedureCode() string {
	return "NIH_" + strings.TrimSuffix(r.ImageIndex, ".png")
}

// EncounterID derives the natural encounter key from the image index.
func (r *StudyRecord) EncounterID() string {
	return r.ProcedureCode() + "_ENC"
}

// Labels splits the pipe-delimited finding labels, dropping empty entries.
func (r *StudyRecord) Labels() []string {
	parts := strings.Split(r.FindingLabels, "|")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			labels = append(labels, s)
		}
	}
	return labels
}

// PrimaryFinding returns the first finding label, or "No Finding" when the
// record carries none.
func (r *StudyRecord) PrimaryFinding() string {
	labels := r.Labels()
	if len(labels) == 0 {
		return "No Finding"
	}
	return labels[0]
}

// HasReport reports whether report text has already been attached.
func (r *StudyRecord) HasReport() bool {
	return r.ReportText != ""
}

var modalityByView = map[string]string{
	"DX": "X-Ray",
	"CR": "X-Ray",
	"PA": "X-Ray",
	"AP": "X-Ray",
	"CT": "CT",
	"MR": "MRI",
	"US": "Ultrasound",
}

// Modality maps a feed view position onto the procedures.modality vocabulary.
// Unknown positions fall back to X-Ray.
func Modality(viewPosition string) string {
	if m, ok := modalityByView[viewPosition]; ok {
		return m
	}
	return "X-Ray"
}
