package seed

// Diagnosis is one row of the static diagnosis catalog.
type Diagnosis struct {
	ID           string
	Code         string
	Name         string
	Category     string
	Severity     string
	IsChronic    bool
	IsReportable bool
	Description  string
}

// Catalog returns the reference diagnosis catalog the load engine assigns
// against.
func Catalog() []Diagnosis { return diagnosisCatalog }

var diagnosisCatalog = []Diagnosis{
	// Respiratory
	{"DIAG001", "J18.9", "Pneumonia", "Respiratory", "Moderate", true, true, "Acute inflammation of the lungs"},
	{"DIAG002", "J12.9", "Viral Pneumonia", "Respiratory", "Moderate", false, true, "Pneumonia caused by viral infection"},
	{"DIAG003", "J44.0", "COPD with Acute Lower Respiratory Infection", "Respiratory", "Severe", true, true, "Chronic obstructive pulmonary disease"},
	{"DIAG004", "J44.1", "COPD with Acute Exacerbation", "Respiratory", "Severe", true, true, "COPD flare-up"},
	{"DIAG005", "J81.0", "Acute Pulmonary Edema", "Respiratory", "Severe", false, true, "Fluid accumulation in lungs"},
	{"DIAG006", "J93.0", "Spontaneous Tension Pneumothorax", "Respiratory", "Severe", false, true, "Collapsed lung"},
	{"DIAG007", "J98.4", "Other Disorders of Lung", "Respiratory", "Mild", false, false, "Various lung abnormalities"},
	{"DIAG008", "J20.9", "Acute Bronchitis", "Respiratory", "Mild", false, false, "Inflammation of bronchial tubes"},
	{"DIAG009", "J45.9", "Asthma", "Respiratory", "Moderate", true, false, "Chronic inflammatory airway disease"},
	{"DIAG010", "J84.9", "Interstitial Lung Disease", "Respiratory", "Severe", true, true, "Lung tissue scarring"},

	// Cardiovascular
	{"DIAG011", "I50.9", "Heart Failure", "Cardiovascular", "Severe", true, true, "Heart unable to pump adequately"},
	{"DIAG012", "I25.10", "Coronary Artery Disease", "Cardiovascular", "Severe", true, true, "Narrowing of coronary arteries"},
	{"DIAG013", "I21.9", "Acute Myocardial Infarction", "Cardiovascular", "Severe", false, true, "Heart attack"},
	{"DIAG014", "I48.91", "Atrial Fibrillation", "Cardiovascular", "Moderate", true, false, "Irregular heart rhythm"},
	{"DIAG015", "I11.0", "Hypertensive Heart Disease", "Cardiovascular", "Moderate", true, false, "Heart disease from high blood pressure"},
	{"DIAG016", "I26.99", "Pulmonary Embolism", "Cardiovascular", "Severe", false, true, "Blood clot in lungs"},
	{"DIAG017", "I10", "Essential Hypertension", "Cardiovascular", "Mild", true, false, "High blood pressure"},

	// Infectious
	{"DIAG018", "A41.9", "Sepsis", "Infectious", "Severe", false, true, "Life-threatening infection response"},
	{"DIAG019", "B99.9", "Infectious Disease", "Infectious", "Moderate", false, true, "General infectious condition"},
	{"DIAG020", "J22", "Viral Upper Respiratory Infection", "Infectious", "Mild", false, false, "Common cold/flu"},

	// Trauma
	{"DIAG021", "S22.9", "Rib Fracture", "Trauma", "Moderate", false, false, "Broken rib"},
	{"DIAG022", "S32.9", "Spinal Fracture", "Trauma", "Severe", false, true, "Vertebral fracture"},
	{"DIAG023", "S42.9", "Shoulder Fracture", "Trauma", "Moderate", false, false, "Broken shoulder bone"},
	{"DIAG024", "S72.9", "Femur Fracture", "Trauma", "Severe", false, true, "Broken thigh bone"},
	{"DIAG025", "S06.9", "Traumatic Brain Injury", "Trauma", "Severe", false, true, "Head trauma"},

	// Oncology
	{"DIAG026", "C34.90", "Lung Cancer", "Oncology", "Severe", true, true, "Malignant lung neoplasm"},
	{"DIAG027", "C50.9", "Breast Cancer", "Oncology", "Severe", true, true, "Malignant breast neoplasm"},
	{"DIAG028", "D49.2", "Neoplasm of Uncertain Behavior", "Oncology", "Moderate", false, false, "Tumor requiring further evaluation"},

	// Other
	{"DIAG029", "R91.8", "Abnormal Lung Finding", "Radiology", "Mild", false, false, "Non-specific lung abnormality"},
	{"DIAG030", "R07.9", "Chest Pain", "Symptom", "Mild", false, false, "Unspecified chest pain"},
	{"DIAG031", "R05", "Cough", "Symptom", "Mild", false, false, "Persistent cough"},
	{"DIAG032", "R06.02", "Shortness of Breath", "Symptom", "Moderate", false, false, "Dyspnea"},
	{"DIAG033", "J96.90", "Respiratory Failure", "Respiratory", "Severe", false, true, "Inadequate gas exchange"},
	{"DIAG034", "J47.9", "Bronchiectasis", "Respiratory", "Moderate", true, true, "Permanent airway dilation"},
	{"DIAG035", "J43.9", "Emphysema", "Respiratory", "Severe", true, true, "Lung tissue damage"},
	{"DIAG036", "J85.2", "Lung Abscess", "Infectious", "Severe", false, true, "Pus-filled lung cavity"},
	{"DIAG037", "J94.8", "Pleural Effusion", "Respiratory", "Moderate", false, true, "Fluid around lungs"},
	{"DIAG038", "M79.3", "Chest Wall Pain", "Musculoskeletal", "Mild", false, false, "Musculoskeletal chest pain"},
	{"DIAG039", "E11.9", "Type 2 Diabetes", "Endocrine", "Moderate", true, false, "Diabetes mellitus"},
	{"DIAG040", "E66.9", "Obesity", "Endocrine", "Mild", true, false, "Excessive body weight"},
	{"DIAG041", "N18.9", "Chronic Kidney Disease", "Renal", "Severe", true, true, "Progressive kidney failure"},
	{"DIAG042", "K21.9", "GERD", "Gastrointestinal", "Mild", true, false, "Gastroesophageal reflux disease"},
	{"DIAG043", "F41.9", "Anxiety Disorder", "Mental Health", "Mild", true, false, "Excessive worry and fear"},
	{"DIAG044", "G47.33", "Sleep Apnea", "Neurological", "Moderate", true, false, "Breathing interruptions during sleep"},
	{"DIAG045", "Z87.891", "History of Tobacco Use", "Social History", "Mild", false, false, "Former smoker"},
	{"DIAG046", "Z20.828", "COVID-19 Contact", "Infectious", "Mild", false, true, "Exposure to coronavirus"},
	{"DIAG047", "U07.1", "COVID-19", "Infectious", "Moderate", false, true, "Coronavirus disease 2019"},
	{"DIAG048", "J80", "ARDS", "Respiratory", "Severe", false, true, "Acute respiratory distress syndrome"},
	{"DIAG049", "T78.2", "Anaphylaxis", "Allergy", "Severe", false, true, "Severe allergic reaction"},
	{"DIAG050", "J18.1", "Lobar Pneumonia", "Respiratory", "Moderate", false, true, "Pneumonia affecting lung lobe"},
}

// nihToICD10 maps feed finding labels onto catalog diagnosis codes. Labels
// whose target code has no catalog row (Atelectasis, Cardiomegaly, Hernia)
// resolve to a code here but drop at assignment time; the catalog is the
// source of truth for what can be diagnosed.
var nihToICD10 = map[string]string{
	"Atelectasis":        "J98.11",
	"Cardiomegaly":       "I51.7",
	"Effusion":           "J94.8",
	"Infiltration":       "J98.4",
	"Mass":               "D49.2",
	"Nodule":             "R91.8",
	"Pneumonia":          "J18.9",
	"Pneumothorax":       "J93.0",
	"Consolidation":      "J18.1",
	"Edema":              "J81.0",
	"Emphysema":          "J43.9",
	"Fibrosis":           "J84.9",
	"Pleural_Thickening": "J94.8",
	"Hernia":             "K44.9",
	"No Finding":         "R91.8",
}

// FindingCode resolves a feed finding label to its diagnosis code. Unknown
// labels return false and are dropped by the caller.
func FindingCode(label string) (string, bool) {
	code, ok := nihToICD10[label]
	return code, ok
}
