package types

const (
	ParserVersion      = "v4.1.1"
	OCREngine          = "tesseract-5.4.0"
	LanguageModel      = "regex"
	AccuracyConfidence = 0.90
)

type ReportSource struct {
	FileName            *string  `json:"file_name"`
	SourceType          []string `json:"source_type"`
	ExtractionTimestamp string   `json:"extraction_timestamp"`
}

type ParserMetadata struct {
	ParserVersion      string  `json:"parser_version"`
	OCREngine          string  `json:"ocr_engine"`
	LanguageModel      string  `json:"language_model"`
	AccuracyConfidence float64 `json:"accuracy_confidence"`
}

func DefaultParserMetadata() ParserMetadata {
	return ParserMetadata{
		ParserVersion:      ParserVersion,
		OCREngine:          OCREngine,
		LanguageModel:      LanguageModel,
		AccuracyConfidence: AccuracyConfidence,
	}
}

// TherapyPlan is the antihypertensive regimen suggested by the rule tables.
type TherapyPlan struct {
	FinalGroupAdv  string `json:"Final Group Adv"`
	Output         string `json:"Output"`
	AdverseEffects string `json:"Adverse Effects"`
}

type Alert struct {
	Status            string `json:"status"`
	BPSystolic        int    `json:"bp_systolic"`
	BPDiastolic       int    `json:"bp_diastolic"`
	HypertensionGrade string `json:"hypertension_grade"`
	Message           string `json:"message"`
}

// OverallRecommendations is the lifestyle section. TextOutput is set instead
// of the lists when the model reply could not be parsed.
type OverallRecommendations struct {
	ExercisePlan      []string `json:"exercise_plan,omitempty"`
	DailyRoutine      []string `json:"daily_routine,omitempty"`
	GeneralHealthTips []string `json:"general_health_tips,omitempty"`
	TextOutput        string   `json:"text_output,omitempty"`
	Alert             *Alert   `json:"alert,omitempty"`
}

type PatientRecord struct {
	PatientID                string                  `json:"patient_id"`
	PatientName              string                  `json:"patient_name"`
	Age                      *int                    `json:"age"`
	Sex                      *string                 `json:"sex"`
	ReportSource             ReportSource            `json:"report_source"`
	Vitals                   Vitals                  `json:"vitals"`
	HypertensionGrade        Grade                   `json:"hypertension_grade"`
	Symptoms                 []string                `json:"symptoms"`
	Diagnoses                []string                `json:"diagnoses"`
	PastMedicalHistory       []string                `json:"past_medical_history"`
	CurrentMedications       []string                `json:"current_medications"`
	LabResults               map[string]float64      `json:"lab_results"`
	ParserMetadata           ParserMetadata          `json:"parser_metadata"`
	MedicinalRecommendations *TherapyPlan            `json:"medicinal_recommendations,omitempty"`
	OverallRecommendations   *OverallRecommendations `json:"Overall Recommendations,omitempty"`
}
