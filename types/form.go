package types

// FormData is the caller supplied part of a processing request. Every field is optional.
type FormData struct {
	PatientID       string            `json:"patient_id,omitempty"`
	PatientName     string            `json:"patient_name,omitempty"`
	Age             *int              `json:"age,omitempty"`
	Sex             string            `json:"sex,omitempty"`
	Vitals          Vitals            `json:"vitals"`
	Title           string            `json:"title,omitempty"`
	Symptoms        []string          `json:"symptoms,omitempty"`
	Medications     []MedicationEntry `json:"medication_list,omitempty"`
	MedicalHistory  string            `json:"medical_history,omitempty"`
	AdditionalNotes string            `json:"additional_notes,omitempty"`
	Date            string            `json:"date,omitempty"`
}
