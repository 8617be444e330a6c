package types

// Vitals holds measurements found in a report or supplied with the form.
// A nil field means the value is absent.
type Vitals struct {
	Systolic    *int     `json:"bp_systolic"`
	Diastolic   *int     `json:"bp_diastolic"`
	Pulse       *int     `json:"pulse_bpm"`
	SpO2        *int     `json:"spo2_percent"`
	Temperature *float64 `json:"temperature_c"`
}

func (v Vitals) HasBP() bool {
	return v.Systolic != nil && v.Diastolic != nil
}

func IntPtr(i int) *int {
	return &i
}

func FloatPtr(f float64) *float64 {
	return &f
}
