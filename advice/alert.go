package advice

import "healthai.com/rider/types"

const alertStatus = "alert"

type alertBand struct {
	grade   string
	message string
}

var (
	bandSevere   = alertBand{"Stage 3 (Severe Hypertension)", "Hypertensive crisis suspected — immediate medical attention required!"}
	bandStage2   = alertBand{"Stage 2 Hypertension", "High BP detected — combination therapy and close monitoring recommended."}
	bandStage1   = alertBand{"Stage 1 Hypertension", "Mild hypertension — consult a physician for early management."}
	bandElevated = alertBand{"Elevated Blood Pressure", "Slightly elevated BP — adopt low-salt diet and exercise regularly."}
)

// DetectAlert returns an alert for raised readings, nil otherwise. The bands
// are not the ones of grade.Classify: a diastolic of 110 is already a crisis here.
func DetectAlert(v types.Vitals) *types.Alert {
	if v.Systolic == nil || v.Diastolic == nil || *v.Systolic == 0 || *v.Diastolic == 0 {
		return nil
	}
	s, d := *v.Systolic, *v.Diastolic

	var band alertBand
	switch {
	case s >= 180 || d >= 110:
		band = bandSevere
	case s >= 140 || d >= 90:
		band = bandStage2
	case s >= 130 || d >= 80:
		band = bandStage1
	case s >= 120 && d < 80:
		band = bandElevated
	default:
		return nil
	}
	return &types.Alert{
		Status:            alertStatus,
		BPSystolic:        s,
		BPDiastolic:       d,
		HypertensionGrade: band.grade,
		Message:           band.message,
	}
}
