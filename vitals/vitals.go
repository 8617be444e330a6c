package vitals

import (
	"regexp"
	"strconv"

	"healthai.com/rider/types"
)

var (
	reBP          = regexp.MustCompile(`(?i)\bBP[:\s\-]*([0-9]{2,3})\s*/\s*([0-9]{2,3})\b`)
	rePulse       = regexp.MustCompile(`(?i)\b(?:HR|Heart Rate|Pulse)[:\s]*([0-9]{2,3})\b`)
	reSpO2        = regexp.MustCompile(`(?i)\b(?:SpO2|Oxygen Saturation)[:\s]*([0-9]{2,3})\b`)
	reTemperature = regexp.MustCompile(`(?i)\b(?:Temp|Temperature)[:\s]*([0-9]{2,3}\.?[0-9]*)`)
)

// Extract reads vitals from report text. Only the first occurrence of each
// measurement counts.
func Extract(text string) types.Vitals {
	var v types.Vitals
	if m := reBP.FindStringSubmatch(text); m != nil {
		v.Systolic = atoi(m[1])
		v.Diastolic = atoi(m[2])
		if v.Systolic == nil || v.Diastolic == nil {
			v.Systolic, v.Diastolic = nil, nil
		}
	}
	if m := rePulse.FindStringSubmatch(text); m != nil {
		v.Pulse = atoi(m[1])
	}
	if m := reSpO2.FindStringSubmatch(text); m != nil {
		v.SpO2 = atoi(m[1])
	}
	if m := reTemperature.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			v.Temperature = &f
		}
	}
	return v
}

// Merge overlays caller supplied values on extracted ones.
func Merge(extracted, overrides types.Vitals) types.Vitals {
	merged := extracted
	if overrides.Systolic != nil {
		merged.Systolic = overrides.Systolic
	}
	if overrides.Diastolic != nil {
		merged.Diastolic = overrides.Diastolic
	}
	if overrides.Pulse != nil {
		merged.Pulse = overrides.Pulse
	}
	if overrides.SpO2 != nil {
		merged.SpO2 = overrides.SpO2
	}
	if overrides.Temperature != nil {
		merged.Temperature = overrides.Temperature
	}
	return merged
}

func atoi(s string) *int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &i
}
