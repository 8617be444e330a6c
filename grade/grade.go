// Package grade maps blood pressure readings and free text grade labels onto hypertension grades.
//
// Classify and StageForRules use different threshold tables. Classify sets
// the grade shown on a patient record, StageForRules picks the row of the
// therapy tables. They disagree on some readings (185/85 is resistant on the
// record but stage_1 for the therapy lookup) and are kept apart on purpose.
package grade

import (
	"regexp"
	"strconv"
	"strings"

	"healthai.com/rider/types"
)

// Classify grades a reading for the patient record.
func Classify(systolic, diastolic *int) types.Grade {
	if systolic == nil || diastolic == nil {
		return types.GradeUnknown
	}
	s, d := *systolic, *diastolic
	switch {
	case s >= 180 || d >= 120:
		return types.GradeResistant
	case s >= 140 || d >= 90:
		return types.GradeStage2
	case (s >= 130 && s < 140) || (d >= 80 && d < 90):
		return types.GradeStage1
	case s >= 120 && s < 130 && d < 80:
		return types.GradeElevated
	}
	return types.GradeNormal
}

// StageForRules grades a reading for the therapy table lookup. Missing or
// zero readings count as stage_2.
func StageForRules(systolic, diastolic *int) types.Grade {
	if systolic == nil || diastolic == nil || *systolic == 0 || *diastolic == 0 {
		return types.GradeStage2
	}
	s, d := *systolic, *diastolic
	switch {
	case s < 120 && d < 80:
		return types.GradeNormal
	case s >= 120 && s <= 129 && d < 80:
		return types.GradeElevated
	case (s >= 130 && s <= 139) || (d >= 80 && d <= 89):
		return types.GradeStage1
	case (s >= 140 && s <= 179) || (d >= 90 && d <= 119):
		return types.GradeStage2
	case s >= 180 || d >= 120:
		return types.GradeResistant
	}
	return types.GradeStage2
}

var (
	reRoman   = regexp.MustCompile(`gr([ivx]+)([-/\\s]*([ivx]+))?`)
	reNumeric = regexp.MustCompile(`gr?([0-9]+)`)

	labelReplacer = strings.NewReplacer("grade", "gr", "–", "-", "_", "-", " ", "")
	canonReplacer = strings.NewReplacer("-", "_", " ", "_")
)

// NormalizeLabel turns labels such as "Gr II", "Grade 2", "GR I-II" or
// "stage_1" into a grade. Unrecognized labels give stage_2.
func NormalizeLabel(label string) types.Grade {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return types.GradeStage2
	}
	if canon := types.Grade(canonReplacer.Replace(label)); canon.Valid() {
		return canon
	}

	text := labelReplacer.Replace(label)
	if m := reRoman.FindStringSubmatch(text); m != nil {
		primary, secondary := m[1], m[3]
		switch {
		case primary == "iii" || secondary == "iii":
			return types.GradeResistant
		case primary == "ii" || secondary == "ii":
			return types.GradeStage2
		case primary == "i" || secondary == "i":
			return types.GradeStage1
		}
	}
	if m := reNumeric.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch {
			case n == 1:
				return types.GradeStage1
			case n == 2:
				return types.GradeStage2
			case n >= 3:
				return types.GradeResistant
			}
		}
	}
	return types.GradeStage2
}
