package types

// Grade is the hypertension category carried on a patient record.
type Grade string

const (
	GradeNormal    Grade = "normal"
	GradeElevated  Grade = "elevated"
	GradeStage1    Grade = "stage_1"
	GradeStage2    Grade = "stage_2"
	GradeResistant Grade = "resistant"
	GradeUnknown   Grade = "unknown"
)

var knownGrades = []Grade{GradeNormal, GradeElevated, GradeStage1, GradeStage2, GradeResistant, GradeUnknown}

func (g Grade) Valid() bool {
	for _, known := range knownGrades {
		if g == known {
			return true
		}
	}
	return false
}

func (g Grade) String() string {
	return string(g)
}
