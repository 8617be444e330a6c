package therapy

import (
	"github.com/rs/zerolog"

	"healthai.com/rider/grade"
	"healthai.com/rider/logger"
	"healthai.com/rider/types"
)

// Fallback is returned when no rule matches.
var Fallback = types.TherapyPlan{
	FinalGroupAdv:  "CCB + ARB or ACEI + Diuretic + MRA",
	Output:         "Amlodipine + Telmisartan + Spironolactone",
	AdverseEffects: "Monitor for hyperkalemia and hypotension",
}

type Engine struct {
	table   *Table
	eLogger zerolog.Logger
}

func NewEngine(table *Table) *Engine {
	if table == nil {
		table = &Table{}
	}
	return &Engine{
		table:   table,
		eLogger: logger.NewLogger("Therapy engine"),
	}
}

// Plan normalizes gradeLabel and returns the plan of the first matching rule.
func (e *Engine) Plan(gradeLabel string, tags types.TagSet) types.TherapyPlan {
	g := grade.NormalizeLabel(gradeLabel)
	rule, ok := e.table.Match(g, tags)
	if !ok {
		e.eLogger.Info().
			Str("grade", string(g)).
			Strs("tags", tags.Sorted()).
			Msg("No matching therapy rule, using fallback plan")
		return Fallback
	}
	e.eLogger.Debug().
		Str("grade", string(g)).
		Str("rule", rule.Name).
		Msg("Matched therapy rule")
	return rule.Plan()
}
