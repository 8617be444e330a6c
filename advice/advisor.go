package advice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"healthai.com/rider/logger"
	"healthai.com/rider/types"
)

// Advisor adds the lifestyle section and the blood pressure alert to a record.
type Advisor struct {
	gen     Generator
	aLogger zerolog.Logger
}

func NewAdvisor(gen Generator) *Advisor {
	return &Advisor{
		gen:     gen,
		aLogger: logger.NewLogger("Advisor"),
	}
}

func (a *Advisor) Recommend(ctx context.Context, record types.PatientRecord) (types.OverallRecommendations, error) {
	alert := DetectAlert(record.Vitals)
	if alert != nil {
		a.aLogger.Info().
			Str("patient_id", record.PatientID).
			Str("alert_grade", alert.HypertensionGrade).
			Msg("Blood pressure alert")
	}

	prompt, err := BuildPrompt(record)
	if err != nil {
		return types.OverallRecommendations{}, err
	}
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return types.OverallRecommendations{}, fmt.Errorf("generate recommendations: %w", err)
	}

	recs := ParseResponse(text)
	if recs.TextOutput != "" {
		a.aLogger.Warn().Str("patient_id", record.PatientID).Msg("Model reply was not valid JSON, keeping raw text")
	}
	recs.Alert = alert
	return recs, nil
}
