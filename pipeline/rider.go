package pipeline

import (
	"fmt"

	"healthai.com/rider/brands"
	"healthai.com/rider/grade"
	"healthai.com/rider/therapy"
	"healthai.com/rider/types"
)

// ApplyRider attaches the therapy plan. The structured medication list is
// preferred; without it the brands come from the record's medication strings.
func ApplyRider(record types.PatientRecord, meds []types.MedicationEntry, resolver *brands.Resolver, engine *therapy.Engine) types.PatientRecord {
	if len(meds) == 0 {
		meds = types.MedicationsFromText(record.CurrentMedications)
	}
	_, tags := resolver.Resolve(meds)
	stage := grade.StageForRules(record.Vitals.Systolic, record.Vitals.Diastolic)
	plan := engine.Plan(string(stage), tags)
	record.MedicinalRecommendations = &plan
	return record
}

// LoadReferences builds the brand resolver and the therapy engine of a reference set.
func LoadReferences(cfg types.Configuration) (*brands.Resolver, *therapy.Engine, error) {
	brandMap, err := brands.LoadMap(cfg.BrandMapPath())
	if err != nil {
		return nil, nil, fmt.Errorf("reference set %s: %w", cfg.Name, err)
	}
	table, err := therapy.LoadTable(cfg.RuleTablePath(), cfg.RuleSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reference set %s: %w", cfg.Name, err)
	}
	return brands.NewResolver(brandMap), therapy.NewEngine(table), nil
}
