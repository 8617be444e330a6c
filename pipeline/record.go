package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"healthai.com/rider/clinical"
	"healthai.com/rider/grade"
	"healthai.com/rider/textextract"
	"healthai.com/rider/types"
	"healthai.com/rider/utils"
	"healthai.com/rider/vitals"
)

const (
	unknownPatient  = "Unknown"
	patientIDPrefix = "PR_"
	formSource      = "form"
)

// AssembleRecord builds the parsed patient record. Form values win over
// what was read from the documents.
func AssembleRecord(batch textextract.Batch, form types.FormData, now time.Time) types.PatientRecord {
	text := batch.Text
	v := vitals.Merge(vitals.Extract(text), form.Vitals)

	record := types.PatientRecord{
		PatientID:          form.PatientID,
		PatientName:        form.PatientName,
		Age:                form.Age,
		ReportSource:       reportSource(batch, now),
		Vitals:             v,
		HypertensionGrade:  grade.Classify(v.Systolic, v.Diastolic),
		Symptoms:           symptoms(form),
		Diagnoses:          clinical.ExtractDiagnoses(text),
		PastMedicalHistory: pastHistory(form, text),
		CurrentMedications: currentMedications(form, text),
		LabResults:         clinical.ExtractLabs(text),
		ParserMetadata:     types.DefaultParserMetadata(),
	}
	if record.PatientID == "" {
		record.PatientID = patientIDPrefix + utils.ShortHash(now.Format(time.RFC3339Nano), 8)
	}
	if record.PatientName == "" {
		record.PatientName = unknownPatient
	}
	if form.Sex != "" {
		sex := form.Sex
		record.Sex = &sex
	}
	return record
}

func reportSource(batch textextract.Batch, now time.Time) types.ReportSource {
	src := types.ReportSource{
		SourceType:          batch.SourceTypes(),
		ExtractionTimestamp: now.UTC().Format(time.RFC3339),
	}
	if len(batch.Results) > 0 {
		name := filepath.Base(batch.Results[0].Path)
		src.FileName = &name
	}
	if len(src.SourceType) == 0 {
		src.SourceType = []string{formSource}
	}
	return src
}

func symptoms(form types.FormData) []string {
	if len(form.Symptoms) > 0 {
		return form.Symptoms
	}
	if title := strings.TrimSpace(form.Title); title != "" {
		return []string{title}
	}
	return []string{}
}

func pastHistory(form types.FormData, text string) []string {
	if strings.TrimSpace(form.MedicalHistory) != "" {
		return clinical.SplitList(form.MedicalHistory)
	}
	return clinical.ExtractPastHistory(text)
}

func currentMedications(form types.FormData, text string) []string {
	if len(form.Medications) > 0 {
		return clinical.FormatMedications(form.Medications)
	}
	return clinical.ExtractMedications(text)
}
