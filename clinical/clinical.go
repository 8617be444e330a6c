// Package clinical pulls medications, labs, diagnoses and history out of normalized report text.
package clinical

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"healthai.com/rider/types"
)

const (
	LabTotalCholesterol = "total_cholesterol_mgdl"
	LabHDL              = "hdl_mgdl"
	LabLDL              = "ldl_mgdl"
	LabTriglycerides    = "triglycerides_mgdl"
	LabFastingGlucose   = "fasting_glucose_mgdl"
)

var (
	reMedication = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z0-9\- ]{2,60})\s+(\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|units))`)
	reDiagnoses  = regexp.MustCompile(`(?i)(?:Diagnosis|Diagnoses|Impression)[:\s]*([^\n\r]+)`)
	rePastHist   = regexp.MustCompile(`(?i)(?:Past Medical History|Medical History)[:\s]*(.*)`)
	reListSep    = regexp.MustCompile(`,|;|\band\b`)

	labPatterns = []struct {
		key string
		re  *regexp.Regexp
	}{
		{LabTotalCholesterol, regexp.MustCompile(`(?i)Total Cholesterol[:\s]*([0-9]{2,4})`)},
		{LabHDL, regexp.MustCompile(`(?i)HDL[:\s]*([0-9]{1,3})`)},
		{LabLDL, regexp.MustCompile(`(?i)LDL[:\s]*([0-9]{1,3})`)},
		{LabTriglycerides, regexp.MustCompile(`(?i)Triglycerides[:\s]*([0-9]{1,4})`)},
		{LabFastingGlucose, regexp.MustCompile(`(?i)Fasting Glucose[:\s]*([0-9]{2,3})`)},
	}
)

// ExtractMedications finds "<name> <dose><unit>" mentions, one per line at most.
func ExtractMedications(text string) []string {
	meds := make([]string, 0)
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		m := reMedication.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		med := strings.TrimSpace(m[1]) + " " + strings.TrimSpace(m[2])
		if seen[med] {
			continue
		}
		seen[med] = true
		meds = append(meds, med)
	}
	return meds
}

// FormatMedications renders caller supplied entries as record strings.
func FormatMedications(entries []types.MedicationEntry) []string {
	meds := make([]string, 0, len(entries))
	for _, entry := range entries {
		if s := entry.String(); s != "" {
			meds = append(meds, s)
		}
	}
	return meds
}

func ExtractLabs(text string) map[string]float64 {
	labs := make(map[string]float64)
	for _, p := range labPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			labs[p.key] = v
		}
	}
	return labs
}

func ExtractDiagnoses(text string) []string {
	m := reDiagnoses.FindStringSubmatch(text)
	if m == nil {
		return []string{}
	}
	return SplitList(m[1])
}

func ExtractPastHistory(text string) []string {
	m := rePastHist.FindStringSubmatch(text)
	if m == nil {
		return []string{}
	}
	return SplitList(m[1])
}

// SplitList splits on commas, semicolons and the word "and", dropping fragments of two characters or less.
func SplitList(s string) []string {
	items := make([]string, 0)
	for _, part := range reListSep.Split(s, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > 2 {
			items = append(items, part)
		}
	}
	return items
}
