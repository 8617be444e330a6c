package types

import "strings"

// MedicationEntry is a structured medication as sent by a caller. Some
// sources fill Drug instead of Name.
type MedicationEntry struct {
	Name   string `json:"name,omitempty"`
	Drug   string `json:"drug,omitempty"`
	Dosage string `json:"dosage,omitempty"`
}

func (m MedicationEntry) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Drug
}

// String renders the entry the way medications appear on a record.
func (m MedicationEntry) String() string {
	return strings.TrimSpace(m.Label() + " " + m.Dosage)
}

// MedicationsFromText wraps free text medication strings so they can go through brand resolution.
func MedicationsFromText(lines []string) []MedicationEntry {
	entries := make([]MedicationEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, MedicationEntry{Name: line})
	}
	return entries
}
