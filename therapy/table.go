// Package therapy matches a hypertension grade and the drug categories a
// patient already takes against the regimen tables.
package therapy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"healthai.com/rider/grade"
	"healthai.com/rider/types"
)

// Vocabulary lists the category tags a rule may require.
var Vocabulary = []string{"CCB", "RASI", "DIURETICS", "BB", "MRA", "AB", "CA"}

type Shape int

const (
	ShapeFlat Shape = iota
	ShapeGrouped
)

func (s Shape) String() string {
	if s == ShapeGrouped {
		return "grouped"
	}
	return "flat"
}

// flat table columns
const (
	colGrade      = "HTN Gr"
	colGradeAlt   = "grade"
	colAdvice     = "Final group adv"
	colOutput     = "Output "
	colOutputAlt  = "Output"
	colAdverse    = "Adverse effect and correction "
	colAdverseAlt = "Adverse"
	tagMarker     = "y"
)

// Rule is one normalized table row. Grade is already normalized.
type Rule struct {
	Grade    types.Grade
	RawGrade string
	Name     string
	Required []string
	Advice   string
	Output   string
	Adverse  string
}

func (r Rule) Plan() types.TherapyPlan {
	return types.TherapyPlan{
		FinalGroupAdv:  r.Advice,
		Output:         r.Output,
		AdverseEffects: r.Adverse,
	}
}

func (r Rule) matches(g types.Grade, tags types.TagSet) bool {
	if r.Grade != g {
		return false
	}
	for _, req := range r.Required {
		if !tags.Has(req) {
			return false
		}
	}
	return true
}

// Table keeps the rules in source order; the first match wins.
type Table struct {
	Shape Shape
	Rules []Rule
}

func (t *Table) Match(g types.Grade, tags types.TagSet) (Rule, bool) {
	for _, rule := range t.Rules {
		if rule.matches(g, tags) {
			return rule, true
		}
	}
	return Rule{}, false
}

func inVocabulary(tag string) bool {
	for _, v := range Vocabulary {
		if v == tag {
			return true
		}
	}
	return false
}

// ParseTable reads either table shape from JSON: a list of flat rows or
// an object of grade -> combination -> rule.
func ParseTable(data []byte) (*Table, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty rule table", types.ErrMalformedTable)
	}
	switch trimmed[0] {
	case '[':
		var rows []map[string]interface{}
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedTable, err)
		}
		return FlatTable(rows), nil
	case '{':
		return parseGrouped(trimmed)
	}
	return nil, fmt.Errorf("%w: rule table is neither a list nor an object", types.ErrMalformedTable)
}

// FlatTable normalizes flat rows, e.g. decoded JSON or spreadsheet rows.
func FlatTable(rows []map[string]interface{}) *Table {
	table := &Table{Shape: ShapeFlat, Rules: make([]Rule, 0, len(rows))}
	for _, row := range rows {
		rawGrade := firstString(row, colGrade, colGradeAlt)
		rule := Rule{
			Grade:    grade.NormalizeLabel(rawGrade),
			RawGrade: rawGrade,
			Advice:   firstString(row, colAdvice),
			Output:   firstString(row, colOutput, colOutputAlt),
			Adverse:  firstString(row, colAdverse, colAdverseAlt),
		}
		rule.Name = rule.Advice
		for col, v := range row {
			tag := strings.ToUpper(strings.TrimSpace(col))
			if s, ok := v.(string); ok && s == tagMarker && inVocabulary(tag) {
				rule.Required = append(rule.Required, tag)
			}
		}
		sort.Strings(rule.Required)
		table.Rules = append(table.Rules, rule)
	}
	return table
}

type groupedRule struct {
	RequiredTags []string `json:"required_tags"`
	Suggestion   string   `json:"suggestion"`
	Adverse      string   `json:"adverse"`
}

func parseGrouped(data []byte) (*Table, error) {
	grades, err := orderedObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedTable, err)
	}
	table := &Table{Shape: ShapeGrouped}
	for _, g := range grades {
		combos, err := orderedObject(g.value)
		if err != nil {
			return nil, fmt.Errorf("%w: grade %q: %v", types.ErrMalformedTable, g.key, err)
		}
		normalized := grade.NormalizeLabel(g.key)
		for _, combo := range combos {
			var gr groupedRule
			if err := json.Unmarshal(combo.value, &gr); err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", types.ErrMalformedTable, g.key, combo.key, err)
			}
			required := make([]string, 0, len(gr.RequiredTags))
			for _, tag := range gr.RequiredTags {
				required = append(required, strings.ToUpper(strings.TrimSpace(tag)))
			}
			table.Rules = append(table.Rules, Rule{
				Grade:    normalized,
				RawGrade: g.key,
				Name:     combo.key,
				Required: required,
				Advice:   combo.key,
				Output:   gr.Suggestion,
				Adverse:  gr.Adverse,
			})
		}
	}
	return table, nil
}

type keyValue struct {
	key   string
	value json.RawMessage
}

// orderedObject decodes one JSON object keeping the key order of the document.
func orderedObject(data []byte) ([]keyValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected an object")
	}
	var pairs []keyValue
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		pairs = append(pairs, keyValue{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// LoadTable reads a rule table from a .json file or a spreadsheet. sheet
// is only used for spreadsheets; empty means the first sheet.
func LoadTable(path string, sheet string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: rule table %s", types.ErrMissingInput, path)
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadWorkbook(path, sheet)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseTable(data)
	}
	return nil, fmt.Errorf("%w: unsupported rule table format %s", types.ErrMalformedTable, path)
}

func firstString(row map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := row[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
