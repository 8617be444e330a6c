// Package brands resolves medication brand names to drug category tags.
package brands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"healthai.com/rider/logger"
	"healthai.com/rider/types"
	"healthai.com/rider/utils"
)

var reParenthesized = regexp.MustCompile(`\(.*?\)`)

type Entry struct {
	Tags []string `json:"tags"`
}

// Map is keyed by brand name as written in the source file. Lookups are
// exact, so only uppercase keys can match a brand token.
type Map map[string]Entry

// Tokens extracts the uppercase brand token of every medication, keeping first-seen order.
func Tokens(meds []types.MedicationEntry) []string {
	brands := make([]string, 0, len(meds))
	seen := make(map[string]bool)
	for _, med := range meds {
		label := strings.TrimSpace(reParenthesized.ReplaceAllString(med.Label(), ""))
		fields := strings.Fields(label)
		if len(fields) == 0 {
			continue
		}
		brand := strings.ToUpper(fields[0])
		if seen[brand] {
			continue
		}
		seen[brand] = true
		brands = append(brands, brand)
	}
	return brands
}

// Tags collects the category tags of the known brands. Unknown brands add nothing.
func (m Map) Tags(brands []string) types.TagSet {
	tags := types.NewTagSet()
	for _, brand := range brands {
		entry, ok := m[brand]
		if !ok {
			continue
		}
		for _, tag := range entry.Tags {
			if tag = strings.ToUpper(strings.TrimSpace(tag)); tag != "" {
				tags.Add(tag)
			}
		}
	}
	return tags
}

// LoadMap reads a brand map from a .json object or from "BRAND|TAG1,TAG2" lines.
func LoadMap(path string) (Map, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: brand map %s", types.ErrMissingInput, path)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".bsv", ".txt":
		return loadBSV(path)
	}
	return nil, fmt.Errorf("%w: unsupported brand map format %s", types.ErrMalformedTable, path)
}

func loadJSON(path string) (Map, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Map
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("%w: brand map %s: %v", types.ErrMalformedTable, path, err)
	}
	if m == nil {
		m = Map{}
	}
	return m, nil
}

func loadBSV(path string) (Map, error) {
	raw, err := utils.ReadMap(path)
	if err != nil {
		return nil, err
	}
	m := make(Map, len(raw))
	for brand, tags := range raw {
		m[brand] = Entry{Tags: strings.Split(tags, ",")}
	}
	return m, nil
}

type Resolver struct {
	brandMap Map
	rLogger  zerolog.Logger
}

func NewResolver(brandMap Map) *Resolver {
	return &Resolver{
		brandMap: brandMap,
		rLogger:  logger.NewLogger("Brand resolver"),
	}
}

func (r *Resolver) Resolve(meds []types.MedicationEntry) ([]string, types.TagSet) {
	brands := Tokens(meds)
	tags := r.brandMap.Tags(brands)
	r.rLogger.Debug().
		Strs("brands", brands).
		Strs("tags", tags.Sorted()).
		Msg("Resolved medication brands")
	return brands, tags
}
