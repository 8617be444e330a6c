package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConfigurations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", "brand_map: tables/brand_map.json\nrule_table: tables/rules.xlsx\nrule_sheet: Rules\nfeatures:\n  - lifestyle_advice\n")
	writeFile(t, dir, "clinic.yaml", "brand_map: /abs/brands.bsv\nrule_table: rules.json\n")
	writeFile(t, dir, "broken.yaml", "brand_map: only.json\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tables"), 0o755))

	cfgs, err := LoadConfigurations(dir)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	require.Equal(t, "clinic", cfgs[0].Name)
	require.Equal(t, "default", cfgs[1].Name)

	def, ok := FindConfiguration(cfgs, DefaultConfiguration)
	require.True(t, ok)
	require.True(t, def.CheckFeature(FeatureLifestyleAdvice))
	require.Equal(t, "Rules", def.RuleSheet)
	require.Equal(t, filepath.Join(dir, "tables", "brand_map.json"), def.BrandMapPath())
	require.Equal(t, filepath.Join(dir, "tables", "rules.xlsx"), def.RuleTablePath())

	clinic, ok := FindConfiguration(cfgs, "clinic")
	require.True(t, ok)
	require.False(t, clinic.CheckFeature(FeatureLifestyleAdvice))
	require.Equal(t, "/abs/brands.bsv", clinic.BrandMapPath())

	_, ok = FindConfiguration(cfgs, "broken")
	require.False(t, ok)
}

func TestLoadConfigurationsMissingDir(t *testing.T) {
	_, err := LoadConfigurations(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestGradeValid(t *testing.T) {
	require.True(t, GradeStage1.Valid())
	require.True(t, GradeUnknown.Valid())
	require.False(t, Grade("stage_3").Valid())
}

func TestTagSetSorted(t *testing.T) {
	set := NewTagSet("RASI", "CCB")
	set.Add("BB")
	set.Add("CCB")
	require.Equal(t, []string{"BB", "CCB", "RASI"}, set.Sorted())
	require.True(t, set.Has("BB"))
	require.False(t, set.Has("MRA"))
}

func TestMedicationEntry(t *testing.T) {
	require.Equal(t, "Amlong 5mg", MedicationEntry{Name: "Amlong", Dosage: "5mg"}.String())
	require.Equal(t, "Telma", MedicationEntry{Drug: "Telma"}.String())
	require.Equal(t, "Telma", MedicationEntry{Drug: "Telma"}.Label())
}
