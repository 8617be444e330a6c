package types

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"healthai.com/rider/logger"
)

const (
	DefaultConfiguration = "default"

	// features
	FeatureLifestyleAdvice = "lifestyle_advice"
)

// Configuration names one set of reference tables. Relative paths are
// resolved against the directory of the yaml file.
type Configuration struct {
	Name      string   `yaml:"-" json:"name"`
	FilePath  string   `yaml:"-" json:"file_path"`
	BrandMap  string   `yaml:"brand_map" json:"brand_map"`
	RuleTable string   `yaml:"rule_table" json:"rule_table"`
	RuleSheet string   `yaml:"rule_sheet" json:"rule_sheet"`
	Features  []string `yaml:"features" json:"features"`
}

func (cfg Configuration) CheckFeature(featureName string) bool {
	for _, feat := range cfg.Features {
		if feat == featureName {
			return true
		}
	}

	return false
}

func (cfg Configuration) BrandMapPath() string {
	return cfg.resolve(cfg.BrandMap)
}

func (cfg Configuration) RuleTablePath() string {
	return cfg.resolve(cfg.RuleTable)
}

func (cfg Configuration) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || cfg.FilePath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(cfg.FilePath), p)
}

func (cfg Configuration) validate() error {
	if cfg.BrandMap == "" {
		return errors.New("brand_map is not set")
	}
	if cfg.RuleTable == "" {
		return errors.New("rule_table is not set")
	}
	return nil
}

func FindConfiguration(cfgs []Configuration, name string) (Configuration, bool) {
	for _, cfg := range cfgs {
		if cfg.Name == name {
			return cfg, true
		}
	}
	return Configuration{}, false
}

func LoadConfigurations(dirPath string) ([]Configuration, error) {
	cfgLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.DirEntry) {
			defer wg.Done()
			cfg := Configuration{
				Name:     strings.TrimSuffix(file.Name(), ".yaml"),
				FilePath: filepath.Join(dirPath, file.Name()),
			}
			buf, err := os.ReadFile(cfg.FilePath)
			if err != nil {
				cfgLogger.Err(err).Str("file", cfg.FilePath).Msg("Could not read configuration")
				return
			}
			if err := yaml.Unmarshal(buf, &cfg); err != nil {
				cfgLogger.Err(err).Str("file", cfg.FilePath).Msg("Could not parse configuration")
				return
			}
			if err := cfg.validate(); err != nil {
				cfgLogger.Err(err).Str("file", cfg.FilePath).Msg("Skipping invalid configuration")
				return
			}

			configChan <- cfg
		}(f)
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]Configuration, 0, len(files))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}
