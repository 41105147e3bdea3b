// Package config resolves everything a run needs before touching the
// database: rule settings, warehouse credentials and the query file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vetbiz/internal/common"
	"vetbiz/internal/insights"
	"vetbiz/internal/warehouse"
	"vetbiz/pkg/errors"
)

// EnvConfigFile overrides the settings file location
const EnvConfigFile = "VETBIZ_CONFIG"

// Settings holds the persisted rule and fetch parameters
type Settings struct {
	Insights InsightSettings `yaml:"insights"`
	Fetch    FetchSettings   `yaml:"fetch"`
}

// InsightSettings parameterises the insight rules
type InsightSettings struct {
	DaysThreshold   int `yaml:"days_threshold"`
	StartYear       int `yaml:"start_year"`
	ActiveStartYear int `yaml:"active_start_year,omitempty"`
	MonthsThreshold int `yaml:"months_threshold"`
}

// FetchSettings controls the batched fetcher
type FetchSettings struct {
	BatchSize int `yaml:"batch_size"`
}

// DefaultSettings returns the unified defaults
func DefaultSettings() *Settings {
	return &Settings{
		Insights: InsightSettings{
			DaysThreshold:   insights.DefaultDaysThreshold,
			StartYear:       insights.DefaultStartYear,
			MonthsThreshold: insights.DefaultMonthsThreshold,
		},
		Fetch: FetchSettings{
			BatchSize: warehouse.DefaultBatchSize,
		},
	}
}

func GetConfigPath() string {
	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vetbiz")
}

func GetConfigFile() string {
	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Load reads the settings file. A missing file yields the defaults.
func Load() (*Settings, error) {
	return LoadFrom(GetConfigFile())
}

// LoadFrom reads settings from path, layering them over the defaults
func LoadFrom(path string) (*Settings, error) {
	settings := DefaultSettings()

	cleanedPath, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.InvalidConfigError("config file", path, err.Error())
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return settings, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read settings file").
			WithContext("path", cleanedPath)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Settings file is not valid YAML").
			WithContext("path", cleanedPath).
			WithSuggestions("Compare the file with 'vetbiz setup --print-defaults'")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to the settings file
func Save(settings *Settings) error {
	if _, err := common.EnsureDir(GetConfigPath(), common.DirPermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to create config directory")
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(GetConfigFile(), data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// Validate checks the settings are usable
func (s *Settings) Validate() error {
	in := s.Insights
	if in.DaysThreshold < 0 {
		return errors.InvalidConfigError("insights.days_threshold", in.DaysThreshold, "must not be negative")
	}
	if in.StartYear < 1900 || in.StartYear > 2200 {
		return errors.InvalidConfigError("insights.start_year", in.StartYear, "must be a calendar year")
	}
	if in.ActiveStartYear != 0 && (in.ActiveStartYear < 1900 || in.ActiveStartYear > 2200) {
		return errors.InvalidConfigError("insights.active_start_year", in.ActiveStartYear, "must be a calendar year")
	}
	if in.MonthsThreshold <= 0 {
		return errors.InvalidConfigError("insights.months_threshold", in.MonthsThreshold, "must be positive")
	}
	if s.Fetch.BatchSize <= 0 {
		return errors.InvalidConfigError("fetch.batch_size", s.Fetch.BatchSize, "must be positive")
	}
	return nil
}

// InsightOptions converts the settings to engine options
func (s *Settings) InsightOptions() insights.Options {
	return insights.Options{
		DaysThreshold:   s.Insights.DaysThreshold,
		StartYear:       s.Insights.StartYear,
		ActiveStartYear: s.Insights.ActiveStartYear,
		MonthsThreshold: s.Insights.MonthsThreshold,
	}
}
