// Package config provides configuration helpers and TOML parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Unit systems accepted in [units] system.
const (
	SystemMetric   = "metric"
	SystemImperial = "imperial"
)

var validPeriods = []string{"all", "30d", "90d", "year", "month"}

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Units      UnitsConfig      `toml:"units"`
	Classifier ClassifierConfig `toml:"classifier"`
	Stats      StatsConfig      `toml:"stats"`
	Log        LogConfig        `toml:"log"`
}

// UnitsConfig maps display unit settings.
type UnitsConfig struct {
	System *string `toml:"system"`
}

// ClassifierConfig maps partial-fill suggestion settings.
type ClassifierConfig struct {
	MinSamples   *int     `toml:"min-samples"`
	PartialRatio *float64 `toml:"partial-ratio"`
}

// StatsConfig maps stats-related settings.
type StatsConfig struct {
	Period      *string `toml:"period"`
	CurveWindow *int    `toml:"curve-window"`
	Vehicle     *string `toml:"vehicle"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges of the fields that are set.
func (c FileConfig) Validate() error {
	var errs []error
	if c.Units.System != nil {
		if _, err := ParseSystem(*c.Units.System); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Classifier.MinSamples != nil && *c.Classifier.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("classifier.min-samples must be at least 1"))
	}
	if r := c.Classifier.PartialRatio; r != nil && (*r <= 0 || *r > 1) {
		errs = append(errs, fmt.Errorf("classifier.partial-ratio must be in (0, 1]"))
	}
	if c.Stats.Period != nil && !validPeriod(*c.Stats.Period) {
		errs = append(errs, fmt.Errorf("stats.period %q is not one of %s", *c.Stats.Period, strings.Join(validPeriods, ", ")))
	}
	if c.Stats.CurveWindow != nil && *c.Stats.CurveWindow < 1 {
		errs = append(errs, fmt.Errorf("stats.curve-window must be at least 1"))
	}
	return errors.Join(errs...)
}

// ParseSystem reports whether s names the metric system.
func ParseSystem(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", SystemMetric:
		return true, nil
	case SystemImperial:
		return false, nil
	}
	return false, fmt.Errorf("unknown unit system %q (use metric or imperial)", s)
}

func validPeriod(p string) bool {
	p = strings.ToLower(strings.TrimSpace(p))
	for _, v := range validPeriods {
		if p == v {
			return true
		}
	}
	return false
}
