// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the infotally YAML configuration.
//
// A configuration declares the variables to tally, how each one is binned,
// and which pairs of variables to tally jointly:
//
//	basis: bits
//	variables:
//	  - name: weather
//	    kind: alphabet
//	    alphabet: [sunny, rainy, cloudy]
//	  - name: temperature
//	    kind: range
//	    bins: 10
//	    min: -10
//	    max: 40
//	pairs:
//	  - name: weather_temperature
//	    x: weather
//	    y: temperature
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/infotally/pkg/infotheory"
	"github.com/AleutianAI/infotally/pkg/logging"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Binning kinds.
const (
	KindRange    = "range"
	KindAlphabet = "alphabet"
)

// configValidate checks struct tags. Cross-field rules live in Validate.
var configValidate = validator.New()

// =============================================================================
// Types
// =============================================================================

// Config is the root of the configuration file.
type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Storage   StorageConfig    `yaml:"storage"`
	Ingest    IngestConfig     `yaml:"ingest"`
	Basis     string           `yaml:"basis"`
	Variables []VariableConfig `yaml:"variables" validate:"dive"`
	Pairs     []PairConfig     `yaml:"pairs" validate:"dive"`
}

// ServiceConfig configures the HTTP service and logging.
type ServiceConfig struct {
	// Name is the service attribute on every log entry.
	Name string `yaml:"name" validate:"required"`

	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" validate:"required,hostname_port"`

	// RateLimit bounds observe requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// RateBurst is the token bucket size for RateLimit.
	RateBurst int `yaml:"rate_burst" validate:"gte=0"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogDir   string `yaml:"log_dir"`
	LogJSON  bool   `yaml:"log_json"`
}

// StorageConfig configures the snapshot database.
type StorageConfig struct {
	Path       string        `yaml:"path" validate:"required_without=InMemory"`
	InMemory   bool          `yaml:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// IngestConfig configures file ingestion.
type IngestConfig struct {
	// WatchDir is polled for new data files by "serve". Empty disables it.
	WatchDir string `yaml:"watch_dir"`

	// Debounce is the quiet period after the last write to a file before it
	// is ingested.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`

	// Workers bounds how many files are parsed at once.
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`
}

// VariableConfig declares one tallied variable.
type VariableConfig struct {
	Name     string   `yaml:"name" validate:"required,excludesall=/"`
	Kind     string   `yaml:"kind" validate:"required,oneof=range alphabet"`
	Bins     int      `yaml:"bins,omitempty" validate:"gte=0"`
	Min      float64  `yaml:"min,omitempty"`
	Max      float64  `yaml:"max,omitempty"`
	Alphabet []string `yaml:"alphabet,omitempty" validate:"dive,required"`
}

// PairConfig declares a joint tally of two variables.
type PairConfig struct {
	Name string `yaml:"name" validate:"required,excludesall=/"`
	X    string `yaml:"x" validate:"required"`
	Y    string `yaml:"y" validate:"required"`
}

// =============================================================================
// Defaults and Loading
// =============================================================================

// DefaultConfig returns a working configuration with example variables.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:      "infotally",
			Listen:    "localhost:8090",
			RateLimit: 50,
			RateBurst: 100,
			LogLevel:  "info",
		},
		Storage: StorageConfig{
			Path:       "~/.infotally/data",
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Ingest: IngestConfig{
			Debounce: 500 * time.Millisecond,
			Workers:  4,
		},
		Basis: "bits",
		Variables: []VariableConfig{
			{Name: "weather", Kind: KindAlphabet, Alphabet: []string{"sunny", "rainy", "cloudy"}},
			{Name: "temperature", Kind: KindRange, Bins: 10, Min: -10, Max: 40},
		},
		Pairs: []PairConfig{
			{Name: "weather_temperature", X: "weather", Y: "temperature"},
		},
	}
}

// Load reads a YAML file over DefaultConfig and validates the result.
//
// Description:
//
//	Fields absent from the file keep their defaults, except that a file
//	declaring variables or pairs replaces the example ones entirely. A
//	leading "~" in storage and ingest paths is expanded.
//
// Inputs:
//
//	path - YAML file to read.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Read, parse or validation failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Variables = nil
	cfg.Pairs = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Ingest.WatchDir = expandHome(cfg.Ingest.WatchDir)
	cfg.Service.LogDir = expandHome(cfg.Service.LogDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// An existing file is left alone and reported with os.ErrExist.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks struct tags and the rules that span fields.
//
// Description:
//
//	Beyond the tags, Validate requires at least one variable or pair,
//	names unique across variables and pairs, a finite range or a
//	non-empty alphabet of distinct trimmed symbols for each variable,
//	pairs that reference declared variables, and a parseable basis and
//	log level. All problems are reported together.
//
// Outputs:
//
//	error - Nil when valid.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if len(c.Variables) == 0 && len(c.Pairs) == 0 {
		errs = append(errs, errors.New("no variables or pairs configured"))
	}
	if _, err := infotheory.ParseBasis(c.Basis); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Service.LogLevel); err != nil {
		errs = append(errs, err)
	}

	declared := make(map[string]VariableConfig, len(c.Variables))
	for _, v := range c.Variables {
		if _, dup := declared[v.Name]; dup {
			errs = append(errs, fmt.Errorf("variable %q declared twice", v.Name))
		}
		declared[v.Name] = v
		if err := v.check(); err != nil {
			errs = append(errs, err)
		}
	}

	pairs := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if pairs[p.Name] {
			errs = append(errs, fmt.Errorf("pair %q declared twice", p.Name))
		}
		pairs[p.Name] = true
		if _, clash := declared[p.Name]; clash {
			errs = append(errs, fmt.Errorf("pair %q has the same name as a variable", p.Name))
		}
		for _, ref := range []string{p.X, p.Y} {
			if _, ok := declared[ref]; !ok {
				errs = append(errs, fmt.Errorf("pair %q references undeclared variable %q", p.Name, ref))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (v VariableConfig) check() error {
	switch v.Kind {
	case KindRange:
		if v.Bins < 1 {
			return fmt.Errorf("variable %q: range needs bins >= 1", v.Name)
		}
		if !(v.Max > v.Min) {
			return fmt.Errorf("variable %q: max %g must exceed min %g", v.Name, v.Max, v.Min)
		}
		if math.IsInf(v.Min, 0) || math.IsInf(v.Max, 0) {
			return fmt.Errorf("variable %q: range must be finite", v.Name)
		}
	case KindAlphabet:
		if len(v.Alphabet) == 0 {
			return fmt.Errorf("variable %q: alphabet is empty", v.Name)
		}
		// Observed values are trimmed before lookup.
		seen := make(map[string]bool, len(v.Alphabet))
		for _, sym := range v.Alphabet {
			if sym != strings.TrimSpace(sym) {
				return fmt.Errorf("variable %q: symbol %q has surrounding whitespace", v.Name, sym)
			}
			if seen[sym] {
				return fmt.Errorf("variable %q: symbol %q listed twice", v.Name, sym)
			}
			seen[sym] = true
		}
	}
	return nil
}

// BasisValue returns the parsed Basis. Call after Validate.
func (c *Config) BasisValue() infotheory.Basis {
	b, _ := infotheory.ParseBasis(c.Basis)
	return b
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() logging.Level {
	l, _ := logging.ParseLevel(c.Service.LogLevel)
	return l
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
