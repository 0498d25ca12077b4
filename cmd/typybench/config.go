// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/typybench/typybench/services/evaluation/checker"
	"github.com/typybench/typybench/services/evaluation/similarity"
)

// maxConfigFileSize caps run config reads.
const maxConfigFileSize = 1 * 1024 * 1024

// Duration decodes YAML duration strings like "10m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// CheckerConfig configures the consistency checker subprocess.
type CheckerConfig struct {
	// Command is the checker executable. Empty keeps mypy.
	Command string `yaml:"command"`

	// Args replace the default checker flags when non-empty.
	Args []string `yaml:"args"`

	// Timeout bounds one checker invocation, e.g. "10m".
	Timeout Duration `yaml:"timeout"`

	// Disabled turns consistency checking off entirely.
	Disabled bool `yaml:"disabled"`
}

// RunConfig is the YAML run configuration. Every field is optional;
// CLI flags override whatever the file sets.
type RunConfig struct {
	DataDir        string `yaml:"data_dir"`
	PredictionsDir string `yaml:"predictions_dir"`
	Output         string `yaml:"output"`
	CacheDir       string `yaml:"cache_dir"`
	Workers        int    `yaml:"workers" validate:"gte=0"`
	LogLevel       string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	Repos []string `yaml:"repos"`

	Checker CheckerConfig `yaml:"checker"`

	// Policy overrides the similarity scoring constants when present.
	Policy *similarity.Policy `yaml:"policy" validate:"omitempty"`

	// Filter overrides the diagnostic selection when present.
	Filter *checker.FilterPolicy `yaml:"filter"`
}

var configValidate = validator.New()

// loadRunConfig reads and validates a YAML run configuration. An empty
// path yields the zero config.
func loadRunConfig(path string) (*RunConfig, error) {
	var cfg RunConfig
	if path == "" {
		return &cfg, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config %s exceeds %d bytes", path, maxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := configValidate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}
