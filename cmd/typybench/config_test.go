// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunConfigEmpty(t *testing.T) {
	cfg, err := loadRunConfig("")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, 0, cfg.Workers)
	assert.Nil(t, cfg.Policy)
}

func TestLoadRunConfigFull(t *testing.T) {
	path := writeConfig(t, `
data_dir: /data/benchmark
predictions_dir: /data/predictions
output: out.csv
cache_dir: /tmp/typybench-cache
workers: 8
log_level: debug
repos:
  - requests
  - flask
checker:
  command: mypy
  timeout: 5m
policy:
  same_constructor: 1.0
  same_family: 0.6
  any_credit: 0.5
  unrelated: 0.0
  blend_weight: 0.5
filter:
  keep_codes: [arg-type]
  keyword: incompatible
`)

	cfg, err := loadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/benchmark", cfg.DataDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []string{"requests", "flask"}, cfg.Repos)
	assert.Equal(t, Duration(5*time.Minute), cfg.Checker.Timeout)
	require.NotNil(t, cfg.Policy)
	assert.Equal(t, 0.6, cfg.Policy.SameFamily)
	require.NotNil(t, cfg.Filter)
	assert.Equal(t, []string{"arg-type"}, cfg.Filter.KeepCodes)
}

func TestLoadRunConfigInvalidLevel(t *testing.T) {
	path := writeConfig(t, "log_level: loud\n")
	_, err := loadRunConfig(path)
	assert.Error(t, err)
}

func TestLoadRunConfigInvalidPolicy(t *testing.T) {
	path := writeConfig(t, `
policy:
  same_constructor: 2.0
  same_family: 0.5
  any_credit: 0.5
  unrelated: 0.0
  blend_weight: 0.5
`)
	_, err := loadRunConfig(path)
	assert.Error(t, err)
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	_, err := loadRunConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRunConfigMalformed(t *testing.T) {
	path := writeConfig(t, "workers: [\n")
	_, err := loadRunConfig(path)
	assert.Error(t, err)
}

func TestBuildRunnerDefaults(t *testing.T) {
	r := buildRunner(CheckerConfig{})
	assert.Equal(t, "mypy", r.Command)
	assert.Contains(t, r.Args, "--show-error-codes")

	r = buildRunner(CheckerConfig{Command: "pyright", Timeout: Duration(time.Minute)})
	assert.Equal(t, "pyright", r.Command)
	assert.Equal(t, time.Minute, r.Timeout)
}
