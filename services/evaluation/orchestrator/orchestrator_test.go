// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typybench/typybench/services/evaluation/cache"
	"github.com/typybench/typybench/services/evaluation/checker"
)

// fakeRunner returns canned diagnostics and counts invocations.
type fakeRunner struct {
	calls atomic.Int64
	diags []checker.Diagnostic
	err   error
}

func (f *fakeRunner) Check(ctx context.Context, repoDir string) (*checker.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &checker.Result{Diagnostics: f.diags}, nil
}

const demoManifest = `repo: demo
variables:
  - id: "main.greet@name"
    file: "main.py"
    name: "name"
    line: 1
    kind: argument
    annotation: "str"
  - id: "main.greet::return"
    file: "main.py"
    line: 1
    kind: return
    annotation: "Optional[str]"
`

const demoSource = "def greet(name):\n    return name\n"

// writeRepo lays out one evaluable repository under dataDir.
func writeRepo(t *testing.T, dataDir, name, manifest string) {
	t.Helper()
	dir := filepath.Join(dataDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(demoSource), 0o644))
}

func writePredictions(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0o644))
}

func TestRunScoresRepository(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "demo", demoManifest)
	writePredictions(t, predDir, "demo",
		`{"main.greet@name": "str", "main.greet::return": "Union[str, None]"}`)

	runner := &fakeRunner{diags: []checker.Diagnostic{
		{File: "main.py", Line: 1, Code: "arg-type", Message: "bad argument"},
		{File: "main.py", Line: 2, Code: "name-defined", Message: "unrelated"},
	}}

	o, err := New(dataDir, predDir, WithRunner(runner))
	require.NoError(t, err)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	row := results[0]
	assert.Equal(t, "demo", row.RepoName)
	assert.False(t, row.Failed)
	assert.Equal(t, 2, row.TotalVars)
	// Both predictions normalize to exact matches.
	assert.InDelta(t, 1.0, row.Overall.Value, 1e-9)
	assert.InDelta(t, 1.0, row.OverallExact.Value, 1e-9)
	assert.Equal(t, "0.0000", row.MissingRatio.String())

	// Only the arg-type diagnostic survives the filter, on both variants.
	assert.Equal(t, "1", row.RepoAConsistency.String())
	assert.Equal(t, "1", row.RepoBConsistency.String())
	assert.Equal(t, int64(2), runner.calls.Load(), "one check per variant")
}

func TestRunMissingPredictions(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "demo", demoManifest)
	// No prediction file at all: every variable is missing.

	o, err := New(dataDir, predDir)
	require.NoError(t, err)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	row := results[0]
	assert.False(t, row.Failed)
	assert.Equal(t, "1.0000", row.MissingRatio.String())
	assert.Equal(t, "0.0000", row.Overall.String())
	assert.False(t, row.OverallWoMissing.Valid)
	// No runner configured: consistency is unavailable, not zero.
	assert.Equal(t, "unavailable", row.RepoAConsistency.String())
}

func TestRunFailureRowKeepsBatchAlive(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "good", demoManifest)
	writeRepo(t, dataDir, "bad", "variables: [\n") // malformed YAML

	o, err := New(dataDir, predDir, WithRepos([]string{"bad", "good"}))
	require.NoError(t, err)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "bad", results[0].RepoName)
	assert.True(t, results[0].Failed)
	assert.Equal(t, "good", results[1].RepoName)
	assert.False(t, results[1].Failed)
}

func TestRunCheckerFailureIsUnavailable(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "demo", demoManifest)
	writePredictions(t, predDir, "demo", `{"main.greet@name": "int"}`)

	runner := &fakeRunner{err: checker.ErrCheckerFailed}
	o, err := New(dataDir, predDir, WithRunner(runner))
	require.NoError(t, err)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	row := results[0]
	assert.False(t, row.Failed, "checker loss degrades, never fails the repo")
	assert.True(t, row.Overall.Valid)
	assert.Equal(t, "unavailable", row.RepoAConsistency.String())
	assert.Equal(t, "unavailable", row.RepoBConsistency.String())
}

func TestRunUsesCache(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "demo", demoManifest)
	writePredictions(t, predDir, "demo", `{"main.greet@name": "str"}`)

	store, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	runner := &fakeRunner{}
	o, err := New(dataDir, predDir, WithRunner(runner), WithCache(store))
	require.NoError(t, err)

	first, err := o.Run(context.Background())
	require.NoError(t, err)
	callsAfterFirst := runner.calls.Load()
	require.Positive(t, callsAfterFirst)

	second, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, runner.calls.Load(),
		"second run with unchanged predictions must not re-check")
	assert.Equal(t, first[0].Overall, second[0].Overall)
	assert.Equal(t, first[0].RepoAConsistency, second[0].RepoAConsistency)

	// Changing the predictions invalidates the entry.
	writePredictions(t, predDir, "demo", `{"main.greet@name": "int"}`)
	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, runner.calls.Load(), callsAfterFirst)
}

func TestRunWritesSummary(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "demo", demoManifest)

	out := filepath.Join(t.TempDir(), "summary.csv")
	o, err := New(dataDir, predDir, WithOutput(out))
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "repo_name,total_vars")
	assert.Contains(t, string(data), "demo,2")
}

func TestRunDiscoversRepos(t *testing.T) {
	dataDir := t.TempDir()
	predDir := t.TempDir()
	writeRepo(t, dataDir, "alpha", demoManifest)
	writeRepo(t, dataDir, "beta", demoManifest)
	// A directory without a manifest is not a repository.
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "scratch"), 0o755))

	o, err := New(dataDir, predDir, WithWorkers(2))
	require.NoError(t, err)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunEmptyDataRoot(t *testing.T) {
	o, err := New(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoRepos)
}

func TestNewValidation(t *testing.T) {
	_, err := New("", t.TempDir())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
