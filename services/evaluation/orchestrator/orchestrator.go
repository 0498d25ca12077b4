// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator drives multi-repository evaluation runs.
//
// One repository is one unit of work. Workers run repositories
// concurrently inside an errgroup with a bounded limit; each worker
// builds its own variant copies in a private temp directory and owns
// its own checker subprocess, so no state is shared across repos.
//
// A repository that cannot be read at all still produces a row, marked
// failed, and never aborts the batch. The summary always carries
// exactly one row per requested repository.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/typybench/typybench/services/evaluation/aggregate"
	"github.com/typybench/typybench/services/evaluation/cache"
	"github.com/typybench/typybench/services/evaluation/checker"
	"github.com/typybench/typybench/services/evaluation/similarity"
	"github.com/typybench/typybench/services/evaluation/typeexpr"
	"github.com/typybench/typybench/services/evaluation/variants"
)

// ManifestFileName is the ground-truth manifest each evaluable
// repository carries at its root.
const ManifestFileName = "types.yaml"

// DefaultWorkers bounds concurrent repository evaluations when the
// caller does not set a limit.
const DefaultWorkers = 4

// =============================================================================
// CONFIGURATION
// =============================================================================

// Orchestrator runs evaluation batches.
//
// Thread Safety: Safe for concurrent Run calls, though runs share the
// cache store.
type Orchestrator struct {
	dataDir        string
	predictionsDir string
	outputPath     string
	workers        int
	repos          []string

	policy similarity.Policy
	filter checker.FilterPolicy
	runner checker.Runner
	store  *cache.Store
	logger *slog.Logger

	onRepoDone func(repo string, failed bool)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the concurrent repository limit.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRepos restricts the run to the named repositories. Default is
// every directory under the data root carrying a manifest.
func WithRepos(repos []string) Option {
	return func(o *Orchestrator) { o.repos = repos }
}

// WithOutput sets the summary CSV path. Empty disables the file.
func WithOutput(path string) Option {
	return func(o *Orchestrator) { o.outputPath = path }
}

// WithPolicy overrides the similarity scoring policy.
func WithPolicy(p similarity.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithFilter overrides the diagnostic filter policy.
func WithFilter(f checker.FilterPolicy) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithRunner sets the consistency checker. Nil disables consistency
// checking; every repo reports unavailable.
func WithRunner(r checker.Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithCache sets the persistent result cache. Nil disables caching.
func WithCache(s *cache.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithProgress registers a callback invoked after each repository
// finishes. Called from worker goroutines; the callback must be safe
// for concurrent use.
func WithProgress(fn func(repo string, failed bool)) Option {
	return func(o *Orchestrator) { o.onRepoDone = fn }
}

// WithLogger sets the run logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator over a benchmark data root and a
// prediction directory.
//
// Inputs:
//
//	dataDir - Root holding one source tree per repository, each with a
//	          types.yaml manifest at its top level.
//	predictionsDir - Directory of per-repo prediction files.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Orchestrator - The configured orchestrator.
//	error - Non-nil if either directory is empty or missing.
func New(dataDir, predictionsDir string, opts ...Option) (*Orchestrator, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", ErrInvalidConfig)
	}
	if predictionsDir == "" {
		return nil, fmt.Errorf("%w: predictions directory is required", ErrInvalidConfig)
	}
	if _, err := os.Stat(dataDir); err != nil {
		return nil, fmt.Errorf("%w: data directory: %v", ErrInvalidConfig, err)
	}

	o := &Orchestrator{
		dataDir:        dataDir,
		predictionsDir: predictionsDir,
		workers:        DefaultWorkers,
		policy:         similarity.DefaultPolicy(),
		filter:         checker.DefaultFilterPolicy(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// =============================================================================
// RUN
// =============================================================================

// Run evaluates every requested repository and returns one result row
// per repository, in request order.
//
// Description:
//
//	Discovers repositories when none were named, fans them out across
//	the worker pool, and writes the summary CSV when an output path is
//	configured. Individual repository failures become failure rows;
//	Run itself fails only on configuration or discovery problems, or
//	when the context is canceled.
//
// Inputs:
//
//	ctx - Cancels the whole batch, including in-flight checkers.
//
// Outputs:
//
//	[]*aggregate.RepoResult - One row per requested repository.
//	error - Non-nil on discovery failure, cancellation, or summary
//	        write failure.
func (o *Orchestrator) Run(ctx context.Context) ([]*aggregate.RepoResult, error) {
	runID := uuid.NewString()
	logger := o.logger.With(slog.String("run_id", runID))

	repos := o.repos
	if len(repos) == 0 {
		var err error
		repos, err = o.discoverRepos()
		if err != nil {
			return nil, err
		}
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("%w: under %s", ErrNoRepos, o.dataDir)
	}

	logger.Info("evaluation run starting",
		slog.Int("repos", len(repos)),
		slog.Int("workers", o.workers))

	results := make([]*aggregate.RepoResult, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, repo := range repos {
		g.Go(func() error {
			start := time.Now()
			row, cacheHit := o.evaluateRepo(gctx, repo, logger)
			results[i] = row

			outcome := "ok"
			if row.Failed {
				outcome = "failed"
			}
			recordRepoMetrics(gctx, repo, outcome, time.Since(start), cacheHit)
			if o.onRepoDone != nil {
				o.onRepoDone(repo, row.Failed)
			}

			// Only cancellation stops the batch.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation run %s: %w", runID, err)
	}

	if o.outputPath != "" {
		if err := aggregate.WriteCSV(o.outputPath, results); err != nil {
			return results, err
		}
		logger.Info("summary written", slog.String("path", o.outputPath))
	}

	logger.Info("evaluation run complete", slog.Int("repos", len(results)))
	return results, nil
}

// discoverRepos lists data root subdirectories carrying a manifest.
func (o *Orchestrator) discoverRepos() ([]string, error) {
	entries, err := os.ReadDir(o.dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data directory %s: %w", o.dataDir, err)
	}
	var repos []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(o.dataDir, e.Name(), ManifestFileName)); err == nil {
			repos = append(repos, e.Name())
		}
	}
	return repos, nil
}

// =============================================================================
// PER-REPO PIPELINE
// =============================================================================

// evaluateRepo runs the full pipeline for one repository. It never
// returns an error: any unreadable input degrades to a failure row.
func (o *Orchestrator) evaluateRepo(ctx context.Context, repo string, logger *slog.Logger) (*aggregate.RepoResult, bool) {
	log := logger.With(slog.String("repo", repo))

	manifest, err := variants.LoadManifest(filepath.Join(o.dataDir, repo, ManifestFileName))
	if err != nil {
		log.Error("manifest unreadable", slog.String("error", err.Error()))
		return aggregate.FailureRow(repo), false
	}

	preds, err := variants.LoadPredictions(o.predictionsDir, repo)
	if err != nil {
		log.Error("predictions unreadable", slog.String("error", err.Error()))
		return aggregate.FailureRow(repo), false
	}

	compute := func(ctx context.Context) (*cache.Entry, error) {
		return o.computeEntry(ctx, repo, manifest, preds, log)
	}

	var entry *cache.Entry
	hit := false
	if o.store != nil {
		entry, hit, err = o.store.Fetch(ctx, repo, preds.Hash(), compute)
	} else {
		entry, err = compute(ctx)
	}
	if err != nil {
		log.Error("evaluation failed", slog.String("error", err.Error()))
		return aggregate.FailureRow(repo), false
	}
	if hit {
		log.Info("served from cache", slog.String("hash", preds.Hash()))
	}

	row := aggregate.Aggregate(repo, entry.Records, entry.ConsA, entry.ConsB)
	logConsistencyScores(log, row)
	return row, hit
}

// computeEntry performs the uncached work: scoring every variable and
// running the checker over both annotated variants.
func (o *Orchestrator) computeEntry(ctx context.Context, repo string, manifest *variants.Manifest, preds *variants.PredictionSet, log *slog.Logger) (*cache.Entry, error) {
	entry := &cache.Entry{
		Repo:           repo,
		PredictionHash: preds.Hash(),
		Records:        o.scoreRecords(manifest, preds, log),
		ConsA:          aggregate.Unavailable(),
		ConsB:          aggregate.Unavailable(),
	}

	if o.runner == nil {
		log.Debug("consistency checking disabled")
		return entry, nil
	}

	workDir, err := os.MkdirTemp("", "typybench-"+repo+"-*")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	srcDir := filepath.Join(o.dataDir, repo)
	builder := variants.NewBuilder()

	// Variant A carries the ground truth and measures the noise floor:
	// diagnostics the checker raises against the correct annotations.
	variantA := filepath.Join(workDir, "truth")
	if _, err := builder.Build(ctx, srcDir, variantA, manifest, manifest.Annotations()); err != nil {
		return nil, fmt.Errorf("build ground-truth variant: %w", err)
	}
	entry.ConsA, entry.DiagnosticsA = o.checkVariant(ctx, variantA, "truth", log)

	variantB := filepath.Join(workDir, "predicted")
	if _, err := builder.Build(ctx, srcDir, variantB, manifest, preds.Annotations()); err != nil {
		return nil, fmt.Errorf("build predicted variant: %w", err)
	}
	entry.ConsB, entry.DiagnosticsB = o.checkVariant(ctx, variantB, "predicted", log)

	return entry, nil
}

// checkVariant runs the checker over one variant directory. A crashed
// or timed-out checker yields the unavailable sentinel, never zero.
func (o *Orchestrator) checkVariant(ctx context.Context, dir, variant string, log *slog.Logger) (aggregate.Consistency, []checker.Diagnostic) {
	result, err := o.runner.Check(ctx, dir)
	if err != nil {
		log.Warn("checker unavailable",
			slog.String("variant", variant),
			slog.String("error", err.Error()))
		return aggregate.Unavailable(), nil
	}
	kept := o.filter.Apply(result.Diagnostics)
	log.Debug("checker finished",
		slog.String("variant", variant),
		slog.Int("diagnostics", len(result.Diagnostics)),
		slog.Int("retained", len(kept)),
		slog.Duration("duration", result.Duration))
	return aggregate.NewConsistency(len(kept)), kept
}

// scoreRecords scores every manifest variable against its prediction.
func (o *Orchestrator) scoreRecords(manifest *variants.Manifest, preds *variants.PredictionSet, log *slog.Logger) []aggregate.ScoreRecord {
	scorer := similarity.NewScorer(o.policy)
	records := make([]aggregate.ScoreRecord, 0, len(manifest.Variables))

	for _, v := range manifest.Variables {
		truth, err := typeexpr.Parse(v.Annotation)
		if err != nil {
			// Validation guarantees a non-empty annotation, so this
			// only fires on a manifest edited by hand mid-run.
			log.Warn("unparseable ground truth",
				slog.String("var_id", v.ID),
				slog.String("annotation", v.Annotation))
			continue
		}

		record := aggregate.ScoreRecord{
			VarID:     v.ID,
			Depth:     truth.Depth(),
			TypeLabel: truth.String(),
		}

		raw, ok := preds.Lookup(v.ID)
		pred, err := typeexpr.Parse(raw)
		if !ok || err != nil {
			record.Missing = true
		} else {
			record.Similarity = scorer.Score(pred, truth)
			record.Exact = similarity.Exact(pred, truth)
		}
		records = append(records, record)
	}
	return records
}

// logConsistencyScores reports the derived per-variant consistency
// score exp(-errors/vars*10), a 0..1 view of the raw counts that is
// comparable across repositories of different sizes.
func logConsistencyScores(log *slog.Logger, row *aggregate.RepoResult) {
	if row.Failed || row.TotalVars == 0 {
		return
	}
	score := func(c aggregate.Consistency) string {
		if !c.Valid {
			return "unavailable"
		}
		v := math.Exp(-float64(c.Count) / float64(row.TotalVars) * 10)
		return fmt.Sprintf("%.4f", v)
	}
	log.Info("repository evaluated",
		slog.Int("vars", row.TotalVars),
		slog.String("overall", row.Overall.String()),
		slog.String("consistency_a", score(row.RepoAConsistency)),
		slog.String("consistency_b", score(row.RepoBConsistency)))
}
