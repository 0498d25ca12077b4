// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/typybench/typybench/pkg/logging"
	"github.com/typybench/typybench/pkg/ux"
	"github.com/typybench/typybench/services/evaluation/cache"
	"github.com/typybench/typybench/services/evaluation/checker"
	"github.com/typybench/typybench/services/evaluation/orchestrator"
)

var (
	evalDataDir     string
	evalPredictions string
	evalOutput      string
	evalCacheDir    string
	evalConfigPath  string
	evalCheckerCmd  string
	evalRepo        string
	evalWorkers     int
	evalNoChecker   bool
	evalLogLevel    string

	evaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate predicted annotations over a benchmark data root",
		Long: `Evaluate scores every repository under the data root against the
predictions directory and writes one summary row per repository.

A repository is a directory carrying a types.yaml ground-truth manifest
at its top level. Predictions are per-repo JSON or YAML files named
after the repository. Repositories that cannot be read produce failure
rows; the batch always completes.`,
		RunE: runEvaluate,
	}
)

func init() {
	evaluateCmd.Flags().StringVar(&evalDataDir, "data", "", "benchmark data root (required unless set in --config)")
	evaluateCmd.Flags().StringVar(&evalPredictions, "predictions", "", "directory of per-repo prediction files")
	evaluateCmd.Flags().StringVar(&evalOutput, "output", "typybench_summary.csv", "summary CSV path (empty disables)")
	evaluateCmd.Flags().StringVar(&evalCacheDir, "cache-dir", "", "persistent result cache directory (empty disables)")
	evaluateCmd.Flags().StringVar(&evalConfigPath, "config", "", "YAML run configuration file")
	evaluateCmd.Flags().StringVar(&evalCheckerCmd, "checker", "", "checker command override (default mypy)")
	evaluateCmd.Flags().StringVar(&evalRepo, "repo", "", "evaluate a single repository")
	evaluateCmd.Flags().IntVar(&evalWorkers, "workers", 0, "concurrent repositories (default 4)")
	evaluateCmd.Flags().BoolVar(&evalNoChecker, "no-checker", false, "skip consistency checking")
	evaluateCmd.Flags().StringVar(&evalLogLevel, "log-level", "", "debug, info, warn, or error")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(evalConfigPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	if cfg.DataDir == "" {
		return fmt.Errorf("a data root is required: pass --data or set data_dir in the config")
	}
	if cfg.PredictionsDir == "" {
		return fmt.Errorf("a predictions directory is required: pass --predictions or set predictions_dir in the config")
	}

	logger, closeLog := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Service: "evaluate",
	})
	defer func() { _ = closeLog() }()

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithOutput(cfg.Output),
	}
	if cfg.Workers > 0 {
		opts = append(opts, orchestrator.WithWorkers(cfg.Workers))
	}
	if len(cfg.Repos) > 0 {
		opts = append(opts, orchestrator.WithRepos(cfg.Repos))
	}
	if cfg.Policy != nil {
		opts = append(opts, orchestrator.WithPolicy(*cfg.Policy))
	}
	if cfg.Filter != nil {
		opts = append(opts, orchestrator.WithFilter(*cfg.Filter))
	}

	if !cfg.Checker.Disabled {
		runner := buildRunner(cfg.Checker)
		if runner.Available() {
			opts = append(opts, orchestrator.WithRunner(runner))
		} else {
			logger.Warn("checker not found in PATH, consistency will be unavailable",
				slog.String("command", runner.Command))
		}
	}

	if cfg.CacheDir != "" {
		store, err := cache.Open(cfg.CacheDir, cache.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, orchestrator.WithCache(store))
	}

	spinner := ux.NewSpinner("evaluating repositories")
	opts = append(opts, orchestrator.WithProgress(func(repo string, failed bool) {
		spinner.UpdateMessage("evaluated " + repo)
	}))

	o, err := orchestrator.New(cfg.DataDir, cfg.PredictionsDir, opts...)
	if err != nil {
		return err
	}

	spinner.Start()
	results, err := o.Run(cmd.Context())
	spinner.Stop()
	if err != nil {
		return err
	}

	ux.Title("Evaluation summary")
	failed := 0
	for _, r := range results {
		detail := fmt.Sprintf("overall %s, %d vars", r.Overall.String(), r.TotalVars)
		fmt.Println(ux.SummaryLine(r.RepoName, detail, r.Failed))
		if r.Failed {
			failed++
		}
	}
	if cfg.Output != "" {
		ux.Success("summary written to " + cfg.Output)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed", failed, len(results))
	}
	logger.Info("all repositories evaluated", slog.Int("repos", len(results)))
	return nil
}

// applyFlagOverrides lets CLI flags win over the config file. The
// output flag carries a default, so it only overrides when explicitly
// set; the config file keeps its say otherwise.
func applyFlagOverrides(cmd *cobra.Command, cfg *RunConfig) {
	if evalDataDir != "" {
		cfg.DataDir = evalDataDir
	}
	if evalPredictions != "" {
		cfg.PredictionsDir = evalPredictions
	}
	if cmd.Flags().Changed("output") || cfg.Output == "" {
		cfg.Output = evalOutput
	}
	if evalCacheDir != "" {
		cfg.CacheDir = evalCacheDir
	}
	if evalWorkers > 0 {
		cfg.Workers = evalWorkers
	}
	if evalRepo != "" {
		cfg.Repos = []string{evalRepo}
	}
	if evalCheckerCmd != "" {
		cfg.Checker.Command = evalCheckerCmd
	}
	if evalNoChecker {
		cfg.Checker.Disabled = true
	}
	if evalLogLevel != "" {
		cfg.LogLevel = evalLogLevel
	}
}

// buildRunner merges checker configuration over the mypy defaults.
func buildRunner(cfg CheckerConfig) *checker.CommandRunner {
	runner := checker.DefaultCommandRunner()
	if cfg.Command != "" {
		runner.Command = cfg.Command
	}
	if len(cfg.Args) > 0 {
		runner.Args = cfg.Args
	}
	if cfg.Timeout > 0 {
		runner.Timeout = time.Duration(cfg.Timeout)
	}
	return runner
}
