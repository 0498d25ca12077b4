// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for evaluation runs.
var meter = otel.Meter("typybench.orchestrator")

var (
	repoLatency metric.Float64Histogram
	reposTotal  metric.Int64Counter
	cacheHits   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		repoLatency, err = meter.Float64Histogram(
			"evaluation_repo_duration_seconds",
			metric.WithDescription("Wall-clock duration of one repository evaluation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reposTotal, err = meter.Int64Counter(
			"evaluation_repos_total",
			metric.WithDescription("Repositories evaluated, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheHits, err = meter.Int64Counter(
			"evaluation_cache_hits_total",
			metric.WithDescription("Repository evaluations served from the cache"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

// recordRepoMetrics records one repository outcome. Metric failures
// are ignored; observability must not break evaluation.
func recordRepoMetrics(ctx context.Context, repo, outcome string, duration time.Duration, cacheHit bool) {
	if initMetrics() != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("repo", repo),
		attribute.String("outcome", outcome),
	)

	repoLatency.Record(ctx, duration.Seconds(), attrs)
	reposTotal.Add(ctx, 1, attrs)
	if cacheHit {
		cacheHits.Add(ctx, 1, attrs)
	}
}
