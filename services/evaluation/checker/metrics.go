// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for checker operations.
var meter = otel.Meter("typybench.checker")

var (
	checkLatency     metric.Float64Histogram
	checkTotal       metric.Int64Counter
	diagnosticsFound metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		checkLatency, err = meter.Float64Histogram(
			"checker_duration_seconds",
			metric.WithDescription("Duration of checker invocations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkTotal, err = meter.Int64Counter(
			"checker_invocations_total",
			metric.WithDescription("Total number of checker invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticsFound, err = meter.Int64Histogram(
			"checker_diagnostics_found",
			metric.WithDescription("Diagnostics parsed per checker invocation"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

// recordCheckMetrics records one invocation outcome. Metric failures
// are ignored; observability must not break checking.
func recordCheckMetrics(ctx context.Context, command string, duration time.Duration, diagnostics int, success bool) {
	if initMetrics() != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.Bool("success", success),
	)

	checkLatency.Record(ctx, duration.Seconds(), attrs)
	checkTotal.Add(ctx, 1, attrs)
	if success {
		diagnosticsFound.Record(ctx, int64(diagnostics), attrs)
	}
}
