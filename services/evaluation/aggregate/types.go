// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package aggregate folds per-variable scores into repository-level
// statistics.
//
// Every statistic that can face an empty bucket is an explicit Stat
// value with a validity flag. A gap in the data is always reported as
// "N/A", never as a computed zero, so a repository with no depth-4
// variables is distinguishable from one that scored zero on them.
package aggregate

import (
	"strconv"
)

// =============================================================================
// SCORE RECORDS
// =============================================================================

// ScoreRecord is the scored outcome for one variable.
//
// Thread Safety: Immutable once computed.
type ScoreRecord struct {
	// VarID is the stable variable identity from the manifest.
	VarID string `json:"var_id"`

	// Similarity is the TypeSim score in [0, 1].
	Similarity float64 `json:"similarity"`

	// Exact is 1 for a normalized exact match, else 0.
	Exact int `json:"exact"`

	// Depth is the ground-truth expression depth. Depth never depends
	// on the prediction.
	Depth int `json:"depth"`

	// Missing marks an absent prediction. Missing records score zero
	// and are excluded from the "_wo_missing" aggregates.
	Missing bool `json:"missing"`

	// TypeLabel is the canonical ground-truth rendering, used to group
	// variables for the frequency-weighted averages.
	TypeLabel string `json:"type_label"`
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stat is a statistic that may be unavailable. The zero value is the
// explicit "N/A".
type Stat struct {
	Value float64
	Valid bool
}

// NewStat returns a valid statistic.
func NewStat(v float64) Stat {
	return Stat{Value: v, Valid: true}
}

// NA is the explicit not-available statistic.
func NA() Stat {
	return Stat{}
}

// String renders four decimal places, or "N/A".
func (s Stat) String() string {
	if !s.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(s.Value, 'f', 4, 64)
}

// Consistency is a checker diagnostic count that may be unavailable
// (checker crash, timeout, or missing environment).
type Consistency struct {
	Count int
	Valid bool
}

// NewConsistency returns a valid count.
func NewConsistency(count int) Consistency {
	return Consistency{Count: count, Valid: true}
}

// Unavailable is the explicit sentinel for a failed checker run. It is
// never conflated with a zero count.
func Unavailable() Consistency {
	return Consistency{}
}

// String renders the count, or "unavailable".
func (c Consistency) String() string {
	if !c.Valid {
		return "unavailable"
	}
	return strconv.Itoa(c.Count)
}

// =============================================================================
// REPO RESULT
// =============================================================================

// MaxDepthBucket caps the per-depth breakdown: ground-truth depths of
// five or more share the last bucket.
const MaxDepthBucket = 5

// Frequency thresholds for the long-tail averages.
const (
	RareThresholdLow  = 5
	RareThresholdHigh = 10
)

// RepoResult is the aggregated statistics for one repository, one row
// of the final summary.
type RepoResult struct {
	RepoName  string
	TotalVars int

	Overall          Stat
	OverallWoMissing Stat
	OverallExact     Stat
	OverallWoExact   Stat

	MissingRatio Stat

	// DepthScores[d-1] holds the mean for ground-truth depth d.
	DepthScores      [MaxDepthBucket]Stat
	DepthScoresExact [MaxDepthBucket]Stat

	RepoAConsistency Consistency
	RepoBConsistency Consistency

	LowerThan5       Stat
	LowerThan10      Stat
	LowerThan5Exact  Stat
	LowerThan10Exact Stat

	// Failed marks total repository unreadability: every field renders
	// as "N/A" and the row still appears in the summary.
	Failed bool
}
