// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Header returns the summary column names, in output order.
func Header() []string {
	return []string{
		"repo_name",
		"total_vars",
		"overall_score",
		"overall_score_wo_missing",
		"overall_score_exact",
		"overall_score_wo_missing_exact",
		"missing_ratio",
		"depth_1_score",
		"depth_2_score",
		"depth_3_score",
		"depth_4_score",
		"depth_5_score",
		"depth_1_score_exact",
		"depth_2_score_exact",
		"depth_3_score_exact",
		"depth_4_score_exact",
		"depth_5_score_exact",
		"repo_a_consistency",
		"repo_b_consistency",
		"lower_than_5_average",
		"lower_than_10_average",
		"lower_than_5_average_exact",
		"lower_than_10_average_exact",
	}
}

// Row renders the result as one CSV record matching Header. A failed
// repository renders every field after the name as "N/A".
func (r *RepoResult) Row() []string {
	if r.Failed {
		row := make([]string, len(Header()))
		row[0] = r.RepoName
		for i := 1; i < len(row); i++ {
			row[i] = "N/A"
		}
		return row
	}

	row := []string{
		r.RepoName,
		strconv.Itoa(r.TotalVars),
		r.Overall.String(),
		r.OverallWoMissing.String(),
		r.OverallExact.String(),
		r.OverallWoExact.String(),
		r.MissingRatio.String(),
	}
	for _, s := range r.DepthScores {
		row = append(row, s.String())
	}
	for _, s := range r.DepthScoresExact {
		row = append(row, s.String())
	}
	row = append(row,
		r.RepoAConsistency.String(),
		r.RepoBConsistency.String(),
		r.LowerThan5.String(),
		r.LowerThan10.String(),
		r.LowerThan5Exact.String(),
		r.LowerThan10Exact.String(),
	)
	return row
}

// WriteCSV writes the summary table, replacing any previous file so
// that re-runs overwrite rather than append.
//
// Inputs:
//
//	path - Output file path.
//	results - One result per repository, already deduplicated.
//
// Outputs:
//
//	error - Non-nil on filesystem or encoding failure.
func WriteCSV(path string, results []*RepoResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(r.Row()); err != nil {
			return fmt.Errorf("write summary row %s: %w", r.RepoName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return f.Sync()
}
