// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package aggregate

// Aggregate folds one repository's score records and consistency
// counts into a RepoResult.
//
// Description:
//
//	Computes the overall means (with and without missing predictions),
//	the missing ratio, per-depth means for depths 1..5 (deeper types
//	share the depth-5 bucket), and the frequency-weighted long-tail
//	averages. Every empty bucket yields an explicit N/A.
//
// Inputs:
//
//	repoName - Repository name for the summary row.
//	records - All score records, one per ground-truth variable.
//	consA - Diagnostic count of the ground-truth variant (noise floor).
//	consB - Diagnostic count of the prediction variant.
//
// Outputs:
//
//	*RepoResult - The aggregated row. Never nil.
func Aggregate(repoName string, records []ScoreRecord, consA, consB Consistency) *RepoResult {
	r := &RepoResult{
		RepoName:         repoName,
		TotalVars:        len(records),
		RepoAConsistency: consA,
		RepoBConsistency: consB,
	}

	if len(records) == 0 {
		return r
	}

	var simSum, exactSum float64
	var presentSim, presentExact float64
	present := 0
	missing := 0

	var depthSim, depthExact [MaxDepthBucket][]float64
	typeSim := make(map[string][]float64)
	typeExact := make(map[string][]float64)

	for _, rec := range records {
		simSum += rec.Similarity
		exactSum += float64(rec.Exact)
		if rec.Missing {
			missing++
		} else {
			present++
			presentSim += rec.Similarity
			presentExact += float64(rec.Exact)
		}

		bucket := rec.Depth
		if bucket > MaxDepthBucket {
			bucket = MaxDepthBucket
		}
		if bucket >= 1 {
			depthSim[bucket-1] = append(depthSim[bucket-1], rec.Similarity)
			depthExact[bucket-1] = append(depthExact[bucket-1], float64(rec.Exact))
		}

		typeSim[rec.TypeLabel] = append(typeSim[rec.TypeLabel], rec.Similarity)
		typeExact[rec.TypeLabel] = append(typeExact[rec.TypeLabel], float64(rec.Exact))
	}

	n := float64(len(records))
	r.Overall = NewStat(simSum / n)
	r.OverallExact = NewStat(exactSum / n)
	r.MissingRatio = NewStat(float64(missing) / n)

	if present > 0 {
		r.OverallWoMissing = NewStat(presentSim / float64(present))
		r.OverallWoExact = NewStat(presentExact / float64(present))
	}

	for d := 0; d < MaxDepthBucket; d++ {
		r.DepthScores[d] = mean(depthSim[d])
		r.DepthScoresExact[d] = mean(depthExact[d])
	}

	r.LowerThan5 = rareAverage(typeSim, RareThresholdLow)
	r.LowerThan10 = rareAverage(typeSim, RareThresholdHigh)
	r.LowerThan5Exact = rareAverage(typeExact, RareThresholdLow)
	r.LowerThan10Exact = rareAverage(typeExact, RareThresholdHigh)

	return r
}

// FailureRow is the all-N/A row for a repository that could not be
// read at all. The batch continues; the summary still carries one row
// per requested repository.
func FailureRow(repoName string) *RepoResult {
	return &RepoResult{RepoName: repoName, Failed: true}
}

// mean returns the average, or N/A for an empty slice.
func mean(values []float64) Stat {
	if len(values) == 0 {
		return NA()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return NewStat(sum / float64(len(values)))
}

// rareAverage averages the per-group means of type-label groups whose
// repo-wide frequency is below the threshold. A flat average drowns
// out rare types; averaging group means first rewards correct handling
// of the long tail.
func rareAverage(groups map[string][]float64, threshold int) Stat {
	sum := 0.0
	count := 0
	for _, scores := range groups {
		if len(scores) >= threshold {
			continue
		}
		groupMean := mean(scores)
		sum += groupMean.Value
		count++
	}
	if count == 0 {
		return NA()
	}
	return NewStat(sum / float64(count))
}
