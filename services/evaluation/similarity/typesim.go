// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package similarity scores predicted type expressions against ground
// truth.
//
// The TypeSim metric gives partial credit for structurally close
// types: a correct outer constructor with a wrong inner argument lands
// strictly between 0 and 1. The exact-match metric is the binary
// complement, equality after Optional/Union normalization.
package similarity

import (
	"sort"

	"github.com/typybench/typybench/services/evaluation/typeexpr"
)

// Scorer computes TypeSim scores under a fixed policy.
//
// Thread Safety: Safe for concurrent use; Scorer is stateless beyond
// its immutable policy.
type Scorer struct {
	policy Policy
}

// NewScorer creates a scorer with the given policy constants.
func NewScorer(policy Policy) *Scorer {
	return &Scorer{policy: policy}
}

// Score computes the TypeSim similarity in [0, 1] between a predicted
// and a ground-truth expression.
//
// Description:
//
//	A nil prediction (missing) scores 0. Matching constructors earn
//	full local credit blended with the average recursive similarity of
//	positionally paired children; mismatched constructors earn the
//	affinity-table credit. Union branches pair greedily best-first as a
//	multiset rather than positionally.
//
// Inputs:
//
//	pred - The predicted expression. Nil means missing.
//	truth - The ground-truth expression. Must not be nil.
//
// Outputs:
//
//	float64 - Similarity in [0, 1]. Deterministic for fixed inputs.
func (s *Scorer) Score(pred, truth *typeexpr.Node) float64 {
	if pred == nil {
		return 0
	}
	return s.score(truth, pred)
}

// Score computes TypeSim under the default policy.
func Score(pred, truth *typeexpr.Node) float64 {
	return NewScorer(DefaultPolicy()).Score(pred, truth)
}

// Exact returns 1 iff the normalized trees are structurally identical,
// 0 for a missing prediction or any mismatch.
func Exact(pred, truth *typeexpr.Node) int {
	if pred == nil || truth == nil {
		return 0
	}
	if truth.Equal(pred) {
		return 1
	}
	return 0
}

func (s *Scorer) score(a, b *typeexpr.Node) float64 {
	// Union on either side switches to multiset branch matching. A
	// non-union operand participates as a single-member list, so
	// Union[int, str] vs int still earns credit for the int branch.
	if a.Kind == typeexpr.KindUnion || b.Kind == typeexpr.KindUnion {
		return s.matchBranches(members(a), members(b))
	}

	local := s.policy.localCredit(surfaceName(a), surfaceName(b))

	aArgs := a.Args
	bArgs := b.Args
	switch {
	case len(aArgs) > 0 && len(bArgs) > 0:
		return s.policy.BlendWeight*local + (1-s.policy.BlendWeight)*s.pairPositional(aArgs, bArgs)
	case len(aArgs) > 0 || len(bArgs) > 0:
		// One side is bare where the other is parameterized: the
		// missing argument list contributes zero child credit.
		return s.policy.BlendWeight * local
	default:
		return local
	}
}

// pairPositional pairs children by position over min(len) and
// normalizes by max(len), so extra or missing arguments are penalized
// rather than ignored.
func (s *Scorer) pairPositional(a, b []*typeexpr.Node) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += s.score(a[i], b[i])
	}
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return sum / float64(max)
}

// branchPair is a candidate (truth branch, predicted branch) pairing.
type branchPair struct {
	ti, pi int
	score  float64
}

// matchBranches pairs ground-truth branches with predicted branches
// greedily best-first. Ties break on the lower truth index, then the
// lower predicted index, which keeps the result deterministic. The sum
// normalizes by the larger branch count, so unmatched branches on
// either side dilute the score without contributing.
func (s *Scorer) matchBranches(truth, pred []*typeexpr.Node) float64 {
	pairs := make([]branchPair, 0, len(truth)*len(pred))
	for ti, t := range truth {
		for pi, p := range pred {
			pairs = append(pairs, branchPair{ti: ti, pi: pi, score: s.score(t, p)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].ti != pairs[j].ti {
			return pairs[i].ti < pairs[j].ti
		}
		return pairs[i].pi < pairs[j].pi
	})

	usedT := make([]bool, len(truth))
	usedP := make([]bool, len(pred))
	sum := 0.0
	for _, pair := range pairs {
		if usedT[pair.ti] || usedP[pair.pi] {
			continue
		}
		usedT[pair.ti] = true
		usedP[pair.pi] = true
		sum += pair.score
	}

	max := len(truth)
	if len(pred) > max {
		max = len(pred)
	}
	if max == 0 {
		return 0
	}
	return sum / float64(max)
}

// members returns the union members, or the node itself as a singleton
// for non-union nodes.
func members(n *typeexpr.Node) []*typeexpr.Node {
	if n.Kind == typeexpr.KindUnion {
		return n.Args
	}
	return []*typeexpr.Node{n}
}

// surfaceName is the constructor name used for affinity lookup. Raw
// fallback nodes use their original text, so two identical malformed
// annotations still match each other exactly.
func surfaceName(n *typeexpr.Node) string {
	if n.Kind == typeexpr.KindRaw {
		return n.Raw
	}
	return n.Name
}
