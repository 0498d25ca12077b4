// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package similarity

import "strings"

// =============================================================================
// CONSTRUCTOR FAMILIES
// =============================================================================

// Family groups constructors that expose a similar runtime surface.
// Two different constructors from the same family earn partial local
// credit instead of zero.
type Family int

const (
	// FamilyNone means the constructor belongs to no known family.
	FamilyNone Family = iota

	// FamilySequence covers ordered and unordered element containers:
	// list, tuple, set and their typing/abc spellings.
	FamilySequence

	// FamilyMapping covers key-value containers: dict, Mapping,
	// OrderedDict, defaultdict, Counter.
	FamilyMapping

	// FamilyNumeric covers int, float, complex, bool.
	FamilyNumeric

	// FamilyText covers str, bytes, bytearray.
	FamilyText
)

// families maps bare constructor names to their family. Lookup strips
// module qualifiers first, so "typing.List" and "List" resolve alike.
var families = map[string]Family{
	"list":            FamilySequence,
	"List":            FamilySequence,
	"tuple":           FamilySequence,
	"Tuple":           FamilySequence,
	"set":             FamilySequence,
	"Set":             FamilySequence,
	"frozenset":       FamilySequence,
	"FrozenSet":       FamilySequence,
	"deque":           FamilySequence,
	"Deque":           FamilySequence,
	"Sequence":        FamilySequence,
	"MutableSequence": FamilySequence,
	"Iterable":        FamilySequence,
	"Iterator":        FamilySequence,
	"Collection":      FamilySequence,
	"AbstractSet":     FamilySequence,

	"dict":           FamilyMapping,
	"Dict":           FamilyMapping,
	"Mapping":        FamilyMapping,
	"MutableMapping": FamilyMapping,
	"OrderedDict":    FamilyMapping,
	"defaultdict":    FamilyMapping,
	"DefaultDict":    FamilyMapping,
	"Counter":        FamilyMapping,

	"int":     FamilyNumeric,
	"float":   FamilyNumeric,
	"complex": FamilyNumeric,
	"bool":    FamilyNumeric,

	"str":       FamilyText,
	"bytes":     FamilyText,
	"bytearray": FamilyText,
}

// FamilyOf returns the family of a constructor surface name.
func FamilyOf(name string) Family {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return families[name]
}

// =============================================================================
// SCORING POLICY
// =============================================================================

// Policy holds the tunable constants of the similarity metric.
//
// Description:
//
//	The affinity credits and the blend weight are policy parameters,
//	not facts about the type system. They are exposed here so that a
//	deployment can tune them from configuration instead of editing
//	constants scattered through the scorer.
//
// Thread Safety: Treat as immutable after creation.
type Policy struct {
	// SameConstructor is the local credit for an identical constructor
	// name.
	SameConstructor float64 `yaml:"same_constructor" validate:"gte=0,lte=1"`

	// SameFamily is the local credit for related constructors, e.g.
	// list vs Sequence.
	SameFamily float64 `yaml:"same_family" validate:"gte=0,lte=1"`

	// AnyCredit is the local credit when exactly one side is Any. Any
	// is compatible with everything but claims nothing, so it earns
	// half credit rather than a match or a miss.
	AnyCredit float64 `yaml:"any_credit" validate:"gte=0,lte=1"`

	// Unrelated is the local credit for constructors with nothing in
	// common.
	Unrelated float64 `yaml:"unrelated" validate:"gte=0,lte=1"`

	// BlendWeight is the weight of the local constructor credit in the
	// final score; the recursive child average carries the remainder.
	// 0.5 reproduces the plain (local + children) / 2 blend.
	BlendWeight float64 `yaml:"blend_weight" validate:"gt=0,lt=1"`
}

// DefaultPolicy returns the scoring constants used by the benchmark.
func DefaultPolicy() Policy {
	return Policy{
		SameConstructor: 1.0,
		SameFamily:      0.5,
		AnyCredit:       0.5,
		Unrelated:       0.0,
		BlendWeight:     0.5,
	}
}

// localCredit computes the constructor-level affinity of two surface
// names.
func (p Policy) localCredit(a, b string) float64 {
	if a == b {
		return p.SameConstructor
	}
	aAny := isAny(a)
	bAny := isAny(b)
	if aAny != bAny {
		return p.AnyCredit
	}
	if aAny && bAny {
		return p.SameConstructor
	}
	fa := FamilyOf(a)
	fb := FamilyOf(b)
	if fa != FamilyNone && fa == fb {
		return p.SameFamily
	}
	return p.Unrelated
}

func isAny(name string) bool {
	return name == "Any" || name == "typing.Any"
}
