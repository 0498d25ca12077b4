// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checker

import (
	"strings"
	"time"
)

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Diagnostic is one error reported by the external type checker.
//
// Thread Safety: Treat as immutable after parsing.
type Diagnostic struct {
	// File is the path reported by the checker, relative to the
	// variant root when possible.
	File string `json:"file"`

	// Line is the 1-based line number.
	Line int `json:"line"`

	// Column is the 1-based column, or 0 when the checker omitted it.
	Column int `json:"column,omitempty"`

	// Code is the checker error code (e.g., "arg-type"), or "unknown"
	// when the output line carried none.
	Code string `json:"code"`

	// Message is the diagnostic text without location or code.
	Message string `json:"message"`
}

// Result is the outcome of one checker invocation on one variant.
type Result struct {
	// Diagnostics are all parsed error diagnostics.
	Diagnostics []Diagnostic `json:"diagnostics"`

	// Duration is the wall-clock time of the invocation.
	Duration time.Duration `json:"duration"`
}

// =============================================================================
// FILTER POLICY
// =============================================================================

// FilterPolicy selects which diagnostics count toward the consistency
// score.
//
// Description:
//
//	Checkers report many diagnostics unrelated to annotation quality
//	(import resolution, syntax noise from partially typed code). The
//	policy keeps the error codes that signal a type contradiction, plus
//	any diagnostic whose message contains the incompatibility keyword.
//
// Thread Safety: Treat as immutable after creation.
type FilterPolicy struct {
	// KeepCodes are error codes that always count.
	KeepCodes []string `yaml:"keep_codes"`

	// Keyword also counts diagnostics of any other code whose message
	// contains this substring. Empty disables the keyword rule.
	Keyword string `yaml:"keyword"`
}

// DefaultFilterPolicy returns the benchmark's diagnostic selection:
// the contradiction-signaling mypy codes plus "incompatible" messages.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		KeepCodes: []string{"attr-defined", "assignment", "arg-type", "union-attr", "index"},
		Keyword:   "incompatible",
	}
}

// Apply returns the diagnostics that count under the policy.
func (p FilterPolicy) Apply(diags []Diagnostic) []Diagnostic {
	kept := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if p.matches(d) {
			kept = append(kept, d)
		}
	}
	return kept
}

// Count returns the consistency count: the number of diagnostics that
// survive the policy.
func (p FilterPolicy) Count(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if p.matches(d) {
			n++
		}
	}
	return n
}

func (p FilterPolicy) matches(d Diagnostic) bool {
	for _, code := range p.KeepCodes {
		if d.Code == code {
			return true
		}
	}
	return p.Keyword != "" && strings.Contains(d.Message, p.Keyword)
}
