// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	output := []byte(`src/module.py:10: error: Incompatible types in assignment (expression has type "str", variable has type "int") [assignment]
src/module.py:22:5: error: Argument 1 to "f" has incompatible type "str"; expected "int" [arg-type]
src/module.py:30: note: See https://mypy.readthedocs.io
src/other.py:7: error: "None" has no attribute "split"
Found 3 errors in 2 files (checked 4 source files)
`)

	diags := ParseOutput(output)
	require.Len(t, diags, 3)

	assert.Equal(t, "src/module.py", diags[0].File)
	assert.Equal(t, 10, diags[0].Line)
	assert.Equal(t, 0, diags[0].Column)
	assert.Equal(t, "assignment", diags[0].Code)
	assert.Contains(t, diags[0].Message, "Incompatible types in assignment")

	assert.Equal(t, 22, diags[1].Line)
	assert.Equal(t, 5, diags[1].Column)
	assert.Equal(t, "arg-type", diags[1].Code)

	// No bracketed code falls back to "unknown".
	assert.Equal(t, "unknown", diags[2].Code)
	assert.Equal(t, `"None" has no attribute "split"`, diags[2].Message)
}

func TestParseOutput_Empty(t *testing.T) {
	diags := ParseOutput(nil)
	require.NotNil(t, diags)
	assert.Empty(t, diags)

	diags = ParseOutput([]byte("Success: no issues found in 12 source files\n"))
	assert.Empty(t, diags)
}

func TestParseOutput_SkipsMalformedLines(t *testing.T) {
	output := []byte(`not a diagnostic
file.py:abc: error: bad line number [assignment]
file.py:-3: error: negative line [assignment]
file.py:12: error: good line [index]
`)
	diags := ParseOutput(output)
	require.Len(t, diags, 1)
	assert.Equal(t, 12, diags[0].Line)
	assert.Equal(t, "index", diags[0].Code)
}

func TestFilterPolicy(t *testing.T) {
	diags := []Diagnostic{
		{Code: "assignment", Message: "Incompatible types in assignment"},
		{Code: "arg-type", Message: "Argument 1 has incompatible type"},
		{Code: "import-not-found", Message: "Cannot find implementation"},
		{Code: "operator", Message: "Unsupported operand types (incompatible)"},
		{Code: "name-defined", Message: "Name 'x' is not defined"},
	}

	policy := DefaultFilterPolicy()
	kept := policy.Apply(diags)

	// Kept codes pass; "operator" passes via the incompatibility
	// keyword; the rest are noise.
	require.Len(t, kept, 3)
	assert.Equal(t, 3, policy.Count(diags))
	assert.Equal(t, "assignment", kept[0].Code)
	assert.Equal(t, "arg-type", kept[1].Code)
	assert.Equal(t, "operator", kept[2].Code)
}

func TestFilterPolicy_Empty(t *testing.T) {
	policy := FilterPolicy{}
	assert.Empty(t, policy.Apply([]Diagnostic{{Code: "assignment", Message: "incompatible"}}))
	assert.Equal(t, 0, policy.Count(nil))
}

func TestCountByCode(t *testing.T) {
	diags := []Diagnostic{
		{Code: "assignment"},
		{Code: "assignment"},
		{Code: "index"},
	}
	counts := CountByCode(diags)
	assert.Equal(t, 2, counts["assignment"])
	assert.Equal(t, 1, counts["index"])
}
