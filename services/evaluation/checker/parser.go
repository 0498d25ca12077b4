// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checker

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// ParseOutput parses checker output lines into diagnostics.
//
// Description:
//
//	Expects the mypy-style line format:
//
//	    file.py:10: error: Message text [error-code]
//	    file.py:10:5: error: Message text [error-code]
//
//	Lines that are not error diagnostics (notes, summaries, blank
//	lines, unparseable content) are skipped silently; a bad line
//	degrades the data, it does not fail the invocation.
//
// Inputs:
//
//	output - Raw checker stdout.
//
// Outputs:
//
//	[]Diagnostic - Parsed diagnostics, possibly empty, never nil.
func ParseOutput(output []byte) []Diagnostic {
	diags := make([]Diagnostic, 0)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if d, ok := parseLine(scanner.Text()); ok {
			diags = append(diags, d)
		}
	}
	return diags
}

func parseLine(line string) (Diagnostic, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Diagnostic{}, false
	}

	// Split off the location prefix: file:line[:column]: rest
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 3 {
		return Diagnostic{}, false
	}
	file := parts[0]
	lineNo, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || lineNo <= 0 {
		return Diagnostic{}, false
	}

	rest := parts[2]
	column := 0
	// An optional column slot precedes the severity.
	if colPart, after, found := strings.Cut(rest, ":"); found {
		if col, err := strconv.Atoi(strings.TrimSpace(colPart)); err == nil && col > 0 {
			column = col
			rest = after
		}
	}

	// Only error diagnostics count; notes and warnings are advisory.
	_, msgWithCode, found := strings.Cut(rest, "error:")
	if !found {
		return Diagnostic{}, false
	}
	msgWithCode = strings.TrimSpace(msgWithCode)

	message := msgWithCode
	code := "unknown"
	if strings.HasSuffix(msgWithCode, "]") {
		if i := strings.LastIndex(msgWithCode, "["); i >= 0 {
			code = msgWithCode[i+1 : len(msgWithCode)-1]
			message = strings.TrimSpace(msgWithCode[:i])
		}
	}

	return Diagnostic{
		File:    file,
		Line:    lineNo,
		Column:  column,
		Code:    code,
		Message: message,
	}, true
}

// CountByCode groups diagnostics by error code.
func CountByCode(diags []Diagnostic) map[string]int {
	counts := make(map[string]int, len(diags))
	for _, d := range diags {
		counts[d.Code]++
	}
	return counts
}
