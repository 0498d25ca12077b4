// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package typeexpr

import "errors"

// Sentinel errors for annotation parsing.
//
// These can be checked with errors.Is() to distinguish the absence of
// an annotation from malformed content. Malformed content is never an
// error: it parses to a KindRaw leaf.
var (
	// ErrMissingAnnotation indicates an empty or whitespace-only
	// annotation string. Missing predictions score zero and count
	// toward the missing ratio; they are a data condition, not a
	// failure.
	ErrMissingAnnotation = errors.New("missing annotation")
)
