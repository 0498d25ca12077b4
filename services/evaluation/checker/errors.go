// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package checker

import "errors"

// Sentinel errors for checker invocation failures.
//
// All of them mean "consistency unavailable for this variant" to the
// caller; none of them abort the evaluation of other repositories.
var (
	// ErrCheckerNotInstalled indicates the checker binary was not
	// found in PATH.
	ErrCheckerNotInstalled = errors.New("checker not installed")

	// ErrCheckerTimeout indicates the invocation exceeded its per-repo
	// timeout.
	ErrCheckerTimeout = errors.New("checker timed out")

	// ErrCheckerFailed indicates the checker process crashed or
	// produced no parseable output on a non-zero exit.
	ErrCheckerFailed = errors.New("checker failed")

	// ErrInvalidInput indicates a nil context or an empty variant
	// directory.
	ErrInvalidInput = errors.New("invalid input")
)
