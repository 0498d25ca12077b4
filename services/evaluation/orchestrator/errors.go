// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import "errors"

var (
	// ErrInvalidConfig indicates a misconfigured evaluation run.
	ErrInvalidConfig = errors.New("invalid evaluation configuration")

	// ErrNoRepos indicates the data root holds no evaluable
	// repositories.
	ErrNoRepos = errors.New("no repositories to evaluate")
)
