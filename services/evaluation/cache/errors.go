// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import "errors"

var (
	// ErrNotFound indicates no entry exists for the repo and hash.
	ErrNotFound = errors.New("cache entry not found")

	// ErrInvalidConfig indicates a malformed store configuration or
	// entry.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)
