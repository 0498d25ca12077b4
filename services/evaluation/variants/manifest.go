// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package variants prepares the annotated source-tree variants that
// the consistency checker runs against, and loads the ground-truth
// manifests and prediction sets that drive scoring.
package variants

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxManifestFileSize caps manifest and prediction files (4MB).
// Prevents memory issues from corrupt or hostile files.
const MaxManifestFileSize = 4 * 1024 * 1024

// Kind classifies where a variable's annotation attaches.
type Kind string

const (
	// KindArgument annotates a function parameter.
	KindArgument Kind = "argument"

	// KindReturn annotates a function return type.
	KindReturn Kind = "return"

	// KindVariable annotates a module- or class-level variable.
	KindVariable Kind = "variable"
)

// Variable is one ground-truth annotated variable.
//
// The ID is the stable identity used to join predictions: file plus
// qualified name plus location. The ground-truth annotation is always
// present; a prediction for the same ID may be absent.
//
// Thread Safety: Treat as immutable after loading.
type Variable struct {
	// ID is the stable identity, e.g. "pkg.mod.func@arg" or
	// "pkg.mod.func::return".
	ID string `yaml:"id" validate:"required"`

	// File is the source path relative to the repository root.
	File string `yaml:"file" validate:"required"`

	// Name is the surface identifier the rewriter targets. Empty for
	// return annotations.
	Name string `yaml:"name"`

	// Line is the 1-based line the annotation attaches to.
	Line int `yaml:"line" validate:"gt=0"`

	// Kind is where the annotation attaches.
	Kind Kind `yaml:"kind" validate:"required,oneof=argument return variable"`

	// Annotation is the ground-truth type expression.
	Annotation string `yaml:"annotation" validate:"required"`
}

// Manifest is the ground-truth variable set for one repository.
type Manifest struct {
	// Repo is the repository name.
	Repo string `yaml:"repo" validate:"required"`

	// Variables are all annotated variables. Order is preserved.
	Variables []Variable `yaml:"variables" validate:"dive"`
}

// manifestValidate validates loaded manifests.
var manifestValidate = validator.New()

// LoadManifest reads and validates a ground-truth manifest.
//
// Inputs:
//
//	path - Path to the YAML manifest file.
//
// Outputs:
//
//	*Manifest - The loaded manifest.
//	error - Non-nil on read, parse, or validation failure. Callers
//	        treat this as total repository unreadability.
func LoadManifest(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat manifest %s: %w", path, err)
	}
	if info.Size() > MaxManifestFileSize {
		return nil, fmt.Errorf("manifest %s exceeds %d bytes", path, MaxManifestFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := manifestValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("validate manifest %s: %w", path, err)
	}

	// Duplicate IDs would double-count variables in every aggregate.
	seen := make(map[string]struct{}, len(m.Variables))
	for _, v := range m.Variables {
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("manifest %s: duplicate variable id %q", path, v.ID)
		}
		seen[v.ID] = struct{}{}
	}

	return &m, nil
}

// Annotations returns the ground-truth annotation per variable ID.
func (m *Manifest) Annotations() map[string]string {
	out := make(map[string]string, len(m.Variables))
	for _, v := range m.Variables {
		out[v.ID] = v.Annotation
	}
	return out
}
