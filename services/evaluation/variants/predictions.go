// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package variants

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PredictionSet maps variable IDs to predicted annotation strings.
//
// Description:
//
//	Entries may be absent: a variable with no entry is a missing
//	prediction, which scores zero and counts toward the missing ratio.
//	The set is content-addressed: Hash() is stable across load order
//	and file format, and keys the result cache together with the repo
//	identity.
//
// Thread Safety: Treat as immutable after loading.
type PredictionSet struct {
	preds map[string]string
	hash  string
}

// NewPredictionSet builds a set from an in-memory mapping.
func NewPredictionSet(preds map[string]string) *PredictionSet {
	if preds == nil {
		preds = make(map[string]string)
	}
	return &PredictionSet{preds: preds, hash: hashPredictions(preds)}
}

// EmptyPredictionSet is the set with no entries: every variable is a
// missing prediction.
func EmptyPredictionSet() *PredictionSet {
	return NewPredictionSet(nil)
}

// LoadPredictions reads a prediction file for one repository.
//
// Description:
//
//	Accepts JSON (.json) or YAML (.yaml/.yml) files holding a flat
//	mapping from variable ID to annotation string. A missing file is
//	not an error: it loads as the empty set, since an absent entry is
//	a data condition, not a failure.
//
// Inputs:
//
//	dir - Prediction directory.
//	repo - Repository name; the file is <dir>/<repo>.{json,yaml,yml}.
//
// Outputs:
//
//	*PredictionSet - The loaded set, possibly empty. Never nil on
//	                 success.
//	error - Non-nil only on unreadable or malformed content.
func LoadPredictions(dir, repo string) (*PredictionSet, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, repo+ext)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat predictions %s: %w", path, err)
		}
		if info.Size() > MaxManifestFileSize {
			return nil, fmt.Errorf("predictions %s exceeds %d bytes", path, MaxManifestFileSize)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read predictions %s: %w", path, err)
		}

		preds := make(map[string]string)
		if ext == ".json" {
			err = json.Unmarshal(data, &preds)
		} else {
			err = yaml.Unmarshal(data, &preds)
		}
		if err != nil {
			return nil, fmt.Errorf("parse predictions %s: %w", path, err)
		}
		return NewPredictionSet(preds), nil
	}
	return EmptyPredictionSet(), nil
}

// Lookup returns the predicted annotation for a variable ID. The
// second return is false when the prediction is missing.
func (p *PredictionSet) Lookup(id string) (string, bool) {
	ann, ok := p.preds[id]
	return ann, ok
}

// Len returns the number of entries.
func (p *PredictionSet) Len() int {
	return len(p.preds)
}

// Hash returns the content hash of the set: sha256 over the sorted
// id/annotation pairs, hex encoded.
func (p *PredictionSet) Hash() string {
	return p.hash
}

// Annotations returns a copy of the underlying mapping, for building
// the prediction-annotated variant.
func (p *PredictionSet) Annotations() map[string]string {
	out := make(map[string]string, len(p.preds))
	for k, v := range p.preds {
		out[k] = v
	}
	return out
}

func hashPredictions(preds map[string]string) string {
	keys := make([]string, 0, len(preds))
	for k := range preds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		// NUL separators keep "a"+"bc" distinct from "ab"+"c".
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(preds[k])))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
