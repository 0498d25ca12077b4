// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache persists completed repository evaluations in an
// embedded BadgerDB store.
//
// Scoring a repository means parsing every annotation and running the
// static checker twice, which dominates wall-clock time. Results are
// keyed by repository name plus a content hash of the prediction set,
// so a re-run with unchanged predictions is a pure lookup while any
// edit to the predictions misses naturally.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	"github.com/typybench/typybench/services/evaluation/aggregate"
	"github.com/typybench/typybench/services/evaluation/checker"
)

// Entry is one cached repository evaluation.
//
// Thread Safety: Immutable once stored.
type Entry struct {
	// Repo is the repository name the entry was computed for.
	Repo string `json:"repo"`

	// PredictionHash is the content hash of the prediction set at
	// compute time.
	PredictionHash string `json:"prediction_hash"`

	// Records are the per-variable scores.
	Records []aggregate.ScoreRecord `json:"records"`

	// DiagnosticsA and DiagnosticsB are the retained checker findings
	// for the ground-truth and prediction variants.
	DiagnosticsA []checker.Diagnostic `json:"diagnostics_a,omitempty"`
	DiagnosticsB []checker.Diagnostic `json:"diagnostics_b,omitempty"`

	// ConsA and ConsB carry the diagnostic counts, including the
	// unavailable sentinel when a checker run failed. An unavailable
	// count is cached too: the miss was a property of the run, and the
	// caller decides whether to retry.
	ConsA aggregate.Consistency `json:"cons_a"`
	ConsB aggregate.Consistency `json:"cons_b"`

	// CreatedAt is when the entry was computed.
	CreatedAt time.Time `json:"created_at"`
}

// Store is a BadgerDB-backed evaluation cache.
//
// Thread Safety: Safe for concurrent use. Concurrent Fetch calls for
// the same key are collapsed into a single computation.
type Store struct {
	db     *badger.DB
	flight singleflight.Group
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens a persistent store rooted at dir, creating it if needed.
//
// Outputs:
//
//	*Store - The opened store. Caller must call Close when done.
//	error - Non-nil if the directory or database cannot be opened.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: cache directory is required", ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1).
		WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open cache at %s: %w", dir, err)
	}
	return newStore(db, opts...), nil
}

// OpenInMemory opens a volatile store for testing. Data is lost when
// the store is closed.
func OpenInMemory(opts ...Option) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory cache: %w", err)
	}
	return newStore(db, opts...), nil
}

func newStore(db *badger.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying database. The store must not be used
// after Close.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up the entry for repo computed against predictionHash.
//
// Outputs:
//
//	*Entry - The cached entry, or nil with ErrNotFound.
//	error - ErrNotFound on a miss, otherwise a storage error.
func (s *Store) Get(repo, predictionHash string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(repo, predictionHash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, repo, predictionHash)
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", repo, err)
	}
	return &entry, nil
}

// Put stores the entry under its repo and prediction hash, replacing
// any previous value.
func (s *Store) Put(entry *Entry) error {
	if entry == nil || entry.Repo == "" || entry.PredictionHash == "" {
		return fmt.Errorf("%w: entry requires repo and prediction hash", ErrInvalidConfig)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", entry.Repo, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.Repo, entry.PredictionHash), data)
	})
	if err != nil {
		return fmt.Errorf("cache put %s: %w", entry.Repo, err)
	}
	return nil
}

// ComputeFunc produces a fresh entry on a cache miss.
type ComputeFunc func(ctx context.Context) (*Entry, error)

// Fetch returns the cached entry for repo and predictionHash, or
// computes and stores a fresh one.
//
// Description:
//
//	Concurrent Fetch calls for the same repo and hash share one
//	computation via singleflight. A failed write after a successful
//	computation is logged and tolerated: the result is still returned
//	and will simply be recomputed next run.
//
// Inputs:
//
//	ctx - Cancels an in-flight computation.
//	repo - Repository name.
//	predictionHash - Content hash of the prediction set.
//	compute - Invoked only on a miss.
//
// Outputs:
//
//	*Entry - The cached or freshly computed entry.
//	bool - True when the entry came from the cache.
//	error - Non-nil if the computation failed.
func (s *Store) Fetch(ctx context.Context, repo, predictionHash string, compute ComputeFunc) (*Entry, bool, error) {
	if entry, err := s.Get(repo, predictionHash); err == nil {
		s.logger.Debug("cache hit",
			slog.String("repo", repo),
			slog.String("hash", predictionHash))
		return entry, true, nil
	}

	key := repo + "\x00" + predictionHash
	v, err, _ := s.flight.Do(key, func() (any, error) {
		// Recheck inside the flight: a racing caller may have filled
		// the key between our miss and this critical section.
		if entry, err := s.Get(repo, predictionHash); err == nil {
			return entry, nil
		}
		entry, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		entry.Repo = repo
		entry.PredictionHash = predictionHash
		if putErr := s.Put(entry); putErr != nil {
			s.logger.Warn("cache write failed",
				slog.String("repo", repo),
				slog.String("error", putErr.Error()))
		}
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Entry), false, nil
}

func entryKey(repo, hash string) []byte {
	return []byte("result/" + repo + "/" + hash)
}
