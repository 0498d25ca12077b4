// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typybench/typybench/services/evaluation/aggregate"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleEntry(repo, hash string) *Entry {
	return &Entry{
		Repo:           repo,
		PredictionHash: hash,
		Records: []aggregate.ScoreRecord{
			{VarID: "a.py:f:x", Similarity: 0.75, Depth: 2, TypeLabel: "List[int]"},
		},
		ConsA: aggregate.NewConsistency(0),
		ConsB: aggregate.NewConsistency(3),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put(sampleEntry("demo", "h1")))

	got, err := s.Get("demo", "h1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Repo)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 0.75, got.Records[0].Similarity)
	assert.Equal(t, "3", got.ConsB.String())
	assert.False(t, got.CreatedAt.IsZero(), "Put must stamp CreatedAt")
}

func TestGetMiss(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("demo", "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

// A changed prediction hash must miss even with the repo name cached.
func TestHashChangeMisses(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(sampleEntry("demo", "h1")))

	_, err := s.Get("demo", "h2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutValidation(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.Put(nil), ErrInvalidConfig)
	assert.ErrorIs(t, s.Put(&Entry{Repo: "demo"}), ErrInvalidConfig)
	assert.ErrorIs(t, s.Put(&Entry{PredictionHash: "h"}), ErrInvalidConfig)
}

func TestFetchComputesOnceAndCaches(t *testing.T) {
	s := newTestStore(t)
	var calls atomic.Int64

	compute := func(ctx context.Context) (*Entry, error) {
		calls.Add(1)
		return sampleEntry("demo", "h1"), nil
	}

	entry, hit, err := s.Fetch(context.Background(), "demo", "h1", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "demo", entry.Repo)

	entry, hit, err = s.Fetch(context.Background(), "demo", "h1", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "h1", entry.PredictionHash)
	assert.Equal(t, int64(1), calls.Load())
}

func TestFetchPropagatesComputeError(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("manifest unreadable")

	_, _, err := s.Fetch(context.Background(), "demo", "h1",
		func(ctx context.Context) (*Entry, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	// A failed computation must not poison the cache.
	_, err = s.Get("demo", "h1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchConcurrentSingleflight(t *testing.T) {
	s := newTestStore(t)
	var calls atomic.Int64
	release := make(chan struct{})

	compute := func(ctx context.Context) (*Entry, error) {
		calls.Add(1)
		<-release
		return sampleEntry("demo", "h1"), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			entry, _, err := s.Fetch(context.Background(), "demo", "h1", compute)
			assert.NoError(t, err)
			assert.Equal(t, "demo", entry.Repo)
		}()
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int64(2),
		"concurrent fetches for one key must collapse")
}

func TestUnavailableConsistencySurvivesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	e := sampleEntry("demo", "h1")
	e.ConsB = aggregate.Unavailable()
	require.NoError(t, s.Put(e))

	got, err := s.Get("demo", "h1")
	require.NoError(t, err)
	assert.False(t, got.ConsB.Valid)
	assert.Equal(t, "unavailable", got.ConsB.String())
}
