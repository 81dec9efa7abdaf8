// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot persists tally count tables in BadgerDB.
//
// A Snapshot captures the counts of every configured variable and pair at
// one instant. Counts are enough to rebuild each tally exactly, since
// probabilities are always derived from them.
//
// Key layout:
//
//	snapshot/<uuid>   JSON-encoded Snapshot
//	meta/latest       id of the most recently saved snapshot
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/infotally/services/tally/storage/badger"
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	snapshotPrefix = "snapshot/"
	latestKey      = "meta/latest"
)

// ErrNotFound is returned when no snapshot matches the requested id.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a point-in-time copy of every tally's counts.
type Snapshot struct {
	ID        string                `json:"id"`
	Label     string                `json:"label,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	Variables map[string]Variable   `json:"variables"`
	Pairs     map[string]PairCounts `json:"pairs"`
}

// Variable holds the counts of one scalar tally.
type Variable struct {
	Counts  []int64 `json:"counts"`
	Samples int64   `json:"samples"`
}

// PairCounts holds the joint counts of one paired tally, indexed [x][y].
type PairCounts struct {
	Counts  [][]int64 `json:"counts"`
	Samples int64     `json:"samples"`
}

// Summary describes a stored snapshot without its counts.
type Summary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Variables int       `json:"variables"`
	Pairs     int       `json:"pairs"`
}

// Summary returns the snapshot's Summary.
func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Label:     s.Label,
		CreatedAt: s.CreatedAt,
		Variables: len(s.Variables),
		Pairs:     len(s.Pairs),
	}
}

// Store reads and writes snapshots.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// NewStore wraps an open database. The Store does not own db.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Save assigns an id and timestamp to snap and writes it.
//
// Description:
//
//	The snapshot and the latest pointer are written in one transaction.
//	snap.ID and snap.CreatedAt are overwritten.
//
// Inputs:
//
//	ctx - Cancellation.
//	snap - The snapshot to store. Modified in place.
//
// Outputs:
//
//	error - Encoding or storage failure.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	snap.ID = uuid.NewString()
	snap.CreatedAt = s.now().UTC()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(snapshotPrefix+snap.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey), []byte(snap.ID))
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Get loads the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", ErrNotFound, id)
	}
	data, err := s.db.Get(ctx, snapshotPrefix+id)
	if errors.Is(err, badger.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Latest loads the most recently saved snapshot.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	id, err := s.db.Get(ctx, latestKey)
	if errors.Is(err, badger.ErrNotFound) {
		return nil, fmt.Errorf("%w: no snapshots saved", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load latest pointer: %w", err)
	}
	return s.Get(ctx, string(id))
}

// List returns a summary of every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	err := s.db.Scan(ctx, snapshotPrefix, func(key string, value []byte) error {
		var snap Snapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			return fmt.Errorf("decode %s: %w", strings.TrimPrefix(key, snapshotPrefix), err)
		}
		out = append(out, snap.Summary())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete removes a snapshot. Deleting the latest snapshot clears the
// latest pointer.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if err := txn.Delete([]byte(snapshotPrefix + id)); err != nil {
			return err
		}
		item, err := txn.Get([]byte(latestKey))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		latest, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(latest) == id {
			return txn.Delete([]byte(latestKey))
		}
		return nil
	})
}
