// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger opens and manages the embedded BadgerDB that holds tally
// snapshots.
//
// The database stores small JSON documents keyed by string. Callers work
// through DB, which adds value log garbage collection and context-checked
// transactions on top of *badger.DB.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Config describes how to open the database.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal messages. Nil silences them.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage fraction that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns the production configuration: synchronous writes
// and GC every five minutes at a 0.5 discard ratio.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// slogSink forwards BadgerDB's printf-style logging to slog. Badger's
// info chatter is demoted to debug.
type slogSink struct {
	logger *slog.Logger
}

func (s slogSink) emit(level slog.Level, format string, args []any) {
	if s.logger == nil {
		return
	}
	s.logger.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (s slogSink) Errorf(format string, args ...any)   { s.emit(slog.LevelError, format, args) }
func (s slogSink) Warningf(format string, args ...any) { s.emit(slog.LevelWarn, format, args) }
func (s slogSink) Infof(format string, args ...any)    { s.emit(slog.LevelDebug, format, args) }
func (s slogSink) Debugf(format string, args ...any)   { s.emit(slog.LevelDebug, format, args) }

// -----------------------------------------------------------------------------
// DB
// -----------------------------------------------------------------------------

// DB wraps a BadgerDB instance with value log GC and context-checked
// transactions.
//
// Thread Safety: Safe for concurrent use.
type DB struct {
	*badger.DB
	stopGC   func()
	path     string
	inMemory bool
}

// Open opens a database and starts value log GC when configured.
//
// Description:
//
//	Persistent databases need cfg.Path, whose directory is created with
//	0750 permissions. GC only runs for persistent databases with a
//	positive GCInterval. A zero GCDiscardRatio means 0.5.
//
// Inputs:
//
//	cfg - Database configuration.
//
// Outputs:
//
//	*DB - The database. Call Close when done.
//	error - Invalid configuration, or the database cannot open.
func Open(cfg Config) (*DB, error) {
	if cfg.GCDiscardRatio == 0 {
		cfg.GCDiscardRatio = 0.5
	}
	if cfg.GCDiscardRatio < 0 || cfg.GCDiscardRatio >= 1 {
		return nil, fmt.Errorf("gc discard ratio %g outside (0, 1)", cfg.GCDiscardRatio)
	}

	opts := badger.DefaultOptions(cfg.Path)
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, errors.New("storage path is required unless in memory")
	default:
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(slogSink{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	out := &DB{DB: db, path: cfg.Path, inMemory: cfg.InMemory, stopGC: func() {}}
	if !cfg.InMemory && cfg.GCInterval > 0 {
		out.stopGC = collectGarbage(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}
	return out, nil
}

// OpenInMemory opens an in-memory database.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// Close stops GC and closes the database.
func (d *DB) Close() error {
	d.stopGC()
	return d.DB.Close()
}

// collectGarbage rewrites the value log every interval until the returned
// stop func is called. stop blocks until the loop has exited and is safe
// to call more than once.
func collectGarbage(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
			// Each successful pass may leave more to reclaim.
			for ctx.Err() == nil {
				err := db.RunValueLogGC(ratio)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
					logger.Warn("value log gc failed", slog.String("error", err.Error()))
				}
				break
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// Path returns the database directory, or "" in memory.
func (d *DB) Path() string { return d.path }

// InMemory reports whether the database is in-memory.
func (d *DB) InMemory() bool { return d.inMemory }

// WithTxn runs fn in a read-write transaction and commits if fn returns
// nil. The transaction is discarded otherwise.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.DB.Update(fn)
}

// WithReadTxn runs fn in a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.DB.View(fn)
}

// -----------------------------------------------------------------------------
// Key-Value Helpers
// -----------------------------------------------------------------------------

// Get returns a copy of the value stored at key, or ErrNotFound.
func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

// Scan calls fn with every key under prefix, in key order. Returning an
// error from fn stops the scan.
func (d *DB) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	return d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.KeyCopy(nil)), val); err != nil {
				return err
			}
		}
		return nil
	})
}
