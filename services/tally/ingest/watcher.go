// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/infotally/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is the quiet period after the last write to a file before it
	// is ingested. Default: 500ms.
	Debounce time.Duration

	Logger *logging.Logger
}

// Watcher ingests data files dropped into a directory.
//
// # Description
//
// Each CSV or JSONL file that is created or written in the directory is
// ingested once, after Debounce has passed without further writes to it.
// Files present before Run starts are left alone. Removing a file and
// dropping a new one under the same name ingests the new one.
//
// Subdirectories and hidden files are ignored.
//
// # Thread Safety
//
// Run must be called once. Files are ingested from timer goroutines and
// may run concurrently with each other.
type Watcher struct {
	dir      string
	ingester *Ingester
	debounce time.Duration
	logger   *logging.Logger
	watcher  *fsnotify.Watcher

	// onIngest, when set, is called after each file is ingested.
	onIngest func(FileResult)

	mu      sync.Mutex
	timers  map[string]*pending
	seq     uint64
	done    map[string]bool
	closed  bool
	running sync.WaitGroup
}

// pending is a debounce timer. gen identifies the schedule call that armed
// it, so a fire that lost the race with a later write can tell it is stale.
type pending struct {
	timer *time.Timer
	gen   uint64
}

// NewWatcher creates a Watcher for dir. Call Run to start it.
func NewWatcher(dir string, ingester *Ingester, opts WatcherOptions) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s: not a directory", dir)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		dir:      dir,
		ingester: ingester,
		debounce: opts.Debounce,
		logger:   opts.Logger.With("watch_dir", dir),
		watcher:  fw,
		timers:   make(map[string]*pending),
		done:     make(map[string]bool),
	}, nil
}

// Run watches the directory until ctx is cancelled.
//
// # Outputs
//
//   - error: Non-nil if the directory could not be watched. Cancellation
//     returns nil once pending timers are stopped and in-flight ingests
//     have finished.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for data files", "debounce_ms", w.debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.shutdown()
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.shutdown()
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !watchable(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.schedule(ctx, event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.forget(event.Name)
	}
}

// schedule starts or restarts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.done[path] {
		return
	}
	if p, ok := w.timers[path]; ok {
		p.timer.Stop()
	}
	w.seq++
	gen := w.seq
	w.timers[path] = &pending{
		gen:   gen,
		timer: time.AfterFunc(w.debounce, func() { w.fire(ctx, path, gen) }),
	}
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[path]; ok {
		p.timer.Stop()
		delete(w.timers, path)
	}
	delete(w.done, path)
}

// fire ingests path unless a later schedule or forget superseded gen.
func (w *Watcher) fire(ctx context.Context, path string, gen uint64) {
	w.mu.Lock()
	if p, ok := w.timers[path]; !ok || p.gen != gen {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	if w.closed || w.done[path] {
		w.mu.Unlock()
		return
	}
	w.done[path] = true
	w.running.Add(1)
	w.mu.Unlock()
	defer w.running.Done()

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		w.forget(path)
		return
	}

	res, _ := w.ingester.IngestFile(ctx, path)
	if w.onIngest != nil {
		w.onIngest(res)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, p := range w.timers {
		p.timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.running.Wait()
}

// watchable reports whether path names a data file the watcher ingests.
func watchable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	_, err := FormatOf(path)
	return err == nil
}
