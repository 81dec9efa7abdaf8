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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestLog struct {
	mu      sync.Mutex
	results []FileResult
}

func (l *ingestLog) add(res FileResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, res)
}

func (l *ingestLog) paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.results))
	for _, r := range l.results {
		out = append(out, filepath.Base(r.Path))
	}
	return out
}

func startWatcher(t *testing.T, dir string) (*ingestLog, *Ingester) {
	t.Helper()
	svc := newTestService(t)
	ing := NewIngester(svc, Options{})
	log := &ingestLog{}

	w, err := NewWatcher(dir, ing, WatcherOptions{Debounce: 30 * time.Millisecond})
	require.NoError(t, err)
	w.onIngest = log.add

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Let the watch register before files are written.
	time.Sleep(50 * time.Millisecond)
	return log, ing
}

func TestWatcher_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.csv", "weather\nsunny\n")
	log, _ := startWatcher(t, dir)

	writeFile(t, dir, "drop.csv", "weather\nsunny\nrainy\n")
	writeFile(t, dir, "drop.jsonl", `{"weather":"rainy"}`+"\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden.csv", "weather\nsunny\n")

	require.Eventually(t, func() bool { return len(log.paths()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"drop.csv", "drop.jsonl"}, log.paths())

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, res := range log.results {
		assert.NoError(t, res.Err)
		assert.Positive(t, res.Records)
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	log, _ := startWatcher(t, dir)

	path := filepath.Join(dir, "slow.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString("weather\n")
	require.NoError(t, err)
	for range 3 {
		time.Sleep(10 * time.Millisecond)
		_, err = f.WriteString("sunny\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(log.paths()) == 1 }, 5*time.Second, 10*time.Millisecond)
	// Later writes to an ingested file are ignored.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, log.paths(), 1)
}

func TestWatcher_ReingestsReplacedFile(t *testing.T) {
	dir := t.TempDir()
	log, _ := startWatcher(t, dir)

	path := writeFile(t, dir, "batch.csv", "weather\nsunny\n")
	require.Eventually(t, func() bool { return len(log.paths()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "batch.csv", "weather\nrainy\n")
	require.Eventually(t, func() bool { return len(log.paths()) == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_StaleFireIsDropped(t *testing.T) {
	dir := t.TempDir()
	ing := NewIngester(newTestService(t), Options{})
	log := &ingestLog{}

	w, err := NewWatcher(dir, ing, WatcherOptions{Debounce: time.Hour})
	require.NoError(t, err)
	w.onIngest = log.add
	t.Cleanup(func() {
		w.shutdown()
		_ = w.watcher.Close()
	})

	ctx := context.Background()
	path := writeFile(t, dir, "late.csv", "weather\nsunny\n")
	armed := func() uint64 {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.timers[path].gen
	}

	w.schedule(ctx, path)
	first := armed()
	// A write lands while the first timer's callback waits for the lock.
	w.schedule(ctx, path)
	second := armed()
	require.NotEqual(t, first, second)

	w.fire(ctx, path, first)
	assert.Empty(t, log.paths())

	w.fire(ctx, path, second)
	assert.Equal(t, []string{"late.csv"}, log.paths())

	// Later fires for an ingested file are ignored.
	w.fire(ctx, path, second)
	assert.Len(t, log.paths(), 1)
}

func TestNewWatcher_Errors(t *testing.T) {
	ing := NewIngester(newTestService(t), Options{})

	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), ing, WatcherOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := writeFile(t, t.TempDir(), "file.csv", "")
	_, err = NewWatcher(file, ing, WatcherOptions{})
	assert.ErrorContains(t, err, "not a directory")
}

func TestWatchable(t *testing.T) {
	assert.True(t, watchable("/data/a.csv"))
	assert.True(t, watchable("b.jsonl"))
	assert.False(t, watchable("/data/.a.csv"))
	assert.False(t, watchable("~lock.csv"))
	assert.False(t, watchable("a.csv.tmp"))
}
