// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest feeds data files into a tally service.
//
// Two formats are read:
//
//	CSV    A header row names the fields. Empty cells are skipped.
//	JSONL  One JSON object per line, with string, number or boolean values.
//
// Files are decoded in batches so that large files never sit in memory
// whole. An Ingester runs files through the service with bounded
// concurrency, and a Watcher ingests files dropped into a directory.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	tally_service "github.com/AleutianAI/infotally/services/tally"
)

// Format is a supported data file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// DefaultBatchSize is the number of records handed to the service at once.
const DefaultBatchSize = 1000

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// EmitFunc receives each decoded batch. The slice is reused after the
// call returns. Returning an error stops decoding.
type EmitFunc func(batch []tally_service.Record) error

// Decode reads records from r in the given format.
//
// Description:
//
//	Records are passed to emit in batches of at most batchSize. A
//	malformed record stops decoding with an error naming its position;
//	batches emitted before it stand.
//
// Inputs:
//
//	r - Source data.
//	format - FormatCSV or FormatJSONL.
//	batchSize - Records per batch. Values below 1 use DefaultBatchSize.
//	emit - Batch consumer.
//
// Outputs:
//
//	int - Records decoded.
//	error - Decode failure or the error returned by emit.
func Decode(r io.Reader, format Format, batchSize int, emit EmitFunc) (int, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	b := &batcher{size: batchSize, emit: emit, buf: make([]tally_service.Record, 0, batchSize)}

	var err error
	switch format {
	case FormatCSV:
		err = decodeCSV(r, b)
	case FormatJSONL:
		err = decodeJSONL(r, b)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return b.total, err
	}
	return b.total, b.flush()
}

type batcher struct {
	size  int
	total int
	buf   []tally_service.Record
	emit  EmitFunc
}

func (b *batcher) add(rec tally_service.Record) error {
	b.buf = append(b.buf, rec)
	b.total++
	if len(b.buf) < b.size {
		return nil
	}
	return b.flush()
}

func (b *batcher) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	err := b.emit(b.buf)
	b.buf = b.buf[:0]
	return err
}

func decodeCSV(r io.Reader, b *batcher) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = strings.TrimSpace(h)
		if fields[i] == "" {
			return fmt.Errorf("csv header: column %d has no name", i+1)
		}
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}

		rec := make(tally_service.Record, len(fields))
		for i, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				rec[fields[i]] = cell
			}
		}
		if len(rec) == 0 {
			continue
		}
		if err := b.add(rec); err != nil {
			return err
		}
	}
}

func decodeJSONL(r io.Reader, b *batcher) error {
	dec := json.NewDecoder(r)
	for n := 1; ; n++ {
		var rec tally_service.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode jsonl record %d: %w", n, err)
		}
		if len(rec) == 0 {
			continue
		}
		if err := b.add(rec); err != nil {
			return err
		}
	}
}
