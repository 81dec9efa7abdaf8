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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/AleutianAI/infotally/pkg/logging"
	tally_service "github.com/AleutianAI/infotally/services/tally"
	"github.com/AleutianAI/infotally/services/tally/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "infotally.ingest"

// Observer is the part of the tally service an Ingester needs.
type Observer interface {
	Observe(ctx context.Context, records []tally_service.Record) (*tally_service.ObserveResponse, error)
}

// FileResult is the outcome of ingesting one file.
type FileResult struct {
	Path      string        `json:"path"`
	Format    Format        `json:"format"`
	Records   int           `json:"records"`
	Accepted  int64         `json:"accepted"`
	Rejected  int64         `json:"rejected"`
	Unmatched int           `json:"unmatched"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Options configures an Ingester.
type Options struct {
	// Workers bounds how many files are read at once. Default: 4.
	Workers int

	// BatchSize is the number of records per Observe call.
	// Default: DefaultBatchSize.
	BatchSize int

	Logger  *logging.Logger
	Metrics *tally_service.Metrics
}

// Ingester reads data files into an Observer.
//
// Thread Safety: Safe for concurrent use.
type Ingester struct {
	obs       Observer
	workers   int
	batchSize int
	logger    *logging.Logger
	metrics   *tally_service.Metrics
}

// NewIngester creates an Ingester feeding obs.
func NewIngester(obs Observer, opts Options) *Ingester {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.BatchSize < 1 || opts.BatchSize > tally_service.MaxRecordsPerRequest {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Ingester{
		obs:       obs,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// IngestFile reads one file into the Observer.
//
// Description:
//
//	The format is taken from the file extension. Batches observed before
//	a decode error stay tallied; the error is returned alongside the
//	partial result.
//
// Inputs:
//
//	ctx - Cancellation and tracing.
//	path - File to read.
//
// Outputs:
//
//	FileResult - Counts for the file. Err mirrors the returned error.
//	error - Unsupported format, open, decode or observe failure.
func (i *Ingester) IngestFile(ctx context.Context, path string) (FileResult, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Ingester.IngestFile",
		trace.WithAttributes(attribute.String("ingest.path", path)),
	)
	defer span.End()

	start := time.Now()
	res := FileResult{Path: path}
	err := i.ingest(ctx, path, &res)
	res.Duration = time.Since(start)
	res.Err = err

	span.SetAttributes(
		attribute.Int("ingest.records", res.Records),
		attribute.Int64("ingest.accepted", res.Accepted),
		attribute.Int64("ingest.rejected", res.Rejected),
	)
	if i.metrics != nil && res.Format != "" {
		i.metrics.RecordFile(string(res.Format), err == nil)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		i.logger.Warn("ingest failed", "path", path, "records", res.Records, "error", err)
		return res, err
	}

	i.logger.Info("ingested file",
		"path", path,
		"format", res.Format,
		"records", res.Records,
		"accepted", res.Accepted,
		"rejected", res.Rejected,
		"duration_ms", res.Duration.Milliseconds())
	telemetry.SetSpanOK(span)
	return res, nil
}

func (i *Ingester) ingest(ctx context.Context, path string, res *FileResult) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	res.Format = format

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := Decode(f, format, i.batchSize, func(batch []tally_service.Record) error {
		resp, err := i.obs.Observe(ctx, batch)
		if err != nil {
			return err
		}
		res.Accepted += resp.Accepted
		res.Rejected += resp.Rejected
		res.Unmatched += resp.Unmatched
		return nil
	})
	res.Records = n
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// IngestFiles reads paths concurrently, at most Workers at a time.
//
// Description:
//
//	A failing file does not stop the others. Results are returned in the
//	order of paths, and the error joins every per-file failure.
//	Cancelling ctx stops files that have not started.
//
// Inputs:
//
//	ctx - Cancellation and tracing.
//	paths - Files to read.
//
// Outputs:
//
//	[]FileResult - One result per path.
//	error - Joined per-file errors, or ctx's error.
func (i *Ingester) IngestFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Ingester.IngestFiles",
		trace.WithAttributes(attribute.Int("ingest.files", len(paths))),
	)
	defer span.End()

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[idx] = FileResult{Path: path, Err: err}
				return nil
			}
			results[idx], _ = i.IngestFile(gctx, path)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for idx := range results {
		if results[idx].Path == "" {
			results[idx] = FileResult{Path: paths[idx], Err: ctx.Err()}
		}
		if results[idx].Err != nil {
			errs = append(errs, results[idx].Err)
		}
	}
	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return results, err
	}
	if err := errors.Join(errs...); err != nil {
		telemetry.RecordError(span, err, attribute.Int("ingest.failed", len(errs)))
		return results, err
	}
	telemetry.SetSpanOK(span)
	return results, nil
}
