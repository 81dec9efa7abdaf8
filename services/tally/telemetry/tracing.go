// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"

	"github.com/AleutianAI/infotally/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a span on the named tracer.
//
// Description:
//
//	Uses the global TracerProvider, so spans are no-ops until Init installs
//	an exporter. The caller must end the returned span.
//
// Inputs:
//
//	ctx - Parent context.
//	tracerName - Instrumentation scope, e.g. "infotally.ingest".
//	spanName - Operation name, e.g. "Service.Observe".
//	opts - Span start options.
//
// Outputs:
//
//	context.Context - ctx carrying the new span.
//	trace.Span - The new span.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// RecordError records err on span and marks the span failed.
// A nil span or error is ignored.
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	opts := make([]trace.EventOption, 0, 1)
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks span successful.
func SetSpanOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// TraceID returns the hex trace id in ctx, or "" if there is none.
func TraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// SpanID returns the hex span id in ctx, or "" if there is none.
func SpanID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.SpanID().String()
}

// LoggerWithTrace adds trace_id and span_id to logger when ctx carries a
// valid span. Otherwise logger is returned unchanged.
func LoggerWithTrace(ctx context.Context, logger *logging.Logger) *logging.Logger {
	if logger == nil || ctx == nil {
		return logger
	}
	traceID := TraceID(ctx)
	if traceID == "" {
		return logger
	}
	return logger.With("trace_id", traceID, "span_id", SpanID(ctx))
}
