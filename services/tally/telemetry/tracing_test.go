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
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/infotally/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan(t *testing.T) {
	recordingProvider(t)

	ctx, span := StartSpan(context.Background(), "infotally.test", "Test.Op")
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Fatal("expected valid span context")
	}
	if TraceID(ctx) != span.SpanContext().TraceID().String() {
		t.Errorf("TraceID(ctx) = %q, want %q", TraceID(ctx), span.SpanContext().TraceID())
	}
	if SpanID(ctx) != span.SpanContext().SpanID().String() {
		t.Errorf("SpanID(ctx) = %q, want %q", SpanID(ctx), span.SpanContext().SpanID())
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID = %q, want empty", got)
	}
	if got := SpanID(context.Background()); got != "" {
		t.Errorf("SpanID = %q, want empty", got)
	}
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "failing")
	RecordError(span, errors.New("boom"), attribute.String("file", "a.csv"))
	span.End()

	_, ok := tp.Tracer("test").Start(context.Background(), "ok")
	SetSpanOK(ok)
	ok.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Error || spans[0].Status().Description != "boom" {
		t.Errorf("status = %+v, want Error/boom", spans[0].Status())
	}
	if len(spans[0].Events()) != 1 {
		t.Errorf("events = %d, want 1", len(spans[0].Events()))
	}
	if spans[1].Status().Code != codes.Ok {
		t.Errorf("status = %+v, want Ok", spans[1].Status())
	}

	// Nil inputs are ignored.
	RecordError(nil, errors.New("x"))
	SetSpanOK(nil)
}

func TestLoggerWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelInfo, JSON: true, Output: &buf})

	t.Run("no span", func(t *testing.T) {
		buf.Reset()
		LoggerWithTrace(context.Background(), logger).Info("plain")
		if strings.Contains(buf.String(), "trace_id") {
			t.Errorf("unexpected trace_id: %s", buf.String())
		}
	})

	t.Run("with span", func(t *testing.T) {
		recordingProvider(t)
		buf.Reset()
		ctx, span := StartSpan(context.Background(), "infotally.test", "Logged")
		defer span.End()

		LoggerWithTrace(ctx, logger).Info("traced")
		if !strings.Contains(buf.String(), span.SpanContext().TraceID().String()) {
			t.Errorf("trace id missing from %s", buf.String())
		}
		if !strings.Contains(buf.String(), "span_id") {
			t.Errorf("span_id missing from %s", buf.String())
		}
	})

	t.Run("nil logger", func(t *testing.T) {
		if LoggerWithTrace(context.Background(), nil) != nil {
			t.Error("expected nil")
		}
	})
}
