// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry configures OpenTelemetry tracing and metrics for infotally.
//
// Tracing is off unless asked for: "serve" and "report" accept --trace,
// which selects the stdout exporter, and OTEL_TRACES_EXPORTER=otlp sends
// spans to a collector instead. Metrics default to the Prometheus exporter,
// registered into the same registry that backs GET /metrics, so HTTP
// request metrics recorded through OpenTelemetry appear next to the tally
// gauges.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Registerer = registry
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// # Environment Variables
//
//   - OTEL_TRACES_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout or none (default: prometheus)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - INFOTALLY_ENV: deployment environment (default: development)
//
// # Thread Safety
//
// Init is called once at startup. Everything else is safe for concurrent use.
package telemetry
