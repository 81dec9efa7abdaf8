// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tally_service

import (
	"github.com/AleutianAI/infotally/services/tally/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers all tally routes with the router.
//
// Description:
//
//	Registers all /v1/tally/* endpoints with the given Gin router group.
//	The observe endpoint is wrapped in the handlers' rate limiter.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Tally Endpoints:
//
//	GET  /v1/tally/health - Health check
//	GET  /v1/tally/report - Report every variable and pair
//	GET  /v1/tally/variables/:name - Report one variable
//	GET  /v1/tally/pairs/:name - Report one pair
//	POST /v1/tally/observe - Tally a batch of records
//	POST /v1/tally/reset - Clear every tally
//	POST /v1/tally/reset/:name - Clear one variable or pair
//
// Snapshot Endpoints:
//
//	GET    /v1/tally/snapshots - List snapshots
//	POST   /v1/tally/snapshots - Save a snapshot
//	POST   /v1/tally/snapshots/:id/restore - Restore a snapshot
//	DELETE /v1/tally/snapshots/:id - Delete a snapshot
//
// Example:
//
//	svc, err := tally_service.NewService(cfg)
//	handlers := tally_service.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	tally_service.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	t := rg.Group("/tally")
	{
		t.GET("/health", handlers.HandleHealth)

		// Reports
		t.GET("/report", handlers.HandleReport)
		t.GET("/variables/:name", handlers.HandleVariable)
		t.GET("/pairs/:name", handlers.HandlePair)

		// Ingestion
		t.POST("/observe", handlers.RateLimit(), handlers.HandleObserve)

		// Reset
		t.POST("/reset", handlers.HandleReset)
		t.POST("/reset/:name", handlers.HandleReset)

		// Snapshots
		t.GET("/snapshots", handlers.HandleListSnapshots)
		t.POST("/snapshots", handlers.HandleCreateSnapshot)
		t.POST("/snapshots/:id/restore", handlers.HandleRestoreSnapshot)
		t.DELETE("/snapshots/:id", handlers.HandleDeleteSnapshot)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the server in traces.
	ServiceName string

	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// HTTPMetrics records request metrics when set.
	HTTPMetrics *telemetry.HTTPMetrics

	// AccessLog enables gin's request logger.
	AccessLog bool
}

// NewRouter builds the complete HTTP handler for the service.
//
// Description:
//
//	Installs recovery, OpenTelemetry tracing and optional request metrics,
//	then the /metrics endpoint and every /v1/tally route.
//
// Inputs:
//
//	handlers - The handlers instance.
//	cfg - Router options.
//
// Outputs:
//
//	*gin.Engine - Ready to serve.
func NewRouter(handlers *Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.AccessLog {
		router.Use(gin.Logger())
	}
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	if cfg.HTTPMetrics != nil {
		router.Use(cfg.HTTPMetrics.Middleware())
	}

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}
