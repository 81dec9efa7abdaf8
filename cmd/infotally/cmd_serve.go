// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/infotally/pkg/logging"
	tally_service "github.com/AleutianAI/infotally/services/tally"
	"github.com/AleutianAI/infotally/services/tally/config"
	"github.com/AleutianAI/infotally/services/tally/ingest"
	"github.com/AleutianAI/infotally/services/tally/snapshot"
	"github.com/AleutianAI/infotally/services/tally/storage/badger"
	"github.com/AleutianAI/infotally/services/tally/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// runServe starts the HTTP service.
//
// Startup order: logging, telemetry, storage, restoring the latest
// snapshot, then the HTTP server and the optional directory watcher. On
// SIGINT or SIGTERM the server drains, the watcher stops, and a snapshot
// labelled "shutdown" is saved before storage closes.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel(),
		LogDir:  cfg.Service.LogDir,
		Service: cfg.Service.Name,
		JSON:    cfg.Service.LogJSON,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceName = cfg.Service.Name
	telCfg.ServiceVersion = tally_service.ServiceVersion
	telCfg.Registerer = reg
	if traceExporter != "" {
		telCfg.TraceExporter = traceExporter
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("close storage failed", "error", err)
		}
	}()

	metrics := tally_service.NewMetrics(reg)
	svc, err := tally_service.NewService(cfg)
	if err != nil {
		return err
	}
	svc.WithStore(snapshot.NewStore(db)).WithLogger(logger).WithMetrics(metrics)
	reg.MustRegister(tally_service.NewCollector(svc))

	restored, err := svc.Restore(ctx, tally_service.LatestSnapshot)
	switch {
	case err == nil:
		logger.Info("restored snapshot",
			"snapshot_id", restored.Snapshot.ID,
			"label", restored.Snapshot.Label,
			"restored", len(restored.Restored),
			"skipped", len(restored.Skipped))
	case errors.Is(err, tally_service.ErrSnapshotNotFound):
		logger.Info("no snapshot to restore, starting empty")
	default:
		return fmt.Errorf("restore latest snapshot: %w", err)
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(otel.Meter("infotally.http"))
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	if cfg.LogLevel() == logging.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := tally_service.NewHandlers(svc).WithRateLimit(cfg.Service.RateLimit, cfg.Service.RateBurst)
	router := tally_service.NewRouter(handlers, tally_service.RouterConfig{
		ServiceName: cfg.Service.Name,
		Gatherer:    reg,
		HTTPMetrics: httpMetrics,
		AccessLog:   cfg.LogLevel() == logging.LevelDebug,
	})
	srv := &http.Server{
		Addr:              cfg.Service.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var watcher *ingest.Watcher
	if cfg.Ingest.WatchDir != "" {
		ing := ingest.NewIngester(svc, ingest.Options{
			Workers: cfg.Ingest.Workers,
			Logger:  logger,
			Metrics: metrics,
		})
		watcher, err = ingest.NewWatcher(cfg.Ingest.WatchDir, ing, ingest.WatcherOptions{
			Debounce: cfg.Ingest.Debounce,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting infotally server",
			"address", cfg.Service.Listen,
			"variables", len(cfg.Variables),
			"pairs", len(cfg.Pairs),
			"basis", svc.Basis().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down infotally server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	runErr := g.Wait()

	if summary, err := svc.Snapshot(context.Background(), "shutdown"); err != nil {
		logger.Error("shutdown snapshot failed", "error", err)
	} else {
		logger.Info("saved shutdown snapshot", "snapshot_id", summary.ID)
	}
	return runErr
}

// openStorage opens the snapshot database described by cfg.
func openStorage(cfg *config.Config, logger *logging.Logger) (*badger.DB, error) {
	dbCfg := badger.DefaultConfig()
	dbCfg.Path = cfg.Storage.Path
	dbCfg.InMemory = cfg.Storage.InMemory
	dbCfg.SyncWrites = cfg.Storage.SyncWrites
	dbCfg.GCInterval = cfg.Storage.GCInterval
	dbCfg.Logger = logger.With("component", "badger").Slog()

	db, err := badger.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	logger.Debug("opened snapshot storage", "path", db.Path(), "in_memory", db.InMemory())
	return db, nil
}
