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
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AleutianAI/infotally/pkg/infotheory"
	"github.com/AleutianAI/infotally/pkg/logging"
	"github.com/AleutianAI/infotally/pkg/tally"
	"github.com/AleutianAI/infotally/services/tally/snapshot"
	"github.com/AleutianAI/infotally/services/tally/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Handlers contains the HTTP handlers for the tally service.
type Handlers struct {
	svc     *Service
	limiter *rate.Limiter
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// WithRateLimit limits observe requests to perSecond with the given burst.
// A non-positive perSecond leaves observe unlimited.
func (h *Handlers) WithRateLimit(perSecond float64, burst int) *Handlers {
	if perSecond <= 0 {
		h.limiter = nil
		return h
	}
	if burst < 1 {
		burst = 1
	}
	h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return h
}

// HandleHealth handles GET /v1/tally/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

// HandleObserve handles POST /v1/tally/observe.
//
// Description:
//
//	Tallies a batch of records. Values outside their variable's bins are
//	rejected individually and listed in the response; they do not fail
//	the request.
//
// Request Body:
//
//	ObserveRequest
//
// Response:
//
//	200 OK: ObserveResponse
//	400 Bad Request: Validation error
//	429 Too Many Requests: Rate limit exceeded
func (h *Handlers) HandleObserve(c *gin.Context) {
	logger := h.requestLogger(c, "HandleObserve")

	var req ObserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.Observe(c.Request.Context(), req.Records)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleReport handles GET /v1/tally/report.
//
// Query Parameters:
//
//	basis - Optional logarithm basis: "bits", "nats", "bans" or a number.
//	        Defaults to the configured basis.
//
// Response:
//
//	200 OK: Report
//	400 Bad Request: Invalid basis
func (h *Handlers) HandleReport(c *gin.Context) {
	logger := h.requestLogger(c, "HandleReport")

	basis, ok := h.basis(c)
	if !ok {
		return
	}
	report, err := h.svc.Report(c.Request.Context(), basis)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleVariable handles GET /v1/tally/variables/:name.
//
// Response:
//
//	200 OK: VariableReport
//	400 Bad Request: Invalid basis
//	404 Not Found: Unknown variable
func (h *Handlers) HandleVariable(c *gin.Context) {
	logger := h.requestLogger(c, "HandleVariable")

	basis, ok := h.basis(c)
	if !ok {
		return
	}
	report, err := h.svc.VariableReport(c.Request.Context(), c.Param("name"), basis)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandlePair handles GET /v1/tally/pairs/:name.
//
// Response:
//
//	200 OK: PairReport
//	400 Bad Request: Invalid basis
//	404 Not Found: Unknown pair
func (h *Handlers) HandlePair(c *gin.Context) {
	logger := h.requestLogger(c, "HandlePair")

	basis, ok := h.basis(c)
	if !ok {
		return
	}
	report, err := h.svc.PairReport(c.Request.Context(), c.Param("name"), basis)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleReset handles POST /v1/tally/reset and POST /v1/tally/reset/:name.
//
// Without a name every variable and pair is cleared.
//
// Response:
//
//	200 OK: ResetResponse
//	404 Not Found: Unknown variable or pair
func (h *Handlers) HandleReset(c *gin.Context) {
	logger := h.requestLogger(c, "HandleReset")

	names, err := h.svc.Reset(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, ResetResponse{Reset: names})
}

// HandleCreateSnapshot handles POST /v1/tally/snapshots.
//
// Request Body:
//
//	SnapshotRequest (optional)
//
// Response:
//
//	201 Created: snapshot.Summary
//	400 Bad Request: Validation error
//	503 Service Unavailable: Snapshots disabled
func (h *Handlers) HandleCreateSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateSnapshot")

	var req SnapshotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid request body: " + err.Error(),
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	summary, err := h.svc.Snapshot(c.Request.Context(), req.Label)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// HandleListSnapshots handles GET /v1/tally/snapshots.
//
// Response:
//
//	200 OK: SnapshotListResponse
//	503 Service Unavailable: Snapshots disabled
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListSnapshots")

	list, err := h.svc.ListSnapshots(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	if list == nil {
		list = []snapshot.Summary{}
	}
	c.JSON(http.StatusOK, SnapshotListResponse{Snapshots: list})
}

// HandleRestoreSnapshot handles POST /v1/tally/snapshots/:id/restore.
//
// The id "latest" restores the most recent snapshot.
//
// Response:
//
//	200 OK: RestoreResponse
//	404 Not Found: Unknown snapshot
//	409 Conflict: Snapshot counts do not fit the configured tallies
//	503 Service Unavailable: Snapshots disabled
func (h *Handlers) HandleRestoreSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRestoreSnapshot")

	resp, err := h.svc.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDeleteSnapshot handles DELETE /v1/tally/snapshots/:id.
//
// Response:
//
//	204 No Content: Deleted
//	404 Not Found: Unknown snapshot
//	503 Service Unavailable: Snapshots disabled
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDeleteSnapshot")

	if err := h.svc.DeleteSnapshot(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Middleware and Helpers
// =============================================================================

// RateLimit rejects requests with 429 once the handlers' limiter is empty.
// It is a no-op when no limit is configured.
func (h *Handlers) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter != nil && !h.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// basis reads the basis query parameter. On failure it writes a 400
// response and returns false.
func (h *Handlers) basis(c *gin.Context) (infotheory.Basis, bool) {
	raw := strings.TrimSpace(c.Query("basis"))
	if raw == "" {
		return h.svc.Basis(), true
	}
	b, err := infotheory.ParseBasis(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_BASIS",
		})
		return 0, false
	}
	return b, true
}

// fail maps a service error to a status code and writes it.
func (h *Handlers) fail(c *gin.Context, logger *logging.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err, "status", status)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnknownVariable):
		return http.StatusNotFound, "UNKNOWN_VARIABLE"
	case errors.Is(err, ErrSnapshotNotFound):
		return http.StatusNotFound, "SNAPSHOT_NOT_FOUND"
	case errors.Is(err, ErrInvalidBasis):
		return http.StatusBadRequest, "INVALID_BASIS"
	case errors.Is(err, infotheory.ErrShapeMismatch), errors.Is(err, tally.ErrNegativeCount):
		return http.StatusConflict, "SNAPSHOT_INCOMPATIBLE"
	case errors.Is(err, ErrSnapshotsDisabled):
		return http.StatusServiceUnavailable, "SNAPSHOTS_DISABLED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// requestLogger returns the service logger tagged with the request id,
// handler name and, when tracing is on, the trace and span ids.
func (h *Handlers) requestLogger(c *gin.Context, handler string) *logging.Logger {
	logger := h.svc.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
	return telemetry.LoggerWithTrace(c.Request.Context(), logger)
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
