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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/AleutianAI/infotally/services/tally/snapshot"
)

// MaxRecordsPerRequest bounds the records accepted by one observe call.
const MaxRecordsPerRequest = 10000

// Record is one observation: field name to raw value.
//
// Fields named like a configured variable feed that variable. A pair is fed
// when both of its variables are present. Other fields are ignored.
type Record map[string]string

// UnmarshalJSON accepts string, number and boolean field values. Numbers
// keep their literal text. Null fields are dropped; objects and arrays are
// an error.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}

	rec := make(Record, len(raw))
	for field, v := range raw {
		switch v := v.(type) {
		case string:
			rec[field] = v
		case json.Number:
			rec[field] = v.String()
		case bool:
			rec[field] = strconv.FormatBool(v)
		case nil:
		default:
			return fmt.Errorf("field %q: unsupported value type %T", field, v)
		}
	}
	*r = rec
	return nil
}

// =============================================================================
// Observe
// =============================================================================

// ObserveRequest is the request body for POST /v1/tally/observe.
type ObserveRequest struct {
	// Records to tally. Each record must have at least one field.
	Records []Record `json:"records" binding:"required,min=1,max=10000,dive,min=1"`
}

// ObserveResponse reports what an observe call tallied.
type ObserveResponse struct {
	// Records is the number of records received.
	Records int `json:"records"`

	// Accepted counts values added to a variable or pair.
	Accepted int64 `json:"accepted"`

	// Rejected counts values that fell outside their variable's bins.
	Rejected int64 `json:"rejected"`

	// Unmatched counts records with no configured field.
	Unmatched int `json:"unmatched"`

	// Errors describes the first rejected values, up to MaxReportedErrors.
	Errors []ObservationError `json:"errors,omitempty"`
}

// MaxReportedErrors bounds ObserveResponse.Errors.
const MaxReportedErrors = 20

// ObservationError describes one rejected value.
type ObservationError struct {
	// Record is the index of the record in the request.
	Record int `json:"record"`

	// Target is the variable or pair that rejected the value.
	Target string `json:"target"`

	// Error is the rejection reason.
	Error string `json:"error"`
}

// =============================================================================
// Reports
// =============================================================================

// Report summarizes every variable and pair.
type Report struct {
	Basis       string           `json:"basis"`
	GeneratedAt time.Time        `json:"generated_at"`
	Variables   []VariableReport `json:"variables"`
	Pairs       []PairReport     `json:"pairs"`
}

// VariableReport describes one variable's distribution.
//
// Information quantities are nil until the variable has samples.
type VariableReport struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Samples int64       `json:"samples"`
	Bins    []BinReport `json:"bins"`

	// Entropy is H(X) in the report's basis.
	Entropy *float64 `json:"entropy,omitempty"`

	// MaxEntropy is the entropy of a uniform distribution over the bins.
	MaxEntropy float64 `json:"max_entropy"`
}

// BinReport is one bin of a variable.
type BinReport struct {
	Label       string  `json:"label"`
	Count       int64   `json:"count"`
	Probability float64 `json:"probability"`
}

// PairReport describes the joint distribution of two variables.
//
// Information quantities are nil until the pair has samples.
type PairReport struct {
	Name    string `json:"name"`
	X       string `json:"x"`
	Y       string `json:"y"`
	Samples int64  `json:"samples"`

	EntropyX               *float64 `json:"entropy_x,omitempty"`
	EntropyY               *float64 `json:"entropy_y,omitempty"`
	JointEntropy           *float64 `json:"joint_entropy,omitempty"`
	EntropyXGivenY         *float64 `json:"entropy_x_given_y,omitempty"`
	EntropyYGivenX         *float64 `json:"entropy_y_given_x,omitempty"`
	MutualInformation      *float64 `json:"mutual_information,omitempty"`
	VariationOfInformation *float64 `json:"variation_of_information,omitempty"`

	// Joint is P(X, Y) indexed [x][y].
	Joint [][]float64 `json:"joint,omitempty"`
}

// =============================================================================
// Reset and Snapshots
// =============================================================================

// ResetResponse lists the variables and pairs that were cleared.
type ResetResponse struct {
	Reset []string `json:"reset"`
}

// SnapshotRequest is the optional body for POST /v1/tally/snapshots.
type SnapshotRequest struct {
	Label string `json:"label" binding:"max=128"`
}

// RestoreResponse reports the outcome of a restore.
type RestoreResponse struct {
	Snapshot snapshot.Summary `json:"snapshot"`

	// Restored lists the variables and pairs loaded from the snapshot.
	Restored []string `json:"restored"`

	// Cleared lists configured variables and pairs absent from the snapshot.
	Cleared []string `json:"cleared,omitempty"`

	// Skipped lists snapshot entries that are no longer configured.
	Skipped []string `json:"skipped,omitempty"`
}

// SnapshotListResponse is the response for GET /v1/tally/snapshots.
type SnapshotListResponse struct {
	Snapshots []snapshot.Summary `json:"snapshots"`
}

// =============================================================================
// Health and Errors
// =============================================================================

// HealthResponse is the response for GET /v1/tally/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Variables int    `json:"variables"`
	Pairs     int    `json:"pairs"`
	Snapshots bool   `json:"snapshots"`
	Records   int64  `json:"records"`
	Uptime    string `json:"uptime"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`
}
