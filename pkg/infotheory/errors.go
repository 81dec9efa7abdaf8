// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package infotheory

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when two operands disagree on a dimension.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrZeroMass is returned when normalizing a distribution whose entries sum to zero.
	ErrZeroMass = errors.New("distribution has zero total mass")
)

// ShapeError describes which dimension of which operation disagreed.
//
// It wraps ErrShapeMismatch, so callers can test with errors.Is.
type ShapeError struct {
	// Op is the operation that rejected its input, e.g. "ConditionalEntropyYX".
	Op string

	// Axis names the dimension being compared, e.g. "rows" or "slots".
	Axis string

	// Want is the length the operation expected.
	Want int

	// Got is the length it received.
	Got int
}

// Error implements error.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: expected %s length %d, got %d", e.Op, ErrShapeMismatch, e.Axis, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
