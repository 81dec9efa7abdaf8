// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tally

import (
	"errors"
	"fmt"
)

// Sentinel errors for tally operations.
var (
	// ErrOutOfRange indicates a value binned outside [0, binCount), or a slot
	// index outside the batch.
	ErrOutOfRange = errors.New("out of range")

	// ErrNoSamples indicates a probability was requested before any sample
	// was added.
	ErrNoSamples = errors.New("tally has no samples")

	// ErrInvalidShape indicates a constructor or batch received an unusable
	// dimension, such as a non-positive bin count or an empty batch.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrNegativeCount indicates Restore was handed a negative count.
	ErrNegativeCount = errors.New("negative count")
)

// Axis names used in BinError.
const (
	AxisX = "x"
	AxisY = "y"
)

// noSlot marks a BinError raised by a non-batched container.
const noSlot = -1

// BinError describes a value whose bin fell outside the configured range.
//
// It wraps ErrOutOfRange.
type BinError struct {
	// Axis is AxisX or AxisY.
	Axis string

	// Slot is the position within a batch, or -1 outside batches.
	Slot int

	// Value is the rejected value.
	Value any

	// Index is the bin the BinFunc returned.
	Index int

	// BinCount is the number of bins on Axis.
	BinCount int
}

// Error implements error.
func (e *BinError) Error() string {
	if e.Slot >= 0 {
		return fmt.Sprintf("%s value %v in slot %d: %v: bin %d not in [0, %d)",
			e.Axis, e.Value, e.Slot, ErrOutOfRange, e.Index, e.BinCount)
	}
	return fmt.Sprintf("%s value %v: %v: bin %d not in [0, %d)",
		e.Axis, e.Value, ErrOutOfRange, e.Index, e.BinCount)
}

// Unwrap returns ErrOutOfRange.
func (e *BinError) Unwrap() error {
	return ErrOutOfRange
}

// locate bins v and checks the result against binCount.
func locate[T any](bin BinFunc[T], binCount int, v T, axis string, slot int) (int, error) {
	idx := bin(v)
	if idx < 0 || idx >= binCount {
		return 0, &BinError{Axis: axis, Slot: slot, Value: v, Index: idx, BinCount: binCount}
	}
	return idx, nil
}

// slotError reports a slot index outside [0, slots).
func slotError(axis string, slot, slots int) error {
	return fmt.Errorf("%s slot %d: %w: batch has %d slots", axis, slot, ErrOutOfRange, slots)
}
