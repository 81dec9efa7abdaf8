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
	"fmt"
	"slices"

	"github.com/AleutianAI/infotally/pkg/infotheory"
)

// BinFunc maps a value to its bin index.
//
// Indexes outside [0, binCount) mark the value as out of range.
type BinFunc[T any] func(T) int

// Tally counts observations of a single variable.
type Tally[T any] struct {
	binCount int
	bin      BinFunc[T]
	counts   []int64
	samples  int64
	gen      uint64

	probs memo[[]float64]
}

// New creates an empty Tally with binCount bins.
//
// Inputs:
//
//	binCount - Number of bins. Must be positive.
//	bin - Maps a value to its bin. Must not be nil.
//
// Outputs:
//
//	*Tally[T] - The tally.
//	error - ErrInvalidShape on a bad argument.
func New[T any](binCount int, bin BinFunc[T]) (*Tally[T], error) {
	if binCount <= 0 {
		return nil, fmt.Errorf("%w: bin count %d", ErrInvalidShape, binCount)
	}
	if bin == nil {
		return nil, fmt.Errorf("%w: nil bin function", ErrInvalidShape)
	}
	return &Tally[T]{
		binCount: binCount,
		bin:      bin,
		counts:   make([]int64, binCount),
	}, nil
}

// Add records one observation of x.
//
// If x bins outside the range, Add returns a *BinError and leaves the
// tally unchanged.
func (t *Tally[T]) Add(x T) error {
	idx, err := locate(t.bin, t.binCount, x, AxisX, noSlot)
	if err != nil {
		return err
	}
	t.counts[idx]++
	t.samples++
	t.gen++
	return nil
}

// Probability returns the estimated probability of the bin x falls in.
func (t *Tally[T]) Probability(x T) (float64, error) {
	idx, err := locate(t.bin, t.binCount, x, AxisX, noSlot)
	if err != nil {
		return 0, err
	}
	p, err := t.view()
	if err != nil {
		return 0, err
	}
	return p[idx], nil
}

// Probabilities returns the probability of every bin.
//
// The slice is a copy and sums to 1.
func (t *Tally[T]) Probabilities() ([]float64, error) {
	p, err := t.view()
	if err != nil {
		return nil, err
	}
	return slices.Clone(p), nil
}

// Entropy returns H(X) in basis b.
func (t *Tally[T]) Entropy(b infotheory.Basis) (float64, error) {
	p, err := t.view()
	if err != nil {
		return 0, err
	}
	return infotheory.Entropy(p, b), nil
}

// Clear drops every observation. The bin layout is kept.
func (t *Tally[T]) Clear() {
	clear(t.counts)
	t.samples = 0
	t.gen++
}

// Merge adds the counts of other into t.
//
// Both tallies must have the same bin count. other is not modified. The
// result equals replaying other's observations into t.
func (t *Tally[T]) Merge(other *Tally[T]) error {
	if other.binCount != t.binCount {
		return &infotheory.ShapeError{Op: "Tally.Merge", Axis: "bins", Want: t.binCount, Got: other.binCount}
	}
	for i, c := range other.counts {
		t.counts[i] += c
	}
	t.samples += other.samples
	t.gen++
	return nil
}

// Restore replaces the counts with a previously saved table.
//
// Description:
//
//	Samples is set to the sum of counts. Used to reload tallies persisted
//	through Counts.
//
// Inputs:
//
//	counts - One count per bin. Must have length BinCount and no negatives.
//
// Outputs:
//
//	error - *infotheory.ShapeError or ErrNegativeCount. The tally is
//	unchanged on error.
func (t *Tally[T]) Restore(counts []int64) error {
	if len(counts) != t.binCount {
		return &infotheory.ShapeError{Op: "Tally.Restore", Axis: "bins", Want: t.binCount, Got: len(counts)}
	}
	samples, err := sumCounts(counts)
	if err != nil {
		return err
	}
	copy(t.counts, counts)
	t.samples = samples
	t.gen++
	return nil
}

// Counts returns a copy of the count table.
func (t *Tally[T]) Counts() []int64 { return slices.Clone(t.counts) }

// Samples returns the number of successful adds since the last Clear.
func (t *Tally[T]) Samples() int64 { return t.samples }

// BinCount returns the number of bins.
func (t *Tally[T]) BinCount() int { return t.binCount }

func (t *Tally[T]) view() ([]float64, error) {
	if t.samples == 0 {
		return nil, ErrNoSamples
	}
	return t.probs.get(t.gen, func() []float64 {
		return normalizeCounts(t.counts, t.samples)
	}), nil
}

// sumCounts totals a count table, rejecting negative entries.
func sumCounts(counts []int64) (int64, error) {
	var total int64
	for i, c := range counts {
		if c < 0 {
			return 0, fmt.Errorf("%w: %d at index %d", ErrNegativeCount, c, i)
		}
		total += c
	}
	return total, nil
}
