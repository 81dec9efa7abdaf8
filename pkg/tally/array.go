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

// Array counts a batch of variables that share one binning.
//
// Description:
//
//	Each Add observes one value per slot. The number of slots is fixed by
//	the first Add and kept across Clear. Every slot sees exactly one value
//	per Add, so every slot's counts sum to Samples.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type Array[T any] struct {
	binCount int
	bin      BinFunc[T]
	slots    int
	counts   []int64 // [slot][bin], row-major
	scratch  []int
	samples  int64
	gen      uint64

	probs memo[[][]float64]
}

// NewArray creates an empty Array. The slot count is set by the first Add.
func NewArray[T any](binCount int, bin BinFunc[T]) (*Array[T], error) {
	if binCount <= 0 {
		return nil, fmt.Errorf("%w: bin count %d", ErrInvalidShape, binCount)
	}
	if bin == nil {
		return nil, fmt.Errorf("%w: nil bin function", ErrInvalidShape)
	}
	return &Array[T]{binCount: binCount, bin: bin}, nil
}

// Add records one observation per slot.
//
// Description:
//
//	The first call fixes the slot count to len(xs). Every value is binned
//	and checked before any count changes, so a rejected batch leaves the
//	Array untouched.
//
// Inputs:
//
//	xs - One value per slot. Must be non-empty.
//
// Outputs:
//
//	error - ErrInvalidShape for an empty batch, *infotheory.ShapeError when
//	len(xs) differs from Slots, or a *BinError naming the failing slot.
func (a *Array[T]) Add(xs []T) error {
	if len(xs) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidShape)
	}
	if a.slots != 0 && len(xs) != a.slots {
		return &infotheory.ShapeError{Op: "Array.Add", Axis: "slots", Want: a.slots, Got: len(xs)}
	}
	idx := a.scratch[:0]
	for i, x := range xs {
		k, err := locate(a.bin, a.binCount, x, AxisX, i)
		if err != nil {
			return err
		}
		idx = append(idx, k)
	}
	a.scratch = idx

	if a.slots == 0 {
		a.slots = len(xs)
		a.counts = make([]int64, a.slots*a.binCount)
	}
	for i, k := range idx {
		a.counts[i*a.binCount+k]++
	}
	a.samples++
	a.gen++
	return nil
}

// Probabilities returns the distribution of every slot, indexed [slot][bin].
func (a *Array[T]) Probabilities() ([][]float64, error) {
	p, err := a.view()
	if err != nil {
		return nil, err
	}
	return cloneMatrix(p), nil
}

// ProbabilitiesAt returns the distribution of one slot.
func (a *Array[T]) ProbabilitiesAt(slot int) ([]float64, error) {
	p, err := a.view()
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= a.slots {
		return nil, slotError(AxisX, slot, a.slots)
	}
	return slices.Clone(p[slot]), nil
}

// Probability returns, for each slot i, the probability of the bin xs[i]
// falls in.
func (a *Array[T]) Probability(xs []T) ([]float64, error) {
	p, err := a.view()
	if err != nil {
		return nil, err
	}
	if len(xs) != a.slots {
		return nil, &infotheory.ShapeError{Op: "Array.Probability", Axis: "slots", Want: a.slots, Got: len(xs)}
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		k, err := locate(a.bin, a.binCount, x, AxisX, i)
		if err != nil {
			return nil, err
		}
		out[i] = p[i][k]
	}
	return out, nil
}

// Entropy returns the entropy of every slot.
func (a *Array[T]) Entropy(b infotheory.Basis) ([]float64, error) {
	p, err := a.view()
	if err != nil {
		return nil, err
	}
	h := make([]float64, len(p))
	for i, row := range p {
		h[i] = infotheory.Entropy(row, b)
	}
	return h, nil
}

// EntropyAt returns the entropy of one slot.
func (a *Array[T]) EntropyAt(slot int, b infotheory.Basis) (float64, error) {
	p, err := a.view()
	if err != nil {
		return 0, err
	}
	if slot < 0 || slot >= a.slots {
		return 0, slotError(AxisX, slot, a.slots)
	}
	return infotheory.Entropy(p[slot], b), nil
}

// Clear drops every observation. The slot count stays fixed.
func (a *Array[T]) Clear() {
	clear(a.counts)
	a.samples = 0
	a.gen++
}

// Merge adds the counts of other into a.
//
// Bin counts must match. An Array that has never been added to adopts the
// slot count of other; otherwise slot counts must match too.
func (a *Array[T]) Merge(other *Array[T]) error {
	if other.binCount != a.binCount {
		return &infotheory.ShapeError{Op: "Array.Merge", Axis: "bins", Want: a.binCount, Got: other.binCount}
	}
	if other.slots == 0 {
		return nil
	}
	if a.slots == 0 {
		a.slots = other.slots
		a.counts = make([]int64, a.slots*a.binCount)
	} else if other.slots != a.slots {
		return &infotheory.ShapeError{Op: "Array.Merge", Axis: "slots", Want: a.slots, Got: other.slots}
	}
	for i, c := range other.counts {
		a.counts[i] += c
	}
	a.samples += other.samples
	a.gen++
	return nil
}

// Counts returns a copy of the count table indexed [slot][bin].
func (a *Array[T]) Counts() [][]int64 {
	out := make([][]int64, a.slots)
	for i := range out {
		out[i] = slices.Clone(a.counts[i*a.binCount : (i+1)*a.binCount])
	}
	return out
}

// Slots returns the batch width, or 0 before the first Add.
func (a *Array[T]) Slots() int { return a.slots }

// Samples returns the number of successful adds since the last Clear.
func (a *Array[T]) Samples() int64 { return a.samples }

// BinCount returns the number of bins per slot.
func (a *Array[T]) BinCount() int { return a.binCount }

func (a *Array[T]) view() ([][]float64, error) {
	if a.samples == 0 {
		return nil, ErrNoSamples
	}
	return a.probs.get(a.gen, func() [][]float64 {
		p := make([][]float64, a.slots)
		for i := range p {
			p[i] = normalizeCounts(a.counts[i*a.binCount:(i+1)*a.binCount], a.samples)
		}
		return p
	}), nil
}
