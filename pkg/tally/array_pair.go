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
	"gonum.org/v1/gonum/mat"
)

// ArrayPair counts every pairing of two batches of variables.
//
// Description:
//
//	Each Add observes a batch xs and a batch ys and records the joint bin of
//	(xs[i], ys[j]) for every slot pair (i, j). Both slot counts are fixed by
//	the first Add and kept across Clear.
//
//	Storage is one binCountX x binCountY block per slot pair, laid out
//	[slotX][slotY][binX][binY]. Because every Add touches every block,
//	the X marginal of slot i is the same in every block (i, j); it is read
//	from block (i, 0). The Y marginal of slot j is read from block (0, j).
//
// Thread Safety:
//
//	Not safe for concurrent use.
type ArrayPair[X, Y any] struct {
	binCountX int
	binCountY int
	binX      BinFunc[X]
	binY      BinFunc[Y]
	slotsX    int
	slotsY    int
	counts    []int64
	scratchX  []int
	scratchY  []int
	samples   int64
	gen       uint64

	px  memo[[][]float64]
	py  memo[[][]float64]
	pxy memo[[]*mat.Dense]
}

// NewArrayPair creates an empty ArrayPair.
func NewArrayPair[X, Y any](binCountX int, binX BinFunc[X], binCountY int, binY BinFunc[Y]) (*ArrayPair[X, Y], error) {
	if binCountX <= 0 || binCountY <= 0 {
		return nil, fmt.Errorf("%w: bin counts %d x %d", ErrInvalidShape, binCountX, binCountY)
	}
	if binX == nil || binY == nil {
		return nil, fmt.Errorf("%w: nil bin function", ErrInvalidShape)
	}
	return &ArrayPair[X, Y]{
		binCountX: binCountX,
		binCountY: binCountY,
		binX:      binX,
		binY:      binY,
	}, nil
}

// Add records one joint observation for every slot pair.
//
// Inputs:
//
//	xs - X values, one per X slot. Non-empty.
//	ys - Y values, one per Y slot. Non-empty.
//
// Outputs:
//
//	error - ErrInvalidShape, *infotheory.ShapeError or *BinError. Nothing
//	changes on error.
func (a *ArrayPair[X, Y]) Add(xs []X, ys []Y) error {
	if len(xs) == 0 || len(ys) == 0 {
		return fmt.Errorf("%w: empty batch (%d x %d)", ErrInvalidShape, len(xs), len(ys))
	}
	if a.slotsX != 0 {
		if len(xs) != a.slotsX {
			return &infotheory.ShapeError{Op: "ArrayPair.Add", Axis: "x slots", Want: a.slotsX, Got: len(xs)}
		}
		if len(ys) != a.slotsY {
			return &infotheory.ShapeError{Op: "ArrayPair.Add", Axis: "y slots", Want: a.slotsY, Got: len(ys)}
		}
	}

	ix := a.scratchX[:0]
	for i, x := range xs {
		k, err := locate(a.binX, a.binCountX, x, AxisX, i)
		if err != nil {
			return err
		}
		ix = append(ix, k)
	}
	iy := a.scratchY[:0]
	for j, y := range ys {
		k, err := locate(a.binY, a.binCountY, y, AxisY, j)
		if err != nil {
			return err
		}
		iy = append(iy, k)
	}
	a.scratchX, a.scratchY = ix, iy

	if a.slotsX == 0 {
		a.slotsX, a.slotsY = len(xs), len(ys)
		a.counts = make([]int64, a.slotsX*a.slotsY*a.blockSize())
	}
	for i, kx := range ix {
		for j, ky := range iy {
			a.block(i, j)[kx*a.binCountY+ky]++
		}
	}
	a.samples++
	a.gen++
	return nil
}

// -----------------------------------------------------------------------------
// Distributions
// -----------------------------------------------------------------------------

// ProbabilitiesX returns the X marginal of every X slot, indexed [slot][bin].
func (a *ArrayPair[X, Y]) ProbabilitiesX() ([][]float64, error) {
	px, err := a.viewX()
	if err != nil {
		return nil, err
	}
	return cloneMatrix(px), nil
}

// ProbabilitiesXAt returns the X marginal of slot i.
func (a *ArrayPair[X, Y]) ProbabilitiesXAt(i int) ([]float64, error) {
	px, err := a.viewX()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= a.slotsX {
		return nil, slotError(AxisX, i, a.slotsX)
	}
	return slices.Clone(px[i]), nil
}

// ProbabilitiesY returns the Y marginal of every Y slot, indexed [slot][bin].
func (a *ArrayPair[X, Y]) ProbabilitiesY() ([][]float64, error) {
	py, err := a.viewY()
	if err != nil {
		return nil, err
	}
	return cloneMatrix(py), nil
}

// ProbabilitiesYAt returns the Y marginal of slot j.
func (a *ArrayPair[X, Y]) ProbabilitiesYAt(j int) ([]float64, error) {
	py, err := a.viewY()
	if err != nil {
		return nil, err
	}
	if j < 0 || j >= a.slotsY {
		return nil, slotError(AxisY, j, a.slotsY)
	}
	return slices.Clone(py[j]), nil
}

// ProbabilitiesXY returns the joint distribution of slot pair (i, j),
// indexed [binX][binY].
func (a *ArrayPair[X, Y]) ProbabilitiesXY(i, j int) (*mat.Dense, error) {
	pxy, err := a.viewXY()
	if err != nil {
		return nil, err
	}
	if err := a.checkSlots(i, j); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(pxy[i*a.slotsY+j]), nil
}

// -----------------------------------------------------------------------------
// Information Measures
// -----------------------------------------------------------------------------

// EntropyX returns H(X_i) for every X slot i.
func (a *ArrayPair[X, Y]) EntropyX(b infotheory.Basis) ([]float64, error) {
	px, err := a.viewX()
	if err != nil {
		return nil, err
	}
	h := make([]float64, len(px))
	for i, p := range px {
		h[i] = infotheory.Entropy(p, b)
	}
	return h, nil
}

// EntropyY returns H(Y_j) for every Y slot j.
func (a *ArrayPair[X, Y]) EntropyY(b infotheory.Basis) ([]float64, error) {
	py, err := a.viewY()
	if err != nil {
		return nil, err
	}
	h := make([]float64, len(py))
	for j, p := range py {
		h[j] = infotheory.Entropy(p, b)
	}
	return h, nil
}

// EntropyXY returns H(X_i, Y_j) indexed [i][j].
func (a *ArrayPair[X, Y]) EntropyXY(b infotheory.Basis) ([][]float64, error) {
	return a.each(func(pxy *mat.Dense, _, _ []float64) (float64, error) {
		return infotheory.JointEntropy(pxy, b), nil
	})
}

// EntropyYGivenX returns H(Y_j | X_i) indexed [i][j].
func (a *ArrayPair[X, Y]) EntropyYGivenX(b infotheory.Basis) ([][]float64, error) {
	return a.each(func(pxy *mat.Dense, px, _ []float64) (float64, error) {
		return infotheory.ConditionalEntropyYX(pxy, px, b)
	})
}

// EntropyXGivenY returns H(X_i | Y_j) indexed [i][j].
func (a *ArrayPair[X, Y]) EntropyXGivenY(b infotheory.Basis) ([][]float64, error) {
	return a.each(func(pxy *mat.Dense, _, py []float64) (float64, error) {
		return infotheory.ConditionalEntropyXY(pxy, py, b)
	})
}

// MutualInformation returns I(X_i; Y_j) indexed [i][j].
func (a *ArrayPair[X, Y]) MutualInformation(b infotheory.Basis) ([][]float64, error) {
	return a.each(func(pxy *mat.Dense, px, py []float64) (float64, error) {
		return infotheory.MutualInformation(px, py, pxy, b), nil
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Clear drops every observation. Both slot counts stay fixed.
func (a *ArrayPair[X, Y]) Clear() {
	clear(a.counts)
	a.samples = 0
	a.gen++
}

// Merge adds the counts of other into a. Bin counts must match; slot
// counts must match unless a has never been added to.
func (a *ArrayPair[X, Y]) Merge(other *ArrayPair[X, Y]) error {
	if other.binCountX != a.binCountX {
		return &infotheory.ShapeError{Op: "ArrayPair.Merge", Axis: "x bins", Want: a.binCountX, Got: other.binCountX}
	}
	if other.binCountY != a.binCountY {
		return &infotheory.ShapeError{Op: "ArrayPair.Merge", Axis: "y bins", Want: a.binCountY, Got: other.binCountY}
	}
	if other.slotsX == 0 {
		return nil
	}
	if a.slotsX == 0 {
		a.slotsX, a.slotsY = other.slotsX, other.slotsY
		a.counts = make([]int64, len(other.counts))
	} else if other.slotsX != a.slotsX {
		return &infotheory.ShapeError{Op: "ArrayPair.Merge", Axis: "x slots", Want: a.slotsX, Got: other.slotsX}
	} else if other.slotsY != a.slotsY {
		return &infotheory.ShapeError{Op: "ArrayPair.Merge", Axis: "y slots", Want: a.slotsY, Got: other.slotsY}
	}
	for k, c := range other.counts {
		a.counts[k] += c
	}
	a.samples += other.samples
	a.gen++
	return nil
}

// CountsAt returns a copy of the count block of slot pair (i, j), indexed
// [binX][binY].
func (a *ArrayPair[X, Y]) CountsAt(i, j int) ([][]int64, error) {
	if err := a.checkSlots(i, j); err != nil {
		return nil, err
	}
	blk := a.block(i, j)
	out := make([][]int64, a.binCountX)
	for x := range out {
		out[x] = slices.Clone(blk[x*a.binCountY : (x+1)*a.binCountY])
	}
	return out, nil
}

// SlotsX returns the X batch width, or 0 before the first Add.
func (a *ArrayPair[X, Y]) SlotsX() int { return a.slotsX }

// SlotsY returns the Y batch width, or 0 before the first Add.
func (a *ArrayPair[X, Y]) SlotsY() int { return a.slotsY }

// Samples returns the number of successful adds since the last Clear.
func (a *ArrayPair[X, Y]) Samples() int64 { return a.samples }

func (a *ArrayPair[X, Y]) blockSize() int { return a.binCountX * a.binCountY }

func (a *ArrayPair[X, Y]) block(i, j int) []int64 {
	n := a.blockSize()
	off := (i*a.slotsY + j) * n
	return a.counts[off : off+n]
}

func (a *ArrayPair[X, Y]) checkSlots(i, j int) error {
	if i < 0 || i >= a.slotsX {
		return slotError(AxisX, i, a.slotsX)
	}
	if j < 0 || j >= a.slotsY {
		return slotError(AxisY, j, a.slotsY)
	}
	return nil
}

// each applies fn to every slot pair and collects the results [i][j].
func (a *ArrayPair[X, Y]) each(fn func(pxy *mat.Dense, px, py []float64) (float64, error)) ([][]float64, error) {
	px, py, pxy, err := a.views()
	if err != nil {
		return nil, err
	}

	out := make([][]float64, a.slotsX)
	for i := range out {
		out[i] = make([]float64, a.slotsY)
		for j := range out[i] {
			v, err := fn(pxy[i*a.slotsY+j], px[i], py[j])
			if err != nil {
				return nil, err
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// views returns the per-slot X marginals, Y marginals and joint
// distributions.
func (a *ArrayPair[X, Y]) views() ([][]float64, [][]float64, []*mat.Dense, error) {
	pxy, err := a.viewXY()
	if err != nil {
		return nil, nil, nil, err
	}
	px, err := a.viewX()
	if err != nil {
		return nil, nil, nil, err
	}
	py, err := a.viewY()
	if err != nil {
		return nil, nil, nil, err
	}
	return px, py, pxy, nil
}

func (a *ArrayPair[X, Y]) viewX() ([][]float64, error) {
	if a.samples == 0 {
		return nil, ErrNoSamples
	}
	return a.px.get(a.gen, func() [][]float64 {
		px := make([][]float64, a.slotsX)
		for i := range px {
			px[i] = rowMarginal(a.block(i, 0), a.binCountX, a.binCountY, a.samples)
		}
		return px
	}), nil
}

func (a *ArrayPair[X, Y]) viewY() ([][]float64, error) {
	if a.samples == 0 {
		return nil, ErrNoSamples
	}
	return a.py.get(a.gen, func() [][]float64 {
		py := make([][]float64, a.slotsY)
		for j := range py {
			py[j] = colMarginal(a.block(0, j), a.binCountX, a.binCountY, a.samples)
		}
		return py
	}), nil
}

func (a *ArrayPair[X, Y]) viewXY() ([]*mat.Dense, error) {
	if a.samples == 0 {
		return nil, ErrNoSamples
	}
	return a.pxy.get(a.gen, func() []*mat.Dense {
		out := make([]*mat.Dense, a.slotsX*a.slotsY)
		for i := 0; i < a.slotsX; i++ {
			for j := 0; j < a.slotsY; j++ {
				out[i*a.slotsY+j] = jointView(a.block(i, j), a.binCountX, a.binCountY, a.samples)
			}
		}
		return out
	}), nil
}
