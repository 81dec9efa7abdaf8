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

// Pair counts joint observations of two variables.
//
// Counts are stored row-major, indexed [binX][binY]. Marginals are derived
// from the joint table.
type Pair[X, Y any] struct {
	binCountX int
	binCountY int
	binX      BinFunc[X]
	binY      BinFunc[Y]
	counts    []int64
	samples   int64
	gen       uint64

	px  memo[[]float64]
	py  memo[[]float64]
	pxy memo[*mat.Dense]
}

// NewPair creates an empty Pair.
//
// Both bin counts must be positive and both bin functions non-nil,
// otherwise ErrInvalidShape is returned.
func NewPair[X, Y any](binCountX int, binX BinFunc[X], binCountY int, binY BinFunc[Y]) (*Pair[X, Y], error) {
	if binCountX <= 0 || binCountY <= 0 {
		return nil, fmt.Errorf("%w: bin counts %d x %d", ErrInvalidShape, binCountX, binCountY)
	}
	if binX == nil || binY == nil {
		return nil, fmt.Errorf("%w: nil bin function", ErrInvalidShape)
	}
	return &Pair[X, Y]{
		binCountX: binCountX,
		binCountY: binCountY,
		binX:      binX,
		binY:      binY,
		counts:    make([]int64, binCountX*binCountY),
	}, nil
}

// Add records one joint observation of (x, y).
//
// Both values are checked before anything changes. On failure the
// *BinError names the offending axis.
func (p *Pair[X, Y]) Add(x X, y Y) error {
	i, j, err := p.locate(x, y)
	if err != nil {
		return err
	}
	p.counts[i*p.binCountY+j]++
	p.samples++
	p.gen++
	return nil
}

// -----------------------------------------------------------------------------
// Point Probabilities
// -----------------------------------------------------------------------------

// ProbabilityX returns P(X = bin of x).
func (p *Pair[X, Y]) ProbabilityX(x X) (float64, error) {
	i, err := locate(p.binX, p.binCountX, x, AxisX, noSlot)
	if err != nil {
		return 0, err
	}
	px, err := p.viewX()
	if err != nil {
		return 0, err
	}
	return px[i], nil
}

// ProbabilityY returns P(Y = bin of y).
func (p *Pair[X, Y]) ProbabilityY(y Y) (float64, error) {
	j, err := locate(p.binY, p.binCountY, y, AxisY, noSlot)
	if err != nil {
		return 0, err
	}
	py, err := p.viewY()
	if err != nil {
		return 0, err
	}
	return py[j], nil
}

// ProbabilityXY returns the joint probability of the bins of x and y.
func (p *Pair[X, Y]) ProbabilityXY(x X, y Y) (float64, error) {
	i, j, err := p.locate(x, y)
	if err != nil {
		return 0, err
	}
	pxy, err := p.viewXY()
	if err != nil {
		return 0, err
	}
	return pxy.At(i, j), nil
}

// ProbabilityXGivenY returns P(x | y) = P(x, y) / P(y).
//
// Returns 0 when P(y) is 0, matching infotheory.ConditionalProbabilityXY.
func (p *Pair[X, Y]) ProbabilityXGivenY(x X, y Y) (float64, error) {
	i, j, err := p.locate(x, y)
	if err != nil {
		return 0, err
	}
	_, py, pxy, err := p.views()
	if err != nil {
		return 0, err
	}
	if py[j] == 0 {
		return 0, nil
	}
	return pxy.At(i, j) / py[j], nil
}

// ProbabilityYGivenX returns P(y | x) = P(x, y) / P(x).
//
// Returns 0 when P(x) is 0, matching infotheory.ConditionalProbabilityYX.
func (p *Pair[X, Y]) ProbabilityYGivenX(y Y, x X) (float64, error) {
	i, j, err := p.locate(x, y)
	if err != nil {
		return 0, err
	}
	px, _, pxy, err := p.views()
	if err != nil {
		return 0, err
	}
	if px[i] == 0 {
		return 0, nil
	}
	return pxy.At(i, j) / px[i], nil
}

// -----------------------------------------------------------------------------
// Distributions
// -----------------------------------------------------------------------------

// ProbabilitiesX returns the marginal distribution of X.
func (p *Pair[X, Y]) ProbabilitiesX() ([]float64, error) {
	px, err := p.viewX()
	if err != nil {
		return nil, err
	}
	return slices.Clone(px), nil
}

// ProbabilitiesY returns the marginal distribution of Y.
func (p *Pair[X, Y]) ProbabilitiesY() ([]float64, error) {
	py, err := p.viewY()
	if err != nil {
		return nil, err
	}
	return slices.Clone(py), nil
}

// ProbabilitiesXY returns the joint distribution indexed [x][y].
func (p *Pair[X, Y]) ProbabilitiesXY() (*mat.Dense, error) {
	pxy, err := p.viewXY()
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(pxy), nil
}

// -----------------------------------------------------------------------------
// Information Measures
// -----------------------------------------------------------------------------

// EntropyX returns H(X).
func (p *Pair[X, Y]) EntropyX(b infotheory.Basis) (float64, error) {
	px, err := p.viewX()
	if err != nil {
		return 0, err
	}
	return infotheory.Entropy(px, b), nil
}

// EntropyY returns H(Y).
func (p *Pair[X, Y]) EntropyY(b infotheory.Basis) (float64, error) {
	py, err := p.viewY()
	if err != nil {
		return 0, err
	}
	return infotheory.Entropy(py, b), nil
}

// EntropyXY returns H(X, Y).
func (p *Pair[X, Y]) EntropyXY(b infotheory.Basis) (float64, error) {
	pxy, err := p.viewXY()
	if err != nil {
		return 0, err
	}
	return infotheory.JointEntropy(pxy, b), nil
}

// EntropyXGivenY returns H(X|Y).
func (p *Pair[X, Y]) EntropyXGivenY(b infotheory.Basis) (float64, error) {
	_, py, pxy, err := p.views()
	if err != nil {
		return 0, err
	}
	return infotheory.ConditionalEntropyXY(pxy, py, b)
}

// EntropyYGivenX returns H(Y|X).
func (p *Pair[X, Y]) EntropyYGivenX(b infotheory.Basis) (float64, error) {
	px, _, pxy, err := p.views()
	if err != nil {
		return 0, err
	}
	return infotheory.ConditionalEntropyYX(pxy, px, b)
}

// MutualInformationXY returns I(X;Y).
func (p *Pair[X, Y]) MutualInformationXY(b infotheory.Basis) (float64, error) {
	px, py, pxy, err := p.views()
	if err != nil {
		return 0, err
	}
	return infotheory.MutualInformation(px, py, pxy, b), nil
}

// VariationOfInformationXY returns VI(X;Y) = H(X,Y) - I(X;Y).
func (p *Pair[X, Y]) VariationOfInformationXY(b infotheory.Basis) (float64, error) {
	px, py, pxy, err := p.views()
	if err != nil {
		return 0, err
	}
	return infotheory.VariationOfInformation(px, py, pxy, b), nil
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Clear drops every observation.
func (p *Pair[X, Y]) Clear() {
	clear(p.counts)
	p.samples = 0
	p.gen++
}

// Merge adds the counts of other into p. Bin counts must match on both axes.
func (p *Pair[X, Y]) Merge(other *Pair[X, Y]) error {
	if other.binCountX != p.binCountX {
		return &infotheory.ShapeError{Op: "Pair.Merge", Axis: "x bins", Want: p.binCountX, Got: other.binCountX}
	}
	if other.binCountY != p.binCountY {
		return &infotheory.ShapeError{Op: "Pair.Merge", Axis: "y bins", Want: p.binCountY, Got: other.binCountY}
	}
	for i, c := range other.counts {
		p.counts[i] += c
	}
	p.samples += other.samples
	p.gen++
	return nil
}

// Restore replaces the counts with a table indexed [binX][binY], as
// returned by Counts. Samples becomes the table total.
func (p *Pair[X, Y]) Restore(counts [][]int64) error {
	if len(counts) != p.binCountX {
		return &infotheory.ShapeError{Op: "Pair.Restore", Axis: "x bins", Want: p.binCountX, Got: len(counts)}
	}
	flat := make([]int64, 0, len(p.counts))
	for _, row := range counts {
		if len(row) != p.binCountY {
			return &infotheory.ShapeError{Op: "Pair.Restore", Axis: "y bins", Want: p.binCountY, Got: len(row)}
		}
		flat = append(flat, row...)
	}
	samples, err := sumCounts(flat)
	if err != nil {
		return err
	}
	p.counts = flat
	p.samples = samples
	p.gen++
	return nil
}

// Counts returns a copy of the joint count table indexed [binX][binY].
func (p *Pair[X, Y]) Counts() [][]int64 {
	out := make([][]int64, p.binCountX)
	for i := range out {
		out[i] = slices.Clone(p.counts[i*p.binCountY : (i+1)*p.binCountY])
	}
	return out
}

// Samples returns the number of successful adds since the last Clear.
func (p *Pair[X, Y]) Samples() int64 { return p.samples }

// BinCountX returns the number of X bins.
func (p *Pair[X, Y]) BinCountX() int { return p.binCountX }

// BinCountY returns the number of Y bins.
func (p *Pair[X, Y]) BinCountY() int { return p.binCountY }

func (p *Pair[X, Y]) locate(x X, y Y) (int, int, error) {
	i, err := locate(p.binX, p.binCountX, x, AxisX, noSlot)
	if err != nil {
		return 0, 0, err
	}
	j, err := locate(p.binY, p.binCountY, y, AxisY, noSlot)
	if err != nil {
		return 0, 0, err
	}
	return i, j, nil
}

// views returns the X marginal, the Y marginal and the joint distribution.
func (p *Pair[X, Y]) views() ([]float64, []float64, *mat.Dense, error) {
	pxy, err := p.viewXY()
	if err != nil {
		return nil, nil, nil, err
	}
	px, err := p.viewX()
	if err != nil {
		return nil, nil, nil, err
	}
	py, err := p.viewY()
	if err != nil {
		return nil, nil, nil, err
	}
	return px, py, pxy, nil
}

func (p *Pair[X, Y]) viewX() ([]float64, error) {
	if p.samples == 0 {
		return nil, ErrNoSamples
	}
	return p.px.get(p.gen, func() []float64 {
		return rowMarginal(p.counts, p.binCountX, p.binCountY, p.samples)
	}), nil
}

func (p *Pair[X, Y]) viewY() ([]float64, error) {
	if p.samples == 0 {
		return nil, ErrNoSamples
	}
	return p.py.get(p.gen, func() []float64 {
		return colMarginal(p.counts, p.binCountX, p.binCountY, p.samples)
	}), nil
}

func (p *Pair[X, Y]) viewXY() (*mat.Dense, error) {
	if p.samples == 0 {
		return nil, ErrNoSamples
	}
	return p.pxy.get(p.gen, func() *mat.Dense {
		return jointView(p.counts, p.binCountX, p.binCountY, p.samples)
	}), nil
}
