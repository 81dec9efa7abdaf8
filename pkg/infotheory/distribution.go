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
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// Tolerance is the absolute slack IsValid and IsValidJoint allow between
// the total mass of a distribution and 1.
const Tolerance = 1e-9

// -----------------------------------------------------------------------------
// Validity and Normalization
// -----------------------------------------------------------------------------

// IsValid reports whether p is a probability distribution.
//
// Description:
//
//	p is valid when it is non-empty, has no negative or NaN entries, and its
//	entries sum to 1 within Tolerance.
//
//	          __
//	         \     p(x)  =  1
//	         /__ x
//
// Inputs:
//
//	p - Candidate distribution.
//
// Outputs:
//
//	bool - True if p is a distribution.
func IsValid(p []float64) bool {
	if len(p) == 0 {
		return false
	}
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return false
		}
	}
	return scalar.EqualWithinAbs(floats.Sum(p), 1, Tolerance)
}

// IsValidJoint reports whether m is a joint probability distribution.
//
// The same rules as IsValid apply to every cell of m.
func IsValidJoint(m mat.Matrix) bool {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return false
	}
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v < 0 || math.IsNaN(v) {
				return false
			}
			sum += v
		}
	}
	return scalar.EqualWithinAbs(sum, 1, Tolerance)
}

// Normalize divides every entry of p by the sum of p, in place.
//
// Returns ErrZeroMass and leaves p untouched when the entries sum to zero.
func Normalize(p []float64) error {
	sum := floats.Sum(p)
	if sum == 0 {
		return ErrZeroMass
	}
	for i := range p {
		p[i] /= sum
	}
	return nil
}

// NormalizeJoint divides every cell of m by the sum of m, in place.
//
// Returns ErrZeroMass and leaves m untouched when the cells sum to zero.
func NormalizeJoint(m *mat.Dense) error {
	sum := mat.Sum(m)
	if sum == 0 {
		return ErrZeroMass
	}
	m.Apply(func(_, _ int, v float64) float64 {
		return v / sum
	}, m)
	return nil
}

// -----------------------------------------------------------------------------
// Marginals
// -----------------------------------------------------------------------------

// MarginalX sums a joint distribution over Y.
//
//	           __
//	p (x)  =  \     p(x, y)
//	 X        /__ y
func MarginalX(pxy mat.Matrix) []float64 {
	r, c := pxy.Dims()
	px := make([]float64, r)
	row := make([]float64, c)
	for i := range px {
		px[i] = floats.Sum(mat.Row(row, i, pxy))
	}
	return px
}

// MarginalY sums a joint distribution over X.
//
//	           __
//	p (y)  =  \     p(x, y)
//	 Y        /__ x
func MarginalY(pxy mat.Matrix) []float64 {
	r, c := pxy.Dims()
	py := make([]float64, c)
	col := make([]float64, r)
	for j := range py {
		py[j] = floats.Sum(mat.Col(col, j, pxy))
	}
	return py
}

// -----------------------------------------------------------------------------
// Conditional Probability Tables
// -----------------------------------------------------------------------------

// ConditionalProbabilityYX computes P(Y|X) from a joint and the X marginal.
//
// Description:
//
//	            P(X,Y)
//	P(Y|X)  =  ------
//	             P(X)
//
//	Rows whose marginal is zero are left at zero.
//
// Inputs:
//
//	pxy - Joint distribution indexed [x][y].
//	px - Marginal of X. Length must equal the row count of pxy.
//
// Outputs:
//
//	*mat.Dense - Table indexed [x][y]; each non-zero row sums to 1.
//	error - *ShapeError if px does not match pxy.
func ConditionalProbabilityYX(pxy mat.Matrix, px []float64) (*mat.Dense, error) {
	r, c := pxy.Dims()
	if r != len(px) {
		return nil, &ShapeError{Op: "ConditionalProbabilityYX", Axis: "rows", Want: r, Got: len(px)}
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		if px[i] == 0 {
			continue
		}
		for j := 0; j < c; j++ {
			out.Set(i, j, pxy.At(i, j)/px[i])
		}
	}
	return out, nil
}

// ConditionalProbabilityXY computes P(X|Y) from a joint and the Y marginal.
//
//	            P(X,Y)
//	P(X|Y)  =  ------
//	             P(Y)
//
// Columns whose marginal is zero are left at zero. The result is indexed
// [x][y] like pxy; py must match the column count.
func ConditionalProbabilityXY(pxy mat.Matrix, py []float64) (*mat.Dense, error) {
	r, c := pxy.Dims()
	if c != len(py) {
		return nil, &ShapeError{Op: "ConditionalProbabilityXY", Axis: "columns", Want: c, Got: len(py)}
	}
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		if py[j] == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			out.Set(i, j, pxy.At(i, j)/py[j])
		}
	}
	return out, nil
}
