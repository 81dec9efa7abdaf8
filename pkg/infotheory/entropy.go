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

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Entropy computes the Shannon entropy of p.
//
// Description:
//
//	           __             1
//	H(X)  =   \    p(x) log ----
//	          /__           p(x)
//
//	Zero entries are skipped. p is not renormalized.
//
// Inputs:
//
//	p - Distribution over X.
//	b - Logarithm basis; Nats for the natural log.
//
// Outputs:
//
//	float64 - H(X) in units of b. NaN if b is not Valid.
func Entropy(p []float64, b Basis) float64 {
	return b.scale(stat.Entropy(p))
}

// JointEntropy computes H(X,Y) over every cell of pxy.
//
//	              __                  1
//	H(X, Y)  =   \    p(x, y) log -------
//	             /__              p(x, y)
func JointEntropy(pxy mat.Matrix, b Basis) float64 {
	r, c := pxy.Dims()
	row := make([]float64, c)
	var h float64
	for i := 0; i < r; i++ {
		h += stat.Entropy(mat.Row(row, i, pxy))
	}
	return b.scale(h)
}

// ConditionalEntropyYX computes H(Y|X).
//
// Description:
//
//	             __                  p(x)
//	H(Y|X)  =   \    p(x, y) log -------
//	            /__              p(x, y)
//
//	Terms where p(x, y) or p(x) is zero are skipped.
//
// Inputs:
//
//	pxy - Joint distribution indexed [x][y].
//	px - Marginal of X. Length must equal the row count of pxy.
//	b - Logarithm basis.
//
// Outputs:
//
//	float64 - H(Y|X) in units of b.
//	error - *ShapeError if px does not match pxy. Checked before any work.
func ConditionalEntropyYX(pxy mat.Matrix, px []float64, b Basis) (float64, error) {
	r, c := pxy.Dims()
	if r != len(px) {
		return 0, &ShapeError{Op: "ConditionalEntropyYX", Axis: "rows", Want: r, Got: len(px)}
	}
	var h float64
	for i := 0; i < r; i++ {
		if px[i] == 0 {
			continue
		}
		for j := 0; j < c; j++ {
			if v := pxy.At(i, j); v != 0 {
				h -= v * math.Log(v/px[i])
			}
		}
	}
	return b.scale(h), nil
}

// ConditionalEntropyXY computes H(X|Y).
//
//	             __                  p(y)
//	H(X|Y)  =   \    p(x, y) log -------
//	            /__              p(x, y)
//
// py must match the column count of pxy.
func ConditionalEntropyXY(pxy mat.Matrix, py []float64, b Basis) (float64, error) {
	r, c := pxy.Dims()
	if c != len(py) {
		return 0, &ShapeError{Op: "ConditionalEntropyXY", Axis: "columns", Want: c, Got: len(py)}
	}
	var h float64
	for j := 0; j < c; j++ {
		if py[j] == 0 {
			continue
		}
		for i := 0; i < r; i++ {
			if v := pxy.At(i, j); v != 0 {
				h -= v * math.Log(v/py[j])
			}
		}
	}
	return b.scale(h), nil
}

// MutualInformation computes I(X;Y) = H(X) + H(Y) - H(X,Y).
//
// Every term uses the same basis. The marginals are taken as given rather
// than recomputed from pxy.
func MutualInformation(px, py []float64, pxy mat.Matrix, b Basis) float64 {
	return Entropy(px, b) + Entropy(py, b) - JointEntropy(pxy, b)
}

// VariationOfInformation computes VI(X;Y) = H(X,Y) - I(X;Y).
//
// Unlike mutual information it is a metric: it obeys the triangle inequality.
func VariationOfInformation(px, py []float64, pxy mat.Matrix, b Basis) float64 {
	return JointEntropy(pxy, b) - MutualInformation(px, py, pxy, b)
}

// RelativeEntropy computes the Kullback-Leibler divergence D(p||q).
//
// Description:
//
//	              __            p(x)
//	D(p||q)  =   \     p(x) log ----
//	             /__ x          q(x)
//
//	Terms with p(x) = 0 are skipped. The result is +Inf when q(x) = 0 for
//	some x with p(x) > 0. The divergence is not symmetric.
//
// Outputs:
//
//	float64 - D(p||q) in units of b.
//	error - *ShapeError if p and q differ in length.
func RelativeEntropy(p, q []float64, b Basis) (float64, error) {
	if len(p) != len(q) {
		return 0, &ShapeError{Op: "RelativeEntropy", Axis: "support", Want: len(p), Got: len(q)}
	}
	return b.scale(stat.KullbackLeibler(p, q)), nil
}
