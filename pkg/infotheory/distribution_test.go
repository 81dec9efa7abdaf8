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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// cambridgeJoint is the joint distribution from the Cambridge information
// theory exercise sheet (2009/10, exercise 1).
func cambridgeJoint() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1.0 / 8, 1.0 / 16, 1.0 / 32, 1.0 / 32,
		1.0 / 16, 1.0 / 8, 1.0 / 32, 1.0 / 32,
		1.0 / 16, 1.0 / 16, 1.0 / 16, 1.0 / 16,
		1.0 / 4, 0, 0, 0,
	})
}

func TestIsValid(t *testing.T) {
	tenths := make([]float64, 10)
	for i := range tenths {
		tenths[i] = 0.1
	}

	tests := []struct {
		name string
		p    []float64
		want bool
	}{
		{"uniform", []float64{0.25, 0.25, 0.25, 0.25}, true},
		{"degenerate", []float64{0, 1, 0}, true},
		{"rounding error within tolerance", tenths, true},
		{"just inside tolerance", []float64{0.5, 0.5 + Tolerance/2}, true},
		{"just outside tolerance", []float64{0.5, 0.5 + 2*Tolerance}, false},
		{"short of one", []float64{0.5, 0.4}, false},
		{"over one", []float64{0.5, 0.6}, false},
		{"negative entry", []float64{1.5, -0.5}, false},
		{"NaN entry", []float64{math.NaN(), 1}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.p))
		})
	}
}

func TestIsValidJoint(t *testing.T) {
	t.Run("cambridge joint is valid", func(t *testing.T) {
		assert.True(t, IsValidJoint(cambridgeJoint()))
	})

	t.Run("unnormalized joint is invalid", func(t *testing.T) {
		assert.False(t, IsValidJoint(mat.NewDense(2, 2, []float64{1, 1, 1, 1})))
	})

	t.Run("negative cell is invalid", func(t *testing.T) {
		assert.False(t, IsValidJoint(mat.NewDense(1, 2, []float64{2, -1})))
	})

	t.Run("tolerance applies to the joint sum", func(t *testing.T) {
		assert.True(t, IsValidJoint(mat.NewDense(1, 2, []float64{0.5, 0.5 + Tolerance/2})))
		assert.False(t, IsValidJoint(mat.NewDense(1, 2, []float64{0.5, 0.5 + 2*Tolerance})))
	})
}

func TestNormalize(t *testing.T) {
	t.Run("divides by the sum", func(t *testing.T) {
		p := []float64{1, 3, 0, 4}
		require.NoError(t, Normalize(p))
		assert.Equal(t, []float64{1.0 / 8, 3.0 / 8, 0, 4.0 / 8}, p)
		assert.True(t, IsValid(p))
	})

	t.Run("zero mass is rejected and left untouched", func(t *testing.T) {
		p := []float64{0, 0}
		err := Normalize(p)
		assert.ErrorIs(t, err, ErrZeroMass)
		assert.Equal(t, []float64{0, 0}, p)
	})

	t.Run("joint", func(t *testing.T) {
		m := mat.NewDense(2, 2, []float64{1, 1, 2, 0})
		require.NoError(t, NormalizeJoint(m))
		assert.InDelta(t, 0.5, m.At(1, 0), 1e-15)
		assert.True(t, IsValidJoint(m))
	})

	t.Run("joint zero mass", func(t *testing.T) {
		err := NormalizeJoint(mat.NewDense(2, 1, nil))
		assert.ErrorIs(t, err, ErrZeroMass)
	})
}

func TestMarginals(t *testing.T) {
	pxy := cambridgeJoint()

	px := MarginalX(pxy)
	py := MarginalY(pxy)

	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, px)
	assert.Equal(t, []float64{0.5, 0.25, 0.125, 0.125}, py)
	assert.True(t, IsValid(px))
	assert.True(t, IsValid(py))
}

func TestMarginals_NonSquare(t *testing.T) {
	pxy := mat.NewDense(2, 3, []float64{
		0.1, 0.2, 0.1,
		0.3, 0.0, 0.3,
	})

	assert.InDeltaSlice(t, []float64{0.4, 0.6}, MarginalX(pxy), 1e-15)
	assert.InDeltaSlice(t, []float64{0.4, 0.2, 0.4}, MarginalY(pxy), 1e-15)
}

func TestConditionalProbabilityYX(t *testing.T) {
	pxy := mat.NewDense(3, 2, []float64{
		0.25, 0.25,
		0.5, 0,
		0, 0,
	})
	px := MarginalX(pxy)

	cond, err := ConditionalProbabilityYX(pxy, px)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cond.At(0, 0))
	assert.Equal(t, 0.5, cond.At(0, 1))
	assert.Equal(t, 1.0, cond.At(1, 0))
	assert.Equal(t, 0.0, cond.At(1, 1))

	// Zero marginal rows stay zero instead of dividing by zero.
	assert.Equal(t, 0.0, cond.At(2, 0))
	assert.Equal(t, 0.0, cond.At(2, 1))
}

func TestConditionalProbabilityXY(t *testing.T) {
	pxy := mat.NewDense(2, 3, []float64{
		0.25, 0.5, 0,
		0.25, 0, 0,
	})
	py := MarginalY(pxy)

	cond, err := ConditionalProbabilityXY(pxy, py)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cond.At(0, 0))
	assert.Equal(t, 0.5, cond.At(1, 0))
	assert.Equal(t, 1.0, cond.At(0, 1))
	assert.Equal(t, 0.0, cond.At(0, 2))
	assert.Equal(t, 0.0, cond.At(1, 2))
}

func TestConditionalProbability_ShapeMismatch(t *testing.T) {
	pxy := mat.NewDense(2, 3, nil)

	_, err := ConditionalProbabilityYX(pxy, []float64{1, 0, 0})
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "ConditionalProbabilityYX", shapeErr.Op)
	assert.Equal(t, 2, shapeErr.Want)
	assert.Equal(t, 3, shapeErr.Got)

	_, err = ConditionalProbabilityXY(pxy, []float64{1, 0})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
