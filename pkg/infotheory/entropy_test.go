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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const delta = 1e-9

func uniform(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return p
}

// randomJoint returns a strictly positive joint distribution.
func randomJoint(rng *rand.Rand, rows, cols int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, rng.Float64()+0.01)
		}
	}
	if err := NormalizeJoint(m); err != nil {
		panic(err)
	}
	return m
}

func randomDistribution(rng *rand.Rand, n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = rng.Float64() + 0.01
	}
	if err := Normalize(p); err != nil {
		panic(err)
	}
	return p
}

// =============================================================================
// Basis
// =============================================================================

func TestBasis_Valid(t *testing.T) {
	tests := []struct {
		basis Basis
		want  bool
	}{
		{Nats, true},
		{Bits, true},
		{Bans, true},
		{BinBasis(3), true},
		{Basis(0.5), true},
		{Basis(math.E), true},
		{Basis(1), false},
		{Basis(-2), false},
		{Basis(math.Inf(1)), false},
		{Basis(math.NaN()), false},
	}

	for _, tt := range tests {
		t.Run(tt.basis.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.basis.Valid())
		})
	}
}

func TestBasis_String(t *testing.T) {
	assert.Equal(t, "nats", Nats.String())
	assert.Equal(t, "bits", Bits.String())
	assert.Equal(t, "bans", Bans.String())
	assert.Equal(t, "base-4", BinBasis(4).String())
	assert.Equal(t, "base-2.5", Basis(2.5).String())
}

func TestParseBasis(t *testing.T) {
	tests := []struct {
		in      string
		want    Basis
		wantErr bool
	}{
		{"", Nats, false},
		{"nats", Nats, false},
		{"e", Nats, false},
		{"Bits", Bits, false},
		{"2", Bits, false},
		{"bans", Bans, false},
		{"10", Bans, false},
		{"4", BinBasis(4), false},
		{"0.5", Basis(0.5), false},
		{"1", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"Inf", 0, true},
		{"trits", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBasis(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Entropy
// =============================================================================

func TestEntropy_Uniform(t *testing.T) {
	for _, n := range []int{2, 3, 4, 7, 16} {
		p := uniform(n)

		assert.InDelta(t, 1, Entropy(p, BinBasis(n)), delta, "n=%d", n)
		assert.InDelta(t, math.Log2(float64(n)), Entropy(p, Bits), delta, "n=%d", n)
		assert.InDelta(t, math.Log(float64(n)), Entropy(p, Nats), delta, "n=%d", n)
	}
}

func TestEntropy_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Entropy([]float64{0, 1, 0}, Nats))
	assert.Equal(t, 0.0, Entropy([]float64{1}, Bits))
}

func TestEntropy_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 100; i++ {
		p := randomDistribution(rng, 1+rng.IntN(12))
		h := Entropy(p, Nats)
		assert.GreaterOrEqual(t, h, 0.0)
		if len(p) > 1 {
			// Strictly positive entries means more than one outcome is possible.
			assert.Greater(t, h, 0.0)
		}
	}
}

func TestEntropy_SkipsZeroBins(t *testing.T) {
	// Readme example: two equally likely bins out of three.
	p := []float64{0.5, 0.5, 0}

	assert.InDelta(t, math.Ln2, Entropy(p, Nats), delta)
	assert.InDelta(t, 1, Entropy(p, Bits), delta)
}

func TestEntropy_InvalidBasis(t *testing.T) {
	assert.True(t, math.IsNaN(Entropy(uniform(2), Basis(1))))
}

// =============================================================================
// Joint and Conditional Entropy
// =============================================================================

func TestCambridgeExercise(t *testing.T) {
	pxy := cambridgeJoint()
	px := MarginalX(pxy)
	py := MarginalY(pxy)

	assert.InDelta(t, 2, Entropy(px, Bits), delta)
	assert.InDelta(t, 7.0/4, Entropy(py, Bits), delta)
	assert.InDelta(t, 27.0/8, JointEntropy(pxy, Bits), delta)

	hYX, err := ConditionalEntropyYX(pxy, px, Bits)
	require.NoError(t, err)
	assert.InDelta(t, 11.0/8, hYX, delta)

	hXY, err := ConditionalEntropyXY(pxy, py, Bits)
	require.NoError(t, err)
	assert.InDelta(t, 13.0/8, hXY, delta)

	assert.InDelta(t, 3.0/8, MutualInformation(px, py, pxy, Bits), delta)
}

func TestTwoByTwoExample(t *testing.T) {
	pxy := mat.NewDense(2, 2, []float64{
		0.25, 0.25,
		0.5, 0,
	})
	px := MarginalX(pxy)

	assert.InDelta(t, 1.5, JointEntropy(pxy, Bits), delta)
	assert.InDelta(t, 0.75, JointEntropy(pxy, BinBasis(4)), delta)
	assert.InDelta(t, 1.5*math.Ln2, JointEntropy(pxy, Nats), delta)

	hYX, err := ConditionalEntropyYX(pxy, px, Bits)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, hYX, delta)
}

func TestConditionalEntropy_ShapeMismatch(t *testing.T) {
	pxy := mat.NewDense(2, 3, nil)

	_, err := ConditionalEntropyYX(pxy, []float64{0.5, 0.25, 0.25}, Nats)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "ConditionalEntropyYX")

	_, err = ConditionalEntropyXY(pxy, []float64{0.5, 0.5}, Nats)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "columns")
}

func TestChainRule(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 50; trial++ {
		pxy := randomJoint(rng, 1+rng.IntN(6), 1+rng.IntN(6))
		px := MarginalX(pxy)
		py := MarginalY(pxy)

		for _, b := range []Basis{Nats, Bits, BinBasis(3)} {
			joint := JointEntropy(pxy, b)

			hXY, err := ConditionalEntropyXY(pxy, py, b)
			require.NoError(t, err)
			assert.InDelta(t, joint-Entropy(py, b), hXY, delta)

			hYX, err := ConditionalEntropyYX(pxy, px, b)
			require.NoError(t, err)
			assert.InDelta(t, joint-Entropy(px, b), hYX, delta)
		}
	}
}

func TestChainRule_WithZeroCells(t *testing.T) {
	pxy := mat.NewDense(3, 3, []float64{
		0.2, 0, 0.1,
		0, 0, 0,
		0.3, 0.4, 0,
	})
	px := MarginalX(pxy)
	py := MarginalY(pxy)

	hXY, err := ConditionalEntropyXY(pxy, py, Bits)
	require.NoError(t, err)
	assert.InDelta(t, JointEntropy(pxy, Bits)-Entropy(py, Bits), hXY, delta)

	hYX, err := ConditionalEntropyYX(pxy, px, Bits)
	require.NoError(t, err)
	assert.InDelta(t, JointEntropy(pxy, Bits)-Entropy(px, Bits), hYX, delta)
}

// =============================================================================
// Mutual Information
// =============================================================================

func TestMutualInformation_Independence(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for trial := 0; trial < 50; trial++ {
		px := randomDistribution(rng, 1+rng.IntN(5))
		py := randomDistribution(rng, 1+rng.IntN(5))

		pxy := mat.NewDense(len(px), len(py), nil)
		pxy.Outer(1, mat.NewVecDense(len(px), px), mat.NewVecDense(len(py), py))

		assert.InDelta(t, 0, MutualInformation(px, py, pxy, Nats), delta)
		assert.InDelta(t, 0, MutualInformation(px, py, pxy, Bits), delta)
	}
}

func TestMutualInformation_FairCoins(t *testing.T) {
	px := []float64{0.5, 0.5}
	py := []float64{0.5, 0.5}
	pxy := mat.NewDense(2, 2, []float64{0.25, 0.25, 0.25, 0.25})

	assert.InDelta(t, 0, MutualInformation(px, py, pxy, Bits), delta)
}

func TestMutualInformation_Deterministic(t *testing.T) {
	// Y = (X + 1) mod 3 with X uniform over three values.
	pxy := mat.NewDense(3, 3, []float64{
		0, 1.0 / 3, 0,
		0, 0, 1.0 / 3,
		1.0 / 3, 0, 0,
	})
	px := MarginalX(pxy)
	py := MarginalY(pxy)

	hYX, err := ConditionalEntropyYX(pxy, px, Bits)
	require.NoError(t, err)
	assert.InDelta(t, 0, hYX, delta)
	assert.InDelta(t, Entropy(py, Bits), MutualInformation(px, py, pxy, Bits), delta)
}

func TestVariationOfInformation(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 4))
	pxy := randomJoint(rng, 4, 3)
	px := MarginalX(pxy)
	py := MarginalY(pxy)

	hXY, err := ConditionalEntropyXY(pxy, py, Bits)
	require.NoError(t, err)
	hYX, err := ConditionalEntropyYX(pxy, px, Bits)
	require.NoError(t, err)

	// VI(X;Y) = H(X|Y) + H(Y|X)
	assert.InDelta(t, hXY+hYX, VariationOfInformation(px, py, pxy, Bits), delta)
}

func TestVariationOfInformation_IdenticalVariables(t *testing.T) {
	pxy := mat.NewDense(2, 2, []float64{0.5, 0, 0, 0.5})
	px := MarginalX(pxy)
	py := MarginalY(pxy)

	assert.InDelta(t, 0, VariationOfInformation(px, py, pxy, Bits), delta)
}

// =============================================================================
// Relative Entropy
// =============================================================================

func TestRelativeEntropy(t *testing.T) {
	t.Run("identical distributions", func(t *testing.T) {
		p := []float64{0.2, 0.3, 0.5}
		d, err := RelativeEntropy(p, p, Bits)
		require.NoError(t, err)
		assert.InDelta(t, 0, d, delta)
	})

	t.Run("known value", func(t *testing.T) {
		p := []float64{0.5, 0.5}
		q := []float64{0.25, 0.75}
		// 0.5*log2(2) + 0.5*log2(2/3)
		want := 0.5 + 0.5*math.Log2(2.0/3)
		d, err := RelativeEntropy(p, q, Bits)
		require.NoError(t, err)
		assert.InDelta(t, want, d, delta)
	})

	t.Run("zero in p is skipped", func(t *testing.T) {
		d, err := RelativeEntropy([]float64{0, 1}, []float64{0.5, 0.5}, Bits)
		require.NoError(t, err)
		assert.InDelta(t, 1, d, delta)
	})

	t.Run("unsupported outcome diverges", func(t *testing.T) {
		d, err := RelativeEntropy([]float64{0.5, 0.5}, []float64{1, 0}, Nats)
		require.NoError(t, err)
		assert.True(t, math.IsInf(d, 1))
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := RelativeEntropy([]float64{1}, []float64{0.5, 0.5}, Nats)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("non-negative", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(21, 8))
		for i := 0; i < 25; i++ {
			p := randomDistribution(rng, 5)
			q := randomDistribution(rng, 5)
			d, err := RelativeEntropy(p, q, Nats)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, d, -delta)
		}
	})
}
