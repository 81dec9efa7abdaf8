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
	"math"
	"math/rand/v2"
	"testing"

	"github.com/AleutianAI/infotally/pkg/infotheory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(i int) int { return i }

// symbolPair returns a Pair of a two-letter alphabet against {0, 1}.
func symbolPair(t *testing.T) *Pair[string, int] {
	t.Helper()
	p, err := NewPair(2, AlphabetBins([]string{"a", "b"}), 2, identity)
	require.NoError(t, err)
	return p
}

func addAll(t *testing.T, p *Pair[string, int], obs map[string]map[int]int) {
	t.Helper()
	for x, ys := range obs {
		for y, n := range ys {
			for k := 0; k < n; k++ {
				require.NoError(t, p.Add(x, y))
			}
		}
	}
}

func TestPair_SkewedAlphabet(t *testing.T) {
	p := symbolPair(t)
	addAll(t, p, map[string]map[int]int{
		"a": {0: 2, 1: 2},
		"b": {0: 4, 1: 1},
	})
	require.Equal(t, int64(9), p.Samples())

	prob := func(v float64, err error) float64 {
		t.Helper()
		require.NoError(t, err)
		return v
	}

	assert.InDelta(t, 4.0/9, prob(p.ProbabilityX("a")), delta)
	assert.InDelta(t, 5.0/9, prob(p.ProbabilityX("b")), delta)
	assert.InDelta(t, 6.0/9, prob(p.ProbabilityY(0)), delta)
	assert.InDelta(t, 3.0/9, prob(p.ProbabilityY(1)), delta)
	assert.InDelta(t, 2.0/9, prob(p.ProbabilityXY("a", 0)), delta)
	assert.InDelta(t, 0.5, prob(p.ProbabilityYGivenX(0, "a")), delta)
	assert.InDelta(t, 0.5, prob(p.ProbabilityYGivenX(1, "a")), delta)
	assert.InDelta(t, 0.8, prob(p.ProbabilityYGivenX(0, "b")), delta)
	assert.InDelta(t, 0.2, prob(p.ProbabilityYGivenX(1, "b")), delta)
	assert.InDelta(t, 2.0/6, prob(p.ProbabilityXGivenY("a", 0)), delta)
	assert.InDelta(t, 1.0/3, prob(p.ProbabilityXGivenY("b", 1)), delta)

	hx := prob(p.EntropyX(infotheory.Bits))
	hy := prob(p.EntropyY(infotheory.Bits))
	hxy := prob(p.EntropyXY(infotheory.Bits))
	hyx := prob(p.EntropyYGivenX(infotheory.Bits))
	hxgy := prob(p.EntropyXGivenY(infotheory.Bits))
	mi := prob(p.MutualInformationXY(infotheory.Bits))
	vi := prob(p.VariationOfInformationXY(infotheory.Bits))

	assert.InDelta(t, 0.9911, hx, 1e-4)
	assert.InDelta(t, 0.9183, hy, 1e-4)
	assert.InDelta(t, 1.8366, hxy, 1e-4)
	assert.InDelta(t, 0.8455, hyx, 1e-4)
	assert.InDelta(t, 0.9183, hxgy, 1e-4)
	assert.InDelta(t, 0.0728, mi, 1e-4)

	assert.InDelta(t, hxy-hy, hxgy, delta)
	assert.InDelta(t, hxy-hx, hyx, delta)
	assert.InDelta(t, hxgy+hyx, vi, delta)
}

func TestPair_Deterministic(t *testing.T) {
	p := symbolPair(t)
	addAll(t, p, map[string]map[int]int{
		"a": {1: 4},
		"b": {0: 4},
	})

	yx, err := p.ProbabilityYGivenX(0, "a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, yx)

	yx, err = p.ProbabilityYGivenX(1, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, yx)

	h, err := p.EntropyYGivenX(infotheory.Bits)
	require.NoError(t, err)
	assert.InDelta(t, 0, h, delta)

	h, err = p.EntropyXGivenY(infotheory.Bits)
	require.NoError(t, err)
	assert.InDelta(t, 0, h, delta)

	mi, err := p.MutualInformationXY(infotheory.Bits)
	require.NoError(t, err)
	assert.InDelta(t, 1, mi, delta)
}

func TestPair_Independent(t *testing.T) {
	p := symbolPair(t)
	addAll(t, p, map[string]map[int]int{
		"a": {0: 2, 1: 2},
		"b": {0: 2, 1: 2},
	})

	hxy, err := p.EntropyXY(infotheory.Bits)
	require.NoError(t, err)
	assert.InDelta(t, 2, hxy, delta)

	mi, err := p.MutualInformationXY(infotheory.Bits)
	require.NoError(t, err)
	assert.InDelta(t, 0, mi, delta)
}

func TestPair_ZeroMarginalConditional(t *testing.T) {
	p, err := NewPair(3, identity, 2, identity)
	require.NoError(t, err)
	require.NoError(t, p.Add(0, 1))

	// X = 2 was never observed.
	v, err := p.ProbabilityYGivenX(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = p.ProbabilityXGivenY(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestPair_ConditionalMatchesMatrix(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p, err := NewPair(4, identity, 3, identity)
	require.NoError(t, err)
	for k := 0; k < 200; k++ {
		require.NoError(t, p.Add(rng.IntN(4), rng.IntN(3)))
	}

	pxy, err := p.ProbabilitiesXY()
	require.NoError(t, err)
	px, err := p.ProbabilitiesX()
	require.NoError(t, err)
	py, err := p.ProbabilitiesY()
	require.NoError(t, err)

	yGivenX, err := infotheory.ConditionalProbabilityYX(pxy, px)
	require.NoError(t, err)
	xGivenY, err := infotheory.ConditionalProbabilityXY(pxy, py)
	require.NoError(t, err)

	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			v, err := p.ProbabilityYGivenX(y, x)
			require.NoError(t, err)
			assert.Equal(t, yGivenX.At(x, y), v)

			v, err = p.ProbabilityXGivenY(x, y)
			require.NoError(t, err)
			assert.Equal(t, xGivenY.At(x, y), v)
		}
	}
}

func TestPair_ChainRuleRandom(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))

	for trial := 0; trial < 20; trial++ {
		bx, by := 1+rng.IntN(5), 1+rng.IntN(5)
		p, err := NewPair(bx, identity, by, identity)
		require.NoError(t, err)
		for k := 0; k < 100; k++ {
			require.NoError(t, p.Add(rng.IntN(bx), rng.IntN(by)))
		}

		for _, b := range []infotheory.Basis{infotheory.Nats, infotheory.Bits} {
			hx, _ := p.EntropyX(b)
			hy, _ := p.EntropyY(b)
			hxy, _ := p.EntropyXY(b)
			hxgy, err := p.EntropyXGivenY(b)
			require.NoError(t, err)
			hygx, err := p.EntropyYGivenX(b)
			require.NoError(t, err)

			assert.InDelta(t, hxy-hy, hxgy, delta)
			assert.InDelta(t, hxy-hx, hygx, delta)
			assert.GreaterOrEqual(t, hx, 0.0)
			assert.GreaterOrEqual(t, hxy, math.Max(hx, hy)-delta)
		}
	}
}

func TestPair_OutOfRangeIsAtomic(t *testing.T) {
	p := symbolPair(t)
	require.NoError(t, p.Add("a", 0))

	tests := []struct {
		name string
		x    string
		y    int
		axis string
	}{
		{"bad x", "z", 0, AxisX},
		{"bad y", "a", 2, AxisY},
		{"both bad reports x", "z", -1, AxisX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Add(tt.x, tt.y)
			require.ErrorIs(t, err, ErrOutOfRange)

			var binErr *BinError
			require.True(t, errors.As(err, &binErr))
			assert.Equal(t, tt.axis, binErr.Axis)

			assert.Equal(t, int64(1), p.Samples())
			assert.Equal(t, [][]int64{{1, 0}, {0, 0}}, p.Counts())
		})
	}
}

func TestPair_NoSamples(t *testing.T) {
	p := symbolPair(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"ProbabilitiesXY", func() error { _, err := p.ProbabilitiesXY(); return err }},
		{"ProbabilityXGivenY", func() error { _, err := p.ProbabilityXGivenY("a", 0); return err }},
		{"ProbabilityYGivenX", func() error { _, err := p.ProbabilityYGivenX(0, "a"); return err }},
		{"EntropyXGivenY", func() error { _, err := p.EntropyXGivenY(infotheory.Bits); return err }},
		{"EntropyYGivenX", func() error { _, err := p.EntropyYGivenX(infotheory.Bits); return err }},
		{"MutualInformationXY", func() error { _, err := p.MutualInformationXY(infotheory.Bits); return err }},
		{"VariationOfInformationXY", func() error { _, err := p.VariationOfInformationXY(infotheory.Bits); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrNoSamples)
		})
	}
}

func TestPair_ClearAndViews(t *testing.T) {
	p := symbolPair(t)
	require.NoError(t, p.Add("a", 0))
	require.NoError(t, p.Add("a", 0))

	px, err := p.ProbabilitiesX()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, px)

	p.Clear()
	_, err = p.ProbabilitiesX()
	assert.ErrorIs(t, err, ErrNoSamples)

	require.NoError(t, p.Add("b", 1))
	require.NoError(t, p.Add("b", 1))

	px, err = p.ProbabilitiesX()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, px)

	pxy, err := p.ProbabilitiesXY()
	require.NoError(t, err)
	assert.Equal(t, 1.0, pxy.At(1, 1))

	// Mutating the returned matrix must not leak into the tally.
	pxy.Set(1, 1, 0)
	again, err := p.ProbabilitiesXY()
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.At(1, 1))
}

func TestPair_MergeAndRestore(t *testing.T) {
	left := symbolPair(t)
	right := symbolPair(t)
	addAll(t, left, map[string]map[int]int{"a": {0: 3}})
	addAll(t, right, map[string]map[int]int{"b": {1: 2}, "a": {1: 1}})

	require.NoError(t, left.Merge(right))
	assert.Equal(t, [][]int64{{3, 1}, {0, 2}}, left.Counts())
	assert.Equal(t, int64(6), left.Samples())

	restored := symbolPair(t)
	require.NoError(t, restored.Restore(left.Counts()))
	assert.Equal(t, left.Samples(), restored.Samples())

	want, err := left.MutualInformationXY(infotheory.Bits)
	require.NoError(t, err)
	got, err := restored.MutualInformationXY(infotheory.Bits)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wide, err := NewPair(2, AlphabetBins([]string{"a", "b"}), 3, identity)
	require.NoError(t, err)
	assert.ErrorIs(t, left.Merge(wide), infotheory.ErrShapeMismatch)
	assert.ErrorIs(t, restored.Restore([][]int64{{1, 2, 3}, {4, 5, 6}}), infotheory.ErrShapeMismatch)
	assert.ErrorIs(t, restored.Restore([][]int64{{1, -2}, {0, 0}}), ErrNegativeCount)
}
