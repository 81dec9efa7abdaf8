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
	"gonum.org/v1/gonum/mat"
)

// memo holds a view computed at a given mutation generation.
//
// Containers bump their generation on every mutation. A memo whose
// generation differs from the container's is stale and is recomputed on the
// next get.
type memo[V any] struct {
	gen   uint64
	valid bool
	val   V
}

func (m *memo[V]) get(gen uint64, compute func() V) V {
	if !m.valid || m.gen != gen {
		m.val = compute()
		m.gen = gen
		m.valid = true
	}
	return m.val
}

// =============================================================================
// View Computations
// =============================================================================

// normalizeCounts divides counts by samples.
func normalizeCounts(counts []int64, samples int64) []float64 {
	p := make([]float64, len(counts))
	n := float64(samples)
	for i, c := range counts {
		p[i] = float64(c) / n
	}
	return p
}

// jointView divides a row-major rows x cols count table by samples.
func jointView(counts []int64, rows, cols int, samples int64) *mat.Dense {
	return mat.NewDense(rows, cols, normalizeCounts(counts[:rows*cols], samples))
}

// rowMarginal returns the probability of each row of a row-major count table.
func rowMarginal(counts []int64, rows, cols int, samples int64) []float64 {
	sums := make([]int64, rows)
	for i := 0; i < rows; i++ {
		for _, c := range counts[i*cols : (i+1)*cols] {
			sums[i] += c
		}
	}
	return normalizeCounts(sums, samples)
}

// colMarginal returns the probability of each column of a row-major count table.
func colMarginal(counts []int64, rows, cols int, samples int64) []float64 {
	sums := make([]int64, cols)
	for i := 0; i < rows; i++ {
		for j, c := range counts[i*cols : (i+1)*cols] {
			sums[j] += c
		}
	}
	return normalizeCounts(sums, samples)
}

func cloneMatrix(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
