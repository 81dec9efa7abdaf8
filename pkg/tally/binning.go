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
	"math"
)

// =============================================================================
// Bin Functions
// =============================================================================

// RangeBins splits [lo, hi] into binCount bins.
//
// Description:
//
//	Values are clamped to [lo, hi] and mapped with
//
//	    bin(x) = int((x - lo) / (hi - lo) * (binCount - 1))
//
//	so only hi itself lands in the last bin. NaN maps to -1, as does
//	every value when hi <= lo, which makes Add reject them.
//
// Inputs:
//
//	binCount - Number of bins.
//	lo, hi - Inclusive range.
//
// Outputs:
//
//	BinFunc[float64] - The bin function.
func RangeBins(binCount int, lo, hi float64) BinFunc[float64] {
	width := hi - lo
	scale := float64(binCount - 1)
	return func(x float64) int {
		if math.IsNaN(x) || !(width > 0) {
			return -1
		}
		x = math.Max(lo, math.Min(hi, x))
		return int((x - lo) / width * scale)
	}
}

// AlphabetBins maps each symbol to its position in alphabet.
//
// A symbol listed twice keeps its first position. Symbols not in alphabet
// map to -1.
func AlphabetBins[T comparable](alphabet []T) BinFunc[T] {
	index := make(map[T]int, len(alphabet))
	for i, s := range alphabet {
		if _, ok := index[s]; !ok {
			index[s] = i
		}
	}
	return func(s T) int {
		if i, ok := index[s]; ok {
			return i
		}
		return -1
	}
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func checkRange(lo, hi float64) error {
	if !(hi > lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: range [%g, %g]", ErrInvalidShape, lo, hi)
	}
	return nil
}

// NewRange creates a Tally over [lo, hi] split into binCount bins.
func NewRange(binCount int, lo, hi float64) (*Tally[float64], error) {
	if err := checkRange(lo, hi); err != nil {
		return nil, err
	}
	return New(binCount, RangeBins(binCount, lo, hi))
}

// NewAlphabet creates a Tally with one bin per symbol.
func NewAlphabet[T comparable](alphabet []T) (*Tally[T], error) {
	return New(len(alphabet), AlphabetBins(alphabet))
}

// NewRangePair creates a Pair of two range-binned variables.
func NewRangePair(binCountX int, loX, hiX float64, binCountY int, loY, hiY float64) (*Pair[float64, float64], error) {
	if err := checkRange(loX, hiX); err != nil {
		return nil, err
	}
	if err := checkRange(loY, hiY); err != nil {
		return nil, err
	}
	return NewPair(binCountX, RangeBins(binCountX, loX, hiX), binCountY, RangeBins(binCountY, loY, hiY))
}

// NewAlphabetPair creates a Pair of two symbol variables.
func NewAlphabetPair[X, Y comparable](alphabetX []X, alphabetY []Y) (*Pair[X, Y], error) {
	return NewPair(len(alphabetX), AlphabetBins(alphabetX), len(alphabetY), AlphabetBins(alphabetY))
}

// NewRangeArray creates an Array of range-binned variables.
func NewRangeArray(binCount int, lo, hi float64) (*Array[float64], error) {
	if err := checkRange(lo, hi); err != nil {
		return nil, err
	}
	return NewArray(binCount, RangeBins(binCount, lo, hi))
}

// NewAlphabetArray creates an Array of symbol variables.
func NewAlphabetArray[T comparable](alphabet []T) (*Array[T], error) {
	return NewArray(len(alphabet), AlphabetBins(alphabet))
}

// NewRangeArrayPair creates an ArrayPair of range-binned variables.
func NewRangeArrayPair(binCountX int, loX, hiX float64, binCountY int, loY, hiY float64) (*ArrayPair[float64, float64], error) {
	if err := checkRange(loX, hiX); err != nil {
		return nil, err
	}
	if err := checkRange(loY, hiY); err != nil {
		return nil, err
	}
	return NewArrayPair(binCountX, RangeBins(binCountX, loX, hiX), binCountY, RangeBins(binCountY, loY, hiY))
}

// NewAlphabetArrayPair creates an ArrayPair of symbol variables.
func NewAlphabetArrayPair[X, Y comparable](alphabetX []X, alphabetY []Y) (*ArrayPair[X, Y], error) {
	return NewArrayPair(len(alphabetX), AlphabetBins(alphabetX), len(alphabetY), AlphabetBins(alphabetY))
}
