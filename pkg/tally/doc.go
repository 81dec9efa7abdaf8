// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tally estimates discrete distributions from streamed samples.
//
// A tally maps each observed value to a bin through a caller supplied
// BinFunc, counts how often each bin is hit, and derives probabilities and
// information measures from those counts on demand. Raw samples are never
// stored.
//
// # Shapes
//
// Four containers cover the supported shapes:
//
//	Tally[T]         one variable            counts[bin]
//	Pair[X, Y]       two variables jointly   counts[binX][binY]
//	Array[T]         a batch of variables    counts[slot][bin]
//	ArrayPair[X, Y]  every pair of slots     counts[slotX][slotY][binX][binY]
//
// Every Add increments the sample counter by exactly one, including batched
// adds. For every container, each per-slot or per-slot-pair table sums to
// Samples().
//
// # Binning
//
// A BinFunc returns the bin index of a value. Values whose index falls
// outside [0, binCount) are rejected with a *BinError wrapping
// ErrOutOfRange, and the tally is left unchanged. RangeBins and
// AlphabetBins cover the common cases:
//
//	t, _ := tally.NewAlphabet([]string{"a", "b", "c"})
//	_ = t.Add("a")
//	_ = t.Add("b")
//	h, _ := t.Entropy(infotheory.Bits) // 1
//
// # Views
//
// Probability vectors and matrices are computed lazily and memoized until
// the next mutation. Accessors hand out copies, so callers may modify them
// freely. Reading any probability or information measure before the first
// sample returns ErrNoSamples.
//
// # Thread Safety
//
// Containers are not safe for concurrent use. Callers sharing a tally
// across goroutines must hold a lock across Add and every read, since reads
// populate the memoized views.
package tally
