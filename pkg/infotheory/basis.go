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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Basis is the logarithm base used to report entropy and information.
//
// The zero value is Nats. Any positive base other than 1 is accepted,
// integer or real.
type Basis float64

const (
	// Nats reports results with the natural logarithm.
	Nats Basis = 0

	// Bits reports results in base 2.
	Bits Basis = 2

	// Bans reports results in base 10 (also called hartleys).
	Bans Basis = 10
)

// BinBasis returns the basis equal to a bin count.
//
// Entropy of a distribution over n bins measured in BinBasis(n) lies in
// [0, 1], reaching 1 for the uniform distribution.
func BinBasis(n int) Basis {
	return Basis(n)
}

// Valid reports whether b can be used as a logarithm base.
//
// Nats is always valid. Otherwise b must be finite, positive and not 1.
func (b Basis) Valid() bool {
	if b == Nats {
		return true
	}
	f := float64(b)
	return f > 0 && f != 1 && !math.IsInf(f, 0)
}

// String returns "nats", "bits", "bans" or "base-<b>".
func (b Basis) String() string {
	switch b {
	case Nats:
		return "nats"
	case Bits:
		return "bits"
	case Bans:
		return "bans"
	default:
		return "base-" + strconv.FormatFloat(float64(b), 'g', -1, 64)
	}
}

// ParseBasis reads a basis from its name or its numeric base.
//
// Accepts "nats" (or "e", or ""), "bits", "bans", and any number that
// forms a Valid basis, such as "2" or "1.5".
func ParseBasis(s string) (Basis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nats", "nat", "e":
		return Nats, nil
	case "bits", "bit":
		return Bits, nil
	case "bans", "ban", "hartleys":
		return Bans, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("unknown basis %q", s)
	}
	if f == math.E {
		return Nats, nil
	}
	b := Basis(f)
	if b == Nats || !b.Valid() {
		return 0, fmt.Errorf("invalid basis %q: must be positive, finite and not 1", s)
	}
	return b, nil
}

// scale converts a value measured in nats into this basis.
//
// An invalid basis yields NaN.
func (b Basis) scale(nats float64) float64 {
	if b == Nats {
		return nats
	}
	if !b.Valid() {
		return math.NaN()
	}
	return nats / math.Log(float64(b))
}
