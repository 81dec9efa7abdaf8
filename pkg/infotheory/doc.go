// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package infotheory provides pure functions over discrete probability
// distributions: entropy, joint and conditional entropy, mutual information,
// variation of information, relative entropy, marginals and conditional
// probability tables.
//
// Representation:
//
//	A distribution over one variable is a []float64 whose entries are
//	non-negative and sum to 1. A joint distribution over two variables is a
//	gonum mat.Matrix indexed [x][y]. Functions never renormalize their
//	input; pass valid distributions or use Normalize first.
//
// Logarithm Basis:
//
//	Every entropy-family function takes a Basis. Nats (the zero value) uses
//	the natural logarithm. Any other basis b divides the natural-log result
//	by ln(b):
//
//	┌──────────────┬───────────────────────────────────────────────┐
//	│  Nats        │ natural log, default                          │
//	│  Bits        │ base 2                                        │
//	│  Bans        │ base 10                                       │
//	│  BinBasis(n) │ base n, "balanced n-ary digits" (max = 1)     │
//	└──────────────┴───────────────────────────────────────────────┘
//
// Zero Handling:
//
//	Terms with zero probability contribute nothing (0 * ln 0 = 0). Conditional
//	entropies also skip terms whose conditioning marginal is zero.
//
// Identities:
//
//	For any valid joint distribution, up to floating point tolerance:
//
//	  H(X|Y) = H(X,Y) - H(Y)
//	  H(Y|X) = H(X,Y) - H(X)
//	  I(X;Y) = H(X) + H(Y) - H(X,Y)
//
// Thread Safety:
//
//	All functions are stateless. Functions that mutate (Normalize,
//	NormalizeJoint) only touch their argument.
package infotheory
