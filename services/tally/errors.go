// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tally_service

import "errors"

// Sentinel errors for the tally service.
var (
	// ErrUnknownVariable indicates no variable or pair has the requested name.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrSnapshotNotFound indicates no stored snapshot has the requested id.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSnapshotsDisabled indicates the service was started without a store.
	ErrSnapshotsDisabled = errors.New("snapshots are not enabled")

	// ErrInvalidBasis indicates a basis query parameter that is not a valid
	// logarithm base.
	ErrInvalidBasis = errors.New("invalid basis")
)
