// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

// Package validators checks the shape of sync payloads before the protocol
// handler touches the ledger. A validation failure of one offline change is
// reported as a per-change error and never aborts the rest of a batch.
package validators

import "context"

// Validator defines a generic validation interface for arbitrary input
// values. Implementations may perform structural validation, semantic checks,
// and cross-field rules.
type Validator interface {

	// Validate validates the provided input and optionally restricts
	// validation to specific named fields.
	Validate(context.Context, any, ...string) error
}
