// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package models

import (
	"fmt"
	"time"
)

// ConflictType classifies why a push could not be reconciled automatically.
type ConflictType string

const (
	// ConflictVersionMismatch: both replicas changed the same field(s)
	// starting from the same ancestor, or no ancestor was available.
	ConflictVersionMismatch ConflictType = "version_mismatch"

	// ConflictDuplicateCreate: a create targeted an id that already exists.
	ConflictDuplicateCreate ConflictType = "duplicate_create"

	// ConflictDeletedRemotely: an update targeted a record the server has
	// already tombstoned. Resolving with "local" resurrects the record.
	ConflictDeletedRemotely ConflictType = "deleted_remotely"
)

// Conflict is a detected divergence awaiting user arbitration. It carries
// both full payloads so the user can decide without another round-trip.
// A conflict blocks only its own record: the rest of the queue keeps syncing.
type Conflict struct {
	// ID is the composite conflict identifier, "<entity>:<entityID>".
	ID string `json:"id"`

	Entity   EntityType   `json:"entity"`
	EntityID string       `json:"entity_id"`
	Type     ConflictType `json:"type"`

	// ConflictingFields lists the business fields that diverged.
	ConflictingFields []string `json:"conflicting_fields"`

	// Local is the record as the pushing client last saw it.
	Local RecordPayload `json:"local"`

	// Server is the current ledger state at detection time.
	Server RecordPayload `json:"server"`

	LocalSyncVersion  int64 `json:"local_sync_version"`
	ServerSyncVersion int64 `json:"server_sync_version"`

	DetectedAt time.Time `json:"detected_at"`
}

// ConflictID builds the composite identifier for a conflict on the given
// record.
func ConflictID(entity EntityType, entityID string) string {
	return fmt.Sprintf("%s:%s", entity, entityID)
}

// Resolution selects which side of a conflict wins.
type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionServer Resolution = "server"
	ResolutionMerge  Resolution = "merge"
)

// Valid reports whether r names a known resolution strategy.
func (r Resolution) Valid() bool {
	return r == ResolutionLocal || r == ResolutionServer || r == ResolutionMerge
}

// ConflictResolution is one user decision submitted to
// POST /api/sync/resolve-conflicts. Merged must be set when Resolution is
// ResolutionMerge and is ignored otherwise.
type ConflictResolution struct {
	ConflictID string         `json:"conflict_id"`
	Resolution Resolution     `json:"resolution"`
	Merged     *RecordPayload `json:"merged_data,omitempty"`
}

// ResolveResponse is the body returned by the resolve endpoints.
type ResolveResponse struct {
	Resolved int `json:"resolved"`
}
