// Package history provides the durable, append-only result log for sessions.
//
// The history is the canonical record of every tool invocation outcome. Each
// record stores the fingerprint in force when the call was made; the reuse
// resolver compares that stored fingerprint against a freshly computed one
// rather than trusting recency. Records are never mutated or overwritten:
// multiple records per category may coexist, most recent last.
package history

import (
	"context"
	"time"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
)

type (
	// Status classifies a tool invocation outcome.
	Status string

	// Record is one tool invocation's outcome, appended to a session's
	// ordered history.
	Record struct {
		// ID is the store-assigned opaque identifier.
		ID string
		// SessionID identifies the session the record belongs to.
		SessionID string
		// Category is the tool category that produced the record.
		Category trip.Category
		// Fingerprint is the category fingerprint at the time of the call.
		// Reuse validity is proven against this value, never against recency.
		Fingerprint fingerprint.Fingerprint
		// Status is the three-way outcome classification.
		Status Status
		// Items is the result payload. Present only for StatusOK; an error
		// record never carries fabricated items.
		Items []trip.Item
		// ErrorDetail is the human-readable failure description. Present only
		// for StatusError.
		ErrorDetail string
		// Seq is the store-assigned, per-session monotonically increasing
		// sequence position.
		Seq int64
		// CreatedAt is the record creation time.
		CreatedAt time.Time
	}

	// Store is the append-only record store.
	//
	// Implementations assign ID and Seq on append and must preserve per-session
	// insertion order on list. Append must be durable: failures are surfaced to
	// callers so a turn can fail fast when its history cannot be recorded.
	Store interface {
		// Append persists the record and assigns its ID and Seq.
		Append(ctx context.Context, r *Record) error
		// List returns all records for the session, oldest first.
		List(ctx context.Context, sessionID string) ([]*Record, error)
	}
)

const (
	// StatusOK means the call succeeded and returned at least one item.
	StatusOK Status = "ok"
	// StatusEmpty means the call succeeded with zero items. This is a
	// legitimate business outcome (no inventory), not a failure, and must be
	// distinguishable from StatusError downstream.
	StatusEmpty Status = "empty"
	// StatusError means the call failed after exhausting retries.
	StatusError Status = "error"
)
