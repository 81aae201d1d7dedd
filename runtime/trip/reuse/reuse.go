// Package reuse implements the reuse resolver: when a category is not re-run
// this turn, it scans the session history newest-first and returns the first
// record whose stored fingerprint matches the fingerprint freshly computed
// for the current plan. No match means the category has no available result;
// callers must treat that as "unavailable", never as "empty".
package reuse

import (
	"context"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/history"
	"goa.design/voyage/runtime/trip/plan"
)

// Resolve returns the most recent history record for the category whose
// stored fingerprint equals the fingerprint computed from the current plan,
// or nil when no record proves valid. The comparison is always against the
// record's fingerprint-at-time-of-call; recency alone is never trusted.
func Resolve(ctx context.Context, eng *fingerprint.Engine, store history.Store, sessionID string, cat trip.Category, p plan.Plan) (*history.Record, error) {
	current, err := eng.Key(cat, p)
	if err != nil {
		return nil, err
	}
	records, err := store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Category != cat {
			continue
		}
		if r.Fingerprint == current {
			return r, nil
		}
	}
	return nil, nil
}
