// Package decide implements the diff planner: it compares the previous turn's
// plan against the current one and produces, per category, whether the
// category's tool must re-run and whether it will actually execute this turn.
package decide

import (
	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/plan"
)

// Decision is the per-category execution decision for one turn.
type Decision struct {
	// MustRerun is true when no prior plan exists or the category's
	// fingerprint changed since the previous turn.
	MustRerun bool
	// WillExecute is true when MustRerun holds and the current intent permits
	// the category. Only will-execute categories reach the coordinator; the
	// rest go through the reuse resolver.
	WillExecute bool
}

// Decisions computes the execution decision for every category. prev is nil
// on the first planning turn, which forces a full run of the permitted set.
// The decision is deterministic: submitting the same plans twice yields the
// same result.
func Decisions(eng *fingerprint.Engine, prev *plan.Plan, cur plan.Plan) (map[trip.Category]Decision, error) {
	out := make(map[trip.Category]Decision, len(trip.AllCategories()))
	for _, cat := range trip.AllCategories() {
		rerun := true
		if prev != nil {
			prevKey, err := eng.Key(cat, *prev)
			if err != nil {
				return nil, err
			}
			curKey, err := eng.Key(cat, cur)
			if err != nil {
				return nil, err
			}
			rerun = prevKey != curKey
		}
		out[cat] = Decision{
			MustRerun:   rerun,
			WillExecute: rerun && cur.Intent.Permits(cat),
		}
	}
	return out, nil
}

// ExecuteSet returns the categories that will execute this turn, in canonical
// order, so paced execution is deterministic.
func ExecuteSet(decisions map[trip.Category]Decision) []trip.Category {
	var set []trip.Category
	for _, cat := range trip.AllCategories() {
		if decisions[cat].WillExecute {
			set = append(set, cat)
		}
	}
	return set
}
