// Package turn implements the per-session state machine and the turn runner.
//
// A turn is one caller invocation: load the session checkpoint, interpret the
// user message, either ask for what is missing or execute the changed tool
// categories, synthesize the answer and checkpoint the new state. The machine
// is deliberately re-entrant: a turn can end while waiting for user input and
// the next invocation re-derives everything from the checkpointed state.
// Callers must serialize turns per session; the runner assumes a single
// writer per session id.
package turn

import (
	"context"
	"fmt"
	"time"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/plan"
)

type (
	// Status is the session's position in the planning lifecycle.
	Status string

	// Event is an input to the pure transition function.
	Event string

	// Profile is the externally collected traveler prerequisite data. The
	// orchestrator only checks presence; collection happens outside.
	Profile struct {
		// Name is the traveler's display name.
		Name string `json:"name,omitempty"`
		// Email receives the itinerary.
		Email string `json:"email,omitempty"`
		// BudgetClass is the externally assessed spending tier.
		BudgetClass string `json:"budget_class,omitempty"`
	}

	// TurnState is the checkpointed session state. It is persisted whole at
	// each atomic transition boundary; no partial transition is ever saved.
	TurnState struct {
		// SessionID identifies the session.
		SessionID string `json:"session_id"`
		// Plan is the current structured travel request. Nil before the first
		// successful extraction.
		Plan *plan.Plan `json:"plan,omitempty"`
		// Messages is the running conversation transcript.
		Messages []trip.Message `json:"messages,omitempty"`
		// Status is the lifecycle position after the last completed turn.
		Status Status `json:"status"`
		// Profile is the traveler prerequisite data, nil until collected.
		Profile *Profile `json:"profile,omitempty"`
		// OriginalRequest preserves the first substantive user message.
		OriginalRequest string `json:"original_request,omitempty"`
		// ProfileJustCollected marks the turn on which the profile first
		// became available, so the response can acknowledge it once.
		ProfileJustCollected bool `json:"profile_just_collected,omitempty"`
		// UpdatedAt is the last checkpoint time.
		UpdatedAt time.Time `json:"updated_at"`
	}

	// CheckpointStore persists TurnState per session.
	//
	// Load returns (nil, nil) when no checkpoint exists. Store failures are
	// the one error class a turn propagates to the caller: without state no
	// safe orchestration decision can be made.
	CheckpointStore interface {
		Load(ctx context.Context, sessionID string) (*TurnState, error)
		Save(ctx context.Context, sessionID string, state *TurnState) error
	}
)

const (
	// StatusCollectingProfile means the traveler prerequisite data is absent;
	// the session waits on external profile collection.
	StatusCollectingProfile Status = "collecting-profile"
	// StatusCollectingFields means a required plan field is missing; the
	// session waits on the user's answer to an explicit ask.
	StatusCollectingFields Status = "collecting-fields"
	// StatusExecuting means the turn is running tool categories.
	StatusExecuting Status = "executing"
	// StatusSynthesizing means results are complete and the answer is being
	// composed.
	StatusSynthesizing Status = "synthesizing"
	// StatusComplete means the last turn produced a full answer.
	StatusComplete Status = "complete"
)

const (
	// EventMessage is a new user message arriving on the session.
	EventMessage Event = "message"
	// EventProfileMissing fires when the prerequisite profile is absent.
	EventProfileMissing Event = "profile-missing"
	// EventFieldsMissing fires when a required plan field gate fails.
	EventFieldsMissing Event = "fields-missing"
	// EventFieldsComplete fires when all gates pass and execution may start.
	EventFieldsComplete Event = "fields-complete"
	// EventResultsReady fires when every category has a final outcome.
	EventResultsReady Event = "results-ready"
	// EventResponseReady fires when synthesis produced the answer.
	EventResponseReady Event = "response-ready"
)

// Next is the pure transition function. Interpretation events (message,
// profile-missing, fields-missing, fields-complete) are legal from any
// status: a new message always re-enters interpretation, including after a
// crash that left the checkpoint mid-pipeline, since resumption re-derives
// everything from state. Pipeline events only follow their predecessor. An
// illegal move returns an error naming both sides; the runner treats that as
// a bug, not a user condition.
func Next(s Status, ev Event) (Status, error) {
	switch ev {
	case EventMessage:
		return s, nil
	case EventProfileMissing:
		return StatusCollectingProfile, nil
	case EventFieldsMissing:
		return StatusCollectingFields, nil
	case EventFieldsComplete:
		return StatusExecuting, nil
	case EventResultsReady:
		if s != StatusExecuting {
			break
		}
		return StatusSynthesizing, nil
	case EventResponseReady:
		if s != StatusSynthesizing {
			break
		}
		return StatusComplete, nil
	}
	return s, fmt.Errorf("illegal transition: %s on %s", ev, s)
}
