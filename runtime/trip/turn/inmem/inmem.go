// Package inmem provides an in-memory implementation of turn.CheckpointStore.
//
// The in-memory store is intended for tests and local development. It is not
// durable and should not be used in production.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/turn"
)

// Store implements turn.CheckpointStore in memory.
type Store struct {
	mu     sync.Mutex
	states map[string]*turn.TurnState
}

// New returns a new in-memory checkpoint store.
func New() *Store {
	return &Store{states: make(map[string]*turn.TurnState)}
}

// Load implements turn.CheckpointStore. Returns (nil, nil) when the session
// has no checkpoint.
func (s *Store) Load(_ context.Context, sessionID string) (*turn.TurnState, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}
	return clone(state), nil
}

// Save implements turn.CheckpointStore.
func (s *Store) Save(_ context.Context, sessionID string, state *turn.TurnState) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if state == nil {
		return fmt.Errorf("state is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[sessionID] = clone(state)
	return nil
}

// clone copies the state so callers and the store never alias mutable parts.
func clone(in *turn.TurnState) *turn.TurnState {
	out := *in
	out.Messages = append([]trip.Message(nil), in.Messages...)
	if in.Plan != nil {
		p := *in.Plan
		out.Plan = &p
	}
	if in.Profile != nil {
		prof := *in.Profile
		out.Profile = &prof
	}
	return &out
}
