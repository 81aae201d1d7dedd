// Package inmem provides an in-memory implementation of history.Store.
//
// The in-memory store is intended for tests and local development. It is not
// durable and should not be used in production.
package inmem

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"goa.design/voyage/runtime/trip/history"
)

// Store implements history.Store in memory.
type Store struct {
	mu sync.Mutex
	// per-session monotonically increasing sequence.
	nextSeq map[string]int64
	// per-session ordered records.
	records map[string][]*history.Record
}

// New returns a new in-memory history store.
func New() *Store {
	return &Store{
		nextSeq: make(map[string]int64),
		records: make(map[string][]*history.Record),
	}
}

// Append implements history.Store.
func (s *Store) Append(_ context.Context, r *history.Record) error {
	if r == nil {
		return fmt.Errorf("record is required")
	}
	if r.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if r.Category == "" {
		return fmt.Errorf("category is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq[r.SessionID] + 1
	s.nextSeq[r.SessionID] = seq

	r.Seq = seq
	r.ID = strconv.FormatInt(seq, 10)
	rec := *r
	rec.Items = append(rec.Items[:0:0], r.Items...)
	s.records[r.SessionID] = append(s.records[r.SessionID], &rec)
	return nil
}

// List implements history.Store.
func (s *Store) List(_ context.Context, sessionID string) ([]*history.Record, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.records[sessionID]
	out := make([]*history.Record, len(all))
	for i, r := range all {
		rec := *r
		rec.Items = append(rec.Items[:0:0], r.Items...)
		out[i] = &rec
	}
	return out, nil
}
