// Package mongo wires the history.Store interface to the MongoDB client.
package mongo

import (
	"context"
	"errors"

	clientsmongo "goa.design/voyage/features/history/mongo/clients/mongo"
	"goa.design/voyage/runtime/trip/history"
)

// Store implements history.Store by delegating to the Mongo client.
type Store struct {
	client clientsmongo.Client
}

// NewStore builds a Mongo-backed history store using the provided client.
func NewStore(client clientsmongo.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: client}, nil
}

// Append implements history.Store.
func (s *Store) Append(ctx context.Context, r *history.Record) error {
	return s.client.Append(ctx, r)
}

// List implements history.Store.
func (s *Store) List(ctx context.Context, sessionID string) ([]*history.Record, error) {
	return s.client.List(ctx, sessionID)
}
