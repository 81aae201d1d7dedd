// Package redis provides a Redis-backed implementation of
// turn.CheckpointStore. Each session's TurnState is stored whole as a JSON
// document under a per-session key, so saves stay atomic at transition
// boundaries and sessions never couple.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/voyage/runtime/trip/turn"
)

type (
	// Client is the subset of redis.UniversalClient the store needs. Any
	// go-redis client satisfies it; tests substitute a fake.
	Client interface {
		Get(ctx context.Context, key string) *redis.StringCmd
		Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	}

	// Options configures the Redis checkpoint store.
	Options struct {
		// Client is the Redis connection. Required.
		Client Client
		// KeyPrefix namespaces checkpoint keys. Defaults to "voyage:checkpoint:".
		KeyPrefix string
		// TTL expires idle sessions. Zero keeps checkpoints forever.
		TTL time.Duration
	}

	// Store implements turn.CheckpointStore on Redis.
	Store struct {
		client Client
		prefix string
		ttl    time.Duration
	}
)

const defaultKeyPrefix = "voyage:checkpoint:"

// New builds a Redis-backed checkpoint store.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{client: opts.Client, prefix: prefix, ttl: opts.TTL}, nil
}

// Load implements turn.CheckpointStore. A missing key yields (nil, nil).
func (s *Store) Load(ctx context.Context, sessionID string) (*turn.TurnState, error) {
	if sessionID == "" {
		return nil, errors.New("session_id is required")
	}
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", sessionID, err)
	}
	var state turn.TurnState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save implements turn.CheckpointStore.
func (s *Store) Save(ctx context.Context, sessionID string, state *turn.TurnState) error {
	if sessionID == "" {
		return errors.New("session_id is required")
	}
	if state == nil {
		return errors.New("state is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}
