package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/plan"
	"goa.design/voyage/runtime/trip/turn"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	lastKey string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.lastKey = key
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.lastKey = key
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestNewRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)
}

func TestLoadAbsentSession(t *testing.T) {
	t.Parallel()

	s, err := New(Options{Client: newFakeRedis()})
	require.NoError(t, err)

	state, err := s.Load(context.Background(), "unknown")
	require.NoError(t, err)
	require.Nil(t, state, "a missing checkpoint is not an error")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	s, err := New(Options{Client: fake, TTL: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	in := &turn.TurnState{
		SessionID: "sess-1",
		Plan:      &plan.Plan{Destination: "tokyo", Intent: plan.IntentFull},
		Messages:  []trip.Message{{Role: trip.RoleUser, Content: "plan a trip to tokyo"}},
		Status:    turn.StatusCollectingFields,
	}
	require.NoError(t, s.Save(ctx, "sess-1", in))
	require.Equal(t, "voyage:checkpoint:sess-1", fake.lastKey)
	require.Equal(t, time.Hour, fake.ttls["voyage:checkpoint:sess-1"])

	out, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestCustomKeyPrefix(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	s, err := New(Options{Client: fake, KeyPrefix: "trips:"})
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "sess-1", &turn.TurnState{SessionID: "sess-1"}))
	require.Equal(t, "trips:sess-1", fake.lastKey)
}

func TestErrorsPropagate(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	s, err := New(Options{Client: fake})
	require.NoError(t, err)
	ctx := context.Background()

	fake.getErr = errors.New("connection reset")
	_, err = s.Load(ctx, "sess-1")
	require.ErrorContains(t, err, "connection reset")

	fake.setErr = errors.New("readonly replica")
	require.ErrorContains(t, s.Save(ctx, "sess-1", &turn.TurnState{}), "readonly replica")
}

func TestValidation(t *testing.T) {
	t.Parallel()

	s, err := New(Options{Client: newFakeRedis()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "")
	require.Error(t, err)
	require.Error(t, s.Save(ctx, "", &turn.TurnState{}))
	require.Error(t, s.Save(ctx, "sess-1", nil))
}

func TestLoadRejectsCorruptPayload(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.values["voyage:checkpoint:sess-1"] = "{not json"
	s, err := New(Options{Client: fake})
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "sess-1")
	require.ErrorContains(t, err, "decode checkpoint")
}
