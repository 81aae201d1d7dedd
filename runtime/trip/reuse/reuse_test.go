package reuse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/history"
	"goa.design/voyage/runtime/trip/history/inmem"
	"goa.design/voyage/runtime/trip/plan"
)

func testPlan(dest string) plan.Plan {
	return plan.Plan{
		Origin:        "shanghai",
		Destination:   dest,
		DepartureDate: "2026-09-10",
		ReturnDate:    "2026-09-14",
		Adults:        2,
		TravelClass:   plan.ClassEconomy,
		Intent:        plan.IntentFull,
	}
}

func appendRecord(t *testing.T, store history.Store, eng *fingerprint.Engine, cat trip.Category, p plan.Plan, status history.Status, items ...trip.Item) *history.Record {
	t.Helper()
	key, err := eng.Key(cat, p)
	require.NoError(t, err)
	rec := &history.Record{
		SessionID:   "sess-1",
		Category:    cat,
		Fingerprint: key,
		Status:      status,
		Items:       items,
	}
	require.NoError(t, store.Append(context.Background(), rec))
	return rec
}

func TestResolveMatchesStoredFingerprint(t *testing.T) {
	t.Parallel()

	eng := fingerprint.New()
	store := inmem.New()
	p := testPlan("tokyo")
	appendRecord(t, store, eng, trip.CategoryFlights, p, history.StatusOK, trip.Item{Name: "NH 920"})

	rec, err := Resolve(context.Background(), eng, store, "sess-1", trip.CategoryFlights, p)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Reuse soundness: the stored fingerprint equals the freshly computed one.
	key, err := eng.Key(trip.CategoryFlights, p)
	require.NoError(t, err)
	require.Equal(t, key, rec.Fingerprint)
}

func TestResolveRejectsStaleRecords(t *testing.T) {
	t.Parallel()

	eng := fingerprint.New()
	store := inmem.New()
	appendRecord(t, store, eng, trip.CategoryFlights, testPlan("tokyo"), history.StatusOK, trip.Item{Name: "NH 920"})

	// The plan moved on; recency alone must not validate the old record.
	rec, err := Resolve(context.Background(), eng, store, "sess-1", trip.CategoryFlights, testPlan("osaka"))
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestResolvePrefersNewestMatch(t *testing.T) {
	t.Parallel()

	eng := fingerprint.New()
	store := inmem.New()
	p := testPlan("tokyo")
	appendRecord(t, store, eng, trip.CategoryFlights, p, history.StatusOK, trip.Item{Name: "old"})
	appendRecord(t, store, eng, trip.CategoryFlights, testPlan("osaka"), history.StatusOK, trip.Item{Name: "other"})
	newest := appendRecord(t, store, eng, trip.CategoryFlights, p, history.StatusOK, trip.Item{Name: "new"})

	rec, err := Resolve(context.Background(), eng, store, "sess-1", trip.CategoryFlights, p)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, newest.Seq, rec.Seq)
	require.Equal(t, "new", rec.Items[0].Name)
}

func TestResolveIgnoresOtherCategories(t *testing.T) {
	t.Parallel()

	eng := fingerprint.New()
	store := inmem.New()
	p := testPlan("tokyo")
	appendRecord(t, store, eng, trip.CategoryHotels, p, history.StatusOK, trip.Item{Name: "Hotel Okura"})

	rec, err := Resolve(context.Background(), eng, store, "sess-1", trip.CategoryFlights, p)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestResolveEmptyRecordIsReusable(t *testing.T) {
	t.Parallel()

	eng := fingerprint.New()
	store := inmem.New()
	p := testPlan("tokyo")
	appendRecord(t, store, eng, trip.CategoryActivities, p, history.StatusEmpty)

	rec, err := Resolve(context.Background(), eng, store, "sess-1", trip.CategoryActivities, p)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, history.StatusEmpty, rec.Status)
}
