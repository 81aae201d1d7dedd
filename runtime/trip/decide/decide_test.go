package decide

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/plan"
)

func fullPlan() plan.Plan {
	return plan.Plan{
		Origin:        "shanghai",
		Destination:   "tokyo",
		DepartureDate: "2026-09-10",
		ReturnDate:    "2026-09-14",
		Adults:        2,
		TravelClass:   plan.ClassEconomy,
		TotalBudget:   3000,
		Intent:        plan.IntentFull,
	}
}

func TestDecisionsFirstTurnRunsEverything(t *testing.T) {
	t.Parallel()

	decisions, err := Decisions(fingerprint.New(), nil, fullPlan())
	require.NoError(t, err)
	for _, cat := range trip.AllCategories() {
		require.True(t, decisions[cat].MustRerun)
		require.True(t, decisions[cat].WillExecute)
	}
	require.Equal(t, trip.AllCategories(), ExecuteSet(decisions))
}

func TestDecisionsBudgetOnlyChangeRunsNothing(t *testing.T) {
	t.Parallel()

	prev := fullPlan()
	cur := fullPlan()
	cur.TotalBudget = 99999

	decisions, err := Decisions(fingerprint.New(), &prev, cur)
	require.NoError(t, err)
	for _, cat := range trip.AllCategories() {
		require.False(t, decisions[cat].MustRerun, "%s must not rerun on a budget-only change", cat)
		require.False(t, decisions[cat].WillExecute)
	}
	require.Empty(t, ExecuteSet(decisions))
}

func TestDecisionsPartialChange(t *testing.T) {
	t.Parallel()

	prev := fullPlan()
	cur := fullPlan()
	cur.Adults = 3 // flight- and hotel-relevant, not activity-relevant

	decisions, err := Decisions(fingerprint.New(), &prev, cur)
	require.NoError(t, err)
	require.True(t, decisions[trip.CategoryFlights].WillExecute)
	require.True(t, decisions[trip.CategoryHotels].WillExecute)
	require.False(t, decisions[trip.CategoryActivities].WillExecute)
	require.Equal(t, []trip.Category{trip.CategoryFlights, trip.CategoryHotels}, ExecuteSet(decisions))
}

func TestDecisionsIntentLimitsExecution(t *testing.T) {
	t.Parallel()

	cur := fullPlan()
	cur.Intent = plan.IntentHotels

	decisions, err := Decisions(fingerprint.New(), nil, cur)
	require.NoError(t, err)
	require.True(t, decisions[trip.CategoryFlights].MustRerun)
	require.False(t, decisions[trip.CategoryFlights].WillExecute, "intent gates execution, not rerun detection")
	require.True(t, decisions[trip.CategoryHotels].WillExecute)
	require.Equal(t, []trip.Category{trip.CategoryHotels}, ExecuteSet(decisions))
}

func TestDecisionsIdempotent(t *testing.T) {
	t.Parallel()

	prev := fullPlan()
	cur := fullPlan()
	cur.Destination = "osaka"

	eng := fingerprint.New()
	first, err := Decisions(eng, &prev, cur)
	require.NoError(t, err)
	second, err := Decisions(eng, &prev, cur)
	require.NoError(t, err)
	require.Equal(t, first, second, "the same submission must decide the same way every time")
}
