package fingerprint

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/plan"
)

func basePlan() plan.Plan {
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

func TestKeyIgnoresIrrelevantFields(t *testing.T) {
	t.Parallel()

	eng := New()
	p1 := basePlan()
	p2 := basePlan()
	p2.TotalBudget = 9999
	p2.Intent = plan.IntentFlights

	for _, cat := range trip.AllCategories() {
		k1, err := eng.Key(cat, p1)
		require.NoError(t, err)
		k2, err := eng.Key(cat, p2)
		require.NoError(t, err)
		require.Equal(t, k1, k2, "budget/intent change must not move the %s fingerprint", cat)
	}

	// Origin is irrelevant to hotels and activities.
	p3 := basePlan()
	p3.Origin = "beijing"
	for _, cat := range []trip.Category{trip.CategoryHotels, trip.CategoryActivities} {
		k1, err := eng.Key(cat, p1)
		require.NoError(t, err)
		k3, err := eng.Key(cat, p3)
		require.NoError(t, err)
		require.Equal(t, k1, k3)
	}
}

func TestKeySensitivity(t *testing.T) {
	t.Parallel()

	eng := New()
	base := basePlan()

	cases := []struct {
		name   string
		mutate func(*plan.Plan)
		moved  []trip.Category
	}{
		{
			name:   "origin change moves flights only",
			mutate: func(p *plan.Plan) { p.Origin = "beijing" },
			moved:  []trip.Category{trip.CategoryFlights},
		},
		{
			name:   "destination change moves everything",
			mutate: func(p *plan.Plan) { p.Destination = "osaka" },
			moved:  trip.AllCategories(),
		},
		{
			name:   "return date change moves flights and hotels",
			mutate: func(p *plan.Plan) { p.ReturnDate = "2026-09-15" },
			moved:  []trip.Category{trip.CategoryFlights, trip.CategoryHotels},
		},
		{
			name:   "adults change moves flights and hotels",
			mutate: func(p *plan.Plan) { p.Adults = 3 },
			moved:  []trip.Category{trip.CategoryFlights, trip.CategoryHotels},
		},
		{
			name:   "class change moves flights only",
			mutate: func(p *plan.Plan) { p.TravelClass = plan.ClassBusiness },
			moved:  []trip.Category{trip.CategoryFlights},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mutated := base
			tc.mutate(&mutated)
			movedSet := make(map[trip.Category]bool, len(tc.moved))
			for _, cat := range tc.moved {
				movedSet[cat] = true
			}
			for _, cat := range trip.AllCategories() {
				k1, err := eng.Key(cat, base)
				require.NoError(t, err)
				k2, err := eng.Key(cat, mutated)
				require.NoError(t, err)
				if movedSet[cat] {
					require.NotEqual(t, k1, k2, "%s fingerprint must move", cat)
				} else {
					require.Equal(t, k1, k2, "%s fingerprint must not move", cat)
				}
			}
		})
	}
}

func TestKeyNormalizationInvariance(t *testing.T) {
	t.Parallel()

	eng := New()
	p1 := basePlan()
	p2 := basePlan()
	p2.Destination = "  TOKYO "
	p2.Origin = "Shanghai"

	for _, cat := range trip.AllCategories() {
		k1, err := eng.Key(cat, p1)
		require.NoError(t, err)
		k2, err := eng.Key(cat, p2)
		require.NoError(t, err)
		require.Equal(t, k1, k2)
	}
}

func TestKeyTableOrderIndependence(t *testing.T) {
	t.Parallel()

	reversed := Table{
		trip.CategoryFlights: {
			plan.FieldArrivalTimePref, plan.FieldDepartureTimePref,
			plan.FieldTravelClass, plan.FieldAdults, plan.FieldReturnDate,
			plan.FieldDepartureDate, plan.FieldDestination, plan.FieldOrigin,
		},
	}
	eng1 := New()
	eng2, err := NewWithTable(reversed)
	require.NoError(t, err)

	p := basePlan()
	k1, err := eng1.Key(trip.CategoryFlights, p)
	require.NoError(t, err)
	k2, err := eng2.Key(trip.CategoryFlights, p)
	require.NoError(t, err)
	require.Equal(t, k1, k2, "field declaration order must not change the fingerprint")
}

func TestKeyUnknownCategory(t *testing.T) {
	t.Parallel()

	eng := New()
	_, err := eng.Key("cruises", basePlan())
	require.Error(t, err)
}

func TestParseTable(t *testing.T) {
	t.Parallel()

	tbl, err := ParseTable([]byte("flights: [origin, destination]\nhotels: [destination]\n"))
	require.NoError(t, err)
	require.Equal(t, []plan.Field{plan.FieldOrigin, plan.FieldDestination}, tbl[trip.CategoryFlights])

	_, err = ParseTable([]byte("flights: [no_such_field]"))
	require.Error(t, err)

	_, err = ParseTable([]byte("flights: [origin\n"))
	require.Error(t, err)
}

func TestKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	eng := New()

	properties.Property("deterministic across calls", prop.ForAll(
		func(dest, origin string, adults int) bool {
			p := plan.Plan{Origin: origin, Destination: dest, Adults: adults%5 + 1}
			k1, err1 := eng.Key(trip.CategoryFlights, p)
			k2, err2 := eng.Key(trip.CategoryFlights, p)
			return err1 == nil && err2 == nil && k1 == k2
		},
		gen.AlphaString(), gen.AlphaString(), gen.Int(),
	))

	properties.Property("budget never moves any fingerprint", prop.ForAll(
		func(budget float64) bool {
			p1 := basePlan()
			p2 := basePlan()
			p2.TotalBudget = budget
			for _, cat := range trip.AllCategories() {
				k1, _ := eng.Key(cat, p1)
				k2, _ := eng.Key(cat, p2)
				if k1 != k2 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1e7),
	))

	properties.Property("activities depend on destination only", prop.ForAll(
		func(origin, dep string) bool {
			p1 := basePlan()
			p2 := basePlan()
			p2.Origin = origin
			p2.DepartureDate = dep
			k1, _ := eng.Key(trip.CategoryActivities, p1)
			k2, _ := eng.Key(trip.CategoryActivities, p2)
			return k1 == k2
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}
