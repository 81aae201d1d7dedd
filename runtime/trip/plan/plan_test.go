package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/voyage/runtime/trip"
)

func TestNormalizePlace(t *testing.T) {
	t.Parallel()

	require.Equal(t, "tokyo", NormalizePlace("  TOKYO "))
	require.Equal(t, "new york", NormalizePlace("New   York"))
	require.Equal(t, "", NormalizePlace("   "))
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-09-10", "2026-09-10", true},
		{"2026-9-1", "2026-09-01", true},
		{"2026/09/10", "2026-09-10", true},
		{"Sep 10, 2026", "2026-09-10", true},
		{"10 Sep 2026", "2026-09-10", true},
		{"", "", true},
		{"next friday", "", false},
		{"2026-13-40", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeDate(tc.in)
		if tc.ok {
			require.NoError(t, err, "input %q", tc.in)
			require.Equal(t, tc.want, got)
		} else {
			require.Error(t, err, "input %q", tc.in)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	var p Plan
	p.Normalize()
	require.Equal(t, ClassEconomy, p.TravelClass)
	require.Equal(t, 1, p.Adults)
	require.Equal(t, IntentFull, p.Intent)
}

func TestIntentRules(t *testing.T) {
	t.Parallel()

	require.True(t, IntentFull.RequiresDates())
	require.True(t, IntentFlights.RequiresDates())
	require.True(t, IntentHotels.RequiresDates())
	require.False(t, IntentActivities.RequiresDates())

	require.True(t, IntentFull.RequiresOrigin())
	require.True(t, IntentFlights.RequiresOrigin())
	require.False(t, IntentHotels.RequiresOrigin())
	require.False(t, IntentActivities.RequiresOrigin())

	require.Equal(t, trip.AllCategories(), IntentFull.Categories())
	require.Equal(t, []trip.Category{trip.CategoryHotels}, IntentHotels.Categories())
	require.True(t, IntentFull.Permits(trip.CategoryActivities))
	require.False(t, IntentFlights.Permits(trip.CategoryHotels))

	require.False(t, Intent("cruise").Valid())
}

func TestChangedFields(t *testing.T) {
	t.Parallel()

	prev := Plan{Destination: "tokyo", Adults: 2, TotalBudget: 1000}
	cur := Plan{Destination: "osaka", Adults: 2, TotalBudget: 2000}

	changed := ChangedFields(prev, cur)
	require.True(t, changed.Contains(FieldDestination))
	require.True(t, changed.Contains(FieldTotalBudget))
	require.False(t, changed.Contains(FieldAdults))
	require.False(t, changed.Contains(FieldOrigin))

	// Presentation differences are not changes.
	require.Empty(t, ChangedFields(Plan{Destination: "tokyo"}, Plan{Destination: " Tokyo "}))
}
