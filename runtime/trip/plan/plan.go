// Package plan defines the travel plan model: the mutable task specification
// for one session. A Plan carries the scalar request parameters (origin,
// destination, dates, party size, cabin class, budget) plus the declared
// intent that scopes which tool categories may execute.
//
// The plan is a statically typed record. The per-category relevant-field
// mapping lives in the fingerprint package as an explicit table; this package
// owns field identity, normalization, the intent-switch hygiene rules, and
// the date gate.
package plan

import (
	"fmt"
	"strings"
	"time"

	"goa.design/voyage/runtime/trip"
)

type (
	// Plan is the structured travel request for one session. All textual
	// fields are stored normalized (see Normalize); dates use the canonical
	// YYYY-MM-DD form.
	Plan struct {
		// Origin is the departure city or airport. Required only when the
		// intent includes flights.
		Origin string `json:"origin,omitempty"`
		// Destination is the trip destination city or airport.
		Destination string `json:"destination,omitempty"`
		// DepartureDate and ReturnDate are canonical YYYY-MM-DD dates.
		DepartureDate string `json:"departure_date,omitempty"`
		ReturnDate    string `json:"return_date,omitempty"`
		// DurationDays is the trip length in days. Derived from the dates when
		// both are present; used to derive a missing date otherwise.
		DurationDays int `json:"duration_days,omitempty"`
		// Adults is the number of adult travelers. Defaults to 1.
		Adults int `json:"adults,omitempty"`
		// TravelClass is the requested cabin class.
		TravelClass Class `json:"travel_class,omitempty"`
		// DepartureTimePref and ArrivalTimePref are free-form time preferences.
		DepartureTimePref string `json:"departure_time_pref,omitempty"`
		ArrivalTimePref   string `json:"arrival_time_pref,omitempty"`
		// TotalBudget is the budget ceiling in USD. Zero means unknown.
		// Budget never participates in fingerprints: a budget-only change
		// must not re-run any tool.
		TotalBudget float64 `json:"total_budget,omitempty"`
		// Intent scopes which categories are eligible to execute this turn.
		Intent Intent `json:"intent,omitempty"`
	}

	// Intent is the user-declared scope restricting which tool categories are
	// eligible to execute.
	Intent string

	// Class is a cabin class identifier.
	Class string

	// Field names one Plan field. Fields are the unit of diffing, of the
	// fingerprint relevant-field tables, and of the intent-switch clear rules.
	Field string

	// FieldSet is a set of plan fields.
	FieldSet map[Field]struct{}

	// MissingFieldError reports that a required plan field is absent or
	// inconsistent. It carries the exact user-facing question to ask. It is
	// a normal collecting-fields outcome, not a turn failure.
	MissingFieldError struct {
		// Field is the missing or inconsistent field.
		Field Field
		// Ask is the question to present to the user.
		Ask string
	}
)

const (
	// IntentFull requests a complete plan: flights, hotels and activities.
	IntentFull Intent = "full"
	// IntentFlights restricts execution to flight search.
	IntentFlights Intent = "flights"
	// IntentHotels restricts execution to hotel search.
	IntentHotels Intent = "hotels"
	// IntentActivities restricts execution to activity search.
	IntentActivities Intent = "activities"

	// ClassEconomy is the default cabin class.
	ClassEconomy        Class = "ECONOMY"
	ClassPremiumEconomy Class = "PREMIUM_ECONOMY"
	ClassBusiness       Class = "BUSINESS"
	ClassFirst          Class = "FIRST"
)

// Plan field identifiers.
const (
	FieldOrigin            Field = "origin"
	FieldDestination       Field = "destination"
	FieldDepartureDate     Field = "departure_date"
	FieldReturnDate        Field = "return_date"
	FieldDurationDays      Field = "duration_days"
	FieldAdults            Field = "adults"
	FieldTravelClass       Field = "travel_class"
	FieldDepartureTimePref Field = "departure_time_pref"
	FieldArrivalTimePref   Field = "arrival_time_pref"
	FieldTotalBudget       Field = "total_budget"
	FieldIntent            Field = "intent"
)

// DateLayout is the canonical calendar form for plan dates.
const DateLayout = "2006-01-02"

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing plan field %s", e.Field)
}

// Valid reports whether the intent is one of the declared values.
func (i Intent) Valid() bool {
	switch i {
	case IntentFull, IntentFlights, IntentHotels, IntentActivities:
		return true
	}
	return false
}

// Categories returns the tool categories the intent permits, in canonical
// execution order.
func (i Intent) Categories() []trip.Category {
	switch i {
	case IntentFlights:
		return []trip.Category{trip.CategoryFlights}
	case IntentHotels:
		return []trip.Category{trip.CategoryHotels}
	case IntentActivities:
		return []trip.Category{trip.CategoryActivities}
	default:
		return trip.AllCategories()
	}
}

// Permits reports whether the intent allows the given category to execute.
func (i Intent) Permits(cat trip.Category) bool {
	for _, c := range i.Categories() {
		if c == cat {
			return true
		}
	}
	return false
}

// RequiresDates reports whether the intent needs travel dates before any tool
// can run. A pure activities request only needs a destination.
func (i Intent) RequiresDates() bool {
	return i != IntentActivities
}

// RequiresOrigin reports whether the intent needs a departure location.
func (i Intent) RequiresOrigin() bool {
	return i == IntentFull || i == IntentFlights
}

// NormalizePlace canonicalizes a textual place identifier: trimmed,
// lowercased, inner whitespace collapsed. Fingerprints depend on this being
// applied before hashing so presentation differences never force re-runs.
func NormalizePlace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// NormalizeDate canonicalizes a date representation to YYYY-MM-DD. It accepts
// the canonical layout plus a few common variants. Returns an error when the
// value cannot be interpreted as a calendar date.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range []string{DateLayout, "2006-1-2", "2006/01/02", "2006/1/2", "Jan 2, 2006", "January 2, 2006", "2 Jan 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q, expected YYYY-MM-DD", s)
}

// Normalize canonicalizes the plan in place: place names, cabin class and
// defaults. It does not validate completeness; the date gate does that.
func (p *Plan) Normalize() {
	p.Origin = NormalizePlace(p.Origin)
	p.Destination = NormalizePlace(p.Destination)
	p.TravelClass = Class(strings.ToUpper(strings.TrimSpace(string(p.TravelClass))))
	if p.TravelClass == "" {
		p.TravelClass = ClassEconomy
	}
	if p.Adults <= 0 {
		p.Adults = 1
	}
	if !p.Intent.Valid() {
		p.Intent = IntentFull
	}
}

// Value returns the normalized string form of the given field, suitable for
// diffing and fingerprint tuples. Unknown fields yield the empty string.
func (p Plan) Value(f Field) string {
	switch f {
	case FieldOrigin:
		return NormalizePlace(p.Origin)
	case FieldDestination:
		return NormalizePlace(p.Destination)
	case FieldDepartureDate:
		return p.DepartureDate
	case FieldReturnDate:
		return p.ReturnDate
	case FieldDurationDays:
		if p.DurationDays == 0 {
			return ""
		}
		return fmt.Sprintf("%d", p.DurationDays)
	case FieldAdults:
		return fmt.Sprintf("%d", p.Adults)
	case FieldTravelClass:
		return string(p.TravelClass)
	case FieldDepartureTimePref:
		return strings.TrimSpace(p.DepartureTimePref)
	case FieldArrivalTimePref:
		return strings.TrimSpace(p.ArrivalTimePref)
	case FieldTotalBudget:
		if p.TotalBudget == 0 {
			return ""
		}
		return fmt.Sprintf("%.2f", p.TotalBudget)
	case FieldIntent:
		return string(p.Intent)
	}
	return ""
}

// AllFields returns every plan field in declaration order.
func AllFields() []Field {
	return []Field{
		FieldOrigin, FieldDestination, FieldDepartureDate, FieldReturnDate,
		FieldDurationDays, FieldAdults, FieldTravelClass,
		FieldDepartureTimePref, FieldArrivalTimePref, FieldTotalBudget,
		FieldIntent,
	}
}

// ChangedFields returns the set of fields whose normalized values differ
// between the two plans.
func ChangedFields(prev, cur Plan) FieldSet {
	changed := make(FieldSet)
	for _, f := range AllFields() {
		if prev.Value(f) != cur.Value(f) {
			changed[f] = struct{}{}
		}
	}
	return changed
}

// Contains reports set membership.
func (s FieldSet) Contains(f Field) bool {
	_, ok := s[f]
	return ok
}
