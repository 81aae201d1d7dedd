// Package fingerprint computes stable per-category identifiers ("tool keys")
// from the subset of plan fields that affect a category's tool call. Two
// equal fingerprints prove the side-effect-free inputs of a call are
// identical, so a prior result remains valid for reuse.
//
// The relevant-field mapping is an explicit table rather than an implicit
// convention: the default table is declared in this package and can be
// overridden from YAML configuration for review and testing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/plan"
)

type (
	// Fingerprint is an opaque comparable token derived from a category's
	// relevant plan fields. Fingerprints are stable across turns: they never
	// incorporate wall-clock time, request identifiers or field order.
	Fingerprint string

	// Table maps each category to the plan fields that affect its tool call.
	// Fields absent from a category's list never influence its fingerprint;
	// in particular the budget is excluded everywhere so a budget-only change
	// re-runs nothing.
	Table map[trip.Category][]plan.Field

	// Engine computes fingerprints against a fixed table. The zero value is
	// not usable; construct with New or NewWithTable.
	Engine struct {
		table Table
	}
)

// tripShape is the fixed trip-shape token hashed into flight fingerprints.
// Product policy forces round trips, so the token is constant; it is kept in
// the tuple so a future one-way policy changes the fingerprint rather than
// silently reusing round-trip results.
const tripShape = "round_trip"

// DefaultTable returns the declared per-category relevant-field table.
func DefaultTable() Table {
	return Table{
		trip.CategoryFlights: {
			plan.FieldOrigin, plan.FieldDestination, plan.FieldDepartureDate,
			plan.FieldReturnDate, plan.FieldAdults, plan.FieldTravelClass,
			plan.FieldDepartureTimePref, plan.FieldArrivalTimePref,
		},
		trip.CategoryHotels: {
			plan.FieldDestination, plan.FieldDepartureDate,
			plan.FieldReturnDate, plan.FieldAdults,
		},
		trip.CategoryActivities: {
			plan.FieldDestination,
		},
	}
}

// New returns an engine using the default table.
func New() *Engine {
	return &Engine{table: DefaultTable()}
}

// NewWithTable returns an engine using the provided table. The table must
// cover every category it will be asked about.
func NewWithTable(t Table) (*Engine, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("fingerprint table is required")
	}
	for cat, fields := range t {
		if len(fields) == 0 {
			return nil, fmt.Errorf("fingerprint table for %s is empty", cat)
		}
	}
	return &Engine{table: t}, nil
}

// ParseTable decodes a YAML relevant-field table of the form:
//
//	flights: [origin, destination, departure_date, ...]
//	hotels: [destination, departure_date, return_date, adults]
//
// Unknown field names are rejected so configuration drift is caught early.
func ParseTable(data []byte) (Table, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fingerprint table: %w", err)
	}
	known := make(map[plan.Field]bool, len(plan.AllFields()))
	for _, f := range plan.AllFields() {
		known[f] = true
	}
	t := make(Table, len(raw))
	for cat, names := range raw {
		fields := make([]plan.Field, 0, len(names))
		for _, name := range names {
			f := plan.Field(name)
			if !known[f] {
				return nil, fmt.Errorf("fingerprint table for %s: unknown field %q", cat, name)
			}
			fields = append(fields, f)
		}
		t[trip.Category(cat)] = fields
	}
	return t, nil
}

// Fields returns the relevant fields for the category, or nil when the
// category is not covered by the table.
func (e *Engine) Fields(cat trip.Category) []plan.Field {
	return e.table[cat]
}

// Key computes the fingerprint for the category over the plan's normalized
// relevant-field tuple. It is pure and total for any valid plan; the result
// is independent of field declaration order because the tuple is sorted by
// field name before hashing.
func (e *Engine) Key(cat trip.Category, p plan.Plan) (Fingerprint, error) {
	fields, ok := e.table[cat]
	if !ok {
		return "", fmt.Errorf("no fingerprint fields declared for category %s", cat)
	}
	tuple := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		tuple = append(tuple, string(f)+"="+p.Value(f))
	}
	if cat == trip.CategoryFlights {
		tuple = append(tuple, "trip_shape="+tripShape)
	}
	sort.Strings(tuple)

	h := sha256.New()
	for _, kv := range tuple {
		h.Write([]byte(kv))
		h.Write([]byte{0})
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))[:16]), nil
}
