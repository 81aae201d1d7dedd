// Package extract defines the text-extraction capability contract and the
// guard rails the orchestrator applies on top of it. Extraction converts a
// conversation into candidate plan fields; the orchestrator never trusts that
// output blindly. Candidates are validated against a JSON schema, merged into
// the prior plan field by field, and the declared intent is overridden by
// deterministic keyword rules when the user text is unambiguous.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/plan"
)

type (
	// Candidate carries the plan fields an extractor proposed from the latest
	// conversation. Nil pointers mean "no opinion": the prior plan value is
	// kept. Extraction is imperfect by contract; the merge step owns
	// normalization and required-field gating.
	Candidate struct {
		Origin            *string  `json:"origin,omitempty"`
		Destination       *string  `json:"destination,omitempty"`
		DepartureDate     *string  `json:"departure_date,omitempty"`
		ReturnDate        *string  `json:"return_date,omitempty"`
		DurationDays      *int     `json:"duration_days,omitempty"`
		Adults            *int     `json:"adults,omitempty"`
		TravelClass       *string  `json:"travel_class,omitempty"`
		DepartureTimePref *string  `json:"departure_time_pref,omitempty"`
		ArrivalTimePref   *string  `json:"arrival_time_pref,omitempty"`
		TotalBudget       *float64 `json:"total_budget,omitempty"`
		Intent            *string  `json:"intent,omitempty"`
	}

	// Extractor is the external capability that proposes candidate plan
	// fields from the conversation. prev is nil on the first planning turn.
	Extractor interface {
		Extract(ctx context.Context, conversation []trip.Message, prev *plan.Plan) (Candidate, error)
	}
)

// candidateSchema constrains raw extractor output before it is interpreted.
// Unknown properties are rejected so a drifting extractor fails loudly
// instead of smuggling fields past the merge rules.
const candidateSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"origin": {"type": ["string", "null"]},
		"destination": {"type": ["string", "null"]},
		"departure_date": {"type": ["string", "null"]},
		"return_date": {"type": ["string", "null"]},
		"duration_days": {"type": ["integer", "null"], "minimum": 0},
		"adults": {"type": ["integer", "null"], "minimum": 1},
		"travel_class": {"type": ["string", "null"], "enum": ["ECONOMY", "PREMIUM_ECONOMY", "BUSINESS", "FIRST", null]},
		"departure_time_pref": {"type": ["string", "null"]},
		"arrival_time_pref": {"type": ["string", "null"]},
		"total_budget": {"type": ["number", "null"], "minimum": 0},
		"intent": {"type": ["string", "null"], "enum": ["full", "flights", "hotels", "activities", null]}
	}
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(candidateSchema), &doc); err != nil {
			schemaErr = fmt.Errorf("unmarshal candidate schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("candidate.json", doc); err != nil {
			schemaErr = fmt.Errorf("add candidate schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile("candidate.json")
	})
	return schema, schemaErr
}

// ParseCandidate validates raw extractor JSON against the candidate schema
// and decodes it. Provider adapters call this so every extractor goes through
// the same validation regardless of backing model.
func ParseCandidate(raw []byte) (Candidate, error) {
	sch, err := compiledSchema()
	if err != nil {
		return Candidate{}, err
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return Candidate{}, fmt.Errorf("candidate is not valid JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return Candidate{}, fmt.Errorf("candidate failed schema validation: %w", err)
	}
	var c Candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// Merge applies the candidate on top of the previous plan and returns the
// merged, normalized plan. Individual unparseable values are discarded and
// the prior field kept; extraction ambiguity never fails the turn. The
// destination and origin are backfilled from the previous plan when the
// candidate would erase them.
func Merge(prev *plan.Plan, c Candidate, userText string) plan.Plan {
	var p plan.Plan
	if prev != nil {
		p = *prev
	}

	if c.Origin != nil && *c.Origin != "" {
		p.Origin = *c.Origin
	}
	if c.Destination != nil && *c.Destination != "" {
		p.Destination = *c.Destination
	}
	if c.DepartureDate != nil {
		if d, err := plan.NormalizeDate(*c.DepartureDate); err == nil && d != "" {
			p.DepartureDate = d
		}
	}
	if c.ReturnDate != nil {
		if d, err := plan.NormalizeDate(*c.ReturnDate); err == nil && d != "" {
			p.ReturnDate = d
		}
	}
	if c.DurationDays != nil && *c.DurationDays > 0 {
		p.DurationDays = *c.DurationDays
	}
	if c.Adults != nil && *c.Adults > 0 {
		p.Adults = *c.Adults
	}
	if c.TravelClass != nil && *c.TravelClass != "" {
		p.TravelClass = plan.Class(*c.TravelClass)
	}
	if c.DepartureTimePref != nil {
		p.DepartureTimePref = *c.DepartureTimePref
	}
	if c.ArrivalTimePref != nil {
		p.ArrivalTimePref = *c.ArrivalTimePref
	}
	if c.TotalBudget != nil && *c.TotalBudget > 0 {
		p.TotalBudget = *c.TotalBudget
	}
	if c.Intent != nil {
		if i := plan.Intent(*c.Intent); i.Valid() {
			p.Intent = i
		}
	}

	// Deterministic override: when the user text names a single category
	// unambiguously, it wins over the extractor's intent guess.
	if i, ok := InferIntentOverride(userText); ok {
		p.Intent = i
	}

	// Backfill against accidental erasure by a weak extraction.
	if prev != nil {
		if p.Destination == "" {
			p.Destination = prev.Destination
		}
		if p.Origin == "" {
			p.Origin = prev.Origin
		}
	}

	p.Normalize()
	return p
}

// SystemPrompt is the instruction block given to extraction models. Both
// provider adapters use it verbatim so they stay interchangeable behind the
// Extractor interface.
const SystemPrompt = `You extract travel planning fields from a conversation.
Respond with a single JSON object and nothing else. Allowed keys:
origin, destination, departure_date, return_date, duration_days, adults,
travel_class (ECONOMY|PREMIUM_ECONOMY|BUSINESS|FIRST),
departure_time_pref, arrival_time_pref, total_budget,
intent (full|flights|hotels|activities).
Rules:
- Include a key only when the conversation states or clearly implies it.
- Dates must be YYYY-MM-DD. Never guess dates the user did not give.
- intent is "full" unless the user asks for only one category.
- Use null for a field the user explicitly retracted.`

// ConversationPayload renders the extraction input document: the prior plan
// (when any) followed by the transcript. Adapters embed it in their
// provider-specific message shape.
func ConversationPayload(conversation []trip.Message, prev *plan.Plan) string {
	payload := struct {
		PreviousPlan *plan.Plan     `json:"previous_plan,omitempty"`
		Conversation []trip.Message `json:"conversation"`
	}{PreviousPlan: prev, Conversation: conversation}
	data, err := json.Marshal(payload)
	if err != nil {
		// Plan and Message marshal cleanly by construction.
		return "{}"
	}
	return string(data)
}

// StripFences removes a surrounding markdown code fence from model output so
// fenced JSON still parses.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

var (
	activityKw = regexp.MustCompile(`(?i)\b(activit(y|ies)|things to do|tours?|sightseeing|experiences?)\b`)
	flightKw   = regexp.MustCompile(`(?i)\b(flights?|airfare|one[-\s]?way|round[-\s]?trip|business class|economy)\b`)
	hotelKw    = regexp.MustCompile(`(?i)\b(hotels?|accommodation|stay|lodging|resorts?)\b`)
)

// InferIntentOverride applies keyword rules to the user text and returns an
// intent override when exactly one category is named. Ambiguous text (two or
// more categories, or none) yields no override, so a well-behaved extractor
// keeps control in the unclear cases.
func InferIntentOverride(text string) (plan.Intent, bool) {
	act := activityKw.MatchString(text)
	fly := flightKw.MatchString(text)
	htl := hotelKw.MatchString(text)

	switch {
	case act && !fly && !htl:
		return plan.IntentActivities, true
	case fly && !act && !htl:
		return plan.IntentFlights, true
	case htl && !act && !fly:
		return plan.IntentHotels, true
	}
	return "", false
}
