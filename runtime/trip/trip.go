// Package trip defines the shared identifiers and value types used across the
// voyage orchestrator runtime: tool categories, result items, and conversation
// messages. Subpackages (plan, fingerprint, decide, executor, reuse, turn,
// compose) build the orchestration pipeline on top of these primitives.
package trip

type (
	// Category identifies one tool category the orchestrator can execute:
	// flight search, hotel search, or activity search. Categories are stable
	// wire-level identifiers; stores persist them verbatim.
	Category string

	// Item is one option returned by a tool capability. The same shape is used
	// for all categories: flights populate Supplier (airline), DepartsAt and
	// ArrivesAt; hotels populate Name, Price and Supplier; activities populate
	// Name, Description, Price and Location. Empty fields are omitted from
	// serialized forms.
	Item struct {
		// Name is the option's display name (hotel name, activity name, or
		// flight route label).
		Name string `json:"name,omitempty"`
		// Description is a short human-readable description.
		Description string `json:"description,omitempty"`
		// Price is the supplier-quoted price string (e.g. "$420.50", "310 USD").
		Price string `json:"price,omitempty"`
		// Location is the option's location when meaningful (activities).
		Location string `json:"location,omitempty"`
		// Supplier names the inventory source (airline, hotel chain, provider).
		Supplier string `json:"supplier,omitempty"`
		// DepartsAt and ArrivesAt carry flight times (RFC 3339 local).
		DepartsAt string `json:"departs_at,omitempty"`
		ArrivesAt string `json:"arrives_at,omitempty"`
		// Rating is the option rating when the supplier provides one.
		Rating float64 `json:"rating,omitempty"`
	}

	// Message is one conversation entry in a session transcript.
	Message struct {
		// Role is "user" or "assistant".
		Role string `json:"role"`
		// Content is the message text.
		Content string `json:"content"`
	}
)

const (
	// CategoryFlights is the flight search category.
	CategoryFlights Category = "flights"
	// CategoryHotels is the hotel search category.
	CategoryHotels Category = "hotels"
	// CategoryActivities is the activity search category.
	CategoryActivities Category = "activities"

	// RoleUser and RoleAssistant are the transcript message roles.
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AllCategories returns every tool category in canonical execution order.
// The order is stable so paced execution and tests are deterministic.
func AllCategories() []Category {
	return []Category{CategoryFlights, CategoryHotels, CategoryActivities}
}
