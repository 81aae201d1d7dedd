package plan

import (
	"regexp"
	"time"
)

// intentClearTable declares, per target intent, which fields must not be
// carried forward when the intent switches to it. This is the reviewable
// configuration surface for intent field hygiene: a field listed here is
// cleared on switch unless the user explicitly changed it this turn.
//
// Rationale per target:
//   - activities: origin, cabin and time preferences belong to flights and
//     would mislead later full-plan turns; dates are cleared too unless the
//     user mentioned dates, since activities never need them.
//   - hotels: origin and flight preferences are meaningless; dates are
//     high-risk to inherit (stale dates silently book the wrong stay), so
//     they are cleared to force the date gate to re-ask.
//   - flights: dates are cleared for the same stale-inheritance reason.
//   - full: nothing extra is cleared; the diff planner and date gate govern.
var intentClearTable = map[Intent][]Field{
	IntentActivities: {
		FieldOrigin, FieldTravelClass, FieldDepartureTimePref,
		FieldArrivalTimePref, FieldTotalBudget,
	},
	IntentHotels: {
		FieldOrigin, FieldTravelClass, FieldDepartureTimePref,
		FieldArrivalTimePref, FieldDepartureDate, FieldReturnDate,
		FieldDurationDays,
	},
	IntentFlights: {
		FieldDepartureDate, FieldReturnDate, FieldDurationDays,
	},
	IntentFull: nil,
}

// dateClearOnActivities lists the date fields conditionally cleared when
// switching to the activities intent without a date mention.
var dateClearOnActivities = []Field{FieldDepartureDate, FieldReturnDate, FieldDurationDays}

var dateMentionRE = regexp.MustCompile(`(?i)\b20\d{2}-\d{1,2}-\d{1,2}\b|\btoday\b|\btomorrow\b|\bnext\s+(week|month|\w+day)\b|\b\d+\s+(day|days|night|nights)\b`)

// MentionsDate reports whether the user text plausibly contains a date or a
// duration. Used to avoid clearing dates the user just supplied.
func MentionsDate(text string) bool {
	return dateMentionRE.MatchString(text)
}

// ApplyIntentSwitch clears fields that are meaningful only under the previous
// intent when the intent changes. Fields the user explicitly changed this
// turn (per changed) are never cleared. userText gates the conditional date
// clearing for the activities intent.
//
// The invariant: a field cleared by an intent switch never silently reappears
// from a stale value when the intent later switches back.
func ApplyIntentSwitch(p *Plan, prevIntent Intent, changed FieldSet, userText string) {
	if p == nil || prevIntent == p.Intent {
		return
	}
	reset := func(f Field) {
		if changed.Contains(f) {
			return
		}
		switch f {
		case FieldOrigin:
			p.Origin = ""
		case FieldTravelClass:
			p.TravelClass = ""
		case FieldDepartureTimePref:
			p.DepartureTimePref = ""
		case FieldArrivalTimePref:
			p.ArrivalTimePref = ""
		case FieldTotalBudget:
			p.TotalBudget = 0
		case FieldDepartureDate:
			p.DepartureDate = ""
		case FieldReturnDate:
			p.ReturnDate = ""
		case FieldDurationDays:
			p.DurationDays = 0
		}
	}
	for _, f := range intentClearTable[p.Intent] {
		reset(f)
	}
	if p.Intent == IntentActivities && !MentionsDate(userText) {
		for _, f := range dateClearOnActivities {
			reset(f)
		}
	}
}

// CompleteDates enforces the date gate and derives the missing third value
// among departure, return and duration when two are known:
//
//	departure + return   => duration
//	departure + duration => return
//	return + duration    => departure
//
// When the dates cannot be completed it returns a MissingFieldError carrying
// the exact question to ask the user. There is no default date window: a
// missing date is always asked, never guessed.
func CompleteDates(p *Plan) error {
	if p.Destination == "" {
		return &MissingFieldError{
			Field: FieldDestination,
			Ask:   "Where are you traveling to (destination city or airport)?",
		}
	}

	var depT, retT time.Time
	var err error
	if p.DepartureDate != "" {
		if depT, err = time.Parse(DateLayout, p.DepartureDate); err != nil {
			return &MissingFieldError{
				Field: FieldDepartureDate,
				Ask:   "What is your departure date? Please use YYYY-MM-DD (e.g., 2026-09-10).",
			}
		}
	}
	if p.ReturnDate != "" {
		if retT, err = time.Parse(DateLayout, p.ReturnDate); err != nil {
			return &MissingFieldError{
				Field: FieldReturnDate,
				Ask:   "What is your return date? Please use YYYY-MM-DD (e.g., 2026-09-14).",
			}
		}
	}

	switch {
	case p.DepartureDate != "" && p.ReturnDate != "":
		if !retT.After(depT) {
			return &MissingFieldError{
				Field: FieldReturnDate,
				Ask:   "Your return date must be after your departure date. Could you confirm the dates?",
			}
		}
		if p.DurationDays == 0 {
			p.DurationDays = int(retT.Sub(depT).Hours() / 24)
		}
		return nil
	case p.DepartureDate != "" && p.DurationDays > 0:
		p.ReturnDate = depT.AddDate(0, 0, p.DurationDays).Format(DateLayout)
		return nil
	case p.ReturnDate != "" && p.DurationDays > 0:
		p.DepartureDate = retT.AddDate(0, 0, -p.DurationDays).Format(DateLayout)
		return nil
	case p.DurationDays < 0:
		return &MissingFieldError{
			Field: FieldDurationDays,
			Ask:   "How many days is your trip (a positive number)?",
		}
	}

	return &MissingFieldError{
		Field: FieldDepartureDate,
		Ask: "What are your travel dates (departure and return), or a departure date plus trip duration in days? " +
			"Example: '2026-09-10 to 2026-09-14' or 'depart 2026-09-10 for 4 days'.",
	}
}

// RequireDestination enforces the minimal gate for intents that do not need
// dates. Returns a MissingFieldError when the destination is absent.
func RequireDestination(p Plan) error {
	if p.Destination == "" {
		return &MissingFieldError{
			Field: FieldDestination,
			Ask:   "Where are you traveling to (destination city or airport)?",
		}
	}
	return nil
}
