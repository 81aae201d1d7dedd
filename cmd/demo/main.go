// Command demo drives a short end-to-end conversation through the voyage
// turn runner using in-memory stores, canned supplier tools and a
// deterministic extractor, so the full turn lifecycle can be observed
// without any external service or API key.
package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"goa.design/clue/log"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/compose"
	"goa.design/voyage/runtime/trip/executor"
	"goa.design/voyage/runtime/trip/extract"
	"goa.design/voyage/runtime/trip/fingerprint"
	historyinmem "goa.design/voyage/runtime/trip/history/inmem"
	"goa.design/voyage/runtime/trip/plan"
	"goa.design/voyage/runtime/trip/telemetry"
	"goa.design/voyage/runtime/trip/turn"
	turninmem "goa.design/voyage/runtime/trip/turn/inmem"
)

// regexExtractor pulls obvious fields from the latest user message with
// regular expressions. It exists so the demo needs no model API key;
// deployments use the adapters under features/extract instead.
type regexExtractor struct{}

var (
	dateRE   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	destRE   = regexp.MustCompile(`(?i)\bto\s+([a-z]+)`)
	originRE = regexp.MustCompile(`(?i)\bfrom\s+([a-z]+)`)
	adultsRE = regexp.MustCompile(`(?i)\b(\d+)\s+adults?\b`)
)

func (regexExtractor) Extract(_ context.Context, conversation []trip.Message, _ *plan.Plan) (extract.Candidate, error) {
	var text string
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == trip.RoleUser {
			text = conversation[i].Content
			break
		}
	}
	var c extract.Candidate
	if m := destRE.FindStringSubmatch(text); m != nil {
		c.Destination = &m[1]
	}
	if m := originRE.FindStringSubmatch(text); m != nil {
		c.Origin = &m[1]
	}
	if dates := dateRE.FindAllString(text, 2); len(dates) > 0 {
		c.DepartureDate = &dates[0]
		if len(dates) > 1 {
			c.ReturnDate = &dates[1]
		}
	}
	if m := adultsRE.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.Adults = &n
		}
	}
	return c, nil
}

// cannedTool returns a fixed inventory for its category.
type cannedTool struct {
	items []trip.Item
}

func (t cannedTool) Invoke(context.Context, executor.Query) ([]trip.Item, error) {
	return t.items, nil
}

// textGenerator renders the deterministic itinerary text.
type textGenerator struct{}

func (textGenerator) Generate(_ context.Context, d compose.Directive) (string, error) {
	return compose.FallbackText(d), nil
}

// demoProfiles returns a fixed traveler profile for every session.
type demoProfiles struct{}

func (demoProfiles) Lookup(context.Context, string) (*turn.Profile, error) {
	return &turn.Profile{Name: "Mei", Email: "mei@example.com", BudgetClass: "standard"}, nil
}

func main() {
	dbgF := flag.Bool("debug", false, "Enable debug logs")
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	hist := historyinmem.New()
	engine := fingerprint.New()
	logger := telemetry.NewClueLogger()

	coord, err := executor.New(executor.Options{
		Tools: map[trip.Category]executor.Tool{
			trip.CategoryFlights: cannedTool{items: []trip.Item{
				{Name: "NH 920", Supplier: "ANA", Price: "$640", DepartsAt: "08:55", ArrivesAt: "12:40"},
				{Name: "MU 523", Supplier: "China Eastern", Price: "$410", DepartsAt: "13:20", ArrivesAt: "17:05"},
			}},
			trip.CategoryHotels: cannedTool{items: []trip.Item{
				{Name: "Hotel Okura", Supplier: "Okura Nikko", Price: "$310", Rating: 4.7},
				{Name: "Sotetsu Fresa Inn", Price: "$120", Rating: 4.1},
			}},
			trip.CategoryActivities: cannedTool{items: []trip.Item{
				{Name: "teamLab Planets", Description: "Digital art museum", Price: "$25", Location: "Toyosu"},
				{Name: "Tsukiji food walk", Description: "Guided market tour", Price: "$60", Location: "Tsukiji"},
			}},
		},
		History:     hist,
		Engine:      engine,
		MinInterval: 1200 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		log.Fatal(ctx, err)
	}

	comp, err := compose.New(compose.Options{Generator: textGenerator{}, Logger: logger})
	if err != nil {
		log.Fatal(ctx, err)
	}

	runner, err := turn.NewRunner(turn.Options{
		Checkpoints:   turninmem.New(),
		Profiles:      demoProfiles{},
		Extractor:     regexExtractor{},
		Engine:        engine,
		History:       hist,
		Coordinator:   coord,
		Composer:      comp,
		DefaultOrigin: "shanghai",
		Logger:        logger,
	})
	if err != nil {
		log.Fatal(ctx, err)
	}

	messages := []string{
		"plan a trip to tokyo",
		"2026-09-10 to 2026-09-14, 2 adults",
		// Identical resubmission: every category is reused, nothing re-runs.
		"2026-09-10 to 2026-09-14, 2 adults",
	}
	for _, msg := range messages {
		fmt.Printf("\n> %s\n", msg)
		res, err := runner.Turn(ctx, "demo-session", msg)
		if err != nil {
			log.Fatal(ctx, err)
		}
		fmt.Printf("[%s]\n%s\n", res.Status, res.Reply)
	}
}
