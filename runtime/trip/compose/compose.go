// Package compose implements the synthesis composer: it partitions the final
// per-category results by outcome status, selects a degradation strategy, and
// produces the user-facing answer. A missing result (no fresh execution and
// nothing reusable) degrades exactly like an error: the composer discloses
// what is unavailable and never invents substitute content.
package compose

import (
	"context"
	"fmt"
	"strings"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/history"
	"goa.design/voyage/runtime/trip/plan"
	"goa.design/voyage/runtime/trip/telemetry"
)

type (
	// Outcome is one category's final result for the turn: a fresh or reused
	// history record, or nil when nothing valid was found. Nil is treated as
	// an unavailable category, not as an empty one.
	Outcome struct {
		Record *history.Record
	}

	// Degradation names the strategy the composer selected.
	Degradation string

	// Directive is the structured composition request handed to the text
	// generation capability. Instructions carry the non-negotiable rules the
	// generated text must honor, including the never-fabricate rule for
	// failed categories.
	Directive struct {
		Plan         plan.Plan
		Sections     map[trip.Category][]trip.Item
		Empty        []trip.Category
		Failed       []trip.Category
		Packages     []Package
		Instructions []string
	}

	// Generator is the external text generation capability.
	Generator interface {
		Generate(ctx context.Context, d Directive) (string, error)
	}

	// Response is the synthesized user-facing outcome.
	Response struct {
		Text        string
		Degradation Degradation
	}

	// Options configures a Composer.
	Options struct {
		Generator Generator
		Logger    telemetry.Logger
		Metrics   telemetry.Metrics
	}

	// Composer selects a degradation strategy and produces the response.
	Composer struct {
		gen     Generator
		log     telemetry.Logger
		metrics telemetry.Metrics
	}
)

const (
	// DegradationNone means all intent-required categories returned ok.
	DegradationNone Degradation = "none"
	// DegradationEmpty means at least one category legitimately had no
	// inventory and the rest returned ok.
	DegradationEmpty Degradation = "empty"
	// DegradationPartial means at least one category failed or was
	// unavailable while at least one returned ok.
	DegradationPartial Degradation = "partial"
	// DegradationFull means every intent-required category failed or was
	// unavailable.
	DegradationFull Degradation = "full"
)

// New constructs a Composer.
func New(opts Options) (*Composer, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Composer{gen: opts.Generator, log: logger, metrics: metrics}, nil
}

// Compose partitions the results, selects the degradation strategy and
// produces the response. Generator faults never propagate: the composer falls
// back to a deterministic text rendered from the same directive.
func (c *Composer) Compose(ctx context.Context, p plan.Plan, results map[trip.Category]Outcome) (Response, error) {
	required := p.Intent.Categories()

	sections := make(map[trip.Category][]trip.Item)
	var empty, failed []trip.Category
	for _, cat := range required {
		out, present := results[cat]
		switch {
		case !present || out.Record == nil:
			// Nothing executed and nothing reusable: unavailable, same
			// disclosure path as an error.
			failed = append(failed, cat)
		case out.Record.Status == history.StatusOK:
			sections[cat] = out.Record.Items
		case out.Record.Status == history.StatusEmpty:
			empty = append(empty, cat)
		default:
			failed = append(failed, cat)
		}
	}

	deg := classify(len(required), len(sections), len(empty), len(failed))
	c.metrics.IncCounter("trip_compose_total", 1, "degradation", string(deg))

	if deg == DegradationFull {
		// All required categories failed. No generation: a single honest
		// notice with zero plan content.
		return Response{Text: degradedNotice(failed), Degradation: deg}, nil
	}

	d := Directive{
		Plan:         p,
		Sections:     sections,
		Empty:        empty,
		Failed:       failed,
		Packages:     BuildPackages(p, sections),
		Instructions: instructions(p, empty, failed),
	}

	text, err := c.gen.Generate(ctx, d)
	if err != nil || strings.TrimSpace(text) == "" {
		c.log.Warn(ctx, "generation failed, using fallback composition", "err", err)
		c.metrics.IncCounter("trip_compose_fallbacks", 1)
		text = FallbackText(d)
	}
	return Response{Text: text, Degradation: deg}, nil
}

func classify(required, ok, empty, failed int) Degradation {
	switch {
	case failed == required:
		return DegradationFull
	case failed > 0:
		return DegradationPartial
	case empty > 0:
		return DegradationEmpty
	default:
		return DegradationNone
	}
}

// instructions builds the generation rules for the directive. The failed-
// category rules are the enforcement point for honest degradation: the
// generator is told which categories failed and forbidden from inventing
// names, prices or any substitute data for them.
func instructions(p plan.Plan, empty, failed []trip.Category) []string {
	ins := []string{
		"Compose a clear, friendly trip summary from the provided sections only.",
		"Use only the option names, prices and times present in the sections; never invent options.",
	}
	if p.TotalBudget > 0 {
		ins = append(ins, fmt.Sprintf("The traveler's total budget is $%.2f; relate recommendations to it.", p.TotalBudget))
	}
	for _, cat := range empty {
		ins = append(ins, fmt.Sprintf(
			"State plainly that the %s search ran successfully but no matching options exist for these criteria. This is not a failure; do not apologize for a technical problem.", cat))
	}
	for _, cat := range failed {
		ins = append(ins, fmt.Sprintf(
			"Disclose that %s results are unavailable due to a technical issue with the provider. Do NOT invent, estimate or substitute any %s names, prices or details.", cat, cat))
	}
	return ins
}

// degradedNotice is the all-failed response: names the affected categories
// and nothing else.
func degradedNotice(failed []trip.Category) string {
	names := make([]string, len(failed))
	for i, c := range failed {
		names[i] = string(c)
	}
	return fmt.Sprintf(
		"I'm sorry, I couldn't retrieve %s results right now due to a technical issue with our providers. No part of your plan could be prepared this time. Please try again shortly.",
		strings.Join(names, ", "))
}

// FallbackText renders the directive deterministically when the generation
// capability fails. It follows the same honesty rules as generated text:
// items are listed verbatim, empty categories are explained, failed
// categories are disclosed with no substitute content.
func FallbackText(d Directive) string {
	var b strings.Builder
	if d.Plan.Destination != "" {
		fmt.Fprintf(&b, "Here is your trip summary for %s.\n", d.Plan.Destination)
	} else {
		b.WriteString("Here is your trip summary.\n")
	}
	for _, cat := range trip.AllCategories() {
		items, ok := d.Sections[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", titleCase(string(cat)))
		for _, it := range items {
			line := "- " + it.Name
			if it.Supplier != "" {
				line += " (" + it.Supplier + ")"
			}
			if it.Price != "" {
				line += " - " + it.Price
			}
			b.WriteString(line + "\n")
		}
	}
	if len(d.Packages) > 0 {
		b.WriteString("\nSuggested packages:\n")
		for _, p := range d.Packages {
			fmt.Fprintf(&b, "- %s: %s + %s, approx. $%.2f\n", p.Tier, p.Flight.Name, p.Hotel.Name, p.TotalPrice)
		}
	}
	for _, cat := range d.Empty {
		fmt.Fprintf(&b, "\nNo matching %s options exist for your criteria; the search itself ran fine.\n", cat)
	}
	for _, cat := range d.Failed {
		fmt.Fprintf(&b, "\n%s results are currently unavailable due to a technical issue with the provider.\n", titleCase(string(cat)))
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
