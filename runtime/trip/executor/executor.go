// Package executor implements the execution coordinator: it invokes the tool
// capability for each category in the will-execute set, paced to respect
// supplier rate limits, wraps each call in bounded retry, classifies the
// outcome three ways (ok, empty, error) and appends one record per category
// to the session's append-only history.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/history"
	"goa.design/voyage/runtime/trip/plan"
	"goa.design/voyage/runtime/trip/retry"
	"goa.design/voyage/runtime/trip/telemetry"
)

type (
	// Query carries the fingerprint-relevant fields for one tool call. Tools
	// read the fields meaningful for their category and ignore the rest.
	Query struct {
		Origin            string
		Destination       string
		DepartureDate     string
		ReturnDate        string
		Adults            int
		TravelClass       plan.Class
		DepartureTimePref string
		ArrivalTimePref   string
	}

	// Tool is the capability interface for one category's supplier search.
	// A nil-error return with zero items is a legitimate empty outcome, not a
	// failure. Tools flag transient faults with retry.MarkTransient.
	Tool interface {
		Invoke(ctx context.Context, q Query) ([]trip.Item, error)
	}

	// Options configures a Coordinator.
	Options struct {
		// Tools maps each category to its tool capability.
		Tools map[trip.Category]Tool
		// History receives one record per executed category.
		History history.Store
		// Engine computes the fingerprint stored with each record.
		Engine *fingerprint.Engine
		// MinInterval is the pacing floor between consecutive tool calls
		// within one turn. Values below DefaultMinInterval are clamped up:
		// pacing is a deliberate rate-limit-safety policy, not a tunable that
		// can be disabled.
		MinInterval time.Duration
		// Retry configures per-call bounded retry. Zero value uses
		// retry.DefaultConfig.
		Retry retry.Config
		// Logger, Metrics and Tracer default to no-op implementations.
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		Tracer  telemetry.Tracer
	}

	// Coordinator executes the will-execute set for a turn.
	Coordinator struct {
		tools   map[trip.Category]Tool
		store   history.Store
		engine  *fingerprint.Engine
		limiter *rate.Limiter
		retry   retry.Config
		log     telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}
)

// DefaultMinInterval is the minimum enforced delay between consecutive
// supplier calls within one turn.
const DefaultMinInterval = 1200 * time.Millisecond

// New constructs a Coordinator from the provided options.
func New(opts Options) (*Coordinator, error) {
	if len(opts.Tools) == 0 {
		return nil, errors.New("at least one tool is required")
	}
	if opts.History == nil {
		return nil, errors.New("history store is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("fingerprint engine is required")
	}
	interval := opts.MinInterval
	if interval < DefaultMinInterval {
		interval = DefaultMinInterval
	}
	cfg := opts.Retry
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Coordinator{
		tools:   opts.Tools,
		store:   opts.History,
		engine:  opts.Engine,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   cfg,
		log:     logger,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

// QueryFor projects the plan onto a tool query. Only fingerprint-relevant
// fields are carried so tools cannot accidentally depend on anything the
// diff planner does not track.
func QueryFor(cat trip.Category, p plan.Plan) Query {
	q := Query{Destination: p.Destination}
	switch cat {
	case trip.CategoryFlights:
		q.Origin = p.Origin
		q.DepartureDate = p.DepartureDate
		q.ReturnDate = p.ReturnDate
		q.Adults = p.Adults
		q.TravelClass = p.TravelClass
		q.DepartureTimePref = p.DepartureTimePref
		q.ArrivalTimePref = p.ArrivalTimePref
	case trip.CategoryHotels:
		q.DepartureDate = p.DepartureDate
		q.ReturnDate = p.ReturnDate
		q.Adults = p.Adults
	}
	return q
}

// Execute runs the tool for every category in set, in the given order, and
// appends one record per category to the session history. Tool faults never
// fail the turn: they are classified into error records with a human-readable
// detail. The only returned errors are fingerprint/table misconfiguration and
// history append failures, both of which make the turn unsafe to continue.
func (c *Coordinator) Execute(ctx context.Context, sessionID string, set []trip.Category, p plan.Plan) ([]*history.Record, error) {
	records := make([]*history.Record, 0, len(set))
	for _, cat := range set {
		tool, ok := c.tools[cat]
		if !ok {
			return nil, fmt.Errorf("no tool registered for category %s", cat)
		}
		key, err := c.engine.Key(cat, p)
		if err != nil {
			return nil, err
		}

		// Pacing floor between consecutive supplier calls.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		rec := c.invoke(ctx, tool, cat, key, p)
		rec.SessionID = sessionID
		if err := c.store.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("append %s record: %w", cat, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Coordinator) invoke(ctx context.Context, tool Tool, cat trip.Category, key fingerprint.Fingerprint, p plan.Plan) *history.Record {
	ctx, span := c.tracer.Start(ctx, "trip.tool."+string(cat))
	defer span.End()

	start := time.Now()
	var items []trip.Item
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var ierr error
		items, ierr = tool.Invoke(ctx, QueryFor(cat, p))
		return ierr
	})
	c.metrics.RecordTimer("trip_tool_duration", time.Since(start), "category", string(cat))

	rec := &history.Record{
		Category:    cat,
		Fingerprint: key,
		CreatedAt:   time.Now().UTC(),
	}
	switch {
	case err != nil:
		span.RecordError(err)
		c.log.Warn(ctx, "tool call failed", "category", cat, "err", err)
		c.metrics.IncCounter("trip_tool_errors", 1, "category", string(cat))
		rec.Status = history.StatusError
		rec.ErrorDetail = truncate(err.Error(), 500)
	case len(items) == 0:
		c.log.Info(ctx, "tool returned no inventory", "category", cat)
		rec.Status = history.StatusEmpty
	default:
		c.log.Debug(ctx, "tool call succeeded", "category", cat, "items", len(items))
		rec.Status = history.StatusOK
		rec.Items = items
	}
	return rec
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
