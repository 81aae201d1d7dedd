package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/compose"
	"goa.design/voyage/runtime/trip/decide"
	"goa.design/voyage/runtime/trip/executor"
	"goa.design/voyage/runtime/trip/extract"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/history"
	"goa.design/voyage/runtime/trip/notify"
	"goa.design/voyage/runtime/trip/plan"
	"goa.design/voyage/runtime/trip/reuse"
	"goa.design/voyage/runtime/trip/telemetry"
)

type (
	// ProfileProvider exposes the externally collected traveler profile.
	// Lookup returns (nil, nil) when the profile has not been collected yet.
	ProfileProvider interface {
		Lookup(ctx context.Context, sessionID string) (*Profile, error)
	}

	// Options configures a Runner. Checkpoints, Profiles, Extractor, Engine,
	// History, Coordinator and Composer are required; Notifier and telemetry
	// are optional.
	Options struct {
		Checkpoints CheckpointStore
		Profiles    ProfileProvider
		Extractor   extract.Extractor
		Engine      *fingerprint.Engine
		History     history.Store
		Coordinator *executor.Coordinator
		Composer    *compose.Composer
		Notifier    *notify.Dispatcher

		// DefaultOrigin fills the departure location for flight-bearing
		// intents when the user never states one. Empty disables the default
		// and the date gate's origin handling asks instead.
		DefaultOrigin string

		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		Tracer  telemetry.Tracer
	}

	// Runner drives one session turn end to end.
	Runner struct {
		checkpoints   CheckpointStore
		profiles      ProfileProvider
		extractor     extract.Extractor
		engine        *fingerprint.Engine
		history       history.Store
		coordinator   *executor.Coordinator
		composer      *compose.Composer
		notifier      *notify.Dispatcher
		defaultOrigin string
		log           telemetry.Logger
		metrics       telemetry.Metrics
		tracer        telemetry.Tracer
	}

	// Result is the caller-facing outcome of one turn.
	Result struct {
		// SessionID echoes the session.
		SessionID string
		// Status is the session status after the turn.
		Status Status
		// Reply is the user-facing text: an ask, a re-ask, or the
		// synthesized plan.
		Reply string
		// Decisions carries the per-category execution decisions when the
		// turn reached the execution stage, nil otherwise.
		Decisions map[trip.Category]decide.Decision
	}
)

const (
	greetingReply = "Hi! Tell me about the trip you'd like to plan: where you're headed, when, and whether you need flights, hotels or activities."

	profileAsk = "Before we start planning, I need your traveler profile (name, email and budget preference). Once it's on file, send your request again and I'll take it from there."
)

// NewRunner constructs a Runner from the provided options.
func NewRunner(opts Options) (*Runner, error) {
	switch {
	case opts.Checkpoints == nil:
		return nil, errors.New("checkpoint store is required")
	case opts.Profiles == nil:
		return nil, errors.New("profile provider is required")
	case opts.Extractor == nil:
		return nil, errors.New("extractor is required")
	case opts.Engine == nil:
		return nil, errors.New("fingerprint engine is required")
	case opts.History == nil:
		return nil, errors.New("history store is required")
	case opts.Coordinator == nil:
		return nil, errors.New("execution coordinator is required")
	case opts.Composer == nil:
		return nil, errors.New("composer is required")
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
	return &Runner{
		checkpoints:   opts.Checkpoints,
		profiles:      opts.Profiles,
		extractor:     opts.Extractor,
		engine:        opts.Engine,
		history:       opts.History,
		coordinator:   opts.Coordinator,
		composer:      opts.Composer,
		notifier:      opts.Notifier,
		defaultOrigin: opts.DefaultOrigin,
		log:           logger,
		metrics:       metrics,
		tracer:        tracer,
	}, nil
}

// Turn runs one session turn: load checkpoint, interpret the message, gate,
// decide, execute or reuse, synthesize and checkpoint. The only errors it
// returns are state-store failures and pipeline misconfiguration; every user
// and tool level problem is absorbed into the reply.
func (r *Runner) Turn(ctx context.Context, sessionID, userMessage string) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "trip.turn")
	defer span.End()
	start := time.Now()
	turnID := "turn-" + uuid.NewString()
	r.log.Debug(ctx, "turn start", "session", sessionID, "turn", turnID)

	state, err := r.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load checkpoint for %s: %w", sessionID, err)
	}
	if state == nil {
		state = &TurnState{SessionID: sessionID}
	}
	state.Messages = append(state.Messages, trip.Message{Role: trip.RoleUser, Content: userMessage})

	// Noise never touches the plan.
	if LowSignal(userMessage) {
		reply := greetingReply
		if state.Status == StatusCollectingFields || state.Status == StatusCollectingProfile {
			reply = "Happy to continue whenever you are. Just answer the last question and we'll pick up where we left off."
		}
		return r.finish(ctx, state, state.Status, reply, nil)
	}
	if state.OriginalRequest == "" {
		state.OriginalRequest = userMessage
	}

	// Prerequisite profile gate: presence check only, collection is external.
	state.ProfileJustCollected = false
	if state.Profile == nil {
		prof, err := r.profiles.Lookup(ctx, sessionID)
		if err != nil {
			r.log.Warn(ctx, "profile lookup failed, treating as absent", "session", sessionID, "err", err)
		}
		if prof == nil {
			next, err := Next(state.Status, EventProfileMissing)
			if err != nil {
				return Result{}, err
			}
			return r.finish(ctx, state, next, profileAsk, nil)
		}
		state.Profile = prof
		state.ProfileJustCollected = true
	}

	// Interpret the message. Extraction faults are ambiguity, not failure:
	// the prior plan survives untouched and the gates re-ask as needed.
	prev := state.Plan
	cand, err := r.extractor.Extract(ctx, state.Messages, prev)
	if err != nil {
		r.log.Warn(ctx, "extraction failed, keeping prior plan", "session", sessionID, "err", err)
		cand = extract.Candidate{}
	}
	merged := extract.Merge(prev, cand, userMessage)
	if prev != nil {
		changed := plan.ChangedFields(*prev, merged)
		plan.ApplyIntentSwitch(&merged, prev.Intent, changed, userMessage)
	}
	if r.defaultOrigin != "" && merged.Intent.RequiresOrigin() && merged.Origin == "" {
		merged.Origin = plan.NormalizePlace(r.defaultOrigin)
	}

	// Required-field gates. A miss is a normal collecting-fields outcome
	// carrying the exact ask; zero tool calls happen on this path.
	var gateErr error
	if merged.Intent.RequiresDates() {
		gateErr = plan.CompleteDates(&merged)
	} else {
		gateErr = plan.RequireDestination(merged)
	}
	if gateErr == nil && merged.Intent.RequiresOrigin() && merged.Origin == "" {
		gateErr = &plan.MissingFieldError{
			Field: plan.FieldOrigin,
			Ask:   "Where will you be departing from (origin city or airport)?",
		}
	}
	if gateErr != nil {
		var miss *plan.MissingFieldError
		if !errors.As(gateErr, &miss) {
			return Result{}, gateErr
		}
		state.Plan = &merged
		next, err := Next(state.Status, EventFieldsMissing)
		if err != nil {
			return Result{}, err
		}
		return r.finish(ctx, state, next, r.withProfileAck(state, miss.Ask), nil)
	}

	// All gates passed: checkpoint the executing transition before any tool
	// call so a crash mid-execution resumes from a consistent plan.
	state.Plan = &merged
	if state.Status, err = Next(state.Status, EventFieldsComplete); err != nil {
		return Result{}, err
	}
	state.UpdatedAt = time.Now().UTC()
	if err := r.checkpoints.Save(ctx, sessionID, state); err != nil {
		return Result{}, fmt.Errorf("save checkpoint for %s: %w", sessionID, err)
	}

	decisions, err := decide.Decisions(r.engine, prev, merged)
	if err != nil {
		return Result{}, err
	}
	set := decide.ExecuteSet(decisions)
	r.log.Info(ctx, "turn decisions", "session", sessionID, "execute", len(set), "intent", merged.Intent)

	results := make(map[trip.Category]compose.Outcome, len(merged.Intent.Categories()))
	fresh, err := r.coordinator.Execute(ctx, sessionID, set, merged)
	if err != nil {
		return Result{}, err
	}
	for _, rec := range fresh {
		results[rec.Category] = compose.Outcome{Record: rec}
	}
	for _, cat := range merged.Intent.Categories() {
		if _, done := results[cat]; done {
			continue
		}
		rec, err := reuse.Resolve(ctx, r.engine, r.history, sessionID, cat, merged)
		if err != nil {
			return Result{}, fmt.Errorf("resolve %s reuse: %w", cat, err)
		}
		if rec == nil {
			r.log.Warn(ctx, "no reusable record", "session", sessionID, "category", cat)
		}
		results[cat] = compose.Outcome{Record: rec}
	}

	if state.Status, err = Next(state.Status, EventResultsReady); err != nil {
		return Result{}, err
	}
	resp, err := r.composer.Compose(ctx, merged, results)
	if err != nil {
		return Result{}, err
	}
	reply := r.withProfileAck(state, resp.Text)

	next, err := Next(state.Status, EventResponseReady)
	if err != nil {
		return Result{}, err
	}
	res, err := r.finish(ctx, state, next, reply, decisions)
	if err != nil {
		return Result{}, err
	}

	// Post-synthesis side effects are best-effort and never alter the reply.
	if r.notifier != nil && resp.Degradation != compose.DegradationFull {
		r.notifier.Dispatch(ctx, sessionID, notify.Delivery{
			Name:  state.Profile.Name,
			Email: state.Profile.Email,
		}, merged, resp.Text)
	}

	r.metrics.RecordTimer("trip_turn_duration", time.Since(start), "status", string(res.Status))
	return res, nil
}

// finish appends the assistant reply, checkpoints the state at its final
// status for the turn, and builds the result. Checkpoint failure propagates.
func (r *Runner) finish(ctx context.Context, state *TurnState, status Status, reply string, decisions map[trip.Category]decide.Decision) (Result, error) {
	state.Status = status
	state.Messages = append(state.Messages, trip.Message{Role: trip.RoleAssistant, Content: reply})
	state.UpdatedAt = time.Now().UTC()
	if err := r.checkpoints.Save(ctx, state.SessionID, state); err != nil {
		return Result{}, fmt.Errorf("save checkpoint for %s: %w", state.SessionID, err)
	}
	r.metrics.IncCounter("trip_turns", 1, "status", string(status))
	return Result{
		SessionID: state.SessionID,
		Status:    status,
		Reply:     reply,
		Decisions: decisions,
	}, nil
}

// withProfileAck prefixes a one-time acknowledgement on the turn where the
// traveler profile first became available.
func (r *Runner) withProfileAck(state *TurnState, reply string) string {
	if !state.ProfileJustCollected || state.Profile == nil || state.Profile.Name == "" {
		return reply
	}
	return fmt.Sprintf("Thanks %s, your profile is all set. %s", state.Profile.Name, reply)
}
