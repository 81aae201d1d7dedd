// Package notify dispatches post-synthesis side effects: emailing the
// itinerary and upserting the traveler record in the CRM. Both are strictly
// best-effort. A notification failure is logged and counted but never alters
// the synthesized response or the turn outcome.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"goa.design/voyage/runtime/trip/plan"
	"goa.design/voyage/runtime/trip/telemetry"
)

type (
	// Mailer sends the synthesized itinerary to the traveler.
	Mailer interface {
		SendItinerary(ctx context.Context, sessionID, recipient, subject, body string) error
	}

	// CRM records the traveler's latest trip request.
	CRM interface {
		UpsertTraveler(ctx context.Context, sessionID, name, email string, p plan.Plan) error
	}

	// Options configures a Dispatcher. Nil capabilities are skipped.
	Options struct {
		Mailer  Mailer
		CRM     CRM
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
	}

	// Dispatcher fans the synthesis result out to the configured channels.
	// Itinerary emails are idempotent: an email identical to one already
	// delivered for the session (same recipient, subject and body) is
	// suppressed, so a reuse-only turn that recomposes the same itinerary
	// does not spam the traveler. CRM upserts are idempotent at the CRM and
	// are never suppressed.
	Dispatcher struct {
		mailer  Mailer
		crm     CRM
		log     telemetry.Logger
		metrics telemetry.Metrics

		mu        sync.Mutex
		delivered map[string]struct{}
	}

	// Delivery identifies the traveler for post-synthesis notifications.
	Delivery struct {
		Name  string
		Email string
	}
)

// New constructs a Dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Dispatcher{
		mailer:    opts.Mailer,
		crm:       opts.CRM,
		log:       logger,
		metrics:   metrics,
		delivered: make(map[string]struct{}),
	}
}

// Dispatch delivers the itinerary and updates the CRM. Every failure is
// logged and counted; none is returned. Missing delivery details skip the
// corresponding channel silently.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, del Delivery, p plan.Plan, itinerary string) {
	if d.mailer != nil && del.Email != "" {
		subject := "Your trip plan"
		if p.Destination != "" {
			subject = "Your trip plan for " + p.Destination
		}
		key := emailKey(sessionID, del.Email, subject, itinerary)
		switch {
		case d.alreadyDelivered(key):
			d.log.Debug(ctx, "duplicate itinerary email suppressed", "session", sessionID)
			d.metrics.IncCounter("trip_notify_suppressed", 1, "channel", "email")
		default:
			if err := d.mailer.SendItinerary(ctx, sessionID, del.Email, subject, itinerary); err != nil {
				// Not marked delivered: a later turn with the same itinerary
				// retries the send.
				d.log.Warn(ctx, "itinerary email failed", "session", sessionID, "err", err)
				d.metrics.IncCounter("trip_notify_errors", 1, "channel", "email")
			} else {
				d.markDelivered(key)
				d.metrics.IncCounter("trip_notify_sent", 1, "channel", "email")
			}
		}
	}
	if d.crm != nil && del.Email != "" {
		if err := d.crm.UpsertTraveler(ctx, sessionID, del.Name, del.Email, p); err != nil {
			d.log.Warn(ctx, "crm upsert failed", "session", sessionID, "err", err)
			d.metrics.IncCounter("trip_notify_errors", 1, "channel", "crm")
		} else {
			d.metrics.IncCounter("trip_notify_sent", 1, "channel", "crm")
		}
	}
}

func (d *Dispatcher) alreadyDelivered(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.delivered[key]
	return ok
}

func (d *Dispatcher) markDelivered(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered[key] = struct{}{}
}

// emailKey identifies one concrete email: the same recipient, subject and
// body within a session hash to the same key.
func emailKey(sessionID, recipient, subject, body string) string {
	h := sha256.New()
	for _, part := range []string{sessionID, recipient, subject, body} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
