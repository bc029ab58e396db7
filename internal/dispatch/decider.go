package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Decision is the result of classifying a change event and resolving the
// identities it references. Token and Payload are set only while
// Outcome is pending.
type Decision struct {
	Intent  Intent
	Token   string
	Payload Payload
	Outcome Outcome
}

// Decider turns change events into at most one push notification each.
// It holds no mutable state and is safe for concurrent use.
type Decider struct {
	lookup   IdentityLookup
	notifier Notifier
	logger   Logger
	timeout  time.Duration
}

// Option configures a Decider.
type Option func(*Decider)

// WithTimeout bounds every entry point invocation, lookups and delivery included.
func WithTimeout(d time.Duration) Option {
	return func(dc *Decider) {
		dc.timeout = d
	}
}

// NewDecider creates a decider over the given collaborators.
func NewDecider(lookup IdentityLookup, notifier Notifier, logger Logger, opts ...Option) *Decider {
	d := &Decider{
		lookup:   lookup,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleChatMessageCreated is the entry point for chat_rooms/{id}/messages/{id} creation.
func (d *Decider) HandleChatMessageCreated(ctx context.Context, event ChangeEvent) Outcome {
	return d.run(ctx, TriggerChatMessage, event, d.DecideChatMessage)
}

// HandleFriendRequestReceived is the entry point for users/{id} updates that
// may add an incoming friend request.
func (d *Decider) HandleFriendRequestReceived(ctx context.Context, event ChangeEvent) Outcome {
	return d.run(ctx, TriggerFriendRequest, event, d.DecideFriendRequest)
}

// HandleFriendRequestAccepted is the entry point for users/{id} updates that
// may add a confirmed friend.
func (d *Decider) HandleFriendRequestAccepted(ctx context.Context, event ChangeEvent) Outcome {
	return d.run(ctx, TriggerFriendRequestAccepted, event, d.DecideFriendRequestAccepted)
}

// Handle dispatches to the entry point named by trigger.
func (d *Decider) Handle(ctx context.Context, trigger Trigger, event ChangeEvent) Outcome {
	switch trigger {
	case TriggerChatMessage:
		return d.HandleChatMessageCreated(ctx, event)
	case TriggerFriendRequest:
		return d.HandleFriendRequestReceived(ctx, event)
	case TriggerFriendRequestAccepted:
		return d.HandleFriendRequestAccepted(ctx, event)
	}
	outcome := malformed("unknown trigger %q", trigger)
	d.record(ctx, trigger, event, Decision{Outcome: outcome})
	return outcome
}

type decideFunc func(ctx context.Context, event ChangeEvent) Decision

func (d *Decider) run(ctx context.Context, trigger Trigger, event ChangeEvent, decide decideFunc) Outcome {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	decision := decide(ctx, event)
	if decision.Outcome.Pending() {
		decision.Outcome = d.deliver(ctx, decision)
	}

	d.record(ctx, trigger, event, decision)
	return decision.Outcome
}

func (d *Decider) deliver(ctx context.Context, decision Decision) Outcome {
	if err := d.notifier.Send(ctx, decision.Token, decision.Payload); err != nil {
		return failed(err)
	}
	return Outcome{Status: OutcomeSent}
}

// resolve looks up an identity, mapping a missing record to a skip and any
// other error to a delivery failure.
func (d *Decider) resolve(ctx context.Context, id string) (*Identity, Outcome) {
	identity, err := d.lookup.GetIdentity(ctx, id)
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		return nil, skip(OutcomeSkippedNoRecipient, fmt.Sprintf("user %s not found", id))
	case err != nil:
		return nil, failed(fmt.Errorf("lookup user %s: %w", id, err))
	case identity == nil:
		return nil, skip(OutcomeSkippedNoRecipient, fmt.Sprintf("user %s not found", id))
	}
	return identity, Outcome{}
}

func (d *Decider) record(ctx context.Context, trigger Trigger, event ChangeEvent, decision Decision) {
	if d.logger == nil {
		return
	}

	level := slog.LevelInfo
	switch {
	case decision.Outcome.Status == OutcomeDeliveryFailed:
		level = slog.LevelError
	case decision.Outcome.Status == OutcomeSkippedNoChange:
		level = slog.LevelDebug
	case decision.Outcome.Skipped():
		level = slog.LevelWarn
	}

	args := []any{
		slog.String("trigger", string(trigger)),
		slog.String("path", event.PathString()),
		slog.String("outcome", string(decision.Outcome.Status)),
	}
	if event.ID != "" {
		args = append(args, slog.String("event_id", event.ID))
	}
	if decision.Outcome.Reason != "" {
		args = append(args, slog.String("reason", decision.Outcome.Reason))
	}
	if decision.Intent.RecipientID != "" {
		args = append(args, slog.String("recipient_id", decision.Intent.RecipientID))
	}
	if decision.Intent.SenderID != "" {
		args = append(args, slog.String("sender_id", decision.Intent.SenderID))
	}
	if decision.Intent.Ignored > 0 {
		args = append(args, slog.Int("ignored_additions", decision.Intent.Ignored))
	}

	d.logger.Log(ctx, level, "notification "+string(decision.Outcome.Status), args...)
}
