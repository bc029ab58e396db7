package trigger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/eternisai/social-push/internal/logger"
	"github.com/eternisai/social-push/internal/metrics"
)

// ChangeKind classifies a change event by which snapshots it carries.
type ChangeKind string

const (
	KindCreate ChangeKind = "create"
	KindUpdate ChangeKind = "update"
	KindDelete ChangeKind = "delete"
)

// KindOf derives the change kind from the presence of the before/after states.
func KindOf(event dispatch.ChangeEvent) ChangeKind {
	switch {
	case event.Before == nil:
		return KindCreate
	case event.After == nil:
		return KindDelete
	}
	return KindUpdate
}

// HandlerFunc is a decider entry point.
type HandlerFunc func(ctx context.Context, event dispatch.ChangeEvent) dispatch.Outcome

// Route binds a resource path pattern and change kind to an entry point.
// Pattern segments written as {name} match any single non-empty segment.
type Route struct {
	Pattern string
	Kind    ChangeKind
	Trigger dispatch.Trigger

	segments []string
	handle   HandlerFunc
}

// Result is the outcome of one entry point for one event.
type Result struct {
	Trigger dispatch.Trigger       `json:"trigger"`
	Outcome dispatch.OutcomeStatus `json:"outcome"`
	Reason  string                 `json:"reason,omitempty"`
}

// Router maps change events to decider entry points. An event may match
// several routes; each is invoked independently, in registration order.
type Router struct {
	routes  []Route
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewRouter creates an empty router. metrics may be nil.
func NewRouter(logger *logger.Logger, metrics *metrics.Metrics) *Router {
	return &Router{
		logger:  logger.WithComponent("trigger-router"),
		metrics: metrics,
	}
}

// Handle registers an entry point for pattern and kind.
func (r *Router) Handle(pattern string, kind ChangeKind, trigger dispatch.Trigger, handle HandlerFunc) {
	r.routes = append(r.routes, Route{
		Pattern:  pattern,
		Kind:     kind,
		Trigger:  trigger,
		segments: dispatch.ParsePath(pattern),
		handle:   handle,
	})
}

// Routes returns the registered routes.
func (r *Router) Routes() []Route {
	return r.routes
}

// RegisterDecider mounts the three decider entry points. Triggers for which
// enabled returns false are not mounted.
func RegisterDecider(r *Router, d *dispatch.Decider, enabled func(name string) bool) {
	routes := []struct {
		pattern string
		kind    ChangeKind
		trigger dispatch.Trigger
		handle  HandlerFunc
	}{
		{"chat_rooms/{chatRoomId}/messages/{messageId}", KindCreate, dispatch.TriggerChatMessage, d.HandleChatMessageCreated},
		{"users/{userId}", KindUpdate, dispatch.TriggerFriendRequest, d.HandleFriendRequestReceived},
		{"users/{userId}", KindUpdate, dispatch.TriggerFriendRequestAccepted, d.HandleFriendRequestAccepted},
	}

	for _, rt := range routes {
		if enabled != nil && !enabled(string(rt.trigger)) {
			r.logger.Info("trigger disabled", slog.String("trigger", string(rt.trigger)))
			continue
		}
		r.Handle(rt.pattern, rt.kind, rt.trigger, rt.handle)
	}
}

// Dispatch invokes every entry point whose route matches the event. Events
// matching nothing produce no results.
func (r *Router) Dispatch(ctx context.Context, event dispatch.ChangeEvent) []Result {
	if event.ID == "" {
		event.ID = logger.GenerateEventID()
	}
	ctx = logger.WithEventID(ctx, event.ID)
	kind := KindOf(event)

	var results []Result
	for _, route := range r.routes {
		if route.Kind != kind {
			continue
		}
		params, ok := match(route.segments, event.Path)
		if !ok {
			continue
		}

		routeCtx := logger.WithTrigger(ctx, string(route.Trigger))
		if userID := params["userId"]; userID != "" {
			routeCtx = logger.WithUserID(routeCtx, userID)
		}

		start := time.Now()
		outcome := route.handle(routeCtx, event)
		r.metrics.ObserveOutcome(string(route.Trigger), string(outcome.Status), time.Since(start))

		results = append(results, Result{
			Trigger: route.Trigger,
			Outcome: outcome.Status,
			Reason:  outcome.Reason,
		})
	}

	if len(results) == 0 {
		r.logger.WithContext(ctx).Debug("no route for change event",
			slog.String("path", event.PathString()),
			slog.String("kind", string(kind)))
	}

	return results
}

// match compares a pattern against a path and returns the captured parameters.
func match(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if path[i] == "" {
				return nil, false
			}
			params[seg[1:len(seg)-1]] = path[i]
			continue
		}
		if seg != path[i] {
			return nil, false
		}
	}

	return params, true
}
