package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/eternisai/social-push/internal/logger"
	"github.com/eternisai/social-push/internal/metrics"
	"github.com/nats-io/nats.go"
)

// NatsSubscriber consumes change events published on a NATS subject.
//
// Replicas join the same queue group so every event is handled by exactly
// one instance. Publishers that use request-reply receive the results.
type NatsSubscriber struct {
	nc           *nats.Conn
	router       *Router
	logger       *logger.Logger
	metrics      *metrics.Metrics
	subject      string
	queue        string
	subscription *nats.Subscription
}

// NewNatsSubscriber creates a subscriber. Returns nil if the NATS connection is not available.
func NewNatsSubscriber(nc *nats.Conn, router *Router, logger *logger.Logger, metrics *metrics.Metrics, subject, queue string) *NatsSubscriber {
	if nc == nil {
		return nil
	}

	return &NatsSubscriber{
		nc:      nc,
		router:  router,
		logger:  logger.WithComponent("nats-ingress"),
		metrics: metrics,
		subject: subject,
		queue:   queue,
	}
}

// Start begins consuming change events.
func (s *NatsSubscriber) Start() error {
	sub, err := s.nc.QueueSubscribe(s.subject, s.queue, s.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}

	s.subscription = sub
	s.logger.Info("nats ingress started",
		slog.String("subject", s.subject),
		slog.String("queue", s.queue))

	return nil
}

// drainPollInterval is how often Stop checks whether the drain has finished.
const drainPollInterval = 50 * time.Millisecond

// Stop drains the subscription and blocks until pending and running events
// have been handled or ctx is done. The connection must stay open until Stop
// returns.
func (s *NatsSubscriber) Stop(ctx context.Context) error {
	if s.subscription == nil {
		return nil
	}
	if err := s.subscription.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	if err := waitDrained(ctx, s.subscription.IsValid, drainPollInterval); err != nil {
		return fmt.Errorf("subscription drain did not finish: %w", err)
	}
	s.logger.Info("nats ingress stopped")
	return nil
}

// waitDrained polls valid until it reports false. A drained subscription is
// removed from its connection and stops being valid.
func waitDrained(ctx context.Context, valid func() bool, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for valid() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *NatsSubscriber) handleMessage(msg *nats.Msg) {
	ctx := logger.WithTransport(context.Background(), "nats")

	event, err := DecodeEnvelope(msg.Data)
	if err != nil {
		s.metrics.IngressError("nats")
		s.logger.Warn("dropping invalid change event",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return
	}

	results := s.router.Dispatch(ctx, event)

	if msg.Reply != "" {
		s.reply(ctx, msg, results)
	}
}

func (s *NatsSubscriber) reply(ctx context.Context, msg *nats.Msg, results []Result) {
	if results == nil {
		results = []Result{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		s.logger.LogError(ctx, err, "failed to marshal results", slog.String("subject", msg.Subject))
		return
	}

	if err := msg.Respond(data); err != nil {
		s.logger.LogError(ctx, err, "failed to send response", slog.String("subject", msg.Subject))
	}
}
