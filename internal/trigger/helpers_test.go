package trigger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/eternisai/social-push/internal/logger"
	"github.com/eternisai/social-push/internal/metrics"
)

type memoryDirectory map[string]*dispatch.Identity

func (m memoryDirectory) GetIdentity(ctx context.Context, id string) (*dispatch.Identity, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("users/%s: %w", id, dispatch.ErrIdentityNotFound)
}

type recordingNotifier struct {
	mu     sync.Mutex
	tokens []string
	titles []string
}

func (r *recordingNotifier) Send(ctx context.Context, token string, payload dispatch.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	r.titles = append(r.titles, payload.Title)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelDebug, Format: "json", Output: &bytes.Buffer{}})
}

type fixture struct {
	router   *Router
	notifier *recordingNotifier
	metrics  *metrics.Metrics
}

func newFixture(enabled func(string) bool) *fixture {
	log := testLogger()
	notifier := &recordingNotifier{}
	directory := memoryDirectory{
		"A": {ID: "A", DisplayName: "Alice", DeliveryToken: "T1"},
		"B": {ID: "B", DisplayName: "Bob", DeliveryToken: "T2"},
	}
	m := metrics.New()
	d := dispatch.NewDecider(directory, notifier, log)
	r := NewRouter(log, m)
	RegisterDecider(r, d, enabled)
	return &fixture{router: r, notifier: notifier, metrics: m}
}
