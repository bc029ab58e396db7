package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOutcome(t *testing.T) {
	m := New()

	m.ObserveOutcome("chat_message", "sent", 20*time.Millisecond)
	m.ObserveOutcome("chat_message", "sent", 10*time.Millisecond)
	m.ObserveOutcome("friend_request", "skipped_no_change", time.Millisecond)

	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("chat_message", "sent")); got != 2 {
		t.Errorf("chat_message/sent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("friend_request", "skipped_no_change")); got != 1 {
		t.Errorf("friend_request/skipped_no_change = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOutcome("chat_message", "sent", time.Second)
	m.IngressError("http")
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.IngressError("nats")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `social_push_ingress_errors_total{transport="nats"} 1`) {
		t.Errorf("metrics output missing ingress counter:\n%s", rec.Body.String())
	}
}
