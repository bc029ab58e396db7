package trigger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestEngine(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(f.router, testLogger(), f.metrics).RegisterRoutes(engine)
	return engine
}

func TestHandleEvent(t *testing.T) {
	f := newFixture(nil)
	engine := newTestEngine(f)

	body := `{"path": "users/A", "before": {"friends": []}, "after": {"friends": ["B"], "displayName": "Alice"}}`
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %+v, want 2", resp.Results)
	}
	if resp.Results[1].Trigger != dispatch.TriggerFriendRequestAccepted || resp.Results[1].Outcome != dispatch.OutcomeSent {
		t.Errorf("accepted result = %+v", resp.Results[1])
	}
	if len(f.notifier.tokens) != 1 || f.notifier.tokens[0] != "T2" {
		t.Errorf("tokens = %v, want [T2]", f.notifier.tokens)
	}
}

func TestHandleEventUnrouted(t *testing.T) {
	f := newFixture(nil)
	engine := newTestEngine(f)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"path": "posts/1", "after": {}}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"results":[]}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleEventRejectsInvalidBody(t *testing.T) {
	f := newFixture(nil)
	engine := newTestEngine(f)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`not json`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := testutil.ToFloat64(f.metrics.IngressErrors.WithLabelValues("http")); got != 1 {
		t.Errorf("ingress errors = %v, want 1", got)
	}
}

func TestHealthCheck(t *testing.T) {
	engine := newTestEngine(newFixture(nil))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"routes":3`) {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}
