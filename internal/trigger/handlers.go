package trigger

import (
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/eternisai/social-push/internal/errors"
	"github.com/eternisai/social-push/internal/logger"
	"github.com/eternisai/social-push/internal/metrics"
	"github.com/gin-gonic/gin"
)

const maxEnvelopeBytes = 1 << 20

// Handler exposes the router over HTTP.
type Handler struct {
	router  *Router
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a new HTTP ingress handler.
func NewHandler(router *Router, logger *logger.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		router:  router,
		logger:  logger.WithComponent("http-ingress"),
		metrics: metrics,
	}
}

// RegisterRoutes mounts the ingress endpoints.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.POST("/events", h.HandleEvent)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"instance": logger.GetInstanceID(),
		"routes":   len(h.router.Routes()),
	})
}

// HandleEvent handles POST /events. Decided outcomes, including failed
// deliveries, are reported with 200; only undecodable bodies are rejected.
func (h *Handler) HandleEvent(c *gin.Context) {
	ctx := logger.WithTransport(c.Request.Context(), "http")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEnvelopeBytes))
	if err != nil {
		h.metrics.IngressError("http")
		h.logger.LogError(ctx, err, "failed to read change event body")
		apierrors.AbortWithBadRequest(c, "failed to read body", nil)
		return
	}

	event, err := DecodeEnvelope(body)
	if err != nil {
		h.metrics.IngressError("http")
		h.logger.WithContext(ctx).Warn("rejected change event", slog.String("error", err.Error()))
		apierrors.AbortWithBadRequest(c, "invalid change event", map[string]any{"cause": err.Error()})
		return
	}

	results := h.router.Dispatch(ctx, event)
	if results == nil {
		results = []Result{}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
