package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eternisai/social-push/internal/config"
	"github.com/eternisai/social-push/internal/directory"
	"github.com/eternisai/social-push/internal/dispatch"
	apierrors "github.com/eternisai/social-push/internal/errors"
	"github.com/eternisai/social-push/internal/logger"
	"github.com/eternisai/social-push/internal/metrics"
	"github.com/eternisai/social-push/internal/notifications"
	"github.com/eternisai/social-push/internal/platform"
	"github.com/eternisai/social-push/internal/trigger"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	log.Info("setting gin mode", slog.String("mode", cfg.GinMode))
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	firebaseClient, err := platform.NewFirebaseClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredJSON)
	if err != nil {
		log.Error("failed to initialize firebase", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer firebaseClient.Close()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// Initialize services
	notifier := notifications.NewService(firebaseClient.Messaging, log, cfg.PushNotificationsEnabled)
	if cfg.PushDebugCurl && cfg.FirebaseCredJSON != "" {
		notifier.WithDebugCurl(notifications.DebugCredentials{
			CredJSON:  cfg.FirebaseCredJSON,
			ProjectID: cfg.FirebaseProjectID,
		})
	}

	decider := dispatch.NewDecider(
		directory.NewUserDirectory(firebaseClient.Firestore),
		notifier,
		log.WithComponent("notification-decider"),
		dispatch.WithTimeout(cfg.NotificationTimeout),
	)

	router := trigger.NewRouter(log, m)
	trigger.RegisterDecider(router, decider, cfg.Triggers.Enabled)

	// Initialize Gin router
	engine := gin.New()
	engine.Use(gin.Recovery())
	trigger.NewHandler(router, log, m).RegisterRoutes(engine)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	engine.NoRoute(func(c *gin.Context) {
		apierrors.AbortWithNotFound(c, "route not found", map[string]any{"path": c.Request.URL.Path})
	})

	// NATS ingress
	var natsConn *nats.Conn
	var natsSubscriber *trigger.NatsSubscriber
	if cfg.NatsURL != "" {
		natsConn, err = nats.Connect(cfg.NatsURL, nats.Name("social-push-"+logger.GetInstanceID()))
		if err != nil {
			log.Error("failed to connect to NATS", slog.String("url", cfg.NatsURL), slog.String("error", err.Error()))
			os.Exit(1)
		}
		natsSubscriber = trigger.NewNatsSubscriber(natsConn, router, log, m, cfg.NatsSubject, cfg.NatsQueue)
		if err := natsSubscriber.Start(); err != nil {
			log.Error("failed to start NATS ingress", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		log.Info("NATS_URL not set, NATS ingress disabled")
	}

	// Firestore watcher ingress
	watchErr := make(chan error, 1)
	if cfg.FirestoreWatchEnabled {
		watcher := trigger.NewWatcher(firebaseClient.Firestore, router, log)
		go func() {
			watchErr <- watcher.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(ctx, err, "failed to start server")
			stop()
		}
	}()

	log.Info("🔔 social-push listening",
		slog.String("port", cfg.Port),
		slog.Int("routes", len(router.Routes())),
		slog.Bool("push_enabled", cfg.PushNotificationsEnabled),
		slog.Bool("firestore_watch", cfg.FirestoreWatchEnabled),
		slog.Bool("nats", natsSubscriber != nil))

	// Graceful shutdown.
	select {
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil {
			log.LogError(ctx, err, "firestore watcher failed")
		}
	}
	stop()

	log.Info("🛑 shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if natsSubscriber != nil {
		if err := natsSubscriber.Stop(shutdownCtx); err != nil {
			log.LogError(shutdownCtx, err, "failed to stop NATS ingress")
		}
		natsConn.Close()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(shutdownCtx, err, "server forced to shutdown")
	}

	log.Info("✅ server exited")
}
