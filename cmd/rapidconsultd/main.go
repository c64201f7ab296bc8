// Package main is the entry point for the headless chat client daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/bridge"
	"github.com/nikhil-31/rapidconsult-sub000/internal/chat"
	"github.com/nikhil-31/rapidconsult-sub000/internal/config"
	"github.com/nikhil-31/rapidconsult-sub000/internal/handler"
	"github.com/nikhil-31/rapidconsult-sub000/internal/middleware"
	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/rest"
	"github.com/nikhil-31/rapidconsult-sub000/internal/session"
	"github.com/nikhil-31/rapidconsult-sub000/internal/socket"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat client daemon")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "rapidconsult-client", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	if cfg.Token == "" {
		log.Error("AUTH_TOKEN is required")
		os.Exit(1)
	}

	// Session context: a 401 anywhere kills the daemon cleanly instead of
	// hammering the API with a dead token.
	sess := session.New(cfg.Token, cfg.UserID, cfg.Username)
	sessionDead := make(chan string, 1)
	sess.OnInvalidate(func(reason string) {
		select {
		case sessionDead <- reason:
		default:
		}
	})

	restClient := rest.NewClient(cfg.APIBaseURL, sess, log)

	// Optional NATS bridge for downstream integrations.
	var eventBridge *bridge.Bridge
	if cfg.BridgeEnabled {
		eventBridge, err = bridge.Connect(bridge.Config{
			URL:           cfg.NATSURL,
			Token:         cfg.NATSToken,
			CAFile:        cfg.NATSCAFile,
			CertFile:      cfg.NATSCertFile,
			KeyFile:       cfg.NATSKeyFile,
			SubjectPrefix: cfg.BridgePrefix,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer eventBridge.Close()
	}

	publish := func(ev model.Event) {
		if eventBridge == nil {
			return
		}
		if err := eventBridge.Publish(ev); err != nil {
			log.Debug("bridge publish failed", zap.Error(err))
		}
	}

	// Always-on notification channel with heartbeat.
	notifier, err := socket.DialNotifier(ctx, socket.NotifierConfig{
		BaseURL:   cfg.WSBaseURL,
		Token:     cfg.Token,
		Heartbeat: cfg.HeartbeatInterval,
		OnEvent:   publish,
		OnStatus: func(st socket.Status) {
			log.Info("notification channel status", zap.String("status", string(st)))
		},
	}, log)
	if err != nil {
		log.Error("failed to open notification channel", zap.Error(err))
		os.Exit(1)
	}
	defer notifier.Close()

	chatSession := chat.NewSession(sess, restClient, chat.Options{
		WSBaseURL:         cfg.WSBaseURL,
		PageSize:          cfg.PageSize,
		ReconnectInterval: cfg.ReconnectInterval,
		MaxReconnects:     cfg.MaxReconnects,
		TypingExpiry:      cfg.TypingExpiry,
		TypingIdle:        cfg.TypingIdle,
		ReadReceiptDelay:  cfg.ReadReceiptDelay,
		Callbacks: chat.Callbacks{
			OnMessage: func(conversationID string, msg model.Message) {
				publish(model.MessageEchoEvent{Message: msg})
			},
			OnStatus: func(st socket.Status) {
				log.Info("conversation socket status", zap.String("status", string(st)))
			},
		},
	}, log)
	defer chatSession.Close()

	healthHandler := handler.NewHealthHandler(notifier)
	statusHandler := handler.NewStatusHandler(sess, notifier, chatSession)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "X-Correlation-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/status", statusHandler.Status)
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.DiagPort,
		Handler:      r,
		ReadTimeout:  cfg.DiagReadTimeout,
		WriteTimeout: cfg.DiagWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("diagnostics server listening", zap.String("port", cfg.DiagPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("diagnostics server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down")
	case reason := <-sessionDead:
		log.Error("session invalidated", zap.String("reason", reason))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("diagnostics server forced to shutdown", zap.Error(err))
	}

	log.Info("stopped")
}
