package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sketchroom/internal/core/collab"
	"sketchroom/internal/core/services"
	httphandlers "sketchroom/internal/handlers/http"
	"sketchroom/internal/infrastructure/monitoring"
	"sketchroom/internal/infrastructure/realtime"
	repositories "sketchroom/internal/infrastructure/repositories"
	"sketchroom/pkg/config"
	"sketchroom/pkg/logger"
	"sketchroom/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := os.Getenv("SKETCHROOM_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// the logger is not up yet
		os.Stderr.WriteString("sketchroom: " + err.Error() + "\n")
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "sketchroom",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Warnw("tracing disabled", "error", err)
		tp, _ = tracing.Init(tracing.Config{})
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	users := repoFactory.CreateUserRepository()
	authService := services.NewAuthService(users, repoFactory.CreateSessionRepository(), services.AuthConfig{
		Secret:     cfg.Session.Secret,
		SessionTTL: cfg.Session.TTL,
	}, log)
	whiteboardService := services.NewWhiteboardService(
		repoFactory.CreateWhiteboardRepository(),
		repoFactory.CreateSnapshotRepository(),
		users,
		cfg.Snapshot.MaxBytes,
		log,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := monitoring.NewPrometheusCollector(registry)

	hub := collab.NewHub(whiteboardService, cfg.Realtime.SendQueueSize, collector, log)

	wsOpts := realtime.DefaultOptions()
	wsOpts.CookieName = cfg.Session.CookieName
	if len(cfg.Auth.AllowedOrigins) > 0 {
		wsOpts.AllowedOrigins = cfg.Auth.AllowedOrigins
	}
	if cfg.Realtime.PingInterval > 0 {
		wsOpts.PingInterval = cfg.Realtime.PingInterval
	}
	if cfg.Realtime.PongTimeout > 0 {
		wsOpts.PongTimeout = cfg.Realtime.PongTimeout
	}
	if cfg.Realtime.WriteTimeout > 0 {
		wsOpts.WriteTimeout = cfg.Realtime.WriteTimeout
	}
	if cfg.RateLimiting.Enabled {
		wsOpts.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		wsOpts.Burst = cfg.RateLimiting.WebSocket.Burst
		wsOpts.MaxMessageBytes = cfg.RateLimiting.WebSocket.MaxMessageSizeBytes
	}
	wsServer := realtime.NewServer(hub, authService, wsOpts, log)

	health := monitoring.NewHealthChecker()
	health.AddStorageCheck(repoFactory, 2*time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httphandlers.NewRouter(httphandlers.RouterDeps{
		Config:            cfg,
		AuthService:       authService,
		WhiteboardService: whiteboardService,
		Hub:               hub,
		Health:            health,
		Collector:         collector,
		Gatherer:          registry,
		Realtime:          wsServer.Handle,
		Logger:            zapLogger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting sketchroom server",
			"address", cfg.Server.Address,
			"storage", repoFactory.Backend(),
			"realtime_path", cfg.Realtime.Path,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	// hijacked websockets are not tracked by http.Server
	hub.DisconnectAll()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repositories", "error", err)
	}

	log.Info("sketchroom server stopped")
}
