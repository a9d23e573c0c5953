package http

import (
	"context"
	"net/http"
	"time"

	"sketchroom/internal/core/collab"
	"sketchroom/internal/core/ports"
	"sketchroom/internal/infrastructure/middleware"
	"sketchroom/internal/infrastructure/monitoring"
	"sketchroom/pkg/config"
	"sketchroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps is everything the HTTP surface is built from. Collector,
// Gatherer and Realtime are optional.
type RouterDeps struct {
	Config            *config.Config
	AuthService       ports.AuthService
	WhiteboardService ports.WhiteboardService
	Hub               *collab.Hub
	Health            *monitoring.HealthChecker
	Collector         *monitoring.PrometheusCollector
	Gatherer          prometheus.Gatherer
	Realtime          gin.HandlerFunc
	Logger            *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger.Sugar()
	startTime := time.Now()

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestLoggerMiddleware(logger.NewContextLogger(deps.Logger), deps.Collector),
		middleware.TracingMiddleware(cfg.Realtime.Path),
		middleware.ErrorHandlerMiddleware(log),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	cookie := CookieConfig{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.SecureCookie,
	}
	var snapshots SnapshotRecorder
	if deps.Collector != nil {
		snapshots = deps.Collector
	}
	var presence Presence
	if deps.Hub != nil {
		presence = deps.Hub
	}

	NewAuthHandler(deps.AuthService, cookie, log).SetupRoutes(router)

	authed := router.Group("")
	authed.Use(middleware.AuthMiddleware(deps.AuthService, cookie.Name))
	NewWhiteboardHandler(deps.WhiteboardService, snapshots, presence, log).SetupRoutes(authed)

	if deps.Realtime != nil {
		router.GET(cfg.Realtime.Path, deps.Realtime)
	}

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		}
		if deps.Hub != nil {
			body["realtime"] = deps.Hub.Stats()
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := deps.Health.CheckAll(ctx)
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
