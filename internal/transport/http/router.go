// Package http exposes the quiz link API over gin and the live attempt protocol over WebSocket.
package http

import (
	"log/slog"
	"net/http"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Service is the interface that should be registered to the router.
type Service interface {
	// Register registers the service with the given router.
	Register(router gin.IRouter)
}

// Register registers the services with the given router.
func Register(router gin.IRouter, services ...Service) {
	for _, service := range services {
		service.Register(router)
	}
}

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	// Metrics, when set, receives HTTP metrics and is served on /metrics.
	Metrics *prometheus.Registry
	// TracingService, when set, names the otelgin server spans.
	TracingService string
}

// NewRouter builds the gin engine with the shared middleware stack and mounts the services.
func NewRouter(cfg RouterConfig, services ...Service) *gin.Engine {
	engine := gin.New()

	engine.Use(newCors(cfg.AllowedOrigins))
	if cfg.Logger != nil {
		engine.Use(sloggin.New(cfg.Logger))
	}
	if cfg.TracingService != "" {
		engine.Use(otelgin.Middleware(cfg.TracingService))
	}
	if cfg.Metrics != nil {
		p := ginprom.New(
			ginprom.Engine(engine),
			ginprom.Registry(cfg.Metrics),
			ginprom.Path("/metrics"),
			ginprom.Ignore("/healthz", "/metrics"),
		)
		engine.Use(p.Instrument())
	}
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	Register(engine, services...)
	return engine
}

func newCors(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Admin-Email", "User-Agent", "Referer"},
	}
	if len(origins) == 0 || lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
