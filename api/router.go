package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/api/handler"
	"github.com/use-agent/pricewatch/api/middleware"
	"github.com/use-agent/pricewatch/batch"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/extractor"
)

// Deps are the long-lived components shared by the handlers.
type Deps struct {
	Registry *extractor.Registry
	Driver   *batch.Driver
	Browser  *engine.Browser // nil unless a local browser is running
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	API:     RateLimit
//
// Health is outside the rate limit so monitoring probes always work.
// Background middleware work stops when ctx is done.
func NewRouter(ctx context.Context, deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		slog.Warn("invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(deps.Registry, deps.Browser, startTime))

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	limited.GET("/competitors", handler.Competitors(deps.Registry))
	limited.POST("/extract", handler.Extract(deps.Registry))

	limited.POST("/batch", handler.Batch(deps.Driver, cfg.Batch))
	limited.POST("/upload", handler.Upload(deps.Driver, cfg.Batch, cfg.Server.MaxUploadBytes))

	limited.POST("/report/export", handler.Export())

	return r
}
