// Package http serves the local control API: auth state, login, logout,
// refresh, live sessions and metrics.
package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/app/orch"
	"github.com/dkeye/castlink/internal/config"
)

const requestIDHeader = "X-Request-ID"

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// SetupRouter builds the engine. ctx bounds background work started by
// handlers, which outlives the request that triggered it.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	h := &handlers{
		ctx:     ctx,
		orch:    o,
		limiter: NewRateLimiter(cfg.RefreshLimit, cfg.RefreshWindow),
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.GET("/state", h.authState)
	authGroup.POST("/login", h.login)
	authGroup.POST("/logout", h.logout)
	authGroup.POST("/refresh", h.refresh)

	sessions := api.Group("/sessions")
	sessions.GET("", h.listSessions)
	sessions.GET("/:key", h.getSession)
	sessions.DELETE("/:key", h.hangup)

	log.Info().Str("module", "adapters.http").Int("refresh_limit", cfg.RefreshLimit).Msg("router setup")
	return r
}
