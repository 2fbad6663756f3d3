package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/app/auth"
	"github.com/dkeye/castlink/internal/app/orch"
	"github.com/dkeye/castlink/internal/app/session"
	"github.com/dkeye/castlink/internal/domain"
)

type handlers struct {
	ctx     context.Context
	orch    *orch.Orchestrator
	limiter *RateLimiter
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	TrackingID string `json:"tracking_id"`
}

func (h *handlers) authState(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.AuthState())
}

// login answers 202 right away, or 200 with the final state when ?wait=1.
func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task := h.orch.Login(h.ctx, domain.Credentials{
		Email:      req.Email,
		Password:   req.Password,
		TrackingID: req.TrackingID,
	})
	log.Info().Str("module", "adapters.http").Str("rid", c.GetString("request_id")).Msg("login accepted")
	h.respondTask(c, task)
}

func (h *handlers) logout(c *gin.Context) {
	h.orch.Logout()
	c.JSON(http.StatusOK, h.orch.AuthState())
}

func (h *handlers) refresh(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		log.Warn().Str("module", "adapters.http").Str("client", c.ClientIP()).Msg("refresh rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many refresh requests"})
		return
	}
	h.respondTask(c, h.orch.RequestRefresh(h.ctx))
}

func (h *handlers) respondTask(c *gin.Context, task *auth.Task) {
	if c.Query("wait") == "" {
		c.JSON(http.StatusAccepted, h.orch.AuthState())
		return
	}
	select {
	case <-task.Done():
		c.JSON(http.StatusOK, h.orch.AuthState())
	case <-c.Request.Context().Done():
		c.Status(http.StatusRequestTimeout)
	}
}

func (h *handlers) listSessions(c *gin.Context) {
	keys := h.orch.Sessions.Keys()
	out := make([]orch.SessionView, 0, len(keys))
	for _, k := range keys {
		if v, ok := h.orch.SessionView(k); ok {
			out = append(out, v)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getSession(c *gin.Context) {
	key, ok := sessionKey(c)
	if !ok {
		return
	}
	v, found := h.orch.SessionView(key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) hangup(c *gin.Context) {
	key, ok := sessionKey(c)
	if !ok {
		return
	}
	if !h.orch.OnHangup(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func sessionKey(c *gin.Context) (domain.SessionKey, bool) {
	n, err := strconv.ParseInt(c.Param("key"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session key"})
		return 0, false
	}
	return domain.SessionKey(n), true
}
