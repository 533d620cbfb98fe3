package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	logger  *zap.Logger
	service string
	store   any
}

// NewHealthHandler reports the store as reachable when it does not implement Pinger.
func NewHealthHandler(logger *zap.Logger, service string, store any) *HealthHandler {
	return &HealthHandler{logger: logger, service: service, store: store}
}

// Health handles GET /api/v1/health
// @Summary      Health check endpoint
// @Description  Reports whether the service is up and its store answers.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Service: h.service, Store: "ok"}

	if p, ok := h.store.(Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Store health check failed", zap.Error(err))
			resp.Status, resp.Store = "degraded", "unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}
