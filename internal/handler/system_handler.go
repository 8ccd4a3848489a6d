package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/committee-assistant/internal/config"
)

// HealthChecker 依赖探活
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SystemHandler 系统处理器
type SystemHandler struct {
	cfg    *config.Config
	health HealthChecker
}

// NewSystemHandler 创建系统处理器，health 可为 nil
func NewSystemHandler(cfg *config.Config, health HealthChecker) *SystemHandler {
	return &SystemHandler{cfg: cfg, health: health}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.cfg != nil {
		body["version"] = h.cfg.App.Version
		body["environment"] = h.cfg.App.Environment
	}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}
