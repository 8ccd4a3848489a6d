package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ashwinyue/committee-assistant/internal/service"
	"github.com/ashwinyue/committee-assistant/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login 管理员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			ServiceUnavailable(c, err.Error())
			return
		}
		log.Error().Err(err).Msg("login failed")
		InternalServerError(c, "login failed")
		return
	}

	if !resp.Success {
		Unauthorized(c, resp.Message)
		return
	}

	Success(c, resp)
}
