package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/committee-assistant/internal/handler"
	"github.com/ashwinyue/committee-assistant/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, tokens middleware.TokenValidator) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Auth 管理员登录
		v1.POST("/auth/login", h.Auth.Login)

		// Assistant 智能助手，仅管理员
		a := v1.Group("/assistant", middleware.RequireAdmin(tokens))
		{
			a.GET("/usage", h.Assistant.Usage)
			a.GET("/examples", h.Assistant.Examples)
			a.POST("/conversations", h.Assistant.StartConversation)
			a.POST("/turns", h.Assistant.Turn)
			a.POST("/translate", h.Assistant.Translate)
			a.GET("/logs", h.Assistant.Logs)
		}
	}

	return r
}
