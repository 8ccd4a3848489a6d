package handler

import (
	"github.com/ashwinyue/committee-assistant/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth      *AuthHandler
	Assistant *AssistantHandler
	System    *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, health HealthChecker) *Handlers {
	return &Handlers{
		Auth:      NewAuthHandler(svc),
		Assistant: NewAssistantHandler(svc),
		System:    NewSystemHandler(svc.Config, health),
	}
}
