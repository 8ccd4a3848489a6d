package handler

import (
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ashwinyue/committee-assistant/internal/middleware"
	"github.com/ashwinyue/committee-assistant/internal/service"
	"github.com/ashwinyue/committee-assistant/internal/service/assistant"
	"github.com/ashwinyue/committee-assistant/internal/service/examples"
	"github.com/ashwinyue/committee-assistant/internal/service/translation"
)

// AssistantHandler 智能助手处理器
type AssistantHandler struct {
	svc *service.Services
}

// NewAssistantHandler 创建智能助手处理器
func NewAssistantHandler(svc *service.Services) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// TurnRequest 一次会话请求
type TurnRequest struct {
	State       string           `json:"state" binding:"required"`
	Action      assistant.Action `json:"action" binding:"required,oneof=select_type message confirm edit cancel"`
	Message     string           `json:"message"`
	ContentType string           `json:"content_type"`
}

// TranslateRequest 表单字段批量翻译请求，key 为字段名
type TranslateRequest struct {
	Texts map[string]string `json:"texts" binding:"required,min=1"`
}

// TranslateResponse 翻译结果，失败的字段列在 failed 中
type TranslateResponse struct {
	Translations map[string]string `json:"translations"`
	Failed       []string          `json:"failed,omitempty"`
}

// Usage 当日配额
// GET /api/v1/assistant/usage
func (h *AssistantHandler) Usage(c *gin.Context) {
	Success(c, h.svc.Quota.GetUsage(c.Request.Context()))
}

// Examples 示例提示
// GET /api/v1/assistant/examples?phase=&input=&category=
func (h *AssistantHandler) Examples(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		Success(c, h.svc.Examples.All(examples.Category(category)))
		return
	}
	Success(c, h.svc.Examples.Contextual(c.Query("phase"), c.Query("input")))
}

// StartConversation 开始新会话
// POST /api/v1/assistant/conversations
func (h *AssistantHandler) StartConversation(c *gin.Context) {
	resp := h.svc.Assistant.Start(c.Request.Context(), middleware.IsAdmin(c))
	if resp.Error != nil {
		AssistantError(c, resp.Error, nil)
		return
	}
	Created(c, resp)
}

// Turn 处理一次用户动作
// POST /api/v1/assistant/turns
func (h *AssistantHandler) Turn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	resp := h.svc.Assistant.Handle(c.Request.Context(), assistant.TurnRequest{
		IsAdmin:     middleware.IsAdmin(c),
		State:       req.State,
		Action:      req.Action,
		Message:     req.Message,
		ContentType: req.ContentType,
	})
	if resp.Error != nil {
		AssistantError(c, resp.Error, resp)
		return
	}
	Success(c, resp)
}

// Translate 表单字段批量翻译
// POST /api/v1/assistant/translate
func (h *AssistantHandler) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	keys := make([]string, 0, len(req.Texts))
	for key := range req.Texts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	entries := make([]translation.Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, translation.Entry{Key: key, Text: req.Texts[key]})
	}

	batch, e := h.svc.Assistant.Translate(c.Request.Context(), middleware.IsAdmin(c), entries)
	if e != nil {
		AssistantError(c, e, nil)
		return
	}

	resp := TranslateResponse{Translations: batch.Texts}
	for _, f := range batch.Failures {
		resp.Failed = append(resp.Failed, f.Key)
	}
	Success(c, resp)
}

// Logs 会话审计日志
// GET /api/v1/assistant/logs?session_id=&limit=
func (h *AssistantHandler) Logs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		BadRequest(c, "limit must be between 1 and 500")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		BadRequest(c, "offset must be >= 0")
		return
	}

	entries, err := h.svc.ChatLogs.List(c.Request.Context(), c.Query("session_id"), offset, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list assistant logs")
		InternalServerError(c, "failed to list logs")
		return
	}
	Success(c, entries)
}
