package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/committee-assistant/internal/service/assistant"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应，Data 携带可继续使用的会话状态
type ErrorResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Kind string      `json:"kind,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Msg: msg})
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: http.StatusUnauthorized, Msg: msg})
}

// ServiceUnavailable 503 错误响应
func ServiceUnavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: http.StatusServiceUnavailable, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: http.StatusInternalServerError, Msg: msg})
}

// AssistantError 按错误类别返回状态码
func AssistantError(c *gin.Context, e *assistant.Error, data interface{}) {
	status := StatusFor(e.Kind)
	c.JSON(status, ErrorResponse{Code: status, Msg: e.Message, Kind: string(e.Kind), Data: data})
}

// StatusFor 错误类别到 HTTP 状态码
func StatusFor(kind assistant.ErrorKind) int {
	switch kind {
	case assistant.ErrInput, assistant.ErrRoundLimit:
		return http.StatusBadRequest
	case assistant.ErrUnauthorized:
		return http.StatusUnauthorized
	case assistant.ErrQuota:
		return http.StatusTooManyRequests
	case assistant.ErrUpstream:
		return http.StatusBadGateway
	case assistant.ErrInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
