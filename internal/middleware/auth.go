package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/committee-assistant/internal/service/auth"
)

const (
	ctxClaims  = "claims"
	ctxIsAdmin = "is_admin"
)

// TokenValidator 访问令牌校验
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

// RequireAdmin 要求管理员令牌
// 必须提供有效的 JWT token 且角色为 admin，否则返回 401
func RequireAdmin(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Invalid Authorization header format")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := v.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}
		if !claims.IsAdmin() {
			abortUnauthorized(c, "admin access required")
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxIsAdmin, true)
		c.Next()
	}
}

// IsAdmin 当前请求是否已通过管理员认证
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}

// GetClaims 从上下文获取令牌信息
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(401, gin.H{
		"code": 401,
		"msg":  msg,
		"kind": "unauthorized",
	})
}
