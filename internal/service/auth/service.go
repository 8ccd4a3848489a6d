// Package auth 管理员认证
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/committee-assistant/internal/config"
)

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

var (
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotConfigured 未配置管理员密码
	ErrNotConfigured = errors.New("admin password is not configured")
)

// ResolveSecret 返回配置的 JWT 密钥，未配置时生成进程内随机密钥
func ResolveSecret(configured string) []byte {
	if s := strings.TrimSpace(configured); s != "" {
		return []byte(s)
	}
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
	}
	log.Warn().Msg("auth.jwtSecret not set, using a random secret; tokens will not survive a restart")
	return []byte(base64.StdEncoding.EncodeToString(randomBytes))
}

// Service 认证服务
type Service struct {
	secret       []byte
	passwordHash []byte
	ttl          time.Duration
}

// NewService 创建认证服务
func NewService(cfg config.AuthConfig, secret []byte) *Service {
	ttl := time.Duration(cfg.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret:       secret,
		passwordHash: []byte(strings.TrimSpace(cfg.AdminPasswordHash)),
		ttl:          ttl,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Claims 令牌中的身份信息
type Claims struct {
	Role      string
	ExpiresAt time.Time
}

// IsAdmin 是否为管理员
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// Login 校验管理员密码并签发令牌
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrNotConfigured
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Invalid password",
		}, nil
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"role": RoleAdmin,
		"type": "access",
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken 验证访问令牌
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return nil, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	out := &Claims{Role: role}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// HashPassword 生成 bcrypt 哈希，用于写入 auth.adminPasswordHash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
