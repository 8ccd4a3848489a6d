package assistant

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	stateIssuer   = "committee-assistant"
	stateAudience = "assistant-state"
)

// ErrInvalidStateToken 状态令牌无效、被篡改或已过期
var ErrInvalidStateToken = errors.New("invalid conversation state")

type stateClaims struct {
	Conversation Conversation `json:"conv"`
	jwt.RegisteredClaims
}

// StateCodec 会话状态的 HS256 签名编解码
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateCodec 创建状态编解码器，ttl 为令牌有效期
func NewStateCodec(secret []byte, ttl time.Duration) *StateCodec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StateCodec{secret: secret, ttl: ttl, now: time.Now}
}

// Encode 签名会话状态
func (c *StateCodec) Encode(conv Conversation) (string, error) {
	now := c.now()
	claims := stateClaims{
		Conversation: conv,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			Subject:   conv.SessionID,
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return token, nil
}

// Decode 校验签名并还原会话状态
func (c *StateCodec) Decode(token string) (Conversation, error) {
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Conversation{}, fmt.Errorf("%w: %v", ErrInvalidStateToken, err)
	}
	if claims.Conversation.SessionID == "" || claims.Conversation.SessionID != claims.Subject {
		return Conversation{}, fmt.Errorf("%w: session mismatch", ErrInvalidStateToken)
	}
	return claims.Conversation, nil
}
