// Package message 用户输入校验
package message

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength 默认最大字符数，按长公告文本设定
const DefaultMaxLength = 4000

var (
	// ErrEmpty 空消息或仅空白
	ErrEmpty = errors.New("message empty")
	// ErrTooLong 超出最大长度
	ErrTooLong = errors.New("message too long")
)

// Result 校验结果
type Result struct {
	Valid     bool  `json:"valid"`
	Length    int   `json:"length"`
	MaxLength int   `json:"max_length"`
	Error     error `json:"-"`
}

// Validator 消息校验器，无状态
type Validator struct {
	maxLength int
}

// NewValidator 创建校验器，maxLength <= 0 时使用默认值
func NewValidator(maxLength int) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Validator{maxLength: maxLength}
}

// MaxLength 最大字符数
func (v *Validator) MaxLength() int {
	return v.maxLength
}

// Validate 校验消息，长度按字符（rune）计算
func (v *Validator) Validate(msg string) Result {
	length := utf8.RuneCountInString(msg)
	res := Result{Length: length, MaxLength: v.maxLength}

	if strings.TrimSpace(msg) == "" {
		res.Error = ErrEmpty
		return res
	}
	if length > v.maxLength {
		res.Error = fmt.Errorf("%w: %d characters, maximum is %d", ErrTooLong, length, v.maxLength)
		return res
	}

	res.Valid = true
	return res
}
