// Package translation 尽力而为的第二语言翻译
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

// 默认语言对
const (
	DefaultSource = "Hebrew"
	DefaultTarget = "Russian"
)

const instruction = `Translate the user's text from %s to %s.
Preserve the tone, line breaks and formatting (lists, emoji, punctuation).
Transliterate proper nouns such as names of people, schools and places.
Output only the translation, without quotes, notes or explanations.`

// ErrEmptyTranslation 模型返回空文本
var ErrEmptyTranslation = errors.New("empty translation")

// Result 单条翻译结果
type Result struct {
	Text  string
	Usage *schema.TokenUsage
	Err   error
}

// Entry 批量翻译的一项
type Entry struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Failure 批量中失败的一项
type Failure struct {
	Key string
	Err error
}

// Batch 批量翻译的明细结果
type Batch struct {
	Texts    map[string]string
	Failures []Failure
	Usage    schema.TokenUsage // 成功调用的用量累计
	Calls    int
}

// Config 翻译配置
type Config struct {
	Model   string
	Source  string
	Target  string
	Timeout time.Duration // 单条超时
}

// Service 翻译服务
type Service struct {
	chatModel model.BaseChatModel
	cfg       Config
}

// NewService 创建翻译服务
func NewService(chatModel model.BaseChatModel, cfg Config) *Service {
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{chatModel: chatModel, cfg: cfg}
}

// Model 使用的模型名
func (s *Service) Model() string {
	return s.cfg.Model
}

// Translate 翻译单条文本
func (s *Service) Translate(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(instruction, s.cfg.Source, s.cfg.Target)),
		schema.UserMessage(text),
	})
	if err != nil {
		return Result{Err: fmt.Errorf("failed to translate: %w", err)}
	}
	if resp == nil {
		return Result{Err: ErrEmptyTranslation}
	}

	var usage *schema.TokenUsage
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := *resp.ResponseMeta.Usage
		usage = &u
	}

	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return Result{Usage: usage, Err: ErrEmptyTranslation}
	}
	return Result{Text: out, Usage: usage}
}

// BatchTranslate 逐条翻译，失败项不出现在结果中
func (s *Service) BatchTranslate(ctx context.Context, entries []Entry) map[string]string {
	return s.BatchTranslateDetailed(ctx, entries).Texts
}

// BatchTranslateDetailed 逐条翻译并返回失败明细
// 每条独立调用一次模型，空文本跳过
func (s *Service) BatchTranslateDetailed(ctx context.Context, entries []Entry) Batch {
	batch := Batch{Texts: make(map[string]string, len(entries))}
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		res := s.Translate(ctx, e.Text)
		batch.Calls++
		if res.Usage != nil {
			batch.Usage.PromptTokens += res.Usage.PromptTokens
			batch.Usage.CompletionTokens += res.Usage.CompletionTokens
			batch.Usage.TotalTokens += res.Usage.TotalTokens
		}
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("key", e.Key).Msg("translation item failed")
			batch.Failures = append(batch.Failures, Failure{Key: e.Key, Err: res.Err})
			continue
		}
		batch.Texts[e.Key] = res.Text
	}
	return batch
}
