package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ashwinyue/committee-assistant/internal/config"
	"github.com/ashwinyue/committee-assistant/internal/repository"
	"github.com/ashwinyue/committee-assistant/internal/service/assistant"
	"github.com/ashwinyue/committee-assistant/internal/service/auth"
	"github.com/ashwinyue/committee-assistant/internal/service/examples"
	"github.com/ashwinyue/committee-assistant/internal/service/extractor"
	"github.com/ashwinyue/committee-assistant/internal/service/message"
	"github.com/ashwinyue/committee-assistant/internal/service/quota"
	"github.com/ashwinyue/committee-assistant/internal/service/translation"
	"github.com/ashwinyue/committee-assistant/internal/service/usagelog"
)

const dashscopeCompatibleURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// Services 服务集合
type Services struct {
	Auth       *auth.Service
	Quota      quota.Quota
	Validator  *message.Validator
	Examples   *examples.Catalog
	Translator *translation.Service
	Recorder   *usagelog.Recorder
	Assistant  *assistant.Orchestrator
	ChatLogs   repository.ChatLogStore

	Config *config.Config
}

// NewServices 创建所有服务
// redisClient 为 nil 时配额与提交锁回退到 Postgres 与进程内实现
func NewServices(ctx context.Context, repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	chatModel, modelName, err := newToolCallingChatModel(ctx, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newServices(chatModel, modelName, repo, cfg, redisClient)
}

func newServices(chatModel model.ToolCallingChatModel, modelName string, repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	loc := cfg.App.Location()
	ac := cfg.Assistant

	ex, err := extractor.New(chatModel, extractor.Config{
		Model:    modelName,
		Timeout:  ac.ExtractTimeoutDuration(),
		Location: loc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	translator := translation.NewService(chatModel, translation.Config{
		Model:   modelName,
		Timeout: ac.TranslateTimeoutDuration(),
	})

	overrides := make(map[string]usagelog.Price, len(cfg.AI.Pricing))
	for name, p := range cfg.AI.Pricing {
		overrides[name] = usagelog.Price{Input: p.Input, Output: p.Output}
	}
	recorder := usagelog.NewRecorder(repo.ChatLog, usagelog.NewPricing(overrides), ac.LogQueueSize)

	q := newQuota(cfg, repo, redisClient)

	var guard assistant.CommitGuard = assistant.NewMemoryGuard()
	if redisClient != nil {
		guard = assistant.NewRedisGuard(redisClient)
	}

	secret := auth.ResolveSecret(cfg.Auth.JWTSecret)
	validator := message.NewValidator(ac.MaxMessageLength)
	catalog := examples.NewCatalog()

	orch := assistant.New(assistant.Deps{
		Validator:  validator,
		Quota:      q,
		Examples:   catalog,
		Extractor:  ex,
		Translator: translator,
		Recorder:   recorder,
		Content:    repo.Content,
		Guard:      guard,
		Codec:      assistant.NewStateCodec(secret, 24*time.Hour),
	}, assistant.Config{
		MaxRounds:        ac.MaxRounds,
		MaxExtractRounds: ac.MaxExtractRounds,
		Location:         loc,
	})

	log.Info().
		Str("model", modelName).
		Int("daily_limit", ac.DailyLimit).
		Bool("rate_limit_disabled", cfg.RateLimitDisabled()).
		Bool("redis", redisClient != nil).
		Msg("assistant services ready")

	return &Services{
		Auth:       auth.NewService(cfg.Auth, secret),
		Quota:      q,
		Validator:  validator,
		Examples:   catalog,
		Translator: translator,
		Recorder:   recorder,
		Assistant:  orch,
		ChatLogs:   repo.ChatLog,
		Config:     cfg,
	}, nil
}

// Close 刷新审计日志队列
func (s *Services) Close() {
	if s.Recorder != nil {
		s.Recorder.Close()
	}
}

// newQuota 按部署环境与配置选择配额实现
func newQuota(cfg *config.Config, repo *repository.Repositories, redisClient *redis.Client) quota.Quota {
	if cfg.RateLimitDisabled() {
		log.Warn().Str("environment", cfg.App.Environment).Msg("daily quota disabled for this environment")
		return quota.NewNoop(cfg.Assistant.DailyLimit)
	}

	var store quota.Store = repo.Usage
	if cfg.Assistant.QuotaBackend == "redis" {
		if redisClient != nil {
			store = quota.NewRedisStore(redisClient)
		} else {
			log.Warn().Msg("quota backend redis requested but redis is disabled, using postgres")
		}
	}
	return quota.New(store, quota.Config{
		DailyLimit:   cfg.Assistant.DailyLimit,
		Location:     cfg.App.Location(),
		OnStoreError: quota.FailOpen,
	})
}

// newToolCallingChatModel 创建支持工具调用的 ChatModel，返回实际使用的模型名
func newToolCallingChatModel(ctx context.Context, cfg *config.Config, httpClient *http.Client) (model.ToolCallingChatModel, string, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = dashscopeCompatibleURL
		modelName = aiCfg.Alibaba.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, "", fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, "", fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := aiCfg.Temperature

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, "", err
	}
	return cm, modelName, nil
}
