package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Auth      AuthConfig
	Assistant AssistantConfig
	Log       LogConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
	Timezone    string
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	Provider    string
	OpenAI      OpenAIConfig
	DeepSeek    DeepSeekConfig
	Alibaba     AlibabaConfig
	Temperature float32
	// Pricing 模型单价（美元 / 百万 token），覆盖内置价格表
	Pricing map[string]PriceConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AlibabaConfig 阿里云配置
type AlibabaConfig struct {
	AccessKeySecret string
	Model           string
}

// PriceConfig 单个模型价格
type PriceConfig struct {
	Input  float64
	Output float64
}

// AuthConfig 管理员认证配置
type AuthConfig struct {
	JWTSecret         string
	AdminPasswordHash string
	TokenTTL          int // 小时
}

// AssistantConfig 智能助手配置
type AssistantConfig struct {
	DailyLimit                    int
	MaxMessageLength              int
	MaxRounds                     int
	MaxExtractRounds              int
	ExtractTimeout                int // 秒
	TranslateTimeout              int // 秒
	QuotaBackend                  string
	RateLimitDisabledEnvironments []string
	LogQueueSize                  int
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string
	Pretty bool
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("COMMITTEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Assistant.DailyLimit < 0 {
		return nil, fmt.Errorf("assistant.dailyLimit must be >= 0, got %d", cfg.Assistant.DailyLimit)
	}
	if cfg.Assistant.MaxMessageLength <= 0 {
		return nil, fmt.Errorf("assistant.maxMessageLength must be > 0, got %d", cfg.Assistant.MaxMessageLength)
	}
	// 一次对话轮次包含抽取与翻译，写超时必须覆盖两者
	if turn := cfg.Assistant.ExtractTimeout + cfg.Assistant.TranslateTimeout; cfg.Server.WriteTimeout <= turn {
		return nil, fmt.Errorf("server.writeTimeout (%ds) must exceed assistant.extractTimeout + assistant.translateTimeout (%ds)",
			cfg.Server.WriteTimeout, turn)
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", cfg.App.Timezone, err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location 返回业务时区，日配额按该时区切日
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RateLimitDisabled 当前部署环境是否关闭配额限制
func (c *Config) RateLimitDisabled() bool {
	for _, env := range c.Assistant.RateLimitDisabledEnvironments {
		if strings.EqualFold(env, c.App.Environment) {
			return true
		}
	}
	return false
}

// ExtractTimeoutDuration 单次结构化抽取的超时
func (c *AssistantConfig) ExtractTimeoutDuration() time.Duration {
	return time.Duration(c.ExtractTimeout) * time.Second
}

// TranslateTimeoutDuration 单条翻译的超时
func (c *AssistantConfig) TranslateTimeoutDuration() time.Duration {
	return time.Duration(c.TranslateTimeout) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "committee-assistant")
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.timezone", "Asia/Jerusalem")

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 90)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "committee")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.deepseek.baseUrl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.temperature", 0.2)

	// Auth
	v.SetDefault("auth.tokenTTL", 24)

	// Assistant
	v.SetDefault("assistant.dailyLimit", 50)
	v.SetDefault("assistant.maxMessageLength", 4000)
	v.SetDefault("assistant.maxRounds", 3)
	v.SetDefault("assistant.maxExtractRounds", 10)
	v.SetDefault("assistant.extractTimeout", 45)
	v.SetDefault("assistant.translateTimeout", 30)
	v.SetDefault("assistant.quotaBackend", "postgres")
	v.SetDefault("assistant.rateLimitDisabledEnvironments", []string{"development"})
	v.SetDefault("assistant.logQueueSize", 256)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
