package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Auth     AuthConfig
	Chat     ChatConfig
	AI       AIConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string
	Port           int
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
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
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig 日志配置
type LogConfig struct {
	File       string
	Level      string
	Production bool
}

// AuthConfig 认证配置（magic link + JWT）
type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL int // 秒
	MagicLinkTTL   int // 秒
	RedirectURL    string
	SMTP           SMTPConfig
}

// SMTPConfig 邮件发送配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ChatConfig 聊天配置
type ChatConfig struct {
	SystemPrompt           string
	SmoothDelayMs          int
	AITitles               bool
	TitleMaxLength         int
	TitleDetection         string // title 或 count
	FlagshipModel          string
	DefaultThinkingBudget  int
	DisabledThinkingBudget int
}

// AIConfig AI配置
type AIConfig struct {
	Providers map[string]ProviderConfig
	Models    []ModelConfig
}

// ProviderConfig OpenAI 兼容接口的提供商配置
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Timeout int
}

// ModelConfig 可选模型配置
type ModelConfig struct {
	ID           string
	Name         string
	Provider     string
	Model        string
	ReasoningTag string
}

// Load 加载配置
// path 为空或文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.AI.Models) == 0 {
		cfg.AI.Models = DefaultModels()
	}

	return &cfg, nil
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

// AccessTokenDuration 访问令牌有效期
func (c *AuthConfig) AccessTokenDuration() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

// MagicLinkDuration magic link 有效期
func (c *AuthConfig) MagicLinkDuration() time.Duration {
	return time.Duration(c.MagicLinkTTL) * time.Second
}

// SmoothDelay 流式输出的分词间隔
func (c *ChatConfig) SmoothDelay() time.Duration {
	return time.Duration(c.SmoothDelayMs) * time.Millisecond
}

// DefaultModels 默认模型目录
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{
			ID:       "sonnet-3.7",
			Name:     "Claude Sonnet 3.7",
			Provider: "anthropic",
			Model:    "claude-3-7-sonnet-20250219",
		},
		{
			ID:           "deepseek-r1",
			Name:         "DeepSeek-R1",
			Provider:     "fireworks",
			Model:        "accounts/fireworks/models/deepseek-r1",
			ReasoningTag: "think",
		},
		{
			ID:           "deepseek-r1-distill-llama-70b",
			Name:         "DeepSeek-R1 Llama 70B",
			Provider:     "groq",
			Model:        "deepseek-r1-distill-llama-70b",
			ReasoningTag: "think",
		},
	}
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-chat")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	// 流式响应可能持续较久
	v.SetDefault("server.writeTimeout", 300)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "next_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log
	v.SetDefault("log.file", "./logs/next-chat.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)

	// Auth
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.accessTokenTTL", 7*24*3600)
	v.SetDefault("auth.magicLinkTTL", 15*60)
	v.SetDefault("auth.redirectURL", "http://localhost:3000/auth/callback")
	v.SetDefault("auth.smtp.host", "localhost")
	v.SetDefault("auth.smtp.port", 587)
	v.SetDefault("auth.smtp.username", "")
	v.SetDefault("auth.smtp.password", "")
	v.SetDefault("auth.smtp.from", "no-reply@next-chat.local")

	// Chat
	v.SetDefault("chat.systemPrompt", "you are a friendly assistant. do not use emojis in your responses.")
	v.SetDefault("chat.smoothDelayMs", 10)
	v.SetDefault("chat.aiTitles", false)
	v.SetDefault("chat.titleMaxLength", 50)
	v.SetDefault("chat.titleDetection", "title")
	v.SetDefault("chat.flagshipModel", "sonnet-3.7")
	v.SetDefault("chat.defaultThinkingBudget", 5000)
	v.SetDefault("chat.disabledThinkingBudget", 12000)

	// AI providers（均为 OpenAI 兼容接口）
	v.SetDefault("ai.providers.anthropic.apiKey", "")
	v.SetDefault("ai.providers.anthropic.baseUrl", "https://api.anthropic.com/v1/")
	v.SetDefault("ai.providers.anthropic.timeout", 120)
	v.SetDefault("ai.providers.fireworks.apiKey", "")
	v.SetDefault("ai.providers.fireworks.baseUrl", "https://api.fireworks.ai/inference/v1")
	v.SetDefault("ai.providers.fireworks.timeout", 120)
	v.SetDefault("ai.providers.groq.apiKey", "")
	v.SetDefault("ai.providers.groq.baseUrl", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.providers.groq.timeout", 120)
}
