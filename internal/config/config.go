package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingAPIKey    = errors.New("VALYU_API_KEY is required")
	ErrMissingToken     = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingDB        = errors.New("DATABASE_URL is required")
	ErrInvalidCacheType = errors.New("invalid cache type")
	ErrMissingRedisAddr = errors.New("REDIS_ADDR is required for redis cache")
)

type Config struct {
	Valyu     ValyuConfig
	Research  ResearchConfig
	Telegram  TelegramConfig
	Database  DatabaseConfig
	Log       LogConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

type ValyuConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RPS - ограничение исходящих запросов к API, 0 = без ограничения
	RPS float64
	// APIKeyID нужен только для списка задач
	APIKeyID string
}

type ResearchConfig struct {
	PollInterval time.Duration
	// MaxWait 0 - брать по режиму задачи (lite/heavy)
	MaxWait time.Duration
}

type TelegramConfig struct {
	Token string
}

type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level string
	// Service попадает в каждую запись лога, пусто - не добавляем
	Service string
}

type CacheConfig struct {
	Type      string
	TTL       time.Duration
	RedisAddr string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type MetricsConfig struct {
	Addr string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	cfg := &Config{
		Valyu: ValyuConfig{
			APIKey:   os.Getenv("VALYU_API_KEY"),
			BaseURL:  getEnvOrDefault("VALYU_BASE_URL", "https://api.valyu.ai/v1"),
			Timeout:  time.Duration(getEnvIntOrDefault("VALYU_TIMEOUT_SEC", 60)) * time.Second,
			RPS:      getEnvFloatOrDefault("VALYU_RPS", 0),
			APIKeyID: os.Getenv("VALYU_API_KEY_ID"),
		},
		Research: ResearchConfig{
			PollInterval: time.Duration(getEnvIntOrDefault("RESEARCH_POLL_SEC", 5)) * time.Second,
			MaxWait:      time.Duration(getEnvIntOrDefault("RESEARCH_MAX_WAIT_SEC", 0)) * time.Second,
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level:   getEnvOrDefault("LOG_LEVEL", "info"),
			Service: "valyu",
		},
		Cache: CacheConfig{
			Type:      getEnvOrDefault("CACHE_TYPE", "memory"),
			TTL:       time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 3600)) * time.Second,
			RedisAddr: os.Getenv("REDIS_ADDR"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Valyu.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Cache.Type {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidCacheType
	}
	return nil
}

// ValidateBot checks the extra settings the telegram bot needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	if c.Database.URL == "" {
		return ErrMissingDB
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
