// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/l4yercom/picknbrain/internal/core/domain"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Gemini    GeminiConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SessionConfig struct {
	TTL           time.Duration
	MaxPerAddress int
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	SessionRule domain.RateLimitRule
	AddressRule domain.RateLimitRule
}

type GeminiConfig struct {
	APIKey     string
	ImageModel string
	TextModel  string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	sessionConfig, err := buildSessionConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimitConfig, err := buildRateLimitConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: ServerConfig{Port: getEnv("SERVER_PORT", "8000")},
		Storage: StorageConfig{
			Type:  getEnv("STORAGE_TYPE", "memory"),
			Redis: redisConfig,
		},
		Session:   sessionConfig,
		RateLimit: rateLimitConfig,
		Gemini: GeminiConfig{
			APIKey:     apiKey,
			ImageModel: getEnv("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
			TextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		},
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildSessionConfig() (SessionConfig, error) {
	ttlMinutes, err := strconv.Atoi(getEnv("SESSION_TTL_MINUTES", "60"))
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_TTL_MINUTES: %w", err)
	}
	maxPerAddress, err := strconv.Atoi(getEnv("MAX_SESSIONS_PER_ADDRESS", "3"))
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid MAX_SESSIONS_PER_ADDRESS: %w", err)
	}
	sweepMinutes, err := strconv.Atoi(getEnv("SESSION_SWEEP_MINUTES", "5"))
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_SWEEP_MINUTES: %w", err)
	}

	return SessionConfig{
		TTL:           time.Duration(ttlMinutes) * time.Minute,
		MaxPerAddress: maxPerAddress,
		SweepInterval: time.Duration(sweepMinutes) * time.Minute,
	}, nil
}

func buildRateLimitConfig() (RateLimitConfig, error) {
	requests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "50"))
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}
	windowMinutes, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_MINUTES", "60"))
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW_MINUTES: %w", err)
	}
	ipRequests, err := strconv.Atoi(getEnv("RATE_LIMIT_IP_REQUESTS", "30"))
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_IP_REQUESTS: %w", err)
	}
	ipWindowSeconds, err := strconv.Atoi(getEnv("RATE_LIMIT_IP_WINDOW_SECONDS", "60"))
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_IP_WINDOW_SECONDS: %w", err)
	}

	return RateLimitConfig{
		SessionRule: domain.RateLimitRule{
			Requests: requests,
			Window:   time.Duration(windowMinutes) * time.Minute,
		},
		AddressRule: domain.RateLimitRule{
			Requests: ipRequests,
			Window:   time.Duration(ipWindowSeconds) * time.Second,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
