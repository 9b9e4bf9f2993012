package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ExchangeRateBaseURL string
	ExchangeRateTimeout time.Duration
	ExchangeRateTTL     time.Duration
	RateWarmupInterval  time.Duration

	ResolveConcurrency   int
	MaxTicketsPerRequest int

	CORSAllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Отсутствие .env не ошибка.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		RedisAddr:     stringEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ExchangeRateBaseURL: stringEnv("EXCHANGE_RATE_BASE_URL", "https://api.frankfurter.app"),

		CORSAllowedOrigins: splitEnv("CORS_ALLOWED_ORIGINS", "*"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ExchangeRateTimeout, err = durationEnv("EXCHANGE_RATE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.ExchangeRateTTL, err = durationEnv("EXCHANGE_RATE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateWarmupInterval, err = durationEnv("RATE_WARMUP_INTERVAL", 4*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ResolveConcurrency, err = intEnv("RESOLVE_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.MaxTicketsPerRequest, err = intEnv("MAX_TICKETS_PER_REQUEST", 200); err != nil {
		return nil, err
	}

	if cfg.ExchangeRateTimeout <= 0 {
		return nil, fmt.Errorf("EXCHANGE_RATE_TIMEOUT must be positive, got %s", cfg.ExchangeRateTimeout)
	}
	if cfg.ResolveConcurrency <= 0 {
		return nil, fmt.Errorf("RESOLVE_CONCURRENCY must be positive, got %d", cfg.ResolveConcurrency)
	}
	if cfg.MaxTicketsPerRequest <= 0 {
		return nil, fmt.Errorf("MAX_TICKETS_PER_REQUEST must be positive, got %d", cfg.MaxTicketsPerRequest)
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitEnv(key, def string) []string {
	raw := stringEnv(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
