// Package config centralizes environment loading for the api and relay binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates every parameter the binaries need.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ResultChannelPrefix string

	PublisherWorkers   int
	PublisherQueueSize int
	DeliveryTimeout    time.Duration
	SubmitTimeout      time.Duration

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	AutoMigrate bool

	ShareLinkBase string
	RelayAddress  string
}

func Load() (Config, error) {
	// A local .env is a convenience only; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "livepoll"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "livepoll"),
		PostgresDB:             getEnv("POSTGRES_DB", "livepoll"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		ResultChannelPrefix:    getEnv("REDIS_RESULT_CHANNEL_PREFIX", "results"),
		PublisherWorkers:       getEnvAsInt("PUBLISHER_WORKERS", 5),
		PublisherQueueSize:     getEnvAsInt("PUBLISHER_QUEUE_SIZE", 100),
		DeliveryTimeout:        getEnvAsDuration("PUBLISHER_DELIVERY_TIMEOUT", 2*time.Second),
		SubmitTimeout:          getEnvAsDuration("SUBMIT_TIMEOUT", 5*time.Second),
		RateLimitEnabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
		RateLimitMaxActions:    getEnvAsInt("RATE_LIMIT_MAX", 30),
		RateLimitWindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:     getEnv("RATE_LIMIT_PREFIX", "ratelimit"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		ShareLinkBase:          getEnv("SHARE_LINK_BASE", "http://localhost:3000/poll"),
		RelayAddress:           getEnv("RELAY_ADDRESS", ":8081"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
