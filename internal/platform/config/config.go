package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. It is built once
// and passed in; nothing reads the environment after startup.
type Config struct {
	Addr        string
	DevMode     bool
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Audit       AuditConfig
}

// RedisConfig holds connection settings for the session and rate-limit stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker settings for the audit outbox publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// RateLimitConfig holds the per-window request budgets.
type RateLimitConfig struct {
	Disabled    bool
	PublicLimit int
	AuthLimit   int
	Window      time.Duration
}

// AuditConfig controls outbox publishing cadence and retention.
type AuditConfig struct {
	PollInterval time.Duration
	Retention    time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return Config{
		Addr:        envOr("ROAMLY_ADDR", ":8080"),
		DevMode:     os.Getenv("ROAMLY_DEV_MODE") == "true",
		PostgresURL: os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "roamly.audit.events"),
		},
		JWT: JWTConfig{
			SigningKey: jwtSigningKey,
			Issuer:     envOr("JWT_ISSUER", "roamly"),
			Audience:   envOr("JWT_AUDIENCE", "roamly-api"),
			AccessTTL:  envDurationOr("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: envDurationOr("JWT_REFRESH_TTL", 30*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Disabled:    os.Getenv("RATE_LIMIT_DISABLED") == "true",
			PublicLimit: envIntOr("RATE_LIMIT_PUBLIC", 100),
			AuthLimit:   envIntOr("RATE_LIMIT_AUTH", 10),
			Window:      envDurationOr("RATE_LIMIT_WINDOW", time.Minute),
		},
		Audit: AuditConfig{
			PollInterval: envDurationOr("AUDIT_POLL_INTERVAL", 5*time.Second),
			Retention:    envDurationOr("AUDIT_RETENTION", 90*24*time.Hour),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
