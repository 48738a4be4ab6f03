package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int

	DatabaseURL string

	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	KafkaBrokers []string
	EventsTopic  string

	LogLevel string

	AdminPassword string
}

// Load reads the process configuration once at startup. A .env file is
// optional; system environment variables always apply. The signing
// secret is required.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v, using system environment variables", err)
	}

	cfg := &Config{
		ServerPort: envIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		AccessTTL:  envDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL: envDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:  envDefault("KAFKA_EVENTS_TOPIC", "user_events"),

		LogLevel: envDefault("LOG_LEVEL", "info"),

		AdminPassword: envDefault("ADMIN_PASSWORD", "123456"),
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("missing required env JWT_SECRET")
	}

	return cfg, nil
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
