package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ServerAddr      string
	Store           string
	TenantID        string
	MessageIndexTTL time.Duration
	LastEventTTL    time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, after loading a local .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "leadengine")
		pass := getenv("POSTGRES_PASSWORD", "leadengine_pass")
		db := getenv("POSTGRES_DB", "leadengine")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	store := getenv("POLL_STORE", "memory")
	switch store {
	case "memory", "postgres", "redis":
	default:
		return nil, fmt.Errorf("invalid POLL_STORE %q", store)
	}

	return &Config{
		DatabaseURL:     dsn,
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         parseInt(os.Getenv("REDIS_DB"), 0),
		ServerAddr:      getenv("SERVER_ADDR", "0.0.0.0:8080"),
		Store:           store,
		TenantID:        os.Getenv("DEFAULT_TENANT_ID"),
		MessageIndexTTL: parseDuration(getenv("POLL_MESSAGE_INDEX_TTL", "168h"), 168*time.Hour),
		LastEventTTL:    parseDuration(getenv("POLL_LAST_EVENT_TTL", "24h"), 24*time.Hour),
		ShutdownTimeout: parseDuration(getenv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
