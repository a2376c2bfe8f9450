package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the fittrack API server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Forecast  ForecastConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// QueueConfig controls the Redis-backed task queue and the worker pool draining it.
type QueueConfig struct {
	Name           string
	Concurrency    int
	MaxAttempts    int
	ResultTTL      time.Duration
	ReserveTimeout time.Duration
	// Lease is how long a reserved task may go without a heartbeat before
	// another worker may take it over.
	Lease time.Duration
}

// StorageConfig points at the S3-compatible bucket meal images are uploaded to.
// An empty Endpoint disables presigned uploads.
type StorageConfig struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PresignExpiry time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type ForecastConfig struct {
	TriggerTimeout time.Duration
}

// Load reads configuration from environment variables (and an optional .env file)
// and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FITTRACK_PORT", 8080),
			Env:  envString("FITTRACK_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			Name:           envString("QUEUE_NAME", "fittrack"),
			Concurrency:    envInt("QUEUE_CONCURRENCY", 4),
			MaxAttempts:    envInt("QUEUE_MAX_ATTEMPTS", 3),
			ResultTTL:      envDuration("QUEUE_RESULT_TTL", 24*time.Hour),
			ReserveTimeout: envDuration("QUEUE_RESERVE_TIMEOUT", 5*time.Second),
			Lease:          envDuration("QUEUE_LEASE", time.Minute),
		},
		Storage: StorageConfig{
			Endpoint:      strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Region:        envString("S3_REGION", "us-east-1"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			Bucket:        envString("S3_BUCKET", "uploads"),
			UseSSL:        envBool("S3_USE_SSL", false),
			PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  envDuration("JWT_TOKEN_TTL", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Forecast: ForecastConfig{
			TriggerTimeout: envDuration("FORECAST_TRIGGER_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// StorageEnabled reports whether presigned uploads are configured.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Endpoint != ""
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be at least 1, got %d", c.Queue.Concurrency)
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at least 1, got %d", c.Queue.MaxAttempts)
	}
	if c.Queue.ResultTTL <= 0 {
		return fmt.Errorf("QUEUE_RESULT_TTL must be positive, got %s", c.Queue.ResultTTL)
	}
	if c.Queue.Lease < 3*time.Second {
		return fmt.Errorf("QUEUE_LEASE must be at least 3s, got %s", c.Queue.Lease)
	}

	if c.StorageEnabled() {
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
		}
		if strings.Contains(c.Storage.Endpoint, "://") {
			return fmt.Errorf("S3_ENDPOINT must be host[:port] without a scheme, got %q", c.Storage.Endpoint)
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
