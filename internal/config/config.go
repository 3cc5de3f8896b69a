package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	API      APIConfig
	Policy   PolicyConfig
	Audit    AuditConfig
	S3       S3Config
	Seed     SeedConfig
	LogLevel string
}

type ServerConfig struct {
	Host      string
	Port      int
	PublicURL string
	// GlobalRate is the in-memory requests/second limit for the whole process.
	GlobalRate float64
	BodyLimit  string
	Timeout    time.Duration
}

type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// Path is the sqlite file used when Driver is sqlite.
	Path    string
	LogMode string
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

type WorkerConfig struct {
	Concurrency int
}

type APIConfig struct {
	DefaultPerPage int
	MaxPerPage     int
	// RateLimitPerMinute caps requests per API key; 0 disables the limiter.
	RateLimitPerMinute int
}

type PolicyConfig struct {
	// File optionally replaces the embedded casbin policy.
	File           string
	ReloadInterval time.Duration
}

type AuditConfig struct {
	Async        bool
	MaxBodyBytes int
	ArchiveCron  string
	ArchiveBatch int
	// BreakerFailures trips the async dispatch breaker after this many consecutive failures.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type S3Config struct {
	BucketName string
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Prefix     string
}

// Enabled reports whether enough is configured to reach a bucket.
func (c S3Config) Enabled() bool {
	return c.BucketName != "" && c.AccessKey != "" && c.SecretKey != ""
}

type SeedConfig struct {
	APIToken string
	Name     string
	Roles    string
	DemoData bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:       getEnv("SERVER_HOST", "localhost"),
			Port:       getEnvAsInt("SERVER_PORT", 8080),
			PublicURL:  getEnv("PUBLIC_URL", ""),
			GlobalRate: getEnvAsFloat("GLOBAL_RATE_LIMIT", 20),
			BodyLimit:  getEnv("BODY_LIMIT", "1M"),
			Timeout:    getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "scopedrest"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			Path:     getEnv("SQLITE_PATH", "scopedrest.db"),
			LogMode:  getEnv("DB_LOG_MODE", "warn"),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 10),
		},
		API: APIConfig{
			DefaultPerPage:     getEnvAsInt("DEFAULT_PER_PAGE", 25),
			MaxPerPage:         getEnvAsInt("MAX_PER_PAGE", 100),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 0),
		},
		Policy: PolicyConfig{
			File:           getEnv("POLICY_FILE", ""),
			ReloadInterval: getEnvAsDuration("POLICY_RELOAD_INTERVAL", time.Minute),
		},
		Audit: AuditConfig{
			Async:           getEnvAsBool("AUDIT_ASYNC", true),
			MaxBodyBytes:    getEnvAsInt("AUDIT_MAX_BODY_BYTES", 64*1024),
			ArchiveCron:     getEnv("AUDIT_ARCHIVE_CRON", "@hourly"),
			ArchiveBatch:    getEnvAsInt("AUDIT_ARCHIVE_BATCH", 5000),
			BreakerFailures: uint32(getEnvAsInt("AUDIT_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getEnvAsDuration("AUDIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		S3: S3Config{
			BucketName: getEnv("S3_BUCKET_NAME", ""),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			Region:     getEnv("S3_REGION", "us-east-1"),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			Prefix:     getEnv("S3_AUDIT_PREFIX", "audit"),
		},
		Seed: SeedConfig{
			APIToken: getEnv("SEED_API_TOKEN", ""),
			Name:     getEnv("SEED_API_KEY_NAME", "bootstrap"),
			Roles:    getEnv("SEED_API_KEY_ROLES", "admin"),
			DemoData: getEnvAsBool("SEED_DEMO_DATA", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.API.DefaultPerPage < 1 {
		return fmt.Errorf("DEFAULT_PER_PAGE must be positive, got %d", c.API.DefaultPerPage)
	}
	if c.API.MaxPerPage < c.API.DefaultPerPage {
		return fmt.Errorf("MAX_PER_PAGE (%d) must be >= DEFAULT_PER_PAGE (%d)", c.API.MaxPerPage, c.API.DefaultPerPage)
	}
	if c.API.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.Audit.ArchiveCron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Audit.ArchiveCron); err != nil {
			return fmt.Errorf("invalid AUDIT_ARCHIVE_CRON %q: %w", c.Audit.ArchiveCron, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
