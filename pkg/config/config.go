package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis (raw source cache)
	Redis RedisConfig

	// Raw stat source
	RawSource string // postgres, feed
	Feed      FeedConfig

	// Engine
	Trend       TrendConfig
	Backfill    BackfillConfig
	ProfilePath string // optional YAML trend profile

	// Calendar
	Timezone        string
	ComputeSchedule string
	Scheduler       SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SchedulerConfig controls retries of scheduled jobs
type SchedulerConfig struct {
	Retries    int           // attempts after the first
	RetryDelay time.Duration // wait between attempts
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	// Namespace prefixes every key this service writes
	Namespace string
}

// FeedConfig holds the external analytics feed configuration
type FeedConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// TrendConfig holds the tunable trend-scoring constants
type TrendConfig struct {
	CapSteps      int
	StepWeight    float64
	MinMultiplier float64
	MaxMultiplier float64
	WindowDays    int
	Epsilon       float64
}

// BackfillConfig holds orchestrator tuning
type BackfillConfig struct {
	EntityWorkers    int
	CategoryWorkers  int
	SourceRetries    int
	SourceRetryDelay time.Duration
	WritesPerSecond  float64 // 0 = unlimited
	Strict           bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),

			Namespace: getEnv("REDIS_NAMESPACE", "trendscore"),
		},

		RawSource: getEnv("RAW_SOURCE", "postgres"),
		Feed: FeedConfig{
			BaseURL:           getEnv("FEED_BASE_URL", ""),
			APIKey:            getEnv("FEED_API_KEY", ""),
			Timeout:           getEnvAsDuration("FEED_TIMEOUT", "30s"),
			RequestsPerSecond: getEnvAsFloat("FEED_REQUESTS_PER_SECOND", 5),
		},

		Trend: TrendConfig{
			CapSteps:      getEnvAsInt("TREND_CAP_STEPS", 10),
			StepWeight:    getEnvAsFloat("TREND_STEP_WEIGHT", 0.05),
			MinMultiplier: getEnvAsFloat("TREND_MIN_MULTIPLIER", 0.5),
			MaxMultiplier: getEnvAsFloat("TREND_MAX_MULTIPLIER", 2.0),
			WindowDays:    getEnvAsInt("TREND_WINDOW_DAYS", 7),
			Epsilon:       getEnvAsFloat("TREND_EPSILON", 1e-9),
		},

		Backfill: BackfillConfig{
			EntityWorkers:    getEnvAsInt("BACKFILL_ENTITY_WORKERS", 8),
			CategoryWorkers:  getEnvAsInt("BACKFILL_CATEGORY_WORKERS", 5),
			SourceRetries:    getEnvAsInt("BACKFILL_SOURCE_RETRIES", 3),
			SourceRetryDelay: getEnvAsDuration("BACKFILL_SOURCE_RETRY_DELAY", "2s"),
			WritesPerSecond:  getEnvAsFloat("BACKFILL_WRITES_PER_SECOND", 0),
			Strict:           getEnvAsBool("BACKFILL_STRICT", false),
		},
		ProfilePath: getEnv("TREND_PROFILE", ""),

		Timezone:        getEnv("STATS_TIMEZONE", "UTC"),
		ComputeSchedule: getEnv("COMPUTE_SCHEDULE", "0 30 0 * * *"), // 00:30 daily (with seconds)
		Scheduler: SchedulerConfig{
			Retries:    getEnvAsInt("SCHEDULER_RETRIES", 3),
			RetryDelay: getEnvAsDuration("SCHEDULER_RETRY_DELAY", "1m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Location returns the timezone used to normalize stat dates
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.RawSource != "postgres" && c.RawSource != "feed" {
		return fmt.Errorf("RAW_SOURCE must be one of: postgres, feed")
	}
	if c.RawSource == "feed" && c.Feed.BaseURL == "" {
		return fmt.Errorf("FEED_BASE_URL is required when RAW_SOURCE=feed")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("STATS_TIMEZONE %q: %w", c.Timezone, err)
	}

	if err := c.Trend.Validate(); err != nil {
		return err
	}

	if c.Backfill.EntityWorkers < 1 || c.Backfill.CategoryWorkers < 1 {
		return fmt.Errorf("backfill worker counts must be >= 1")
	}

	if c.Scheduler.Retries < 0 {
		return fmt.Errorf("SCHEDULER_RETRIES must be >= 0")
	}

	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Namespace) == "" {
		return fmt.Errorf("REDIS_NAMESPACE must not be blank when REDIS_ENABLED=true")
	}

	return nil
}

// Validate checks the trend constants
func (t TrendConfig) Validate() error {
	if t.WindowDays < 1 {
		return fmt.Errorf("TREND_WINDOW_DAYS must be >= 1")
	}
	if t.CapSteps < 0 || t.StepWeight < 0 {
		return fmt.Errorf("TREND_CAP_STEPS and TREND_STEP_WEIGHT must be non-negative")
	}
	if t.MinMultiplier <= 0 || t.MinMultiplier > 1 || t.MaxMultiplier < 1 {
		return fmt.Errorf("trend multiplier bounds must satisfy 0 < min <= 1 <= max")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
