package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration
	Port        string

	// Storage
	DBPath            string
	WaterDataPath     string
	WaterDataS3Bucket string
	WaterDataS3Key    string

	// SourcesFile points at an optional YAML file overriding the built-in sources
	SourcesFile string
	SourceOrder []string
	CORSOrigins []string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

func WithPort(port string) Option {
	return func(c *Config) {
		c.Port = port
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithWaterDataPath sets the local CSV snapshot path
func WithWaterDataPath(path string) Option {
	return func(c *Config) {
		c.WaterDataPath = path
	}
}

// WithWaterDataS3 reads the CSV snapshot from S3 instead of the local disk
func WithWaterDataS3(bucket, key string) Option {
	return func(c *Config) {
		c.WaterDataS3Bucket = bucket
		c.WaterDataS3Key = key
	}
}

func WithSourcesFile(path string) Option {
	return func(c *Config) {
		c.SourcesFile = path
	}
}

// WithSourceOrder overrides the station provider priority, e.g. "foen,opendata.bs.ch,local-snapshot"
func WithSourceOrder(order string) Option {
	return func(c *Config) {
		c.SourceOrder = splitList(order)
	}
}

func WithCORSOrigins(origins string) Option {
	return func(c *Config) {
		c.CORSOrigins = splitList(origins)
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:   "production",
		LogLevel:      zerolog.InfoLevel,
		HTTPTimeout:   10 * time.Second,
		Port:          "5001",
		DBPath:        "data/waterlab.db",
		WaterDataPath: "data/water_latest.csv",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// UseS3Snapshot reports whether the CSV snapshot lives in S3
func (c *Config) UseS3Snapshot() bool {
	return c.WaterDataS3Bucket != "" && c.WaterDataS3Key != ""
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithPort(getEnvOrDefault("PORT", "5001")),
		WithDBPath(getEnvOrDefault("DB_PATH", "data/waterlab.db")),
		WithWaterDataPath(getEnvOrDefault("WATER_DATA_PATH", "data/water_latest.csv")),
		WithWaterDataS3(os.Getenv("WATER_DATA_S3_BUCKET"), os.Getenv("WATER_DATA_S3_KEY")),
		WithSourcesFile(os.Getenv("SOURCES_FILE")),
		WithSourceOrder(os.Getenv("STATION_SOURCE_ORDER")),
		WithCORSOrigins(os.Getenv("CORS_ORIGINS")),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
