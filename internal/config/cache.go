package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheConfig holds all cache-related configuration
type CacheConfig struct {
	// Per-source freshness windows
	SocrataTTLMinutes  int
	SnapshotTTLMinutes int
	NewsTTLMinutes     int

	// LRUSize must stay above the number of distinct keys so nothing is evicted
	LRUSize int

	// DynamoDB second level for upstream payloads
	EnableDynamoCache bool
	DynamoTableName   string
}

const (
	defaultSocrataTTLMinutes  = 5
	defaultSnapshotTTLMinutes = 15
	defaultNewsTTLMinutes     = 10
	defaultLRUSize            = 1024
	defaultDynamoTableName    = "waterlab-upstream-cache"
)

// GetCacheConfig returns the cache configuration from environment variables or defaults
func GetCacheConfig() *CacheConfig {
	config := &CacheConfig{
		SocrataTTLMinutes:  getEnvInt("CACHE_SOCRATA_TTL_MINUTES", defaultSocrataTTLMinutes),
		SnapshotTTLMinutes: getEnvInt("CACHE_SNAPSHOT_TTL_MINUTES", defaultSnapshotTTLMinutes),
		NewsTTLMinutes:     getEnvInt("CACHE_NEWS_TTL_MINUTES", defaultNewsTTLMinutes),
		LRUSize:            getEnvInt("CACHE_LRU_SIZE", defaultLRUSize),
		EnableDynamoCache:  getEnvBool("CACHE_ENABLE_DYNAMO", false),
		DynamoTableName:    getEnvOrDefault("CACHE_DYNAMO_TABLE", defaultDynamoTableName),
	}

	log.Debug().
		Int("SocrataTTLMinutes", config.SocrataTTLMinutes).
		Int("SnapshotTTLMinutes", config.SnapshotTTLMinutes).
		Int("NewsTTLMinutes", config.NewsTTLMinutes).
		Int("LRUSize", config.LRUSize).
		Bool("EnableDynamoCache", config.EnableDynamoCache).
		Str("DynamoTableName", config.DynamoTableName).
		Msg("Cache configuration loaded")

	return config
}

func (c *CacheConfig) GetSocrataTTL() time.Duration {
	return time.Duration(c.SocrataTTLMinutes) * time.Minute
}

func (c *CacheConfig) GetSnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLMinutes) * time.Minute
}

func (c *CacheConfig) GetNewsTTL() time.Duration {
	return time.Duration(c.NewsTTLMinutes) * time.Minute
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
