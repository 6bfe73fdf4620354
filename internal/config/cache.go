package config

import (
	"os"
	"time"
)

// CacheConfig controls the redis cache for the public trip listing.
// When Enabled is false or no Redis client is available the handlers
// read straight from the database.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// LoadCacheConfig reads the trip-cache settings with defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 30*time.Second),
	}
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
