package config

import (
	"time"
)

// CacheConfig defines settings for the schedule response cache.  When
// Enabled is false or no Redis client is configured, caching is
// disabled.  The TTL is a short backstop only: the coordinator
// invalidates a runsheet's cached reads on every committed change, so
// observers refetching after a broadcast always see post-commit state.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getenv("CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("CACHE_TTL", "10s")),
		Prefix:  getenv("CACHE_PREFIX", "showcall"),
	}
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
