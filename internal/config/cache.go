package config

import (
	"fmt"
	"time"
)

// CacheConfig controls the two cache tiers in front of the rules database.
// The local tier holds compiled rule snapshots in process memory; the shared
// tier keeps serialized rule sets in Redis so instances warm each other.
type CacheConfig struct {
	// Local in-process snapshot cache
	LocalCapacity int           `envconfig:"LOCAL_CAPACITY" default:"256" validate:"min=1"`
	LocalTTL      time.Duration `envconfig:"LOCAL_TTL" default:"1m"`

	// Shared Redis cache
	SharedTTL time.Duration `envconfig:"SHARED_TTL" default:"5m"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" default:"almoner"`
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.LocalTTL <= 0 {
		return fmt.Errorf("cache local TTL must be positive")
	}

	if c.SharedTTL <= 0 {
		return fmt.Errorf("cache shared TTL must be positive")
	}

	if err := validateNoWhitespace(c.KeyPrefix, "cache key prefix"); err != nil {
		return err
	}

	return nil
}
