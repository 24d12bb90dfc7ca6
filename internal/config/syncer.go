package config

import (
	"time"
)

// SyncerConfig contains settings for the cache warmer that periodically
// loads active rule set versions from the database into Redis.
type SyncerConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Interval time.Duration `envconfig:"INTERVAL" default:"30s" validate:"gt=0"`

	// Jurisdictions limits warming to the given comma-separated codes.
	// Empty means every jurisdiction with an active rule set version.
	Jurisdictions []string `envconfig:"JURISDICTIONS"`
}
