package config

import (
	"fmt"
	"time"
)

// RedisConfig contains Redis connection settings for the shared snapshot
// cache.
type RedisConfig struct {
	URL      string `envconfig:"URL"` // Full connection URL (redis:// or rediss://)
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`

	// Connection pool
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2" validate:"min=0"`
	PoolTimeout  time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`

	// Command retry inside go-redis
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3"`
	MinRetryBackoff time.Duration `envconfig:"MIN_RETRY_BACKOFF" default:"8ms"`
	MaxRetryBackoff time.Duration `envconfig:"MAX_RETRY_BACKOFF" default:"512ms"`

	// TLS
	TLSEnabled bool `envconfig:"TLS_ENABLED" default:"false"`

	// Startup ping retry
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"3" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"2s"`
}

// Address returns the Redis address in host:port format.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Validate checks if the Redis configuration is valid.
func (c *RedisConfig) Validate(environment string) error {
	if c.URL != "" {
		if err := validateRedisURL(c.URL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		return nil
	}

	if !c.IsConfigured() {
		// Redis is optional; evaluation falls back to the database
		return nil
	}

	if err := validateHost(c.Host, "redis"); err != nil {
		return err
	}

	if err := validatePort(c.Port, "redis"); err != nil {
		return err
	}

	if environment == EnvironmentProduction && c.Password == "" {
		return fmt.Errorf("redis password is required in production environment")
	}

	return nil
}

// IsConfigured returns true if Redis has all required configuration to
// connect.
func (c *RedisConfig) IsConfigured() bool {
	if c.URL != "" {
		return true
	}
	return c.Host != "" && c.Port != ""
}

// validateRedisURL validates Redis connection URL format.
func validateRedisURL(redisURL string) error {
	_, err := parseAndValidateURL(redisURL, []string{"redis", "rediss"})
	return err
}
