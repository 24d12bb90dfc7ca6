// Package cache provides the two-tier caching layer in front of the rules
// database. The shared tier (Redis) holds serialized rule set payloads so
// instances warm each other; the local tier (otter) holds compiled snapshots
// in process memory. Both tiers abstract serialization, key namespacing, and
// connection management away from the screening service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/csalazar/almoner/internal/refdata"
	"github.com/csalazar/almoner/internal/ruleset"
)

// ErrMiss is returned when a key is absent from the shared cache. Callers
// fall through to the database; a miss is not a failure.
var ErrMiss = errors.New("cache miss")

// RuleSetPayload is the serialized unit stored in the shared cache: one rule
// set version with everything needed to evaluate it. Rules are stored
// uncompiled; each instance compiles into its own local snapshot.
type RuleSetPayload struct {
	Version  ruleset.Version    `json:"version"`
	Rules    []ruleset.Rule     `json:"rules"`
	Programs []ruleset.Program  `json:"programs"`
	FPL      []refdata.FPLEntry `json:"fpl"`
	FPLYear  int                `json:"fpl_year"`
}

// Service defines the shared cache operations. The screening service reads
// through it; the cache warmer writes to it.
type Service interface {
	// GetVersionID resolves which rule set version governs a jurisdiction
	// on a date. Returns ErrMiss when unknown.
	GetVersionID(ctx context.Context, jurisdictionCode string, date time.Time) (string, error)

	// SetVersionID records the version resolution for a jurisdiction+date.
	SetVersionID(ctx context.Context, jurisdictionCode string, date time.Time, versionID string) error

	// GetRuleSet retrieves the payload for a version. Returns ErrMiss when
	// absent.
	GetRuleSet(ctx context.Context, versionID string) (*RuleSetPayload, error)

	// SetRuleSet stores the payload for a version.
	SetRuleSet(ctx context.Context, versionID string, payload *RuleSetPayload) error

	// HealthCheck pings the backing store.
	HealthCheck(ctx context.Context) error

	// Close terminates the connection.
	Close() error
}

// Compile-time check to verify that RedisCache implements Service.
var _ Service = (*RedisCache)(nil)

// RedisCache implements Service using the go-redis library.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCache wraps an initialized Redis client. The key prefix namespaces
// all keys; the TTL bounds staleness when the warmer falls behind.
func NewRedisCache(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// versionKey namespaces the jurisdiction+date resolution.
// Example: "almoner:ruleset:CA:2026-01-20"
func (c *RedisCache) versionKey(jurisdictionCode string, date time.Time) string {
	return fmt.Sprintf("%s:ruleset:%s:%s", c.keyPrefix, jurisdictionCode, date.Format("2006-01-02"))
}

// ruleSetKey namespaces a version payload. Example: "almoner:rules:v2"
func (c *RedisCache) ruleSetKey(versionID string) string {
	return fmt.Sprintf("%s:rules:%s", c.keyPrefix, versionID)
}

// GetVersionID resolves the governing version for a jurisdiction+date.
func (c *RedisCache) GetVersionID(ctx context.Context, jurisdictionCode string, date time.Time) (string, error) {
	versionID, err := c.client.Get(ctx, c.versionKey(jurisdictionCode, date)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("failed to get version resolution from cache: %w", err)
	}
	return versionID, nil
}

// SetVersionID records the version resolution with the configured TTL.
func (c *RedisCache) SetVersionID(ctx context.Context, jurisdictionCode string, date time.Time, versionID string) error {
	key := c.versionKey(jurisdictionCode, date)
	if err := c.client.Set(ctx, key, versionID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set version resolution %q in cache: %w", key, err)
	}
	return nil
}

// GetRuleSet retrieves and deserializes a version payload.
func (c *RedisCache) GetRuleSet(ctx context.Context, versionID string) (*RuleSetPayload, error) {
	data, err := c.client.Get(ctx, c.ruleSetKey(versionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get rule set %q from cache: %w", versionID, err)
	}

	var payload RuleSetPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// A corrupt entry behaves like a miss so the caller repopulates it.
		return nil, fmt.Errorf("corrupt rule set %q in cache: %w", versionID, ErrMiss)
	}

	return &payload, nil
}

// SetRuleSet serializes and stores a version payload with the configured TTL.
func (c *RedisCache) SetRuleSet(ctx context.Context, versionID string, payload *RuleSetPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal rule set %q: %w", versionID, err)
	}

	if err := c.client.Set(ctx, c.ruleSetKey(versionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set rule set %q in cache: %w", versionID, err)
	}

	return nil
}

// HealthCheck verifies the connection to the Redis server.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
