// Package store provides the data access layer for Almoner. It handles all
// direct interactions with the PostgreSQL rules database using the pgx driver.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/csalazar/almoner/internal/refdata"
	"github.com/csalazar/almoner/internal/ruleset"
)

// ErrEmptyRuleSet is returned when a rule set version exists but carries no
// rules. Callers treat it differently from an unknown version: the version
// was selected, so falling back to another one would silently change which
// rules govern the screening.
var ErrEmptyRuleSet = errors.New("rule set version has no rules")

// Compile-time check to verify that PostgresStore implements Repository.
var _ Repository = (*PostgresStore)(nil)

// Repository defines the persistence operations the screening service and
// the cache warmer need. Using an interface allows dependency injection and
// fakes in tests.
type Repository interface {
	// ListRuleSetVersions retrieves every rule set version for a
	// jurisdiction, both active and retired, ordered by effective date
	// descending.
	ListRuleSetVersions(ctx context.Context, jurisdictionCode string) ([]ruleset.Version, error)

	// GetRulesForRuleSetVersion retrieves all rules belonging to a version,
	// ordered by priority descending then rule ID ascending. It returns
	// ErrEmptyRuleSet when the version has no rules.
	GetRulesForRuleSetVersion(ctx context.Context, versionID string) ([]ruleset.Rule, error)

	// ListPrograms retrieves the active program catalog for a jurisdiction,
	// ordered by program code.
	ListPrograms(ctx context.Context, jurisdictionCode string) ([]ruleset.Program, error)

	// GetFPLTable retrieves all federal poverty level rows for a year.
	GetFPLTable(ctx context.Context, year int) ([]refdata.FPLEntry, error)

	// ListJurisdictions retrieves the distinct jurisdiction codes that have
	// at least one active rule set version. The cache warmer uses this to
	// discover what to warm.
	ListJurisdictions(ctx context.Context) ([]string, error)
}

// PostgresStore is the implementation of Repository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a repository instance with the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}
