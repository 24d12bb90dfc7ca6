//go:build integration

package syncer_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csalazar/almoner/internal/cache"
	"github.com/csalazar/almoner/internal/config"
	"github.com/csalazar/almoner/internal/store"
	"github.com/csalazar/almoner/internal/syncer"
	"github.com/csalazar/almoner/internal/testsupport"
)

// TestSyncer_Integration warms a real Redis from a real PostgreSQL and
// verifies the written keys resolve through the cache service.
func TestSyncer_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err, "failed to start postgres container")
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err, "failed to start redis container")
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	repo := store.NewPostgresStore(pgContainer.DB)
	shared := cache.NewRedisCache(redisContainer.Client, "almoner-test", 5*time.Minute)

	today := time.Now().UTC()

	seed := fmt.Sprintf(`
		INSERT INTO rule_set_versions (id, jurisdiction_code, version_label, effective_date, end_date, status) VALUES
			('v2', 'CA', '2026.1', '2020-01-01', NULL, 'active'),
			('v8', 'TX', '2099.1', '2099-01-01', NULL, 'active');

		INSERT INTO rules (id, rule_set_version_id, program_code, priority, expression, disqualifier, criteria) VALUES
			('r1', 'v2', 'snap', 10, '{"op":"eq","field":"isCitizen","value":true}', NULL, '{citizenship}');

		INSERT INTO programs (program_code, jurisdiction_code, name, category, is_active) VALUES
			('snap', 'CA', 'Food Assistance', 'nutrition', TRUE);

		INSERT INTO fpl_entries (year, household_size, annual_amount_cents, jurisdiction_code) VALUES
			(%d, 1, 1560000, NULL);
	`, today.Year())
	_, err = pgContainer.DB.Exec(ctx, seed)
	require.NoError(t, err, "failed to seed test data")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := syncer.New(logger, config.SyncerConfig{Interval: time.Minute}, repo, shared)

	require.NoError(t, svc.WarmCycle(ctx))

	t.Run("version pointer resolves for a covered jurisdiction", func(t *testing.T) {
		versionID, err := shared.GetVersionID(ctx, "CA", today)
		require.NoError(t, err)
		assert.Equal(t, "v2", versionID)
	})

	t.Run("payload carries rules, programs and FPL rows", func(t *testing.T) {
		payload, err := shared.GetRuleSet(ctx, "v2")
		require.NoError(t, err)

		assert.Equal(t, "2026.1", payload.Version.VersionLabel)
		require.Len(t, payload.Rules, 1)
		assert.Equal(t, "snap", payload.Rules[0].ProgramCode)
		require.Len(t, payload.Programs, 1)
		require.Len(t, payload.FPL, 1)
		assert.Equal(t, today.Year(), payload.FPLYear)
	})

	t.Run("jurisdiction without coverage gets no pointer", func(t *testing.T) {
		// TX's only version takes effect in 2099.
		_, err := shared.GetVersionID(ctx, "TX", today)
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("repeated cycles are idempotent", func(t *testing.T) {
		require.NoError(t, svc.WarmCycle(ctx))

		versionID, err := shared.GetVersionID(ctx, "CA", today)
		require.NoError(t, err)
		assert.Equal(t, "v2", versionID)
	})
}
