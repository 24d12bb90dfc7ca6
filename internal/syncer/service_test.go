package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csalazar/almoner/internal/cache"
	"github.com/csalazar/almoner/internal/config"
	"github.com/csalazar/almoner/internal/refdata"
	"github.com/csalazar/almoner/internal/ruleset"
	"github.com/csalazar/almoner/internal/syncer"
)

// fakeRepo is an in-memory store.Repository for warmer tests.
type fakeRepo struct {
	versions      map[string][]ruleset.Version
	rules         map[string][]ruleset.Rule
	programs      map[string][]ruleset.Program
	fpl           []refdata.FPLEntry
	jurisdictions []string

	listJurisdictionsErr error
	listVersionsErr      error
	getRulesErr          error
}

func (f *fakeRepo) ListRuleSetVersions(_ context.Context, code string) ([]ruleset.Version, error) {
	if f.listVersionsErr != nil {
		return nil, f.listVersionsErr
	}
	return f.versions[code], nil
}

func (f *fakeRepo) GetRulesForRuleSetVersion(_ context.Context, versionID string) ([]ruleset.Rule, error) {
	if f.getRulesErr != nil {
		return nil, f.getRulesErr
	}
	return f.rules[versionID], nil
}

func (f *fakeRepo) ListPrograms(_ context.Context, code string) ([]ruleset.Program, error) {
	return f.programs[code], nil
}

func (f *fakeRepo) GetFPLTable(_ context.Context, _ int) ([]refdata.FPLEntry, error) {
	return f.fpl, nil
}

func (f *fakeRepo) ListJurisdictions(_ context.Context) ([]string, error) {
	if f.listJurisdictionsErr != nil {
		return nil, f.listJurisdictionsErr
	}
	return f.jurisdictions, nil
}

// fakeCache records SetRuleSet and SetVersionID writes in order. It is
// mutex-guarded so tests can poll it while Run is warming.
type fakeCache struct {
	mu       sync.Mutex
	ruleSets map[string]*cache.RuleSetPayload
	versions map[string]string
	writes   []string

	setRuleSetErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		ruleSets: make(map[string]*cache.RuleSetPayload),
		versions: make(map[string]string),
	}
}

func (f *fakeCache) GetVersionID(_ context.Context, code string, date time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.versions[code+":"+date.Format("2006-01-02")]
	if !ok {
		return "", cache.ErrMiss
	}
	return id, nil
}

func (f *fakeCache) SetVersionID(_ context.Context, code string, date time.Time, versionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[code+":"+date.Format("2006-01-02")] = versionID
	f.writes = append(f.writes, "version:"+versionID)
	return nil
}

func (f *fakeCache) GetRuleSet(_ context.Context, versionID string) (*cache.RuleSetPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.ruleSets[versionID]
	if !ok {
		return nil, cache.ErrMiss
	}
	return p, nil
}

func (f *fakeCache) SetRuleSet(_ context.Context, versionID string, payload *cache.RuleSetPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setRuleSetErr != nil {
		return f.setRuleSetErr
	}
	f.ruleSets[versionID] = payload
	f.writes = append(f.writes, "ruleset:"+versionID)
	return nil
}

func (f *fakeCache) ruleSetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ruleSets)
}

func (f *fakeCache) HealthCheck(_ context.Context) error { return nil }
func (f *fakeCache) Close() error                        { return nil }

func fixtureRepo() *fakeRepo {
	return &fakeRepo{
		jurisdictions: []string{"CA", "NY"},
		versions: map[string][]ruleset.Version{
			"CA": {
				{
					ID:               "v2",
					JurisdictionCode: "CA",
					VersionLabel:     "2026.1",
					EffectiveDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
					Status:           ruleset.StatusActive,
				},
			},
			"NY": {
				{
					ID:               "v9",
					JurisdictionCode: "NY",
					VersionLabel:     "2026.2",
					EffectiveDate:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
					Status:           ruleset.StatusActive,
				},
			},
		},
		rules: map[string][]ruleset.Rule{
			"v2": {
				{
					ID:               "r1",
					RuleSetVersionID: "v2",
					ProgramCode:      "snap",
					Expression:       json.RawMessage(`{"op":"eq","field":"isCitizen","value":true}`),
				},
			},
			"v9": {
				{
					ID:               "r2",
					RuleSetVersionID: "v9",
					ProgramCode:      "snap",
					Expression:       json.RawMessage(`{"op":"eq","field":"isCitizen","value":true}`),
				},
			},
		},
		programs: map[string][]ruleset.Program{
			"CA": {{ProgramCode: "snap", JurisdictionCode: "CA", Name: "Food Assistance", IsActive: true}},
			"NY": {{ProgramCode: "snap", JurisdictionCode: "NY", Name: "Food Assistance", IsActive: true}},
		},
		fpl: []refdata.FPLEntry{
			{Year: time.Now().UTC().Year(), HouseholdSize: 1, AnnualAmountCents: 1_558_000},
		},
	}
}

func newWarmer(t *testing.T, repo *fakeRepo, shared cache.Service, cfg config.SyncerConfig) *syncer.Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return syncer.New(logger, cfg, repo, shared)
}

func TestWarmCycle_WarmsAllJurisdictions(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	shared := newFakeCache()
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Minute})

	require.NoError(t, svc.WarmCycle(context.Background()))

	today := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, "v2", shared.versions["CA:"+today])
	assert.Equal(t, "v9", shared.versions["NY:"+today])

	payload := shared.ruleSets["v2"]
	require.NotNil(t, payload)
	assert.Equal(t, "2026.1", payload.Version.VersionLabel)
	require.Len(t, payload.Rules, 1)
	assert.Equal(t, time.Now().UTC().Year(), payload.FPLYear)
}

func TestWarmCycle_WritesPayloadBeforeVersionPointer(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	shared := newFakeCache()
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Minute, Jurisdictions: []string{"CA"}})

	require.NoError(t, svc.WarmCycle(context.Background()))

	require.Equal(t, []string{"ruleset:v2", "version:v2"}, shared.writes)
}

func TestWarmCycle_HonorsConfiguredAllowList(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	repo.listJurisdictionsErr = errors.New("must not be called")
	shared := newFakeCache()
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Minute, Jurisdictions: []string{"NY"}})

	require.NoError(t, svc.WarmCycle(context.Background()))

	assert.NotContains(t, shared.ruleSets, "v2")
	assert.Contains(t, shared.ruleSets, "v9")
}

func TestWarmCycle_SkipsJurisdictionWithoutCoverage(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	// CA's only version takes effect far in the future.
	repo.versions["CA"][0].EffectiveDate = time.Now().UTC().AddDate(10, 0, 0)
	shared := newFakeCache()
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Minute})

	require.NoError(t, svc.WarmCycle(context.Background()))

	assert.NotContains(t, shared.ruleSets, "v2")
	assert.Contains(t, shared.ruleSets, "v9")
}

func TestWarmCycle_OneFailureDoesNotAbortTheCycle(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	shared := newFakeCache()
	shared.setRuleSetErr = errors.New("redis: connection refused")
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Minute})

	err := svc.WarmCycle(context.Background())
	require.Error(t, err)

	// Both jurisdictions were attempted; neither pointer was written after
	// its payload write failed.
	assert.Empty(t, shared.versions)
}

func TestWarmCycle_ReportsJurisdictionListFailure(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	repo.listJurisdictionsErr = errors.New("pg: connection refused")
	shared := newFakeCache()
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Minute})

	err := svc.WarmCycle(context.Background())
	require.ErrorContains(t, err, "failed to list jurisdictions")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := fixtureRepo()
	shared := newFakeCache()
	svc := newWarmer(t, repo, shared, config.SyncerConfig{Interval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()

	// The initial warm happens before the first tick.
	require.Eventually(t, func() bool {
		return shared.ruleSetCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("warmer did not stop after context cancellation")
	}
}

func TestNew_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Panics(t, func() {
		syncer.New(logger, config.SyncerConfig{}, nil, newFakeCache())
	})
	assert.Panics(t, func() {
		syncer.New(logger, config.SyncerConfig{}, fixtureRepo(), nil)
	})
}
