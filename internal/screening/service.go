// Package screening orchestrates one eligibility screening end to end:
// request validation, rule set resolution through the cache tiers, engine
// evaluation, and error classification for the API layer.
package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/csalazar/almoner/internal/cache"
	"github.com/csalazar/almoner/internal/engine"
	"github.com/csalazar/almoner/internal/logger"
	"github.com/csalazar/almoner/internal/observability"
	"github.com/csalazar/almoner/internal/refdata"
	"github.com/csalazar/almoner/internal/ruleset"
	"github.com/csalazar/almoner/internal/store"
	"github.com/csalazar/almoner/internal/validation"
)

// jurisdictionPattern matches two-letter uppercase state codes.
var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Service runs screenings. It is safe for concurrent use.
type Service struct {
	repo   store.Repository
	shared cache.Service // nil when Redis is not configured
	local  *cache.MemoryCache
	eng    *engine.Engine
}

// NewService assembles the screening service. The shared cache is optional;
// everything else is mandatory.
func NewService(repo store.Repository, shared cache.Service, local *cache.MemoryCache, eng *engine.Engine) *Service {
	if repo == nil {
		panic("screening: repository cannot be nil")
	}
	validation.AssertNotNil(local, "local snapshot cache")
	validation.AssertNotNil(eng, "evaluation engine")

	return &Service{
		repo:   repo,
		shared: shared,
		local:  local,
		eng:    eng,
	}
}

// Screen validates the request, resolves the governing rule set, and runs
// the evaluation. The same request always produces the same outcome while
// the rule set is unchanged.
func (s *Service) Screen(ctx context.Context, req engine.Request) (*engine.Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, req.JurisdictionCode, req.EffectiveDate)
	if err != nil {
		return nil, err
	}

	result, err := s.eng.Evaluate(ctx, req, snap)
	if err != nil {
		if errors.Is(err, engine.ErrNoRules) {
			return nil, fmt.Errorf("version %s: %w", snap.Version.ID, ErrRulesUnavailable)
		}
		return nil, err
	}

	observability.ScreeningsTotal.WithLabelValues(strings.ToLower(string(result.Status))).Inc()

	if len(result.Diagnostics) > 0 {
		logger.FromContext(ctx).Warn("screening completed with skipped rules",
			slog.String("rule_version", snap.Version.ID),
			slog.Int("skipped_rules", len(result.Diagnostics)),
		)
	}

	return result, nil
}

// Programs returns the active program catalog for a jurisdiction.
func (s *Service) Programs(ctx context.Context, jurisdictionCode string) ([]ruleset.Program, error) {
	if !jurisdictionPattern.MatchString(jurisdictionCode) {
		return nil, &ValidationError{Field: "state", Message: "must be a two-letter code"}
	}
	programs, err := s.repo.ListPrograms(ctx, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	return programs, nil
}

func validateRequest(req engine.Request) error {
	if !jurisdictionPattern.MatchString(req.JurisdictionCode) {
		return &ValidationError{Field: "state", Message: "must be a two-letter code"}
	}
	if req.EffectiveDate.IsZero() {
		return &ValidationError{Field: "effective_date", Message: "is required"}
	}
	if req.Answers == nil {
		return &ValidationError{Field: "answers", Message: "must be an object"}
	}
	return nil
}

// snapshotKey identifies one resolved rule set in the local cache.
// Time-of-day is dropped: the selection is date-granular.
func snapshotKey(jurisdictionCode string, date time.Time) string {
	return jurisdictionCode + ":" + date.Format("2006-01-02")
}

// snapshot resolves the compiled rule set for a jurisdiction+date, reading
// through the local tier, the shared tier, then the database. Both cache
// tiers are best-effort: a cache failure degrades to the next tier, never
// to a screening failure.
func (s *Service) snapshot(ctx context.Context, jurisdictionCode string, date time.Time) (*engine.Snapshot, error) {
	key := snapshotKey(jurisdictionCode, date)

	if snap, ok := s.local.Get(key); ok {
		observability.CacheHits.WithLabelValues("local").Inc()
		return snap, nil
	}
	observability.CacheMisses.WithLabelValues("local").Inc()

	if snap := s.fromSharedCache(ctx, jurisdictionCode, date); snap != nil {
		observability.CacheHits.WithLabelValues("shared").Inc()
		s.local.Set(key, snap)
		return snap, nil
	}
	if s.shared != nil {
		observability.CacheMisses.WithLabelValues("shared").Inc()
	}

	snap, err := s.fromStore(ctx, jurisdictionCode, date)
	if err != nil {
		return nil, err
	}

	s.local.Set(key, snap)
	return snap, nil
}

// fromSharedCache tries the Redis tier. Returns nil on miss or failure.
func (s *Service) fromSharedCache(ctx context.Context, jurisdictionCode string, date time.Time) *engine.Snapshot {
	if s.shared == nil {
		return nil
	}

	log := logger.FromContext(ctx)

	versionID, err := s.shared.GetVersionID(ctx, jurisdictionCode, date)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("shared cache degraded", slog.Any("error", err))
		}
		return nil
	}

	payload, err := s.shared.GetRuleSet(ctx, versionID)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("shared cache degraded", slog.Any("error", err))
		}
		return nil
	}

	return buildSnapshot(payload)
}

// fromStore resolves the rule set from the database and repopulates the
// shared cache on the way out.
func (s *Service) fromStore(ctx context.Context, jurisdictionCode string, date time.Time) (*engine.Snapshot, error) {
	versions, err := s.repo.ListRuleSetVersions(ctx, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set versions: %w", errors.Join(ErrRulesUnavailable, err))
	}

	selected, err := ruleset.Select(versions, date)
	if err != nil {
		return nil, fmt.Errorf("version selection: %w", errors.Join(ErrRulesUnavailable, err))
	}
	if selected == nil {
		return nil, fmt.Errorf("%s on %s: %w", jurisdictionCode, date.Format("2006-01-02"), ErrNotFound)
	}

	rules, err := s.repo.GetRulesForRuleSetVersion(ctx, selected.ID)
	if err != nil {
		// An empty selected version is a content defect, not a missing
		// rule set: surface it as unavailable so it alerts instead of
		// looking like an unsupported state.
		return nil, fmt.Errorf("failed to load rules: %w", errors.Join(ErrRulesUnavailable, err))
	}

	programs, err := s.repo.ListPrograms(ctx, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load programs: %w", errors.Join(ErrRulesUnavailable, err))
	}

	fplRows, err := s.repo.GetFPLTable(ctx, date.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to load FPL table: %w", errors.Join(ErrRulesUnavailable, err))
	}

	s.populateSharedCache(ctx, jurisdictionCode, date, &cache.RuleSetPayload{
		Version:  *selected,
		Rules:    rules,
		Programs: programs,
		FPL:      fplRows,
		FPLYear:  date.Year(),
	})

	snap := engine.BuildSnapshot(*selected, rules, programs, refdata.NewFPLTable(date.Year(), fplRows))
	recordCompileFailures(snap)
	return snap, nil
}

// populateSharedCache writes the resolved payload back to Redis so other
// instances skip the database. Failures are logged and swallowed.
func (s *Service) populateSharedCache(ctx context.Context, jurisdictionCode string, date time.Time, payload *cache.RuleSetPayload) {
	if s.shared == nil {
		return
	}

	log := logger.FromContext(ctx)

	if err := s.shared.SetRuleSet(ctx, payload.Version.ID, payload); err != nil {
		log.Warn("failed to populate shared cache", slog.Any("error", err))
		return
	}
	if err := s.shared.SetVersionID(ctx, jurisdictionCode, date, payload.Version.ID); err != nil {
		log.Warn("failed to populate shared cache", slog.Any("error", err))
	}
}

// buildSnapshot compiles a cached payload into an evaluation snapshot.
func buildSnapshot(payload *cache.RuleSetPayload) *engine.Snapshot {
	fpl := refdata.NewFPLTable(payload.FPLYear, payload.FPL)
	snap := engine.BuildSnapshot(payload.Version, payload.Rules, payload.Programs, fpl)
	recordCompileFailures(snap)
	return snap
}

// recordCompileFailures counts rules that failed to compile, once per
// snapshot build rather than once per screening.
func recordCompileFailures(snap *engine.Snapshot) {
	for _, r := range snap.Rules {
		if r.CompileErr != nil {
			observability.RuleCompileFailures.Inc()
		}
	}
}
