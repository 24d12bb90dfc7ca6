// Package syncer implements the background worker that keeps the shared
// cache warm: it periodically loads the governing rule set for each
// jurisdiction from PostgreSQL and writes it to Redis, so screening
// requests rarely have to touch the database.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/csalazar/almoner/internal/cache"
	"github.com/csalazar/almoner/internal/config"
	"github.com/csalazar/almoner/internal/observability"
	"github.com/csalazar/almoner/internal/ruleset"
	"github.com/csalazar/almoner/internal/store"
)

// Service orchestrates the cache warming cycles.
type Service struct {
	logger *slog.Logger
	config config.SyncerConfig
	repo   store.Repository
	cache  cache.Service

	// now is swappable in tests.
	now func() time.Time
}

// New creates a cache warmer service.
func New(logger *slog.Logger, cfg config.SyncerConfig, repo store.Repository, cacheSvc cache.Service) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if repo == nil {
		panic("syncer: repository cannot be nil")
	}
	if cacheSvc == nil {
		panic("syncer: cache service cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 10 * time.Second // Safe default
	}

	return &Service{
		logger: logger,
		config: cfg,
		repo:   repo,
		cache:  cacheSvc,
		now:    time.Now,
	}
}

// Run starts the warming loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting cache warmer", slog.String("interval", s.config.Interval.String()))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Warm once immediately on startup.
	if err := s.WarmCycle(ctx); err != nil {
		s.logger.Error("initial warm cycle failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cache warmer stopping...")
			return nil
		case <-ticker.C:
			if err := s.WarmCycle(ctx); err != nil {
				// Log and retry on the next tick; a failed cycle must not
				// kill the worker.
				s.logger.Error("warm cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// WarmCycle performs a single pass over all jurisdictions. It is exported
// so operators can trigger an out-of-band warm.
func (s *Service) WarmCycle(ctx context.Context) error {
	start := s.now()

	jurisdictions, err := s.jurisdictions(ctx)
	if err != nil {
		s.recordCycle(start, false)
		return fmt.Errorf("failed to list jurisdictions: %w", err)
	}

	asOf := s.now().UTC().Truncate(24 * time.Hour)

	warmed := 0
	var failures []error
	for _, code := range jurisdictions {
		if ctx.Err() != nil {
			s.recordCycle(start, false)
			return ctx.Err()
		}

		ok, err := s.warmJurisdiction(ctx, code, asOf)
		if err != nil {
			s.logger.Warn("failed to warm jurisdiction",
				slog.String("jurisdiction", code),
				slog.String("error", err.Error()),
			)
			failures = append(failures, err)
			continue // Try the next jurisdiction, don't abort the cycle.
		}
		if ok {
			warmed++
		}
	}

	s.recordCycle(start, len(failures) == 0)

	if warmed > 0 || len(failures) > 0 {
		s.logger.Info("warm cycle completed",
			slog.Int("warmed", warmed),
			slog.Int("errors", len(failures)),
			slog.String("duration", time.Since(start).String()),
		)
	}
	return errors.Join(failures...)
}

// jurisdictions returns the codes to warm: the configured allow list when
// set, otherwise every jurisdiction with an active rule set version.
func (s *Service) jurisdictions(ctx context.Context) ([]string, error) {
	if len(s.config.Jurisdictions) > 0 {
		return s.config.Jurisdictions, nil
	}
	return s.repo.ListJurisdictions(ctx)
}

// warmJurisdiction writes the rule set governing code on asOf to the shared
// cache. It reports false without error when no version covers the date.
func (s *Service) warmJurisdiction(ctx context.Context, code string, asOf time.Time) (bool, error) {
	versions, err := s.repo.ListRuleSetVersions(ctx, code)
	if err != nil {
		return false, fmt.Errorf("failed to list rule set versions: %w", err)
	}

	version, err := ruleset.Select(versions, asOf)
	if err != nil {
		return false, fmt.Errorf("failed to select rule set version: %w", err)
	}
	if version == nil {
		s.logger.Debug("no rule set version in effect",
			slog.String("jurisdiction", code),
			slog.String("as_of", asOf.Format("2006-01-02")),
		)
		return false, nil
	}

	rules, err := s.repo.GetRulesForRuleSetVersion(ctx, version.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load rules for version %s: %w", version.ID, err)
	}

	programs, err := s.repo.ListPrograms(ctx, code)
	if err != nil {
		return false, fmt.Errorf("failed to list programs: %w", err)
	}

	fplRows, err := s.repo.GetFPLTable(ctx, asOf.Year())
	if err != nil {
		return false, fmt.Errorf("failed to load FPL table: %w", err)
	}

	payload := &cache.RuleSetPayload{
		Version:  *version,
		Rules:    rules,
		Programs: programs,
		FPL:      fplRows,
		FPLYear:  asOf.Year(),
	}

	if err := s.cache.SetRuleSet(ctx, version.ID, payload); err != nil {
		return false, fmt.Errorf("failed to cache rule set: %w", err)
	}
	// The version pointer is written second so readers never resolve a
	// version whose payload is not in the cache yet.
	if err := s.cache.SetVersionID(ctx, code, asOf, version.ID); err != nil {
		return false, fmt.Errorf("failed to cache version pointer: %w", err)
	}

	observability.SyncerRuleSetsWarmed.Inc()
	return true, nil
}

func (s *Service) recordCycle(start time.Time, success bool) {
	observability.SyncerCycleDuration.Observe(time.Since(start).Seconds())

	status := "success"
	if !success {
		status = "fail"
	}
	observability.SyncerCyclesTotal.WithLabelValues(status).Inc()
}
