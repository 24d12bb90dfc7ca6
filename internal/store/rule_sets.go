package store

import (
	"context"
	"fmt"

	"github.com/csalazar/almoner/internal/ruleset"
)

// ListRuleSetVersions retrieves every rule set version for a jurisdiction.
// Retired versions are included so version history stays auditable; the
// selector filters them out.
func (s *PostgresStore) ListRuleSetVersions(ctx context.Context, jurisdictionCode string) ([]ruleset.Version, error) {
	query := `
		SELECT id, jurisdiction_code, version_label, effective_date, end_date, status
		FROM rule_set_versions
		WHERE jurisdiction_code = $1
		ORDER BY effective_date DESC, version_label DESC
	`

	rows, err := s.db.Query(ctx, query, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule set versions: %w", err)
	}
	defer rows.Close()

	var versions []ruleset.Version
	for rows.Next() {
		var v ruleset.Version
		if err := rows.Scan(
			&v.ID,
			&v.JurisdictionCode,
			&v.VersionLabel,
			&v.EffectiveDate,
			&v.EndDate,
			&v.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule set version row: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return versions, nil
}

// GetRulesForRuleSetVersion retrieves all rules for a version. The ordering
// matches what the evaluator expects: priority descending, rule ID ascending
// as the tie-break, so evaluation order is deterministic.
func (s *PostgresStore) GetRulesForRuleSetVersion(ctx context.Context, versionID string) ([]ruleset.Rule, error) {
	query := `
		SELECT id, rule_set_version_id, program_code, priority, expression, disqualifier, criteria
		FROM rules
		WHERE rule_set_version_id = $1
		ORDER BY priority DESC, id ASC
	`

	rows, err := s.db.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []ruleset.Rule
	for rows.Next() {
		var r ruleset.Rule
		if err := rows.Scan(
			&r.ID,
			&r.RuleSetVersionID,
			&r.ProgramCode,
			&r.Priority,
			&r.Expression,
			&r.Disqualifier,
			&r.Criteria,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("version %s: %w", versionID, ErrEmptyRuleSet)
	}

	return rules, nil
}

// ListJurisdictions retrieves the jurisdiction codes with at least one
// active rule set version.
func (s *PostgresStore) ListJurisdictions(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT jurisdiction_code
		FROM rule_set_versions
		WHERE status = 'active'
		ORDER BY jurisdiction_code ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jurisdictions: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan jurisdiction row: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return codes, nil
}
