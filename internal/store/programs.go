package store

import (
	"context"
	"fmt"

	"github.com/csalazar/almoner/internal/ruleset"
)

// ListPrograms retrieves the active program catalog for a jurisdiction.
// Inactive programs are excluded: rules may still reference them during a
// transition, but they are never surfaced to applicants.
func (s *PostgresStore) ListPrograms(ctx context.Context, jurisdictionCode string) ([]ruleset.Program, error) {
	query := `
		SELECT program_code, jurisdiction_code, name, category, is_active
		FROM programs
		WHERE jurisdiction_code = $1 AND is_active = TRUE
		ORDER BY program_code ASC
	`

	rows, err := s.db.Query(ctx, query, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var programs []ruleset.Program
	for rows.Next() {
		var p ruleset.Program
		if err := rows.Scan(
			&p.ProgramCode,
			&p.JurisdictionCode,
			&p.Name,
			&p.Category,
			&p.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan program row: %w", err)
		}
		programs = append(programs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return programs, nil
}
