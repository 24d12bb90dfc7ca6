package store

import (
	"context"
	"fmt"

	"github.com/csalazar/almoner/internal/refdata"
)

// GetFPLTable retrieves all federal poverty level rows for a year, the
// federal baseline plus any jurisdiction-specific tables.
func (s *PostgresStore) GetFPLTable(ctx context.Context, year int) ([]refdata.FPLEntry, error) {
	query := `
		SELECT year, household_size, annual_amount_cents, COALESCE(jurisdiction_code, '')
		FROM fpl_entries
		WHERE year = $1
		ORDER BY jurisdiction_code NULLS FIRST, household_size ASC
	`

	rows, err := s.db.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query FPL table: %w", err)
	}
	defer rows.Close()

	var entries []refdata.FPLEntry
	for rows.Next() {
		var e refdata.FPLEntry
		if err := rows.Scan(
			&e.Year,
			&e.HouseholdSize,
			&e.AnnualAmountCents,
			&e.JurisdictionCode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan FPL row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
