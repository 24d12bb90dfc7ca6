// Package refdata holds read-only reference data consulted during rule
// evaluation, currently the federal poverty level (FPL) table.
package refdata

// FPLEntry is one row of the federal poverty level table. Amounts are
// annual and stored in cents to avoid floating point drift.
// JurisdictionCode is empty for the federal baseline; Alaska and Hawaii
// publish their own tables.
type FPLEntry struct {
	Year             int    `json:"year" db:"year"`
	HouseholdSize    int    `json:"household_size" db:"household_size"`
	AnnualAmountCents int64 `json:"annual_amount_cents" db:"annual_amount_cents"`
	JurisdictionCode string `json:"jurisdiction_code,omitempty" db:"jurisdiction_code"`
}

// FPLTable is an immutable lookup over FPL entries for a single year.
// It is built once per request from repository data and never mutated,
// so it is safe to share across concurrent evaluations.
type FPLTable struct {
	year    int
	entries map[fplKey]int64
}

type fplKey struct {
	householdSize    int
	jurisdictionCode string
}

// NewFPLTable builds a table from repository rows. Rows for other years
// are ignored so a caller can pass an unfiltered result set.
func NewFPLTable(year int, rows []FPLEntry) *FPLTable {
	entries := make(map[fplKey]int64, len(rows))
	for _, r := range rows {
		if r.Year != year {
			continue
		}
		entries[fplKey{r.HouseholdSize, r.JurisdictionCode}] = r.AnnualAmountCents
	}
	return &FPLTable{year: year, entries: entries}
}

// Year returns the year the table covers.
func (t *FPLTable) Year() int {
	return t.year
}

// Lookup returns the annual FPL amount in cents for a household size in a
// jurisdiction. Jurisdictions without their own table fall back to the
// federal baseline (empty jurisdiction code). The second return is false
// when no row covers the request.
func (t *FPLTable) Lookup(householdSize int, jurisdictionCode string) (int64, bool) {
	if t == nil || householdSize < 1 {
		return 0, false
	}
	if amount, ok := t.entries[fplKey{householdSize, jurisdictionCode}]; ok {
		return amount, true
	}
	amount, ok := t.entries[fplKey{householdSize, ""}]
	return amount, ok
}

// PercentOf returns percent% of the FPL amount for the household, in cents.
func (t *FPLTable) PercentOf(percent float64, householdSize int, jurisdictionCode string) (int64, bool) {
	base, ok := t.Lookup(householdSize, jurisdictionCode)
	if !ok {
		return 0, false
	}
	return int64(float64(base) * percent / 100.0), true
}
