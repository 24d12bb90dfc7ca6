// Package ruleset defines the versioned rule-set domain model and the
// selection logic that picks the applicable version for a jurisdiction
// and effective date.
package ruleset

import (
	"encoding/json"
	"time"
)

// VersionStatus is the lifecycle state of a rule set version.
type VersionStatus string

const (
	// StatusActive marks a version as eligible for selection.
	StatusActive VersionStatus = "active"

	// StatusRetired marks a version as excluded from selection.
	// Retired versions are kept for audit; they are never deleted.
	StatusRetired VersionStatus = "retired"
)

// Version is an immutable, dated bundle of eligibility rules scoped to
// one jurisdiction. Mirrors the 'rule_set_versions' table.
type Version struct {
	ID               string        `json:"id" db:"id"`
	JurisdictionCode string        `json:"jurisdiction_code" db:"jurisdiction_code"`
	VersionLabel     string        `json:"version_label" db:"version_label"`
	EffectiveDate    time.Time     `json:"effective_date" db:"effective_date"`
	EndDate          *time.Time    `json:"end_date,omitempty" db:"end_date"`
	Status           VersionStatus `json:"status" db:"status"`
}

// Covers reports whether the version's effective window contains the date.
// The window is inclusive on both ends.
func (v *Version) Covers(date time.Time) bool {
	if v.EffectiveDate.After(date) {
		return false
	}
	if v.EndDate != nil && v.EndDate.Before(date) {
		return false
	}
	return true
}

// Rule is a declarative boolean expression tied to one program.
// It belongs to exactly one rule set version. The Expression and
// Disqualifier columns hold the serialized expression trees; they are
// compiled once into engine ASTs before evaluation.
type Rule struct {
	ID               string          `json:"id" db:"id"`
	RuleSetVersionID string          `json:"rule_set_version_id" db:"rule_set_version_id"`
	ProgramCode      string          `json:"program_code" db:"program_code"`
	Priority         int             `json:"priority" db:"priority"`
	Expression       json.RawMessage `json:"expression" db:"expression"`

	// Disqualifier is an optional secondary expression. When the primary
	// expression matches but the disqualifier also matches, the rule is
	// demoted to a non-match with a disqualifying-factor note.
	Disqualifier json.RawMessage `json:"disqualifier,omitempty" db:"disqualifier"`

	// Criteria names the plain-language criterion identifiers for this
	// rule, parallel to the top-level conjuncts of Expression. When empty,
	// criterion identifiers are derived from the referenced answer fields.
	Criteria []string `json:"criteria,omitempty" db:"criteria"`
}

// Program describes an assistance program offered in a jurisdiction.
// ProgramCode is unique per jurisdiction.
type Program struct {
	ProgramCode      string `json:"program_code" db:"program_code"`
	JurisdictionCode string `json:"jurisdiction_code" db:"jurisdiction_code"`
	Name             string `json:"name" db:"name"`
	Category         string `json:"category" db:"category"`
	IsActive         bool   `json:"is_active" db:"is_active"`
}
