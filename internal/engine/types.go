package engine

import (
	"time"

	"github.com/csalazar/almoner/internal/explain"
	"github.com/csalazar/almoner/internal/refdata"
	"github.com/csalazar/almoner/internal/ruleset"
	"github.com/csalazar/almoner/internal/scoring"
)

// Request is the input to one evaluation. It is a value object created
// fresh per call; the engine never retains it.
type Request struct {
	JurisdictionCode string
	EffectiveDate    time.Time

	// Answers maps answer field names to decoded JSON values
	// (string, float64, bool, or nil).
	Answers map[string]any
}

// Snapshot bundles everything needed to evaluate requests against one rule
// set version: the version itself, its compiled rules, the program catalog,
// and the FPL table for the effective year. Snapshots are immutable after
// assembly and shared safely across concurrent evaluations.
type Snapshot struct {
	Version  ruleset.Version
	Rules    []CompiledRule
	Programs map[string]ruleset.Program
	FPL      *refdata.FPLTable
}

// ProgramMatch is one program the applicant appears to qualify for.
type ProgramMatch struct {
	ProgramCode     string `json:"program_code"`
	ProgramName     string `json:"program_name"`
	ConfidenceScore int    `json:"confidence_score"`
	Explanation     string `json:"explanation"`
}

// Result is the outcome of one evaluation. Everything except EvaluatedAt
// is byte-identical across repeated calls with the same inputs.
type Result struct {
	Status           scoring.Status `json:"status"`
	MatchedPrograms  []ProgramMatch `json:"matched_programs"`
	ConfidenceScore  int            `json:"confidence_score"`
	Explanation      string         `json:"explanation"`
	ExplanationItems []explain.Item `json:"explanation_items"`
	RuleVersionUsed  string         `json:"rule_version_used"`
	EvaluatedAt      time.Time      `json:"evaluated_at"`

	// Diagnostics records rules that could not be evaluated (malformed
	// expressions, unknown operators). Internal only: never rendered into
	// applicant-facing text.
	Diagnostics []string `json:"-"`
}
