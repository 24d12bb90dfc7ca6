package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/csalazar/almoner/internal/explain"
	"github.com/csalazar/almoner/internal/refdata"
	"github.com/csalazar/almoner/internal/ruleset"
	"github.com/csalazar/almoner/internal/scoring"
)

// ErrNoRules is returned when a resolved rule set version carries no rules.
// The request cannot produce a meaningful decision, so this is fatal for
// the call, distinct from the caller's not-found condition.
var ErrNoRules = errors.New("engine: no rules available for rule set version")

// ErrNilSnapshot is returned when Evaluate is invoked without a snapshot.
var ErrNilSnapshot = errors.New("engine: snapshot cannot be nil")

// Engine evaluates eligibility requests against a rule set snapshot.
// It holds no mutable state between calls; a single instance serves
// concurrent requests without coordination.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// ruleOutcome is the evaluated state of one rule.
type ruleOutcome struct {
	rule    *CompiledRule
	matched bool
	score   int

	met     []string
	unmet   []string
	missing []string
}

// Evaluate runs every rule in the snapshot against the request and
// aggregates program matches, confidence scoring, and the explanation.
//
// A malformed rule contributes a diagnostic and no match; evaluation of the
// remaining rules continues. Cancellation is honored between rules: the
// call returns ctx.Err() and never a partially populated result.
func (e *Engine) Evaluate(ctx context.Context, req Request, snap *Snapshot) (*Result, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	if len(snap.Rules) == 0 {
		return nil, ErrNoRules
	}

	var diagnostics []string

	// Highest-priority outcome per program. CompileRules sorts rules by
	// descending priority, so the first outcome seen for a program wins;
	// a later matching rule only replaces a non-match.
	outcomes := make(map[string]*ruleOutcome)
	var programOrder []string

	for i := range snap.Rules {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rule := &snap.Rules[i]

		if rule.CompileErr != nil {
			// Recovered locally: the rule contributes no match.
			e.logger.Warn("skipping malformed rule",
				slog.String("rule_id", rule.ID),
				slog.String("program_code", rule.ProgramCode),
				slog.String("error", rule.CompileErr.Error()),
			)
			diagnostics = append(diagnostics, fmt.Sprintf("rule %s (%s): expression could not be evaluated", rule.ID, rule.ProgramCode))
			continue
		}

		outcome := e.evaluateRule(req, snap, rule)

		existing, seen := outcomes[rule.ProgramCode]
		switch {
		case !seen:
			outcomes[rule.ProgramCode] = outcome
			programOrder = append(programOrder, rule.ProgramCode)
		case outcome.matched && !existing.matched:
			// A lower-priority rule can still establish the match, but a
			// matched program never drops back to its non-matching outcome.
			outcomes[rule.ProgramCode] = outcome
		}
	}

	result := e.assemble(snap, outcomes, programOrder)
	result.Diagnostics = diagnostics
	return result, nil
}

// evaluateRule computes one rule's outcome: the match decision, the
// per-criterion partition, and the confidence score.
func (e *Engine) evaluateRule(req Request, snap *Snapshot, rule *CompiledRule) *ruleOutcome {
	env := &evalEnv{
		answers:          req.Answers,
		fpl:              snap.FPL,
		jurisdictionCode: req.JurisdictionCode,
	}

	matched := rule.Expr.eval(env)

	outcome := &ruleOutcome{rule: rule, matched: matched}
	e.partitionCriteria(req, snap, rule, outcome)

	// Secondary disqualifier: a primary match can be demoted, never the
	// other way around.
	if matched && rule.DisqualifierExpr != nil {
		disqEnv := &evalEnv{
			answers:          req.Answers,
			fpl:              snap.FPL,
			jurisdictionCode: req.JurisdictionCode,
		}
		if rule.DisqualifierExpr.eval(disqEnv) {
			outcome.matched = false
			outcome.unmet = append(outcome.unmet, disqualifierCriterion(rule))
		}
	}

	fields := Fields(rule.Expr)
	outcome.score = scoring.Score(completeness(fields, req.Answers), env.defaulted, outcome.matched)
	return outcome
}

// partitionCriteria evaluates each top-level conjunct of the rule
// independently and sorts its criterion identifier into met, unmet, or
// missing. A rule whose root is not an AND is a single criterion.
func (e *Engine) partitionCriteria(req Request, snap *Snapshot, rule *CompiledRule, outcome *ruleOutcome) {
	conjuncts := []Expr{rule.Expr}
	if root, ok := rule.Expr.(*LogicalNode); ok && root.Op == OpAnd {
		conjuncts = root.Args
	}

	for i, conjunct := range conjuncts {
		env := &evalEnv{
			answers:          req.Answers,
			fpl:              snap.FPL,
			jurisdictionCode: req.JurisdictionCode,
		}
		value := conjunct.eval(env)

		id := criterionID(rule, i, conjunct)
		switch {
		case value:
			outcome.met = append(outcome.met, id)
		case env.defaulted:
			outcome.missing = append(outcome.missing, id)
		default:
			outcome.unmet = append(outcome.unmet, id)
		}
	}
}

// criterionID resolves the identifier for the i-th conjunct: the authored
// criteria list when present, otherwise the first answer field the
// conjunct references.
func criterionID(rule *CompiledRule, i int, conjunct Expr) string {
	if i < len(rule.Criteria) && rule.Criteria[i] != "" {
		return rule.Criteria[i]
	}
	if fields := Fields(conjunct); len(fields) > 0 {
		return fields[0]
	}
	return rule.ProgramCode
}

// disqualifierCriterion names the disqualifying factor for explanations.
func disqualifierCriterion(rule *CompiledRule) string {
	if fields := Fields(rule.DisqualifierExpr); len(fields) > 0 {
		return fields[0]
	}
	return rule.ProgramCode
}

// assemble builds the final result from the per-program outcomes.
func (e *Engine) assemble(snap *Snapshot, outcomes map[string]*ruleOutcome, programOrder []string) *Result {
	var matches []ProgramMatch
	for _, code := range programOrder {
		o := outcomes[code]
		if !o.matched {
			continue
		}
		matches = append(matches, ProgramMatch{
			ProgramCode:     code,
			ProgramName:     programName(snap, code),
			ConfidenceScore: o.score,
			Explanation:     explain.Summarize(o.met, o.unmet, o.missing),
		})
	}

	// Descending score, ties by program code ascending.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].ConfidenceScore != matches[j].ConfidenceScore {
			return matches[i].ConfidenceScore > matches[j].ConfidenceScore
		}
		return matches[i].ProgramCode < matches[j].ProgramCode
	})

	result := &Result{
		MatchedPrograms: matches,
		RuleVersionUsed: snap.Version.VersionLabel,
		EvaluatedAt:     time.Now().UTC(),
	}

	met, unmet, missing := e.explanationInputs(outcomes, programOrder, matches)
	result.Explanation = explain.Summarize(met, unmet, missing)
	result.ExplanationItems = explain.BuildItems(met, unmet, missing)

	if len(matches) > 0 {
		result.ConfidenceScore = matches[0].ConfidenceScore
	} else {
		result.ConfidenceScore = scoring.NoMatchScore
	}
	result.Status = scoring.StatusFor(result.ConfidenceScore)

	return result
}

// explanationInputs chooses the criteria feeding the overall explanation.
// With at least one match the best program speaks for the result; without
// one, the unmet and missing criteria of every program are aggregated in
// program-code order so the applicant sees everything standing in the way.
func (e *Engine) explanationInputs(outcomes map[string]*ruleOutcome, programOrder []string, matches []ProgramMatch) (met, unmet, missing []string) {
	if len(matches) > 0 {
		best := outcomes[matches[0].ProgramCode]
		return best.met, best.unmet, best.missing
	}

	codes := append([]string(nil), programOrder...)
	sort.Strings(codes)

	met, unmet, missing = []string{}, []string{}, []string{}
	seen := make(map[string]struct{})
	appendUnseen := func(dst []string, ids []string) []string {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			dst = append(dst, id)
		}
		return dst
	}

	for _, code := range codes {
		o := outcomes[code]
		met = appendUnseen(met, o.met)
		unmet = appendUnseen(unmet, o.unmet)
		missing = appendUnseen(missing, o.missing)
	}
	return met, unmet, missing
}

func programName(snap *Snapshot, code string) string {
	if p, ok := snap.Programs[code]; ok && p.Name != "" {
		return p.Name
	}
	return code
}

// BuildSnapshot compiles rules and assembles an immutable snapshot for the
// version. Programs may be nil when the catalog is unavailable; matches
// then fall back to program codes as display names.
func BuildSnapshot(version ruleset.Version, rules []ruleset.Rule, programs []ruleset.Program, fpl *refdata.FPLTable) *Snapshot {
	catalog := make(map[string]ruleset.Program, len(programs))
	for _, p := range programs {
		catalog[p.ProgramCode] = p
	}

	return &Snapshot{
		Version:  version,
		Rules:    CompileRules(rules),
		Programs: catalog,
		FPL:      fpl,
	}
}
