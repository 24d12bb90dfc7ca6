package engine

import (
	"github.com/csalazar/almoner/internal/refdata"
)

// evalEnv carries the per-evaluation inputs plus the bookkeeping needed
// for confidence scoring. An env is never shared between goroutines.
type evalEnv struct {
	answers          map[string]any
	fpl              *refdata.FPLTable
	jurisdictionCode string

	// defaulted is set when a comparison had to treat a missing or null
	// answer (or an unresolvable FPL threshold) as false. It feeds the
	// certainty component of the confidence score.
	defaulted bool
}

// answer returns the non-null value of a field, or ok=false for absent or
// null answers.
func (env *evalEnv) answer(field string) (any, bool) {
	v, ok := env.answers[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// householdSize derives the applicant's household size from the answers.
// FPL thresholds are undefined without it.
func (env *evalEnv) householdSize() (int, bool) {
	v, ok := env.answer("householdSize")
	if !ok {
		return 0, false
	}
	n, ok := toNumber(v)
	if !ok || n < 1 {
		return 0, false
	}
	return int(n), true
}

func (n *CompareNode) eval(env *evalEnv) bool {
	val, ok := env.answer(n.Field)
	if !ok {
		// Missing answers never error; the comparison is false and the
		// evaluation is marked as defaulted.
		env.defaulted = true
		return false
	}

	threshold := n.Literal
	if n.FPLPercent != nil {
		size, ok := env.householdSize()
		if !ok {
			env.defaulted = true
			return false
		}
		cents, ok := env.fpl.PercentOf(*n.FPLPercent, size, env.jurisdictionCode)
		if !ok {
			env.defaulted = true
			return false
		}
		threshold = float64(cents)
	}

	return compare(n.Op, val, threshold)
}

func (n *MembershipNode) eval(env *evalEnv) bool {
	val, ok := env.answer(n.Field)
	if !ok {
		env.defaulted = true
		return false
	}

	found := false
	for _, candidate := range n.Values {
		if looseEqual(val, candidate) {
			found = true
			break
		}
	}

	if n.Negate {
		return !found
	}
	return found
}

func (n *LogicalNode) eval(env *evalEnv) bool {
	switch n.Op {
	case OpAnd:
		for _, arg := range n.Args {
			if !arg.eval(env) {
				return false
			}
		}
		return true
	case OpOr:
		for _, arg := range n.Args {
			if arg.eval(env) {
				return true
			}
		}
		return false
	case OpNot:
		return !n.Args[0].eval(env)
	}
	return false
}

// compare applies a comparison operator using the operands' natural
// ordering. Numbers compare numerically, strings lexicographically, and
// booleans support equality only. Mismatched operand types compare false.
func compare(op CompareOp, left, right any) bool {
	if ln, ok := toNumber(left); ok {
		rn, rok := toNumber(right)
		if !rok {
			return false
		}
		return compareOrdered(op, cmpFloat(ln, rn))
	}

	if ls, ok := left.(string); ok {
		rs, rok := right.(string)
		if !rok {
			return false
		}
		switch {
		case ls < rs:
			return compareOrdered(op, -1)
		case ls > rs:
			return compareOrdered(op, 1)
		default:
			return compareOrdered(op, 0)
		}
	}

	if lb, ok := left.(bool); ok {
		rb, rok := right.(bool)
		if !rok {
			return false
		}
		switch op {
		case OpEq:
			return lb == rb
		case OpNe:
			return lb != rb
		}
		return false
	}

	return false
}

func compareOrdered(op CompareOp, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGte:
		return cmp >= 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// looseEqual is the membership equality: numeric operands compare
// numerically, everything else requires matching type and value.
func looseEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		bn, bok := toNumber(b)
		return bok && an == bn
	}
	return a == b
}

// toNumber normalizes the numeric types that can appear in decoded JSON
// and repository rows.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// completeness is the fraction of referenced fields present and non-null
// in the answers. A rule referencing no fields is vacuously complete.
func completeness(fields []string, answers map[string]any) float64 {
	if len(fields) == 0 {
		return 1
	}
	present := 0
	for _, f := range fields {
		if v, ok := answers[f]; ok && v != nil {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}
