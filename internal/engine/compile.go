package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/csalazar/almoner/internal/ruleset"
)

// CompiledRule pairs a stored rule with its parsed expression trees.
// A rule whose serialized expression could not be parsed carries a non-nil
// CompileErr; it evaluates as a permanent non-match with a diagnostic and
// never aborts the batch.
type CompiledRule struct {
	ruleset.Rule

	Expr             Expr
	DisqualifierExpr Expr // nil when the rule has no disqualifier

	CompileErr error
}

// CompileRules parses every rule's expression once, up front, so request
// handling never re-parses JSON. Malformed rules are kept in the output
// with CompileErr set; the batch itself always succeeds. The result is
// sorted by descending priority, ties broken by rule ID ascending, so
// downstream iteration order is deterministic.
func CompileRules(rules []ruleset.Rule) []CompiledRule {
	compiled := make([]CompiledRule, 0, len(rules))

	for _, r := range rules {
		cr := CompiledRule{Rule: r}

		expr, err := ParseExpr(r.Expression)
		if err != nil {
			cr.CompileErr = fmt.Errorf("rule %s: %w", r.ID, err)
			compiled = append(compiled, cr)
			continue
		}
		cr.Expr = expr

		if len(r.Disqualifier) > 0 {
			disq, err := ParseExpr(r.Disqualifier)
			if err != nil {
				cr.CompileErr = fmt.Errorf("rule %s disqualifier: %w", r.ID, err)
				cr.Expr = nil
				compiled = append(compiled, cr)
				continue
			}
			cr.DisqualifierExpr = disq
		}

		compiled = append(compiled, cr)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Priority != compiled[j].Priority {
			return compiled[i].Priority > compiled[j].Priority
		}
		return compiled[i].ID < compiled[j].ID
	})

	return compiled
}

// wireNode is the serialized form of one expression tree node.
type wireNode struct {
	Op         string            `json:"op"`
	Field      string            `json:"field,omitempty"`
	Value      json.RawMessage   `json:"value,omitempty"`
	FPLPercent *float64          `json:"fplPercent,omitempty"`
	Values     []json.RawMessage `json:"values,omitempty"`
	Args       []json.RawMessage `json:"args,omitempty"`
}

// ParseExpr parses a serialized expression tree into its immutable compiled
// form. It rejects unknown operators and structurally invalid nodes so a
// bad rule fails at compile time, not mid-evaluation.
func ParseExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty expression")
	}

	var node wireNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("invalid expression node: %w", err)
	}

	switch node.Op {
	case "eq", "ne", "gt", "lt", "gte", "lte":
		return parseCompare(&node)
	case "in", "nin":
		return parseMembership(&node)
	case "and", "or", "not":
		return parseLogical(&node)
	case "":
		return nil, fmt.Errorf("expression node is missing an operator")
	default:
		return nil, fmt.Errorf("unknown operator %q", node.Op)
	}
}

func parseCompare(node *wireNode) (Expr, error) {
	if node.Field == "" {
		return nil, fmt.Errorf("%s node requires a field", node.Op)
	}

	cmp := &CompareNode{
		Op:    CompareOp(node.Op),
		Field: node.Field,
	}

	switch {
	case node.FPLPercent != nil:
		if *node.FPLPercent <= 0 {
			return nil, fmt.Errorf("%s node: fplPercent must be positive, got %v", node.Op, *node.FPLPercent)
		}
		cmp.FPLPercent = node.FPLPercent
	case len(node.Value) > 0:
		lit, err := decodeLiteral(node.Value)
		if err != nil {
			return nil, fmt.Errorf("%s node: %w", node.Op, err)
		}
		cmp.Literal = lit
	default:
		return nil, fmt.Errorf("%s node requires a value or fplPercent", node.Op)
	}

	return cmp, nil
}

func parseMembership(node *wireNode) (Expr, error) {
	if node.Field == "" {
		return nil, fmt.Errorf("%s node requires a field", node.Op)
	}
	if len(node.Values) == 0 {
		return nil, fmt.Errorf("%s node requires a non-empty values list", node.Op)
	}

	values := make([]any, 0, len(node.Values))
	for _, raw := range node.Values {
		lit, err := decodeLiteral(raw)
		if err != nil {
			return nil, fmt.Errorf("%s node: %w", node.Op, err)
		}
		values = append(values, lit)
	}

	return &MembershipNode{
		Field:  node.Field,
		Values: values,
		Negate: node.Op == "nin",
	}, nil
}

func parseLogical(node *wireNode) (Expr, error) {
	if len(node.Args) == 0 {
		return nil, fmt.Errorf("%s node requires at least one argument", node.Op)
	}
	if node.Op == "not" && len(node.Args) != 1 {
		return nil, fmt.Errorf("not node requires exactly one argument, got %d", len(node.Args))
	}

	args := make([]Expr, 0, len(node.Args))
	for _, raw := range node.Args {
		child, err := ParseExpr(raw)
		if err != nil {
			return nil, err
		}
		args = append(args, child)
	}

	return &LogicalNode{Op: LogicalOp(node.Op), Args: args}, nil
}

// decodeLiteral decodes a JSON scalar. Objects and arrays are rejected;
// nested structure belongs in the expression tree, not in literals.
func decodeLiteral(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid literal: %w", err)
	}

	switch v.(type) {
	case string, float64, bool, nil:
		return v, nil
	default:
		return nil, fmt.Errorf("literal must be a string, number, boolean, or null")
	}
}
