// Package engine implements the eligibility evaluation core: an immutable
// expression tree compiled once per rule, a deterministic evaluator over
// applicant answers, and the orchestration that turns rule outcomes into a
// scored, explained result.
package engine

// CompareOp identifies a comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "eq"
	OpNe  CompareOp = "ne"
	OpGt  CompareOp = "gt"
	OpLt  CompareOp = "lt"
	OpGte CompareOp = "gte"
	OpLte CompareOp = "lte"
)

// LogicalOp identifies a logical combinator.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
	OpNot LogicalOp = "not"
)

// Expr is a node of the compiled expression tree. Trees are immutable
// after compilation and safe for concurrent evaluation.
//
// The interface is sealed: the only implementations are CompareNode,
// MembershipNode, and LogicalNode.
type Expr interface {
	// collectFields appends the answer fields the node references, in
	// first-reference order, skipping duplicates already in seen.
	collectFields(seen map[string]struct{}, out *[]string)

	// eval computes the node's boolean value against the environment.
	eval(env *evalEnv) bool
}

// CompareNode compares an answer field against a literal using natural
// ordering, or against a percent-of-FPL income threshold when FPLPercent
// is set.
type CompareNode struct {
	Op    CompareOp
	Field string

	// Literal is the decoded JSON literal: string, float64, bool, or nil.
	// Ignored when FPLPercent is set.
	Literal any

	// FPLPercent, when non-nil, resolves the comparison threshold from the
	// federal poverty level table for the applicant's household size.
	FPLPercent *float64
}

// MembershipNode tests an answer field against a literal list.
type MembershipNode struct {
	Field  string
	Values []any
	Negate bool // true for NOT IN
}

// LogicalNode combines sub-expressions with and/or/not. Children are
// evaluated left to right with short-circuiting.
type LogicalNode struct {
	Op   LogicalOp
	Args []Expr
}

// Fields returns the answer fields referenced anywhere in the tree, in
// first-reference order without duplicates.
func Fields(e Expr) []string {
	var out []string
	e.collectFields(make(map[string]struct{}), &out)
	return out
}

func (n *CompareNode) collectFields(seen map[string]struct{}, out *[]string) {
	addField(n.Field, seen, out)
}

func (n *MembershipNode) collectFields(seen map[string]struct{}, out *[]string) {
	addField(n.Field, seen, out)
}

func (n *LogicalNode) collectFields(seen map[string]struct{}, out *[]string) {
	for _, arg := range n.Args {
		arg.collectFields(seen, out)
	}
}

func addField(field string, seen map[string]struct{}, out *[]string) {
	if _, dup := seen[field]; dup {
		return
	}
	seen[field] = struct{}{}
	*out = append(*out, field)
}
