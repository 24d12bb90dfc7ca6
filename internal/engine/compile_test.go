package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csalazar/almoner/internal/ruleset"
)

func TestParseExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "comparison with literal",
			raw:  `{"op":"eq","field":"isCitizen","value":true}`,
		},
		{
			name: "comparison with fpl threshold",
			raw:  `{"op":"lte","field":"annualIncomeCents","fplPercent":138}`,
		},
		{
			name: "membership",
			raw:  `{"op":"in","field":"stateOfResidence","values":["CA","NY"]}`,
		},
		{
			name: "negated membership",
			raw:  `{"op":"nin","field":"employmentStatus","values":["retired"]}`,
		},
		{
			name: "nested logical tree",
			raw: `{"op":"and","args":[
				{"op":"eq","field":"isCitizen","value":true},
				{"op":"or","args":[
					{"op":"gte","field":"age","value":65},
					{"op":"eq","field":"hasDisability","value":true}
				]}
			]}`,
		},
		{
			name: "not with single argument",
			raw:  `{"op":"not","args":[{"op":"eq","field":"isStudent","value":true}]}`,
		},
		{
			name:    "unknown operator",
			raw:     `{"op":"xor","args":[{"op":"eq","field":"a","value":1}]}`,
			wantErr: `unknown operator "xor"`,
		},
		{
			name:    "missing operator",
			raw:     `{"field":"a","value":1}`,
			wantErr: "missing an operator",
		},
		{
			name:    "comparison without field",
			raw:     `{"op":"eq","value":true}`,
			wantErr: "requires a field",
		},
		{
			name:    "comparison without value",
			raw:     `{"op":"eq","field":"isCitizen"}`,
			wantErr: "requires a value",
		},
		{
			name:    "membership without values",
			raw:     `{"op":"in","field":"state"}`,
			wantErr: "non-empty values list",
		},
		{
			name:    "not with two arguments",
			raw:     `{"op":"not","args":[{"op":"eq","field":"a","value":1},{"op":"eq","field":"b","value":2}]}`,
			wantErr: "exactly one argument",
		},
		{
			name:    "object literal rejected",
			raw:     `{"op":"eq","field":"a","value":{"nested":1}}`,
			wantErr: "string, number, boolean, or null",
		},
		{
			name:    "negative fpl percent rejected",
			raw:     `{"op":"lte","field":"income","fplPercent":-10}`,
			wantErr: "must be positive",
		},
		{
			name:    "empty expression",
			raw:     ``,
			wantErr: "empty expression",
		},
		{
			name:    "invalid json",
			raw:     `{"op":`,
			wantErr: "invalid expression node",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expr, err := ParseExpr(json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, expr)
		})
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	expr, err := ParseExpr(json.RawMessage(`{"op":"and","args":[
		{"op":"eq","field":"isCitizen","value":true},
		{"op":"or","args":[
			{"op":"gte","field":"age","value":65},
			{"op":"eq","field":"isCitizen","value":true},
			{"op":"in","field":"stateOfResidence","values":["CA"]}
		]}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"isCitizen", "age", "stateOfResidence"}, Fields(expr),
		"first-reference order, no duplicates")
}

func TestCompileRules(t *testing.T) {
	t.Parallel()

	rules := []ruleset.Rule{
		{ID: "r-low", ProgramCode: "snap", Priority: 1, Expression: json.RawMessage(`{"op":"eq","field":"a","value":1}`)},
		{ID: "r-bad", ProgramCode: "snap", Priority: 5, Expression: json.RawMessage(`{"op":"wat"}`)},
		{ID: "r-high", ProgramCode: "snap", Priority: 10, Expression: json.RawMessage(`{"op":"eq","field":"a","value":1}`)},
		{ID: "r-tie-b", ProgramCode: "wic", Priority: 10, Expression: json.RawMessage(`{"op":"eq","field":"a","value":1}`)},
	}

	compiled := CompileRules(rules)
	require.Len(t, compiled, 4)

	// Descending priority, ties by rule ID ascending.
	assert.Equal(t, "r-high", compiled[0].ID)
	assert.Equal(t, "r-tie-b", compiled[1].ID)
	assert.Equal(t, "r-bad", compiled[2].ID)
	assert.Equal(t, "r-low", compiled[3].ID)

	assert.Error(t, compiled[2].CompileErr)
	assert.Nil(t, compiled[2].Expr)
	for _, i := range []int{0, 1, 3} {
		assert.NoError(t, compiled[i].CompileErr)
		assert.NotNil(t, compiled[i].Expr)
	}
}

func TestCompileRules_BadDisqualifier(t *testing.T) {
	t.Parallel()

	compiled := CompileRules([]ruleset.Rule{{
		ID:           "r1",
		ProgramCode:  "snap",
		Expression:   json.RawMessage(`{"op":"eq","field":"a","value":1}`),
		Disqualifier: json.RawMessage(`{"op":"bogus"}`),
	}})

	require.Len(t, compiled, 1)
	assert.Error(t, compiled[0].CompileErr)
	assert.Nil(t, compiled[0].Expr, "a rule with a broken disqualifier must not half-evaluate")
}
