package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		completeness float64
		defaulted    bool
		matched      bool
		want         int
	}{
		// Pinned boundary behavior.
		{"match with complete answers scores 100", 1.0, false, true, 100},
		{"no match scores 50", 1.0, false, false, 50},
		{"no match ignores completeness", 0.2, true, false, 50},

		// Completeness-weighted continuum.
		{"match with half the answers", 0.5, false, true, 50},
		{"match with three quarters of the answers", 0.75, false, true, 75},
		{"defaulted match is discounted", 1.0, true, true, 75},
		{"defaulted partial match compounds", 0.5, true, true, 38},

		// Degenerate inputs are clamped, never out of range.
		{"negative completeness clamps to zero", -1.0, false, true, 0},
		{"completeness above one clamps to one", 3.0, false, true, 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Score(tt.completeness, tt.defaulted, tt.matched)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  Status
	}{
		{100, StatusLikely},
		{85, StatusLikely},
		{84, StatusPossibly},
		{60, StatusPossibly},
		{59, StatusUnlikely},
		{50, StatusUnlikely},
		{0, StatusUnlikely},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, StatusFor(tt.score))
		})
	}
}
