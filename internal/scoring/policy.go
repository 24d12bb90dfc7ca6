// Package scoring maps rule-match outcomes and answer completeness to a
// confidence score and a tri-state status label.
package scoring

import "math"

// Status is the tri-state classification derived from a confidence score.
type Status string

const (
	StatusLikely   Status = "Likely"
	StatusPossibly Status = "Possibly"
	StatusUnlikely Status = "Unlikely"
)

// Fixed score bands for StatusFor. The bands are part of the public
// contract and covered by regression tests; do not tune without a
// coordinated client change.
const (
	likelyThreshold   = 85
	possiblyThreshold = 60
)

// NoMatchScore is the fixed score assigned when no rule matched.
// It lands in the Unlikely band while still signalling that the decision
// was computed, not defaulted.
const NoMatchScore = 50

// defaultedCertainty is the certainty factor applied when a matching
// rule's evaluation had to treat one or more missing answers as false.
// A match reached through defaults is weaker than one computed from
// complete data.
const defaultedCertainty = 0.75

// Score computes the confidence score for a single rule outcome.
//
// completeness is the fraction [0,1] of answer fields referenced by the
// rule that were present and non-null. defaulted reports whether the
// evaluation consulted a missing field and treated it as false.
//
// A match scores round(100 x completeness x certainty), so a match over
// complete data scores exactly 100. A non-match always scores 50
// regardless of completeness.
func Score(completeness float64, defaulted bool, matched bool) int {
	if !matched {
		return NoMatchScore
	}

	completeness = clamp01(completeness)

	certainty := 1.0
	if defaulted {
		certainty = defaultedCertainty
	}

	return int(math.Round(100 * completeness * certainty))
}

// StatusFor maps a score to its band: [85,100] Likely, [60,85) Possibly,
// [0,60) Unlikely.
func StatusFor(score int) Status {
	switch {
	case score >= likelyThreshold:
		return StatusLikely
	case score >= possiblyThreshold:
		return StatusPossibly
	default:
		return StatusUnlikely
	}
}

func clamp01(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
