package ruleset

import (
	"errors"
	"time"
)

// ErrNilCandidates is returned when Select is handed a nil slice.
// A nil slice means the caller never loaded candidates, which is a
// programming error distinct from an empty (but valid) candidate list.
var ErrNilCandidates = errors.New("ruleset: candidate list is nil")

// Select picks the single applicable version for the request date from the
// candidate list.
//
// Survivors must be active, effective on or before the date, and either
// open-ended or ending on or after the date. Among survivors the one with
// the greatest effective date wins. Identical effective dates are not
// expected in well-formed data; when they occur the lexicographically
// greatest version label wins so the result stays deterministic.
//
// Returns nil when no candidate qualifies. The caller maps a nil result to
// its not-found condition.
func Select(versions []Version, requestDate time.Time) (*Version, error) {
	if versions == nil {
		return nil, ErrNilCandidates
	}

	var best *Version
	for i := range versions {
		v := &versions[i]

		if v.Status != StatusActive {
			continue
		}
		if !v.Covers(requestDate) {
			continue
		}

		if best == nil || laterVersion(v, best) {
			best = v
		}
	}

	if best == nil {
		return nil, nil
	}

	// Defensive copy so callers cannot mutate the shared slice element.
	selected := *best
	return &selected, nil
}

// laterVersion reports whether a should be preferred over b.
func laterVersion(a, b *Version) bool {
	if !a.EffectiveDate.Equal(b.EffectiveDate) {
		return a.EffectiveDate.After(b.EffectiveDate)
	}
	// Tie-break: lexicographically greatest version label.
	return a.VersionLabel > b.VersionLabel
}
