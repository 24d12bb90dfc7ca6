// Package explain turns per-criterion evaluation outcomes into structured
// explanation items and a single plain-language summary. All output is
// jargon-controlled: internal identifiers pass through the glossary and
// generated text never exposes structural tokens from the rule format.
package explain

import "strings"

// glossary maps internal criterion identifiers to plain-language phrases.
// The phrases are written to slot into the item templates ("the X
// requirement", "information about X"), so they stay lowercase and
// noun-shaped.
var glossary = map[string]string{
	"citizenship":       "citizenship or immigration status",
	"isCitizen":         "citizenship or immigration status",
	"residency":         "state residency",
	"stateOfResidence":  "state residency",
	"income":            "household income",
	"annualIncomeCents": "household income",
	"monthlyIncome":     "household income",
	"householdSize":     "household size",
	"age":               "age",
	"isPregnant":        "pregnancy",
	"hasDisability":     "disability status",
	"isDisabled":        "disability status",
	"employmentStatus":  "employment",
	"assets":            "countable assets",
	"assetLimitCents":   "countable assets",
	"hasDependents":     "dependents in the household",
	"isVeteran":         "veteran status",
	"isStudent":         "student enrollment",
}

// Term returns the plain-language phrase for a criterion identifier.
// Unknown identifiers are humanized from their camelCase or snake_case
// form so every criterion still reads as ordinary English.
func Term(criterionID string) string {
	if phrase, ok := glossary[criterionID]; ok {
		return phrase
	}
	return humanize(criterionID)
}

// humanize converts an identifier like "hasHealthCoverage" or
// "has_health_coverage" into "has health coverage".
func humanize(id string) string {
	if id == "" {
		return "this requirement"
	}

	var b strings.Builder
	b.Grow(len(id) + 8)

	prevLower := false
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteRune(' ')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower = false
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevLower = true
		default:
			// Separators and anything structural become spaces; raw
			// tokens from the rule format must never reach an applicant.
			b.WriteRune(' ')
			prevLower = false
		}
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return "this requirement"
	}
	return out
}
