package explain

import (
	"fmt"
	"strings"
)

// ItemStatus classifies a single criterion's outcome.
type ItemStatus string

const (
	StatusMet     ItemStatus = "Met"
	StatusUnmet   ItemStatus = "Unmet"
	StatusMissing ItemStatus = "Missing"
)

// Item pairs one criterion's outcome with its plain-language message.
type Item struct {
	CriterionID       string     `json:"criterion_id"`
	Message           string     `json:"message"`
	Status            ItemStatus `json:"status"`
	GlossaryReference string     `json:"glossary_reference,omitempty"`
}

// BuildItems returns one item per input identifier: met items first, then
// unmet, then missing, each list's original order preserved. The result
// length always equals the sum of the three input lengths.
func BuildItems(met, unmet, missing []string) []Item {
	items := make([]Item, 0, len(met)+len(unmet)+len(missing))

	for _, id := range met {
		items = append(items, newItem(id, StatusMet))
	}
	for _, id := range unmet {
		items = append(items, newItem(id, StatusUnmet))
	}
	for _, id := range missing {
		items = append(items, newItem(id, StatusMissing))
	}

	return items
}

func newItem(criterionID string, status ItemStatus) Item {
	term := Term(criterionID)

	var msg string
	switch status {
	case StatusMet:
		msg = fmt.Sprintf("You meet the %s requirement.", term)
	case StatusUnmet:
		msg = fmt.Sprintf("You do not appear to meet the %s requirement.", term)
	case StatusMissing:
		msg = fmt.Sprintf("We still need information about your %s.", term)
	}

	item := Item{
		CriterionID: criterionID,
		Message:     msg,
		Status:      status,
	}
	if _, known := glossary[criterionID]; known {
		item.GlossaryReference = criterionID
	}
	return item
}

// Summarize composes a single plain-language summary from the criterion
// outcomes.
//
// The phrasing deliberately hedges: a clean result reads as "appear
// eligible" without claiming certainty, and an unmet result reads as
// "do not appear to qualify" rather than a blunt denial. Missing data is
// always called out explicitly so an applicant knows what to provide next.
func Summarize(met, unmet, missing []string) string {
	var parts []string

	switch {
	case len(unmet) == 0 && len(missing) == 0 && len(met) > 0:
		parts = append(parts, "Based on your answers, you appear eligible.")
	case len(unmet) > 0:
		parts = append(parts, fmt.Sprintf(
			"Based on your answers, you do not appear to qualify because the %s %s not met.",
			joinTerms(unmet), wasWere(len(unmet))))
	case len(missing) > 0:
		parts = append(parts, "We could not finish checking your eligibility.")
	default:
		parts = append(parts, "We could not determine your eligibility from the answers provided.")
	}

	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf(
			"We are still missing information about your %s.", joinTerms(missing)))
	}

	if len(met) > 0 && len(unmet) > 0 {
		parts = append(parts, fmt.Sprintf(
			"You do meet the %s %s.", joinTerms(met), requirementNoun(len(met))))
	}

	return strings.Join(parts, " ")
}

func wasWere(n int) string {
	if n == 1 {
		return "requirement was"
	}
	return "requirements were"
}

func requirementNoun(n int) string {
	if n == 1 {
		return "requirement"
	}
	return "requirements"
}

// joinTerms renders identifiers through the glossary as a natural-language
// list: "a", "a and b", "a, b, and c". Duplicate terms (distinct ids that
// map to the same phrase) are collapsed.
func joinTerms(ids []string) string {
	terms := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		term := Term(id)
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	switch len(terms) {
	case 0:
		return "required"
	case 1:
		return terms[0]
	case 2:
		return terms[0] + " and " + terms[1]
	default:
		return strings.Join(terms[:len(terms)-1], ", ") + ", and " + terms[len(terms)-1]
	}
}
