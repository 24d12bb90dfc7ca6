package api

import (
	"regexp"
	"strings"
	"time"

	"github.com/csalazar/almoner/internal/engine"
	"github.com/csalazar/almoner/internal/ruleset"
)

// statePattern matches two-letter uppercase state codes after sanitizing.
var statePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// dateLayout is the wire format for effective dates.
const dateLayout = "2006-01-02"

// ScreeningRequest is the payload for POST /api/v1/screenings.
type ScreeningRequest struct {
	// State is the two-letter jurisdiction code (e.g., "CA").
	State string `json:"state"`

	// EffectiveDate selects the rule set version, formatted YYYY-MM-DD.
	// Defaults to today when omitted.
	EffectiveDate string `json:"effective_date,omitempty"`

	// Answers maps intake question identifiers to the applicant's answers.
	Answers map[string]any `json:"answers"`
}

// Sanitize normalizes input in place before validation.
func (r *ScreeningRequest) Sanitize() {
	r.State = strings.ToUpper(strings.TrimSpace(r.State))
	r.EffectiveDate = strings.TrimSpace(r.EffectiveDate)
}

// Validate checks the request shape and converts it to an engine request.
// It returns a structured error response if validation fails.
func (r *ScreeningRequest) Validate(now time.Time) (engine.Request, *ErrorResponse) {
	if r.State == "" {
		return engine.Request{}, &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "State is required",
			Details: []ErrorDetail{{Field: "state", Issue: "required"}},
		}
	}
	if !statePattern.MatchString(r.State) {
		return engine.Request{}, &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "State must be a two-letter code",
			Details: []ErrorDetail{{Field: "state", Issue: "must match ^[A-Z]{2}$"}},
		}
	}

	effectiveDate := now.UTC().Truncate(24 * time.Hour)
	if r.EffectiveDate != "" {
		parsed, err := time.Parse(dateLayout, r.EffectiveDate)
		if err != nil {
			return engine.Request{}, &ErrorResponse{
				Code:    "ERR_INVALID_INPUT",
				Message: "Effective date must be formatted YYYY-MM-DD",
				Details: []ErrorDetail{{Field: "effective_date", Issue: "invalid date"}},
			}
		}
		effectiveDate = parsed
	}

	if r.Answers == nil {
		return engine.Request{}, &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Answers must be an object",
			Details: []ErrorDetail{{Field: "answers", Issue: "required"}},
		}
	}

	return engine.Request{
		JurisdictionCode: r.State,
		EffectiveDate:    effectiveDate,
		Answers:          r.Answers,
	}, nil
}

// ScreeningResponse is the response body for POST /api/v1/screenings.
// It mirrors engine.Result; a separate type keeps the wire contract stable
// if the engine's internal shape changes.
type ScreeningResponse struct {
	Status           string            `json:"status"`
	MatchedPrograms  []ProgramMatch    `json:"matched_programs"`
	ConfidenceScore  int               `json:"confidence_score"`
	Explanation      string            `json:"explanation"`
	ExplanationItems []ExplanationItem `json:"explanation_items"`
	RuleVersionUsed  string            `json:"rule_version_used"`
	EvaluatedAt      time.Time         `json:"evaluated_at"`
}

// ProgramMatch is one program in the screening response.
type ProgramMatch struct {
	ProgramCode     string `json:"program_code"`
	ProgramName     string `json:"program_name"`
	ConfidenceScore int    `json:"confidence_score"`
	Explanation     string `json:"explanation"`
}

// ExplanationItem is one criterion outcome in plain language.
type ExplanationItem struct {
	CriterionID       string `json:"criterion_id"`
	Message           string `json:"message"`
	Status            string `json:"status"`
	GlossaryReference string `json:"glossary_reference,omitempty"`
}

// mapResultToResponse converts the engine result to the wire DTO.
func mapResultToResponse(result *engine.Result) ScreeningResponse {
	matches := make([]ProgramMatch, 0, len(result.MatchedPrograms))
	for _, m := range result.MatchedPrograms {
		matches = append(matches, ProgramMatch{
			ProgramCode:     m.ProgramCode,
			ProgramName:     m.ProgramName,
			ConfidenceScore: m.ConfidenceScore,
			Explanation:     m.Explanation,
		})
	}

	items := make([]ExplanationItem, 0, len(result.ExplanationItems))
	for _, it := range result.ExplanationItems {
		items = append(items, ExplanationItem{
			CriterionID:       it.CriterionID,
			Message:           it.Message,
			Status:            string(it.Status),
			GlossaryReference: it.GlossaryReference,
		})
	}

	return ScreeningResponse{
		Status:           string(result.Status),
		MatchedPrograms:  matches,
		ConfidenceScore:  result.ConfidenceScore,
		Explanation:      result.Explanation,
		ExplanationItems: items,
		RuleVersionUsed:  result.RuleVersionUsed,
		EvaluatedAt:      result.EvaluatedAt,
	}
}

// Program is one entry in the GET /api/v1/programs response.
type Program struct {
	ProgramCode string `json:"program_code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
}

// ProgramList wraps the program catalog response.
type ProgramList struct {
	State    string    `json:"state"`
	Programs []Program `json:"programs"`
}

func mapProgramsToResponse(state string, programs []ruleset.Program) ProgramList {
	out := make([]Program, 0, len(programs))
	for _, p := range programs {
		out = append(out, Program{
			ProgramCode: p.ProgramCode,
			Name:        p.Name,
			Category:    p.Category,
		})
	}
	return ProgramList{State: state, Programs: out}
}

// ErrorResponse is the standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details provides optional granular validation errors.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
