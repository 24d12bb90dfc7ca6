package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/csalazar/almoner/internal/logger"
	"github.com/csalazar/almoner/internal/screening"
)

// rulesNotFoundMessage is the fixed applicant-facing message for a
// jurisdiction or date with no governing rule set.
const rulesNotFoundMessage = "Rules not found for state or effective date."

// handleCreateScreening processes POST /api/v1/screenings: decode, sanitize
// and validate the payload, run the screening, and classify errors into the
// HTTP contract.
func (a *API) handleCreateScreening(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req ScreeningRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()

	engineReq, errResp := req.Validate(time.Now())
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	result, err := a.service.Screen(r.Context(), engineReq)
	if err != nil {
		a.renderScreeningError(w, r, err)
		return
	}

	log.Info("screening completed",
		slog.String("state", engineReq.JurisdictionCode),
		slog.String("status", string(result.Status)),
		slog.String("rule_version", result.RuleVersionUsed),
		slog.Int("matched_programs", len(result.MatchedPrograms)),
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapResultToResponse(result))
}

// renderScreeningError maps service errors to the HTTP contract. Internal
// detail never reaches the response body; it is logged instead.
func (a *API) renderScreeningError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var vErr *screening.ValidationError
	switch {
	case errors.As(err, &vErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Invalid " + vErr.Field,
			Details: []ErrorDetail{{Field: vErr.Field, Issue: vErr.Message}},
		})

	case errors.Is(err, screening.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_RULES_NOT_FOUND",
			Message: rulesNotFoundMessage,
		})

	case errors.Is(err, screening.ErrRulesUnavailable):
		log.Error("screening rules unavailable", slog.Any("error", err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_RULES_UNAVAILABLE",
			Message: "Screening is temporarily unavailable. Please try again.",
		})

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		log.Warn("screening cancelled", slog.Any("error", err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_TIMEOUT",
			Message: "Screening timed out. Please try again.",
		})

	default:
		log.Error("screening failed", slog.Any("error", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Screening failed due to an internal error.",
		})
	}
}

// handleListPrograms processes GET /api/v1/programs?state=CA.
func (a *API) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	state := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state")))
	if state == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Query parameter 'state' is required",
			Details: []ErrorDetail{{Field: "state", Issue: "required"}},
		})
		return
	}

	programs, err := a.service.Programs(r.Context(), state)
	if err != nil {
		var vErr *screening.ValidationError
		if errors.As(err, &vErr) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_INVALID_INPUT",
				Message: "Invalid " + vErr.Field,
				Details: []ErrorDetail{{Field: vErr.Field, Issue: vErr.Message}},
			})
			return
		}

		log.Error("failed to list programs", slog.Any("error", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to list programs.",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapProgramsToResponse(state, programs))
}
