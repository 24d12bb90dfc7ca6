package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csalazar/almoner/internal/api"
	"github.com/csalazar/almoner/internal/engine"
	"github.com/csalazar/almoner/internal/explain"
	"github.com/csalazar/almoner/internal/ruleset"
	"github.com/csalazar/almoner/internal/screening"
	"github.com/csalazar/almoner/internal/scoring"
)

// fakeService implements api.ScreeningService, capturing the last request
// and returning canned outcomes.
type fakeService struct {
	lastScreen engine.Request
	result     *engine.Result
	err        error

	programs    []ruleset.Program
	programsErr error
}

func (f *fakeService) Screen(_ context.Context, req engine.Request) (*engine.Result, error) {
	f.lastScreen = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeService) Programs(_ context.Context, _ string) ([]ruleset.Program, error) {
	if f.programsErr != nil {
		return nil, f.programsErr
	}
	return f.programs, nil
}

func goodResult() *engine.Result {
	return &engine.Result{
		Status: scoring.StatusLikely,
		MatchedPrograms: []engine.ProgramMatch{
			{ProgramCode: "snap", ProgramName: "Food Assistance", ConfidenceScore: 100, Explanation: "You meet the citizenship requirement."},
		},
		ConfidenceScore: 100,
		Explanation:     "Based on your answers, you appear eligible.",
		ExplanationItems: []explain.Item{
			{CriterionID: "citizenship", Message: "You meet the citizenship requirement.", Status: explain.StatusMet, GlossaryReference: "citizenship"},
		},
		RuleVersionUsed: "2026.1",
		EvaluatedAt:     time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC),
	}
}

func postScreening(t *testing.T, a *api.API, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/screenings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()

	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	return errResp
}

func TestCreateScreening_Success(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: goodResult()}
	a := api.NewAPI(svc, nil, 0)

	rec := postScreening(t, a, `{
		"state": "ca",
		"effective_date": "2026-01-20",
		"answers": {"isCitizen": true}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.ScreeningResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Likely", resp.Status)
	assert.Equal(t, 100, resp.ConfidenceScore)
	assert.Equal(t, "2026.1", resp.RuleVersionUsed)
	require.Len(t, resp.MatchedPrograms, 1)
	assert.Equal(t, "snap", resp.MatchedPrograms[0].ProgramCode)
	require.Len(t, resp.ExplanationItems, 1)
	assert.Equal(t, "Met", resp.ExplanationItems[0].Status)

	// State is sanitized to uppercase before the service sees it.
	assert.Equal(t, "CA", svc.lastScreen.JurisdictionCode)
	assert.Equal(t, "2026-01-20", svc.lastScreen.EffectiveDate.Format("2006-01-02"))
}

func TestCreateScreening_DefaultsEffectiveDateToToday(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: goodResult()}
	a := api.NewAPI(svc, nil, 0)

	rec := postScreening(t, a, `{"state": "CA", "answers": {}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), svc.lastScreen.EffectiveDate.Format("2006-01-02"))
}

func TestCreateScreening_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "malformed JSON",
			body:     `{"state": "CA"`,
			wantCode: "ERR_INVALID_JSON",
		},
		{
			name:     "missing state",
			body:     `{"answers": {}}`,
			wantCode: "ERR_INVALID_INPUT",
		},
		{
			name:     "invalid state format",
			body:     `{"state": "California", "answers": {}}`,
			wantCode: "ERR_INVALID_INPUT",
		},
		{
			name:     "invalid effective date",
			body:     `{"state": "CA", "effective_date": "01/20/2026", "answers": {}}`,
			wantCode: "ERR_INVALID_INPUT",
		},
		{
			name:     "missing answers",
			body:     `{"state": "CA"}`,
			wantCode: "ERR_INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := api.NewAPI(&fakeService{result: goodResult()}, nil, 0)

			rec := postScreening(t, a, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestCreateScreening_ErrorContract(t *testing.T) {
	t.Parallel()

	body := `{"state": "CA", "effective_date": "2026-01-20", "answers": {}}`

	t.Run("not found returns 404 with the fixed message", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{err: fmt.Errorf("CA on 2026-01-20: %w", screening.ErrNotFound)}
		a := api.NewAPI(svc, nil, 0)

		rec := postScreening(t, a, body)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		errResp := decodeError(t, rec)
		assert.Equal(t, "ERR_RULES_NOT_FOUND", errResp.Code)
		assert.Equal(t, "Rules not found for state or effective date.", errResp.Message)
	})

	t.Run("service validation error returns 400", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{err: &screening.ValidationError{Field: "state", Message: "must be a two-letter code"}}
		a := api.NewAPI(svc, nil, 0)

		rec := postScreening(t, a, body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ERR_INVALID_INPUT", decodeError(t, rec).Code)
	})

	t.Run("rules unavailable returns 503", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{err: fmt.Errorf("failed to load rules: %w", screening.ErrRulesUnavailable)}
		a := api.NewAPI(svc, nil, 0)

		rec := postScreening(t, a, body)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "ERR_RULES_UNAVAILABLE", decodeError(t, rec).Code)
	})

	t.Run("unexpected errors return a sanitized 500", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{err: errors.New("pq: relation \"rules\" does not exist")}
		a := api.NewAPI(svc, nil, 0)

		rec := postScreening(t, a, body)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		errResp := decodeError(t, rec)
		assert.Equal(t, "ERR_INTERNAL", errResp.Code)
		// Internal detail must never leak into the response body.
		assert.NotContains(t, rec.Body.String(), "relation")
	})
}

func TestListPrograms(t *testing.T) {
	t.Parallel()

	t.Run("returns the catalog", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{programs: []ruleset.Program{
			{ProgramCode: "snap", Name: "Food Assistance", Category: "nutrition"},
			{ProgramCode: "medicaid", Name: "Health Coverage", Category: "health"},
		}}
		a := api.NewAPI(svc, nil, 0)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/programs?state=ca", nil)
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.ProgramList
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "CA", resp.State)
		require.Len(t, resp.Programs, 2)
		assert.Equal(t, "snap", resp.Programs[0].ProgramCode)
	})

	t.Run("requires the state parameter", func(t *testing.T) {
		t.Parallel()

		a := api.NewAPI(&fakeService{}, nil, 0)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/programs", nil)
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ERR_INVALID_INPUT", decodeError(t, rec).Code)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	a := api.NewAPI(&fakeService{}, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
