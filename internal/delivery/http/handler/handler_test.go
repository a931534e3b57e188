package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"match-engine/internal/analytics"
	"match-engine/internal/delivery/http/handler"
	"match-engine/internal/delivery/http/middleware"
	"match-engine/internal/delivery/http/routes"
	"match-engine/internal/domain/matching"
	"match-engine/internal/guard"
	"match-engine/internal/pkg/jwt"
	"match-engine/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	matchErr   error
	lastDays   int
	lastMatch  usecase.MatchRequest
	healthResp []guard.Health
}

func (f *fakeUsecase) Match(_ context.Context, req usecase.MatchRequest) (usecase.MatchResponse, error) {
	f.lastMatch = req
	if f.matchErr != nil {
		return usecase.MatchResponse{}, f.matchErr
	}
	return usecase.MatchResponse{
		Mode:      analytics.ModeForward,
		Requested: matching.StrategyAuto,
		Total:     1,
		Items: []usecase.MatchOutcome{{
			CandidateID: "cand-1",
			JobID:       "job-1",
			Requested:   matching.StrategyAuto,
			Selected:    matching.StrategyAdvancedProfile,
			Used:        matching.StrategyAdvancedProfile,
			Result: matching.Result{
				Aggregate: 72,
				Quality:   matching.QualityGood,
				Criteria: map[matching.Criterion]matching.CriterionScore{
					matching.CriterionSkills: {Criterion: matching.CriterionSkills, Percentage: 80, Details: []string{"go"}},
				},
				BonusTotal: 5,
				Bonuses:    []matching.BonusEntry{{RuleID: "growth", Points: 5, Reason: "évolution"}},
				Weights:    matching.DefaultWeights(),
			},
			Duration: 1500 * time.Microsecond,
		}},
	}, nil
}

func (f *fakeUsecase) ReverseMatch(_ context.Context, _ usecase.ReverseMatchRequest) (usecase.MatchResponse, error) {
	return usecase.MatchResponse{
		Mode:      analytics.ModeReverse,
		Requested: matching.StrategyAuto,
		Total:     1,
		Items:     []usecase.MatchOutcome{{CandidateID: "cand-9", JobID: "job-1"}},
	}, nil
}

func (f *fakeUsecase) Summary(_ context.Context, days int) (analytics.Summary, error) {
	f.lastDays = days
	return analytics.Summary{Days: days, Total: 3, Successes: 2, FailureRate: 0.33, AttemptFailureRate: 0.5, ByStrategy: []analytics.StrategyStats{}}, nil
}

func (f *fakeUsecase) StrategyHealth(context.Context) ([]guard.Health, error) {
	return f.healthResp, nil
}

func (f *fakeUsecase) InvalidateCache(context.Context) (int, error) {
	return 0, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newApp(uc usecase.MatchingUsecase, auth *middleware.AuthMiddleware, checks map[string]handler.Pinger) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	app.Use(middleware.NewAccessLogMiddleware(nil).Middleware())
	routes.NewRegistry(
		handler.NewHealthHandler("match-engine", "test", checks),
		handler.NewMatchHandler(uc),
		handler.NewAnalyticsHandler(uc),
		auth,
	).Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return resp, env
}

func postJSON(path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	app := newApp(&fakeUsecase{}, nil, map[string]handler.Pinger{
		"database": pinger{},
		"redis":    pinger{err: errors.New("refused")},
	})

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))

	var data struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "degraded", data.Status)
	assert.Equal(t, map[string]string{"database": "up", "redis": "down"}, data.Dependencies)
}

func TestMatch_OK(t *testing.T) {
	uc := &fakeUsecase{}
	app := newApp(uc, nil, nil)

	resp, env := do(t, app, postJSON("/api/v1/match", map[string]any{
		"candidate_id": "cand-1",
		"cv_data":      map[string]any{"competences": []string{"go"}},
		"job_data":     []map[string]any{{"id": "job-1"}},
		"limit":        5,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, uc.lastMatch.Limit)
	assert.Equal(t, []string{"go"}, uc.lastMatch.CV.Skills)

	var data struct {
		Total int              `json:"total"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Items, 1)
	item := data.Items[0]
	assert.Equal(t, "job-1", item["job_id"])
	assert.NotContains(t, item, "candidate_id")
	assert.EqualValues(t, 72, item["score"])
	assert.Equal(t, "bon", item["niveau"])
	assert.Equal(t, "advanced-profile", item["algorithm_used"])
	assert.EqualValues(t, 1.5, item["processing_time_ms"])

	criteria := item["criteres"].(map[string]any)
	assert.EqualValues(t, 80, criteria["competences"].(map[string]any)["score"])
	bonus := item["bonus"].(map[string]any)
	assert.EqualValues(t, 5, bonus["total"])
	assert.Len(t, bonus["regles"], 1)
}

func TestMatch_ValidationError(t *testing.T) {
	uc := &fakeUsecase{matchErr: &usecase.ValidationError{Fields: map[string]string{"cv_data.competences": "is required"}}}
	app := newApp(uc, nil, nil)

	resp, env := do(t, app, postJSON("/api/v1/match", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", env.Message)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Equal(t, "is required", fields["cv_data.competences"])
}

func TestMatch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "chain exhausted", err: guard.ErrChainExhausted, status: http.StatusInternalServerError},
		{name: "cancelled", err: context.Canceled, status: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&fakeUsecase{matchErr: tt.err}, nil, nil)
			resp, _ := do(t, app, postJSON("/api/v1/match", map[string]any{}))
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMatch_MalformedBody(t *testing.T) {
	app := newApp(&fakeUsecase{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := do(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReverseMatch(t *testing.T) {
	app := newApp(&fakeUsecase{}, nil, nil)

	resp, env := do(t, app, postJSON("/api/v1/match/reverse", map[string]any{
		"job_data": map[string]any{"id": "job-1"},
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Mode  string           `json:"mode"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "reverse", data.Mode)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "cand-9", data.Items[0]["candidate_id"])
	assert.NotContains(t, data.Items[0], "job_id")
}

func TestAnalyticsSummary(t *testing.T) {
	uc := &fakeUsecase{}
	app := newApp(uc, nil, nil)

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary?days=30", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 30, uc.lastDays)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.EqualValues(t, 3, data["total"])
	assert.InDelta(t, 0.33, data["failure_rate"], 1e-9)
	assert.InDelta(t, 0.5, data["attempt_failure_rate"], 1e-9)

	_, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary", nil))
	assert.Equal(t, analytics.DefaultSummaryDays, uc.lastDays)

	for _, q := range []string{"days=abc", "days=0", "days=1000"} {
		resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestStrategyHealth(t *testing.T) {
	uc := &fakeUsecase{healthResp: []guard.Health{
		{Strategy: "semantic", State: guard.StateOpen, ConsecutiveFailures: 5, LastFailure: time.Unix(100, 0).UTC()},
		{Strategy: "advanced-profile", State: guard.StateClosed},
	}}
	app := newApp(uc, nil, nil)

	resp, env := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/strategies/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 2)
	assert.Equal(t, "open", data[0]["state"])
	assert.Contains(t, data[0], "last_failure")
	assert.NotContains(t, data[1], "last_failure")
}

func TestAuth(t *testing.T) {
	svc := jwt.NewHMACService("s3cret", time.Hour)
	app := newApp(&fakeUsecase{}, middleware.NewAuthMiddleware(svc), nil)

	resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/strategies/health", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/strategies/health", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := svc.GenerateAccessToken("gateway")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/strategies/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
