package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpmiddleware "github.com/wolfman30/cleaning-quiz-platform/internal/http/middleware"
	"github.com/wolfman30/cleaning-quiz-platform/internal/leads"
	"github.com/wolfman30/cleaning-quiz-platform/internal/observability/metrics"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

const testSecret = "router-secret"

type testEnv struct {
	handler http.Handler
	repo    *leads.InMemoryRepository
}

func newTestRouter(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	logger := logging.Default()
	repo := leads.NewInMemoryRepository()
	leadService := leads.NewService(repo, nil, nil, logger)
	reg := prometheus.NewRegistry()
	quizService := quiz.NewService(quiz.Config{
		Storage: quiz.NewMemoryStorage(),
		Sink:    leadService,
		Metrics: metrics.NewQuizMetrics(reg),
		Logger:  logger,
	})

	cfg := &Config{
		Logger:             logger,
		QuizHandler:        quiz.NewHandler(quizService, logger),
		LeadsHandler:       leads.NewHandler(leadService, repo, nil, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:    testSecret,
		CORSAllowedOrigins: []string{"https://cleaning.example"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	return &testEnv{handler: New(cfg), repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := httpmiddleware.AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "owner",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	env := newTestRouter(t, nil)
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterReadiness(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) {
		cfg.ReadinessChecks = map[string]Check{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("dial tcp: refused") },
		}
	})
	rr := env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, map[string]string{"redis": "ok", "postgres": "unavailable"}, resp.Checks)

	healthy := newTestRouter(t, nil)
	assert.Equal(t, http.StatusOK, healthy.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestRouterQuizFlowCreatesLead(t *testing.T) {
	env := newTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/quiz/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	session := map[string]string{quiz.SessionHeader: rr.Header().Get(quiz.SessionHeader)}

	for _, body := range []string{`{"choice":"window"}`, `{"value":"30"}`, `{"choice":"today"}`} {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/quiz/answer", body, session).Code, body)
	}
	rr = env.do(t, http.MethodPost, "/quiz/submit", `{"name":"Ольга","phone":"+79161234567","consent":true}`, session)
	require.Equal(t, http.StatusOK, rr.Code)

	var view quiz.View
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	require.True(t, view.Submitted)

	lead, err := env.repo.GetByID(context.Background(), view.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "window", lead.Service)
	assert.Equal(t, 30, lead.AreaSqm)

	metricsBody := env.do(t, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, metricsBody, `cleaning_quiz_submissions_total{outcome="accepted"} 1`)
}

func TestRouterCallbackAndAdmin(t *testing.T) {
	env := newTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/leads/callback", `{"name":"Иван","phone":"89161234567","consent":true}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/admin/leads", "", nil).Code)

	rr = env.do(t, http.MethodGet, "/admin/leads", "", map[string]string{"Authorization": "Bearer " + adminToken(t)})
	require.Equal(t, http.StatusOK, rr.Code)
	var list leads.ListLeadsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, leads.SourceCallback, list.Leads[0].Source)

	velocityPath := "/admin/leads/" + list.Leads[0].ID + "/velocity"
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodDelete, velocityPath, "", nil).Code)
	rr = env.do(t, http.MethodDelete, velocityPath, "", map[string]string{"Authorization": "Bearer " + adminToken(t)})
	assert.Equal(t, http.StatusNotImplemented, rr.Code, "no limiter configured")
}

func TestRouterAdminDisabledWithoutSecret(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) { cfg.AdminAuthSecret = "" })
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/admin/leads", "", nil).Code)
}

func TestRouterSubmitRateLimit(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) {
		cfg.SubmitRatePerSecond = 0.01
		cfg.SubmitBurst = 1
	})
	body := `{"name":"Иван","phone":"89161234567","consent":true}`
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/leads/callback", body, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/leads/callback", body, nil).Code)

	// Quiz navigation is not limited.
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/quiz/sessions", "", nil).Code)
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/quiz/sessions", "", nil).Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	env := newTestRouter(t, nil)
	rr := env.do(t, http.MethodOptions, "/quiz/answer", "", map[string]string{
		"Origin":                        "https://cleaning.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, quiz.SessionHeader, rr.Header().Get("Access-Control-Expose-Headers"))
}
