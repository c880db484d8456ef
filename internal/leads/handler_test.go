package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

func newTestHandler(limiter quiz.Limiter) (*Handler, *InMemoryRepository, *fakeNotifier) {
	repo := NewInMemoryRepository()
	notifier := &fakeNotifier{}
	svc := NewService(repo, nil, notifier, logging.Default())
	return NewHandler(svc, repo, limiter, logging.Default()), repo, notifier
}

func postCallback(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/leads/callback", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateCallback(w, req)
	return w
}

func TestCreateCallback_Success(t *testing.T) {
	h, repo, notifier := newTestHandler(nil)

	w := postCallback(h, `{"name":"  Иван  Петров ","phone":"8 916 123-45-67","consent":true,"comment":"после 18:00"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CallbackResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.ID)

	lead, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceCallback, lead.Source)
	assert.Equal(t, "Иван Петров", lead.Name)
	assert.Equal(t, "+79161234567", lead.Phone)
	assert.Equal(t, "после 18:00", lead.Comment)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "после 18:00", notifier.notices[0].Comment)
}

func TestCreateCallback_ValidationErrors(t *testing.T) {
	h, repo, _ := newTestHandler(nil)

	w := postCallback(h, `{"name":"John","phone":"123","consent":false}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp quiz.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	fields := map[string]string{}
	for _, e := range resp.Errors {
		fields[e.Field] = e.Code
	}
	assert.Equal(t, map[string]string{"name": "invalid_name", "phone": "required", "consent": "consent_required"}, fields)

	leads, _ := repo.List(context.Background(), ListLeadsFilter{})
	assert.Empty(t, leads)
}

func TestCreateCallback_SilentRejections(t *testing.T) {
	h, repo, _ := newTestHandler(nil)
	w := postCallback(h, `{"name":"Иван","phone":"+79161234567","consent":true,"website":"spam"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	limited, limitedRepo, _ := newTestHandler(denyAll{})
	w = postCallback(limited, `{"name":"Иван","phone":"+79161234567","consent":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, r := range []*InMemoryRepository{repo, limitedRepo} {
		leads, _ := r.List(context.Background(), ListLeadsFilter{})
		assert.Empty(t, leads)
	}
}

func TestCreateCallback_InvalidBody(t *testing.T) {
	h, _, _ := newTestHandler(nil)
	assert.Equal(t, http.StatusBadRequest, postCallback(h, `{"name":`).Code)
}

func TestTrimComment(t *testing.T) {
	long := strings.Repeat("я", MaxCommentLength+20)
	assert.Len(t, []rune(trimComment(long)), MaxCommentLength)
	assert.Equal(t, "ok", trimComment("  ok "))
}

func TestListAndGetLeads(t *testing.T) {
	h, repo, _ := newTestHandler(nil)
	ctx := context.Background()
	quizLead, err := repo.Create(ctx, &CreateLeadRequest{Source: SourceQuiz, Name: "Анна", Phone: "+79990000001"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &CreateLeadRequest{Source: SourceCallback, Name: "Олег", Phone: "+79990000002"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/admin/leads", h.ListLeads)
	r.Get("/admin/leads/{leadID}", h.GetLead)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?source=quiz&limit=500", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var list ListLeadsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 50, list.Limit, "out of range limit falls back to default")
	assert.Equal(t, quizLead.ID, list.Leads[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/admin/leads?source=fax", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/leads/"+quizLead.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var got Lead
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Анна", got.Name)

	req = httptest.NewRequest(http.MethodGet, "/admin/leads/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingResetter struct{ denyAll }

func (failingResetter) Reset(context.Context, string) error { return errors.New("redis down") }

func deleteVelocity(h *Handler, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Delete("/admin/leads/{leadID}/velocity", h.ResetVelocity)
	req := httptest.NewRequest(http.MethodDelete, "/admin/leads/"+id+"/velocity", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResetVelocity_UnblocksPhone(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	limiter := quiz.NewSubmissionLimiter(client, 1, time.Hour, nil)

	h, _, _ := newTestHandler(limiter)
	body := `{"name":"Иван","phone":"+79161234567","consent":true}`
	first := postCallback(h, body)
	require.Equal(t, http.StatusCreated, first.Code)
	var created CallbackResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&created))

	blocked := postCallback(h, body)
	require.Equal(t, http.StatusOK, blocked.Code, "second callback is silently dropped")

	w := deleteVelocity(h, created.ID)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, mr.Exists("velocity:quiz_submit:+79161234567"))

	assert.Equal(t, http.StatusCreated, postCallback(h, body).Code)
}

func TestResetVelocity_Errors(t *testing.T) {
	unlimited, _, _ := newTestHandler(nil)
	assert.Equal(t, http.StatusNotImplemented, deleteVelocity(unlimited, "any").Code)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	limited, _, _ := newTestHandler(quiz.NewSubmissionLimiter(client, 1, time.Hour, nil))
	assert.Equal(t, http.StatusNotFound, deleteVelocity(limited, "missing").Code)

	h, repo, _ := newTestHandler(failingResetter{})
	lead, err := repo.Create(context.Background(), &CreateLeadRequest{Source: SourceCallback, Name: "Олег", Phone: "+79990000002"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, deleteVelocity(h, lead.ID).Code)
}
