package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/wolfman30/cleaning-quiz-platform/internal/http/middleware"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/internal/validation"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// MaxCommentLength caps free text stored from the callback form.
const MaxCommentLength = 500

// Handler handles HTTP requests for leads
type Handler struct {
	service *Service
	repo    Repository
	limiter quiz.Limiter
	logger  *logging.Logger
}

// NewHandler creates a new leads handler. limiter may be nil.
func NewHandler(service *Service, repo Repository, limiter quiz.Limiter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		repo:    repo,
		limiter: limiter,
		logger:  logger,
	}
}

// CallbackRequest is the short "call me back" form.
type CallbackRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Consent bool   `json:"consent"`
	Comment string `json:"comment,omitempty"`
	Website string `json:"website,omitempty"`
}

// CallbackResponse acknowledges a callback request.
type CallbackResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

// CreateCallback handles POST /leads/callback requests
func (h *Handler) CreateCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Bots get the same answer as people.
	if strings.TrimSpace(req.Website) != "" {
		h.logger.Warn("callback rejected", "reason", "honeypot")
		writeJSON(w, http.StatusOK, CallbackResponse{Status: "ok"})
		return
	}

	var errs validation.FieldErrors
	name, fe := validation.Name(req.Name)
	errs.Add(fe)
	phone, fe := validation.Phone(req.Phone)
	errs.Add(fe)
	errs.Add(validation.Consent(req.Consent))
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, quiz.NewErrorResponse(errs, nil))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.Context(), phone) {
		h.logger.Warn("callback rejected", "reason", "velocity")
		writeJSON(w, http.StatusOK, CallbackResponse{Status: "ok"})
		return
	}

	lead, err := h.service.Create(r.Context(), &CreateLeadRequest{
		Source:  SourceCallback,
		Name:    name,
		Phone:   phone,
		Comment: trimComment(req.Comment),
	})
	if err != nil {
		h.logger.Error("failed to create lead", "error", err)
		http.Error(w, "submission temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusCreated, CallbackResponse{Status: "ok", ID: lead.ID})
}

func trimComment(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > MaxCommentLength {
		return string(r[:MaxCommentLength])
	}
	return s
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListLeadsFilter{
		Limit:  50,
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	switch source := r.URL.Query().Get("source"); source {
	case "":
	case SourceQuiz, SourceCallback:
		filter.Source = source
	default:
		http.Error(w, "unknown source", http.StatusBadRequest)
		return
	}

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
		h.logger.Info("admin listed leads", "admin", claims.Subject, "role", claims.Role, "count", len(leads))
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/leads/{leadID} requests
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", id)
		http.Error(w, "failed to get lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// velocityResetter is implemented by limiters whose counters can be cleared.
type velocityResetter interface {
	Reset(ctx context.Context, phone string) error
}

// ResetVelocity handles DELETE /admin/leads/{leadID}/velocity. It clears the
// submission counter for the lead's phone so a customer blocked by the
// velocity limit can submit again.
func (h *Handler) ResetVelocity(w http.ResponseWriter, r *http.Request) {
	resetter, ok := h.limiter.(velocityResetter)
	if !ok {
		http.Error(w, "velocity limiting is not enabled", http.StatusNotImplemented)
		return
	}
	id := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", id)
		http.Error(w, "failed to get lead", http.StatusInternalServerError)
		return
	}
	if err := resetter.Reset(r.Context(), lead.Phone); err != nil {
		h.logger.Error("failed to reset submission velocity", "error", err, "lead_id", id)
		http.Error(w, "failed to reset velocity", http.StatusInternalServerError)
		return
	}
	if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
		h.logger.Info("admin reset submission velocity", "admin", claims.Subject, "lead_id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
