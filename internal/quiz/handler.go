package quiz

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
	"github.com/wolfman30/cleaning-quiz-platform/internal/validation"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// SessionHeader carries the quiz session id between widget and API.
const SessionHeader = "X-Quiz-Session"

// Handler exposes the quiz over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a quiz handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the quiz endpoints. submitGuards wrap only the submit route.
func (h *Handler) Routes(submitGuards ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.StartSession)
	r.Post("/estimate", h.Estimate)
	r.Get("/", h.GetState)
	r.Delete("/", h.Reset)
	r.Delete("/session", h.EndSession)
	r.Post("/answer", h.Answer)
	r.Post("/back", h.Back)
	r.With(submitGuards...).Post("/submit", h.Submit)
	return r
}

// ErrorResponse lists inline field errors.
type ErrorResponse struct {
	Errors []FieldErrorResponse `json:"errors"`
	View   *View                `json:"view,omitempty"`
}

// FieldErrorResponse is one inline error.
type FieldErrorResponse struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StartSession handles POST /quiz/sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Start(r.Context())
	if err != nil {
		h.logger.Error("failed to start quiz session", "error", err)
		http.Error(w, "quiz temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set(SessionHeader, c.Session().ID)
	writeJSON(w, http.StatusCreated, c.View())
}

// GetState handles GET /quiz
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

// Answer handles POST /quiz/answer
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.open(w, r)
	if !ok {
		return
	}
	var in StepInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	errs, err := c.Answer(r.Context(), in)
	h.respond(w, c, errs, err)
}

// Back handles POST /quiz/back
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	c, ok := h.open(w, r)
	if !ok {
		return
	}
	h.respond(w, c, nil, c.Back(r.Context()))
}

// Submit handles POST /quiz/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.open(w, r)
	if !ok {
		return
	}
	var in ContactInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	errs, err := c.Submit(r.Context(), in)
	h.respond(w, c, errs, err)
}

// Reset handles DELETE /quiz
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	c, ok := h.open(w, r)
	if !ok {
		return
	}
	c.Reset(r.Context())
	writeJSON(w, http.StatusOK, c.View())
}

// EndSession handles DELETE /quiz/session. The session and its stored
// answers are removed; later requests with the same id get 404.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.open(w, r)
	if !ok {
		return
	}
	c.Close(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// EstimateRequest is the pricing input contract.
type EstimateRequest struct {
	ServiceType string  `json:"serviceType"`
	AreaSqm     float64 `json:"areaSqm"`
	Windows     *int    `json:"windows,omitempty"`
	HasBalcony  bool    `json:"hasBalcony,omitempty"`
}

// Estimate handles POST /quiz/estimate, a stateless price calculation.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var errs validation.FieldErrors
	if math.IsNaN(req.AreaSqm) || req.AreaSqm < 0 {
		errs.Add(&validation.FieldError{Field: "areaSqm", Err: validation.ErrInvalidData})
	} else if req.AreaSqm > validation.MaxArea {
		errs.Add(&validation.FieldError{Field: "areaSqm", Err: validation.ErrAreaTooLarge})
	}
	if req.Windows != nil && (*req.Windows < 0 || *req.Windows > validation.MaxWindows) {
		errs.Add(&validation.FieldError{Field: "windows", Err: validation.ErrInvalidData})
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, NewErrorResponse(errs, nil))
		return
	}
	res := h.service.Engine().Calculate(pricing.Params{
		ServiceType: pricing.ParseServiceType(req.ServiceType),
		AreaSqm:     req.AreaSqm,
		Windows:     req.Windows,
		HasBalcony:  req.HasBalcony,
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("session"))
	}
	if id == "" {
		http.Error(w, "missing "+SessionHeader, http.StatusBadRequest)
		return nil, false
	}
	c, err := h.service.Open(r.Context(), id)
	if err != nil {
		http.Error(w, "quiz session not found", http.StatusNotFound)
		return nil, false
	}
	w.Header().Set(SessionHeader, id)
	return c, true
}

func (h *Handler) respond(w http.ResponseWriter, c *Controller, errs validation.FieldErrors, err error) {
	view := c.View()
	switch {
	case err == nil && len(errs) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, NewErrorResponse(errs, &view))
	case err == nil, errors.Is(err, ErrRejected):
		// Anti-spam rejections look exactly like a no-op.
		writeJSON(w, http.StatusOK, view)
	case errors.Is(err, ErrStepMismatch), errors.Is(err, ErrNotReady), errors.Is(err, ErrSubmitted):
		writeJSON(w, http.StatusConflict, view)
	default:
		h.logger.Error("quiz request failed", "error", err, "quiz_session", c.Session().ID)
		http.Error(w, "submission temporarily unavailable", http.StatusServiceUnavailable)
	}
}

// NewErrorResponse renders field errors with their codes and messages.
func NewErrorResponse(errs validation.FieldErrors, view *View) ErrorResponse {
	resp := ErrorResponse{Errors: make([]FieldErrorResponse, 0, len(errs)), View: view}
	for _, fe := range errs {
		resp.Errors = append(resp.Errors, FieldErrorResponse{
			Field:   fe.Field,
			Code:    fe.Code(),
			Message: fe.Message(),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
