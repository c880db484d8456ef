package leads

import (
	"slices"
	"strings"
	"time"
)

// Lead sources.
const (
	SourceQuiz     = "quiz"
	SourceCallback = "callback"
)

// Lead is a contact request collected on the site, either through the
// estimate quiz or the short callback form.
type Lead struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	SessionID     string     `json:"session_id,omitempty"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Service       string     `json:"service,omitempty"`
	ServiceOther  string     `json:"service_other,omitempty"`
	AreaSqm       int        `json:"area_sqm,omitempty"`
	Rooms         int        `json:"rooms,omitempty"`
	Bathrooms     int        `json:"bathrooms,omitempty"`
	Extras        []string   `json:"extras,omitempty"`
	ExtrasOther   string     `json:"extras_other,omitempty"`
	Urgency       string     `json:"urgency,omitempty"`
	DesiredAt     *time.Time `json:"desired_at,omitempty"`
	EstimateTotal int        `json:"estimate_total,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateLeadRequest holds everything needed to store a lead.
type CreateLeadRequest struct {
	Source        string
	SessionID     string
	Name          string
	Phone         string
	Service       string
	ServiceOther  string
	AreaSqm       int
	Rooms         int
	Bathrooms     int
	Extras        []string
	ExtrasOther   string
	Urgency       string
	DesiredAt     *time.Time
	EstimateTotal int
	Currency      string
	Comment       string
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrMissingPhone
	}
	if r.Source != SourceQuiz && r.Source != SourceCallback {
		return ErrInvalidSource
	}
	return nil
}

func (r *CreateLeadRequest) toLead(id string, createdAt time.Time) *Lead {
	return &Lead{
		ID:            id,
		Source:        r.Source,
		SessionID:     r.SessionID,
		Name:          r.Name,
		Phone:         r.Phone,
		Service:       r.Service,
		ServiceOther:  r.ServiceOther,
		AreaSqm:       r.AreaSqm,
		Rooms:         r.Rooms,
		Bathrooms:     r.Bathrooms,
		Extras:        slices.Clone(r.Extras),
		ExtrasOther:   r.ExtrasOther,
		Urgency:       r.Urgency,
		DesiredAt:     r.DesiredAt,
		EstimateTotal: r.EstimateTotal,
		Currency:      r.Currency,
		Comment:       r.Comment,
		CreatedAt:     createdAt,
	}
}

// ListLeadsFilter narrows admin listings.
type ListLeadsFilter struct {
	Source string
	Limit  int
	Offset int
}
