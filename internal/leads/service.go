package leads

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/cleaning-quiz-platform/internal/events"
	"github.com/wolfman30/cleaning-quiz-platform/internal/notify"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

var leadsTracer = otel.Tracer("cleaning.internal.leads")

// EventWriter appends events to the outbox.
type EventWriter interface {
	Insert(ctx context.Context, aggregate string, eventType string, payload any) (uuid.UUID, error)
}

// Notifier tells the business about a new lead.
type Notifier interface {
	NotifyNewLead(ctx context.Context, notice notify.LeadNotice) error
}

// Service stores leads and fans them out to the outbox and the inbox.
type Service struct {
	repo     Repository
	events   EventWriter
	notifier Notifier
	catalog  quiz.Catalog
	logger   *logging.Logger
}

// NewService wires a lead service. outbox and notifier are optional.
func NewService(repo Repository, outbox EventWriter, notifier Notifier, logger *logging.Logger) *Service {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		events:   outbox,
		notifier: notifier,
		catalog:  quiz.DefaultCatalog(),
		logger:   logger,
	}
}

// SubmitLead implements quiz.LeadSink.
func (s *Service) SubmitLead(ctx context.Context, sub quiz.Submission) (string, error) {
	lead, err := s.Create(ctx, FromSubmission(sub))
	if err != nil {
		return "", err
	}
	return lead.ID, nil
}

// Create stores the lead, then publishes and notifies. Only the store is
// required to succeed; the outbox and email failures are logged.
func (s *Service) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.create")
	defer span.End()
	span.SetAttributes(attribute.String("lead.source", req.Source))

	lead, err := s.repo.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create lead")
		return nil, fmt.Errorf("leads: create: %w", err)
	}
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	if s.events != nil {
		if _, err := s.events.Insert(ctx, lead.ID, events.EventTypeLeadSubmitted, s.event(lead)); err != nil {
			span.RecordError(err)
			s.logger.Error("failed to enqueue lead event", "error", err, "lead_id", lead.ID)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyNewLead(ctx, s.notice(lead)); err != nil {
			s.logger.Warn("lead notification failed", "error", err, "lead_id", lead.ID)
		}
	}

	s.logger.Info("lead created", "lead_id", lead.ID, "source", lead.Source, "service", lead.Service)
	return lead, nil
}

// FromSubmission maps a completed quiz onto a lead request.
func FromSubmission(sub quiz.Submission) *CreateLeadRequest {
	a := sub.Answers
	req := &CreateLeadRequest{
		Source:    SourceQuiz,
		SessionID: sub.SessionID,
		Name:      a.Name,
		Phone:     a.Phone,
		AreaSqm:   a.Area,
		Rooms:     a.Rooms,
		Bathrooms: a.Bathrooms,
		Urgency:   string(a.Urgency),
	}
	switch {
	case a.Service.IsCustom():
		req.Service = quiz.OtherValue
		req.ServiceOther = a.Service.Label()
	case a.Service.Answered():
		req.Service = string(a.Service.Type())
	}
	if a.Extras.IsCustom() {
		req.ExtrasOther = a.Extras.Label()
	} else {
		req.Extras = a.Extras.Sorted()
	}
	if !a.DesiredAt.IsZero() {
		d := a.DesiredAt
		req.DesiredAt = &d
	}
	if sub.Estimate != nil {
		req.EstimateTotal = sub.Estimate.TotalPrice
		req.Currency = sub.Estimate.Currency
	}
	return req
}

func (s *Service) event(lead *Lead) events.LeadSubmittedV1 {
	return events.LeadSubmittedV1{
		EventID:       uuid.NewString(),
		LeadID:        lead.ID,
		Source:        lead.Source,
		Name:          lead.Name,
		Phone:         lead.Phone,
		Service:       lead.Service,
		ServiceOther:  lead.ServiceOther,
		AreaSqm:       lead.AreaSqm,
		Rooms:         lead.Rooms,
		Bathrooms:     lead.Bathrooms,
		Extras:        lead.Extras,
		ExtrasOther:   lead.ExtrasOther,
		Urgency:       lead.Urgency,
		DesiredAt:     lead.DesiredAt,
		EstimateTotal: lead.EstimateTotal,
		Currency:      lead.Currency,
		SubmittedAt:   lead.CreatedAt,
	}
}

func (s *Service) notice(lead *Lead) notify.LeadNotice {
	n := notify.LeadNotice{
		LeadID:        lead.ID,
		Source:        lead.Source,
		Name:          lead.Name,
		Phone:         lead.Phone,
		AreaSqm:       lead.AreaSqm,
		Rooms:         lead.Rooms,
		Bathrooms:     lead.Bathrooms,
		DesiredAt:     lead.DesiredAt,
		EstimateTotal: lead.EstimateTotal,
		Currency:      lead.Currency,
		Comment:       lead.Comment,
	}
	switch {
	case lead.ServiceOther != "":
		n.Service = lead.ServiceOther
	case lead.Service != "":
		n.Service = s.catalog.OptionLabel(quiz.StepType, lead.Service)
	}
	for _, key := range lead.Extras {
		n.Extras = append(n.Extras, s.catalog.OptionLabel(quiz.StepExtras, key))
	}
	if lead.ExtrasOther != "" {
		n.Extras = append(n.Extras, lead.ExtrasOther)
	}
	if lead.Urgency != "" {
		n.Urgency = s.catalog.OptionLabel(quiz.StepUrgency, lead.Urgency)
	}
	return n
}

var _ quiz.LeadSink = (*Service)(nil)
