// Package quiz implements the guided cleaning estimate questionnaire: the step
// catalog, the answer store, the step sequencer and the controller that ties
// them to the pricing engine and to lead submission.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
	"github.com/wolfman30/cleaning-quiz-platform/internal/validation"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

var (
	// ErrRejected marks a submission dropped by the anti-spam guard. Callers
	// must not surface it to the visitor.
	ErrRejected = errors.New("quiz: submission rejected")

	// ErrStepMismatch is returned when input targets a step other than the active one.
	ErrStepMismatch = errors.New("quiz: input does not match the active step")

	// ErrNotReady is returned when submission is attempted before the contacts step.
	ErrNotReady = errors.New("quiz: contacts step not reached")

	// ErrSubmitted is returned for navigation after a successful submission.
	ErrSubmitted = errors.New("quiz: already submitted")
)

// DefaultMinDwell is the minimum time between session start and submission.
const DefaultMinDwell = 4 * time.Second

// Submission is what the quiz hands to the lead collaborator.
type Submission struct {
	SessionID   string
	Answers     AnswerSet
	Estimate    *pricing.Result
	SubmittedAt time.Time
}

// LeadSink transmits an accepted submission and returns the lead id.
type LeadSink interface {
	SubmitLead(ctx context.Context, sub Submission) (string, error)
}

// Limiter throttles submissions per normalized phone.
type Limiter interface {
	Allow(ctx context.Context, phone string) bool
}

// Recorder receives quiz metrics. All methods must be nil-safe.
type Recorder interface {
	ObserveStep(step string, outcome string)
	ObserveValidationError(step, field string)
	ObserveSubmission(outcome string)
	ObserveEstimate(service string, total int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStep(string, string)            {}
func (nopRecorder) ObserveValidationError(string, string) {}
func (nopRecorder) ObserveSubmission(string)              {}
func (nopRecorder) ObserveEstimate(string, int)           {}

// Config wires a Service.
type Config struct {
	Catalog  Catalog
	Storage  Storage
	Sink     LeadSink
	Limiter  Limiter
	Metrics  Recorder
	Engine   *pricing.Engine
	Estimate EstimateOptions
	MinDwell time.Duration
	Now      func() time.Time
	Logger   *logging.Logger
}

// Service creates and restores quiz controllers.
type Service struct {
	catalog  Catalog
	storage  Storage
	sessions sessionRepository
	sink     LeadSink
	limiter  Limiter
	metrics  Recorder
	engine   *pricing.Engine
	estimate EstimateOptions
	minDwell time.Duration
	now      func() time.Time
	logger   *logging.Logger
	inflight singleflight.Group
}

// NewService validates cfg and fills defaults.
func NewService(cfg Config) *Service {
	if cfg.Storage == nil {
		panic("quiz: storage required")
	}
	if cfg.Sink == nil {
		panic("quiz: lead sink required")
	}
	if len(cfg.Catalog.steps) == 0 {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}
	if cfg.Engine == nil {
		cfg.Engine = pricing.NewEngine(pricing.DefaultRates())
	}
	if cfg.Estimate.WindowsPerRoom <= 0 {
		cfg.Estimate = DefaultEstimateOptions()
	}
	if cfg.MinDwell < 0 {
		cfg.MinDwell = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		catalog:  cfg.Catalog,
		storage:  cfg.Storage,
		sessions: sessionRepository{storage: cfg.Storage},
		sink:     cfg.Sink,
		limiter:  cfg.Limiter,
		metrics:  cfg.Metrics,
		engine:   cfg.Engine,
		estimate: cfg.Estimate,
		minDwell: cfg.MinDwell,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
}

// Engine exposes the pricing engine used for estimates.
func (s *Service) Engine() *pricing.Engine {
	return s.engine
}

// Start opens a fresh session positioned on the first step.
func (s *Service) Start(ctx context.Context) (*Controller, error) {
	id := uuid.NewString()
	c := s.newController(Session{ID: id, StartedAt: s.now().UTC()}, AnswerSet{})
	c.session.Step = c.seq.CurrentID()
	if err := s.sessions.save(ctx, c.session); err != nil {
		return nil, fmt.Errorf("quiz: start session: %w", err)
	}
	c.logger.Info("quiz session started")
	return c, nil
}

// Open restores a session and its persisted progress.
func (s *Service) Open(ctx context.Context, sessionID string) (*Controller, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.sessions.load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			s.logger.Warn("quiz session unavailable", "error", err, "quiz_session", sessionID)
		}
		return nil, ErrSessionNotFound
	}
	c := s.newController(sess, AnswerSet{})
	answers := c.store.Load(ctx)
	c.seq.Recompute(answers.Service)
	c.seq.MoveTo(sess.Step)
	c.session.Step = c.seq.CurrentID()
	return c, nil
}

func (s *Service) newController(sess Session, answers AnswerSet) *Controller {
	logger := s.logger.WithSession(sess.ID)
	store := NewStore(s.storage, s.catalog, sess.ID, logger)
	store.answers = answers
	return &Controller{
		svc:     s,
		session: sess,
		store:   store,
		seq:     NewSequencer(s.catalog, answers.Service),
		logger:  logger,
	}
}

// Controller drives one quiz instance. It is not safe for concurrent use;
// each request builds its own.
type Controller struct {
	svc     *Service
	session Session
	store   *Store
	seq     *Sequencer
	logger  *logging.Logger
}

// View is the rendering state returned to the widget.
type View struct {
	SessionID string          `json:"sessionId"`
	Step      StepDefinition  `json:"step"`
	Index     int             `json:"index"`
	Total     int             `json:"total"`
	Steps     []StepID        `json:"steps"`
	CanGoBack bool            `json:"canGoBack"`
	Answers   Progress        `json:"answers"`
	Estimate  *pricing.Result `json:"estimate,omitempty"`
	Submitted bool            `json:"submitted"`
	LeadID    string          `json:"leadId,omitempty"`
}

// Session returns the navigation state.
func (c *Controller) Session() Session {
	return c.session
}

// Answers returns the in-memory answer set.
func (c *Controller) Answers() AnswerSet {
	return c.store.Answers()
}

// CurrentStep returns the active step id.
func (c *Controller) CurrentStep() StepID {
	return c.seq.CurrentID()
}

// View renders the current state. The live estimate is only attached on the
// contacts step and on the confirmation view.
func (c *Controller) View() View {
	v := View{
		SessionID: c.session.ID,
		Step:      c.seq.Current(),
		Index:     c.seq.Index(),
		Total:     c.seq.Total(),
		Steps:     c.seq.Steps(),
		CanGoBack: !c.seq.IsFirst() && !c.session.Submitted,
		Answers:   c.store.Answers().Progress(),
		Submitted: c.session.Submitted,
		LeadID:    c.session.LeadID,
	}
	if c.session.Submitted || c.seq.CurrentID() == StepContacts {
		v.Estimate = c.Estimate()
	}
	return v
}

// Estimate prices the current answers; nil means no estimate is available.
func (c *Controller) Estimate() *pricing.Result {
	params := PricingParams(c.store.Answers(), c.svc.estimate)
	if params == nil {
		return nil
	}
	res := c.svc.engine.Calculate(*params)
	return &res
}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	*f = FlexString(s)
	return nil
}

// StepInput carries the raw answer to the active step.
type StepInput struct {
	Step      StepID     `json:"step,omitempty"`
	Choice    string     `json:"choice,omitempty"`
	Other     string     `json:"other,omitempty"`
	Value     FlexString `json:"value,omitempty"`
	Rooms     FlexString `json:"rooms,omitempty"`
	Bathrooms FlexString `json:"bathrooms,omitempty"`
	Extras    []string   `json:"extras,omitempty"`
}

// Answer validates input against the active step, patches the store, rebuilds
// the effective steps when the service changed and advances. Field errors are
// returned without changing state.
func (c *Controller) Answer(ctx context.Context, in StepInput) (validation.FieldErrors, error) {
	if c.session.Submitted {
		return nil, ErrSubmitted
	}
	step := c.seq.Current()
	if in.Step != "" && in.Step != step.ID {
		return nil, ErrStepMismatch
	}
	if step.Shape == ShapeContactPair {
		return nil, ErrStepMismatch
	}

	patch, errs := c.validateStep(step, in)
	if len(errs) > 0 {
		for _, fe := range errs {
			c.svc.metrics.ObserveValidationError(string(step.ID), fe.Field)
		}
		c.svc.metrics.ObserveStep(string(step.ID), "invalid")
		return errs, nil
	}

	before := c.store.Answers().Service
	after := c.store.Patch(ctx, patch).Service
	if before != after {
		c.seq.Recompute(after)
	}
	c.seq.Advance()
	c.session.Step = c.seq.CurrentID()
	c.saveSession(ctx)

	c.svc.metrics.ObserveStep(string(step.ID), "answered")
	c.logger.Debug("quiz step answered", "step", step.ID, "next", c.session.Step, "total", c.seq.Total())
	if c.seq.CurrentID() == StepContacts {
		if est := c.Estimate(); est != nil {
			c.svc.metrics.ObserveEstimate(string(c.store.Answers().Service.PricingType()), est.TotalPrice)
		}
	}
	return nil, nil
}

func (c *Controller) validateStep(step StepDefinition, in StepInput) (Patch, validation.FieldErrors) {
	var (
		p    Patch
		errs validation.FieldErrors
	)
	switch step.ID {
	case StepType:
		if strings.TrimSpace(in.Choice) == OtherValue || (in.Choice == "" && strings.TrimSpace(in.Other) != "") {
			label, fe := validation.OtherLabel(validation.FieldServiceOther, in.Other)
			if fe != nil {
				errs.Add(fe)
				break
			}
			sel := CustomService(label)
			p.Service = &sel
			break
		}
		v, fe := validation.Choice(validation.FieldService, in.Choice, step.OptionValues())
		if fe != nil {
			errs.Add(fe)
			break
		}
		sel := ChooseService(pricing.ServiceType(v))
		p.Service = &sel
	case StepArea:
		area, fe := validation.Area(string(in.Value))
		if fe != nil {
			errs.Add(fe)
			break
		}
		p.Area = &area
	case StepRooms:
		rooms, baths, fes := validation.RoomsPair(string(in.Rooms), string(in.Bathrooms))
		if len(fes) > 0 {
			errs = fes
			break
		}
		p.Rooms, p.Bathrooms = &rooms, &baths
	case StepExtras:
		sel, fes := c.validateExtras(step, in)
		if len(fes) > 0 {
			errs = fes
			break
		}
		p.Extras = &sel
	case StepUrgency:
		v, fe := validation.Choice(validation.FieldUrgency, in.Choice, step.OptionValues())
		if fe != nil {
			errs.Add(fe)
			break
		}
		u := Urgency(v)
		p.Urgency = &u
	default:
		errs.Add(&validation.FieldError{Field: string(step.ID), Err: validation.ErrInvalidData})
	}
	return p, errs
}

func (c *Controller) validateExtras(step StepDefinition, in StepInput) (ExtrasSelection, validation.FieldErrors) {
	var errs validation.FieldErrors
	wantsOther := strings.TrimSpace(in.Other) != ""
	keys := make(map[string]bool, len(in.Extras))
	allowed := step.OptionValues()
	for _, raw := range in.Extras {
		if strings.TrimSpace(raw) == OtherValue {
			wantsOther = true
			continue
		}
		v, fe := validation.Choice(validation.FieldExtras, raw, allowed)
		if fe != nil {
			errs.Add(fe)
			return ExtrasSelection{}, errs
		}
		keys[v] = true
	}
	if wantsOther {
		label, fe := validation.OtherLabel(validation.FieldExtrasOther, in.Other)
		if fe != nil {
			errs.Add(fe)
			return ExtrasSelection{}, errs
		}
		return CustomExtras(label), nil
	}
	return ChooseExtras(keys), nil
}

// Back moves to the previous effective step without validating or rolling
// back stored answers.
func (c *Controller) Back(ctx context.Context) error {
	if c.session.Submitted {
		return ErrSubmitted
	}
	if c.seq.Retreat() {
		c.session.Step = c.seq.CurrentID()
		c.saveSession(ctx)
	}
	return nil
}

// ContactInput is the final step payload. Website is the honeypot field and
// must stay empty.
type ContactInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Consent   bool   `json:"consent"`
	DesiredAt string `json:"desiredAt,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Submit validates the contacts step and hands the lead to the sink. Anti-spam
// rejections return ErrRejected and leave the state untouched.
func (c *Controller) Submit(ctx context.Context, in ContactInput) (validation.FieldErrors, error) {
	if c.session.Submitted {
		return nil, nil
	}
	if c.seq.CurrentID() != StepContacts {
		return nil, ErrNotReady
	}
	if strings.TrimSpace(in.Website) != "" {
		return nil, c.reject("honeypot")
	}
	now := c.svc.now().UTC()
	if now.Sub(c.session.StartedAt) < c.svc.minDwell {
		return nil, c.reject("too_fast")
	}

	var errs validation.FieldErrors
	name, fe := validation.Name(in.Name)
	errs.Add(fe)
	phone, fe := validation.Phone(in.Phone)
	errs.Add(fe)
	errs.Add(validation.Consent(in.Consent))
	desired, fe := validation.DesiredDate(in.DesiredAt, now)
	errs.Add(fe)
	if len(errs) > 0 {
		for _, fe := range errs {
			c.svc.metrics.ObserveValidationError(string(StepContacts), fe.Field)
		}
		c.svc.metrics.ObserveSubmission("invalid")
		return errs, nil
	}

	if c.svc.limiter != nil && !c.svc.limiter.Allow(ctx, phone) {
		return nil, c.reject("velocity")
	}

	// Contacts stay in memory only; the persisted projection never holds them.
	consent := true
	answers := c.store.Answers().Apply(Patch{Name: &name, Phone: &phone, Consent: &consent, DesiredAt: &desired})
	c.store.answers = answers

	leadID, err, _ := c.svc.inflight.Do(c.session.ID, func() (any, error) {
		return c.svc.sink.SubmitLead(ctx, Submission{
			SessionID:   c.session.ID,
			Answers:     answers,
			Estimate:    c.Estimate(),
			SubmittedAt: now,
		})
	})
	if err != nil {
		c.svc.metrics.ObserveSubmission("error")
		c.logger.Error("quiz submission failed", "error", err)
		return nil, fmt.Errorf("quiz: submit lead: %w", err)
	}

	c.session.Submitted = true
	c.session.SubmittedAt = now
	c.session.LeadID, _ = leadID.(string)
	c.saveSession(ctx)
	c.store.Clear(ctx)

	c.svc.metrics.ObserveSubmission("accepted")
	c.logger.Info("quiz submitted", "lead_id", c.session.LeadID)
	return nil, nil
}

func (c *Controller) reject(reason string) error {
	c.svc.metrics.ObserveSubmission("rejected_" + reason)
	c.logger.Warn("quiz submission rejected", "reason", reason)
	return ErrRejected
}

// Reset discards progress and restarts the session from the first step.
func (c *Controller) Reset(ctx context.Context) {
	c.store.Reset(ctx)
	c.seq = NewSequencer(c.svc.catalog, ServiceSelection{})
	c.session = Session{ID: c.session.ID, Step: c.seq.CurrentID(), StartedAt: c.svc.now().UTC()}
	c.saveSession(ctx)
}

// Close removes the session record entirely.
func (c *Controller) Close(ctx context.Context) {
	c.store.Clear(ctx)
	if err := c.svc.sessions.delete(ctx, c.session.ID); err != nil {
		c.logger.Warn("failed to delete quiz session", "error", err)
	}
}

func (c *Controller) saveSession(ctx context.Context) {
	if err := c.svc.sessions.save(ctx, c.session); err != nil {
		c.logger.Warn("failed to persist quiz session", "error", err)
	}
}
