package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// LeadNotice is a human-readable summary of a new lead. Option values are
// already resolved to their display labels.
type LeadNotice struct {
	LeadID        string
	Source        string
	Name          string
	Phone         string
	Service       string
	AreaSqm       int
	Rooms         int
	Bathrooms     int
	Extras        []string
	Urgency       string
	DesiredAt     *time.Time
	EstimateTotal int
	Currency      string
	Comment       string
}

// LeadNotifier emails the business inbox about new leads.
type LeadNotifier struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewLeadNotifier returns nil when there is nothing to send to.
func NewLeadNotifier(email EmailSender, recipients []string, logger *logging.Logger) *LeadNotifier {
	var to []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if email == nil || len(to) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{email: email, recipients: to, logger: logger}
}

// NotifyNewLead sends the notice to every recipient. A nil notifier is a no-op.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, notice LeadNotice) error {
	if n == nil {
		return nil
	}
	msg := EmailMessage{
		Subject: LeadSubject(notice),
		Body:    LeadBody(notice),
	}
	var errs []error
	for _, to := range n.recipients {
		msg.To = to
		if err := n.email.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notify: lead %s to %s: %w", notice.LeadID, to, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	n.logger.Info("lead notification sent", "lead_id", notice.LeadID, "recipients", len(n.recipients))
	return nil
}

// LeadSubject renders the email subject line.
func LeadSubject(n LeadNotice) string {
	if n.Service == "" {
		return "Новая заявка на обратный звонок: " + n.Phone
	}
	if n.AreaSqm > 0 {
		return fmt.Sprintf("Новая заявка: %s, %d м²", n.Service, n.AreaSqm)
	}
	return "Новая заявка: " + n.Service
}

// LeadBody renders the plain-text email body.
func LeadBody(n LeadNotice) string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Имя", n.Name)
	line("Телефон", n.Phone)
	line("Услуга", n.Service)
	if n.AreaSqm > 0 {
		line("Площадь", fmt.Sprintf("%d м²", n.AreaSqm))
	}
	if n.Rooms > 0 {
		line("Комнат / санузлов", fmt.Sprintf("%d / %d", n.Rooms, n.Bathrooms))
	}
	line("Дополнительно", strings.Join(n.Extras, ", "))
	line("Срочность", n.Urgency)
	if n.DesiredAt != nil {
		line("Желаемая дата", n.DesiredAt.Format("02.01.2006"))
	}
	if n.EstimateTotal > 0 {
		line("Предварительная стоимость", fmt.Sprintf("%s %s", formatAmount(n.EstimateTotal), n.Currency))
	}
	line("Комментарий", n.Comment)
	line("Источник", n.Source)
	line("ID заявки", n.LeadID)
	return b.String()
}

// formatAmount groups thousands with a space: 12500 -> "12 500".
func formatAmount(v int) string {
	s := fmt.Sprintf("%d", v)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
