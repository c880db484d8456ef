package notify

import (
	"context"
	"fmt"
	"html"
	netmail "net/mail"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// DefaultFromName is the sender display name when none is configured.
const DefaultFromName = "Клининг"

// LeadCategory tags provider-side analytics for lead notices.
const LeadCategory = "quiz-lead"

// EmailSender sends one message. SendGrid, SES and the stub implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single notice to one inbox. HTML is derived from Body
// when left empty.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
	ReplyTo string
}

func (m EmailMessage) html() string {
	if m.HTML != "" {
		return m.HTML
	}
	return PlainToHTML(m.Body)
}

// PlainToHTML escapes text and keeps its line breaks.
func PlainToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(strings.TrimRight(text, "\n"))
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>\n") + "</p>"
}

// mailbox is the configured From identity shared by the real providers.
type mailbox struct {
	address string
	name    string
}

func newMailbox(address, name string) mailbox {
	if strings.TrimSpace(name) == "" {
		name = DefaultFromName
	}
	return mailbox{address: strings.TrimSpace(address), name: name}
}

// header renders the RFC 5322 form; non-ASCII names are Q-encoded.
func (m mailbox) header() string {
	return (&netmail.Address{Name: m.name, Address: m.address}).String()
}

// maskAddress keeps the domain and the first letter of the local part.
func maskAddress(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client sendgridAPI
	from   mailbox
	logger *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger)
}

func newSendGridSender(client sendgridAPI, cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: client,
		from:   newMailbox(cfg.FromEmail, cfg.FromName),
		logger: logger,
	}
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.from.name, s.from.address))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)

	if msg.Body != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Body))
	}
	if h := msg.html(); h != "" {
		m.AddContent(mail.NewContent("text/html", h))
	}
	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	m.AddCategories(LeadCategory)
	return m
}

// Send delivers msg; any 4xx/5xx from SendGrid is an error.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", maskAddress(msg.To))
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected message", "status", resp.StatusCode, "body", resp.Body, "to", maskAddress(msg.To))
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info("email sent", "provider", "sendgrid", "to", maskAddress(msg.To), "status", resp.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending; used when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent, no provider configured", "to", maskAddress(msg.To), "subject", msg.Subject)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
