package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// DefaultFromName is the From name on owner notifications when the
// organization has none configured.
const DefaultFromName = "Lead Assistant"

// bookingCategory is the provider category on every owner notification.
const bookingCategory = "booking-notification"

var errNoRecipient = errors.New("notify: no recipient specified")

// EmailSender delivers an owner notification through one provider.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a rendered owner notification. BookingID and OrgID are
// attached as provider tags; ReplyTo lets the owner answer the lead directly.
type EmailMessage struct {
	To        string
	ToName    string
	ReplyTo   string
	Subject   string
	Body      string
	HTML      string
	BookingID string
	OrgID     string
}

func (m EmailMessage) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errNoRecipient
	}
	return nil
}

// tags returns the provider tags for the message, skipping empty values.
func (m EmailMessage) tags() map[string]string {
	tags := map[string]string{"category": bookingCategory}
	if m.BookingID != "" {
		tags["booking_id"] = m.BookingID
	}
	if m.OrgID != "" {
		tags["org_id"] = m.OrgID
	}
	return tags
}

// SendGridSender delivers owner notifications through SendGrid.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig comes from SENDGRID_API_KEY and EMAIL_FROM_ADDRESS/EMAIL_FROM_NAME.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	if err := msg.validate(); err != nil {
		return err
	}

	response, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		s.logger.Error("sendgrid booking email failed", "error", err, "booking_id", msg.BookingID, "org_id", msg.OrgID)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected booking email", "status", response.StatusCode, "body", response.Body, "booking_id", msg.BookingID)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("booking email sent", "provider", "sendgrid", "booking_id", msg.BookingID, "org_id", msg.OrgID, "status", response.StatusCode)
	return nil
}

// build shapes msg as a SendGrid v3 mail. SendGrid rejects an empty HTML
// part, so the plain body stands in when there is none.
func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(mail.NewEmail(s.fromName, s.fromEmail), msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, html)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	message.AddCategories(bookingCategory)
	for k, v := range msg.tags() {
		if k != "category" {
			message.Personalizations[0].SetCustomArg(k, v)
		}
	}
	return message
}

// StubEmailSender records owner notifications in the log. Bootstrap falls
// back to it when the configured provider has no credentials, so bookings
// keep working in development.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Warn("no email provider configured, booking email not delivered",
		"booking_id", msg.BookingID,
		"org_id", msg.OrgID,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
