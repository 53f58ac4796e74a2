package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client    *resend.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// ResendConfig holds configuration for Resend.
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewResendSender returns nil when no API key is configured.
func NewResendSender(cfg ResendConfig, logger *logging.Logger) *ResendSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newResendSender(resend.NewClient(cfg.APIKey), cfg, logger)
}

func newResendSender(client *resend.Client, cfg ResendConfig, logger *logging.Logger) *ResendSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &ResendSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: resend client not configured")
	}
	if err := msg.validate(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
	tags := msg.tags()
	for _, k := range []string{"category", "booking_id", "org_id"} {
		if v, ok := tags[k]; ok {
			params.Tags = append(params.Tags, resend.Tag{Name: k, Value: v})
		}
	}
	resp, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: resend send failed: %w", err)
	}

	s.logger.Info("email sent via resend", "to", msg.To, "subject", msg.Subject, "message_id", resp.Id)
	return nil
}

var _ EmailSender = (*ResendSender)(nil)
