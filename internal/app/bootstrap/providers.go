package bootstrap

import (
	"context"
	"strings"

	"github.com/Schofield90/whatsapp-lead-system/internal/calendar"
	"github.com/Schofield90/whatsapp-lead-system/internal/calendar/gcal"
	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/notify"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Email providers selectable through EMAIL_PROVIDER.
const (
	EmailSendGrid = "sendgrid"
	EmailResend   = "resend"
	EmailSES      = "ses"
	EmailStub     = "stub"
)

// BuildEmailSender returns the owner notification sender for
// cfg.EmailProvider. A provider missing its credentials falls back to the
// stub sender, which only logs. ses may be nil unless the ses provider is
// selected.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(cfg.EmailProvider) {
	case EmailSendGrid:
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
	case EmailResend:
		if s := notify.NewResendSender(notify.ResendConfig{
			APIKey:    cfg.ResendAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
	case EmailSES:
		if s := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
	case "", EmailStub:
		return notify.NewStubEmailSender(logger)
	}
	logger.Warn("email provider not configured; owner notifications will only be logged", "provider", cfg.EmailProvider)
	return notify.NewStubEmailSender(logger)
}

// BuildCalendar returns the Google Calendar client when credentials are
// configured, otherwise an in-memory calendar.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) calendar.Provider {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.GoogleCredentialsJSON) == "" || strings.TrimSpace(cfg.GoogleTokenJSON) == "" {
		logger.Warn("google calendar not configured; using in-memory calendar")
		return calendar.NewMemoryProvider()
	}
	client, err := gcal.NewClient(ctx, cfg.GoogleCredentialsJSON, cfg.GoogleTokenJSON, logger)
	if err != nil {
		logger.Error("google calendar unavailable; using in-memory calendar", "error", err)
		return calendar.NewMemoryProvider()
	}
	logger.Info("google calendar enabled", "default_calendar_id", cfg.DefaultCalendarID)
	return client
}
