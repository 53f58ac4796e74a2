package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Service sends notifications to organization owners.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

var _ bookings.OwnerNotifier = (*Service)(nil)

// NewService creates a notification service. A nil email sender turns every
// notification into a logged no-op.
func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger.WithComponent("notify")}
}

// NotifyBookingCreated e-mails the owner the details of a new consultation.
func (s *Service) NotifyBookingCreated(ctx context.Context, org *orgs.Organization, lead *leads.Lead, b *bookings.Booking) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping booking notification", "booking_id", b.ID)
		return nil
	}
	if org == nil || strings.TrimSpace(org.OwnerEmail) == "" {
		s.logger.Debug("notify: organization has no owner email", "booking_id", b.ID)
		return nil
	}

	msg := BookingEmail(org, lead, b)
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send booking email", "error", err, "org_id", org.ID, "booking_id", b.ID)
		return fmt.Errorf("notify: booking email: %w", err)
	}
	s.logger.Info("notify: booking email sent", "org_id", org.ID, "lead_id", lead.ID, "booking_id", b.ID)
	return nil
}

// BookingEmail renders the owner's booking notification in the
// organization's timezone.
func BookingEmail(org *orgs.Organization, lead *leads.Lead, b *bookings.Booking) EmailMessage {
	when := b.ScheduledAt.In(org.Location()).Format("Monday, January 2 at 3:04 PM MST")

	var body strings.Builder
	fmt.Fprintf(&body, "%s has booked a consultation.\n\n", lead.Name)
	fmt.Fprintf(&body, "Lead: %s\n", lead.Name)
	fmt.Fprintf(&body, "Phone: %s\n", lead.Phone)
	if lead.Email != "" {
		fmt.Fprintf(&body, "Email: %s\n", lead.Email)
	}
	if lead.Source != "" {
		fmt.Fprintf(&body, "Source: %s\n", lead.Source)
	}
	fmt.Fprintf(&body, "When: %s (%d minutes)\n", when, b.DurationMinutes)
	if b.MeetLink != "" {
		fmt.Fprintf(&body, "Meeting link: %s\n", b.MeetLink)
	}
	fmt.Fprintf(&body, "\nSent by the %s assistant", org.Name)

	rows := []string{
		htmlRow("Lead", html.EscapeString(lead.Name)),
		htmlRow("Phone", fmt.Sprintf(`<a href="tel:%s">%s</a>`, html.EscapeString(lead.Phone), html.EscapeString(lead.Phone))),
		htmlRow("When", html.EscapeString(when)),
	}
	if lead.Email != "" {
		rows = append(rows, htmlRow("Email", html.EscapeString(lead.Email)))
	}
	if b.MeetLink != "" {
		rows = append(rows, htmlRow("Meeting", fmt.Sprintf(`<a href="%s">Join</a>`, html.EscapeString(b.MeetLink))))
	}
	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #10b981;">New consultation booked</h2>
<p><strong>%s</strong> has booked a call.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
%s
</table>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">Sent by the %s assistant</p>
</div>`, html.EscapeString(lead.Name), strings.Join(rows, "\n"), html.EscapeString(org.Name))

	return EmailMessage{
		To:        org.OwnerEmail,
		ToName:    org.OwnerName,
		ReplyTo:   lead.Email,
		Subject:   fmt.Sprintf("New booking: %s, %s", lead.Name, when),
		Body:      body.String(),
		HTML:      htmlBody,
		BookingID: b.ID,
		OrgID:     org.ID,
	}
}

func htmlRow(label, value string) string {
	return fmt.Sprintf(`  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`, label, value)
}
