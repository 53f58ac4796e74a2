package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
)

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testBooking() (*orgs.Organization, *leads.Lead, *bookings.Booking) {
	org := &orgs.Organization{
		ID:         "org-1",
		Name:       "Peak Fitness",
		OwnerName:  "Sam Owner",
		OwnerEmail: "owner@peakfitness.example",
		Timezone:   "Europe/London",
	}
	lead := &leads.Lead{
		ID:     "lead-1",
		OrgID:  "org-1",
		Name:   "Jane Doe",
		Phone:  "+447700900123",
		Email:  "jane@example.com",
		Source: "facebook",
	}
	b := &bookings.Booking{
		ID:              "booking-1",
		OrgID:           "org-1",
		LeadID:          "lead-1",
		ScheduledAt:     time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          bookings.StatusScheduled,
		MeetLink:        "https://meet.google.com/abc-defg-hij",
	}
	return org, lead, b
}

func TestService_NotifyBookingCreated(t *testing.T) {
	email := &mockEmailSender{}
	svc := NewService(email, nil)
	org, lead, b := testBooking()

	require.NoError(t, svc.NotifyBookingCreated(context.Background(), org, lead, b))
	require.Len(t, email.sent, 1)

	msg := email.sent[0]
	assert.Equal(t, "owner@peakfitness.example", msg.To)
	assert.Equal(t, "Sam Owner", msg.ToName)
	assert.Contains(t, msg.Subject, "Jane Doe")
	assert.Contains(t, msg.Body, "+447700900123")
	assert.Contains(t, msg.Body, "Monday, March 10 at 2:00 PM GMT")
	assert.Contains(t, msg.Body, "https://meet.google.com/abc-defg-hij")
	assert.Contains(t, msg.HTML, `href="tel:+447700900123"`)
}

func TestService_NotifyBookingCreated_NoOwnerEmail(t *testing.T) {
	email := &mockEmailSender{}
	svc := NewService(email, nil)
	org, lead, b := testBooking()
	org.OwnerEmail = ""

	require.NoError(t, svc.NotifyBookingCreated(context.Background(), org, lead, b))
	assert.Empty(t, email.sent)
}

func TestService_NotifyBookingCreated_NoSender(t *testing.T) {
	svc := NewService(nil, nil)
	org, lead, b := testBooking()
	assert.NoError(t, svc.NotifyBookingCreated(context.Background(), org, lead, b))
}

func TestService_NotifyBookingCreated_SendError(t *testing.T) {
	svc := NewService(&mockEmailSender{callErr: errors.New("smtp down")}, nil)
	org, lead, b := testBooking()

	err := svc.NotifyBookingCreated(context.Background(), org, lead, b)
	assert.ErrorContains(t, err, "smtp down")
}

func TestBookingEmail_EscapesHTML(t *testing.T) {
	org, lead, b := testBooking()
	lead.Name = "<script>alert(1)</script>"

	msg := BookingEmail(org, lead, b)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestBookingEmail_RepliesToLead(t *testing.T) {
	org, lead, b := testBooking()

	msg := BookingEmail(org, lead, b)
	assert.Equal(t, "jane@example.com", msg.ReplyTo)
	assert.Equal(t, "booking-1", msg.BookingID)
	assert.Equal(t, "org-1", msg.OrgID)
	assert.Equal(t, map[string]string{
		"category":   "booking-notification",
		"booking_id": "booking-1",
		"org_id":     "org-1",
	}, msg.tags())
}
