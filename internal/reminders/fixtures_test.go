package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
)

var errUndeliverable = errors.New("recipient not on whatsapp")

type sentMessage struct {
	phone string
	text  string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]bool
}

func (s *fakeSender) SendMessage(ctx context.Context, phone, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTo[phone] {
		return "", errUndeliverable
	}
	s.sent = append(s.sent, sentMessage{phone: phone, text: text})
	return "wamid-" + phone, nil
}

func (s *fakeSender) countTo(phone string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if m.phone == phone {
			n++
		}
	}
	return n
}

type recordingFlagger struct {
	flagged []string
}

func (f *recordingFlagger) MarkReminderSent(ctx context.Context, bookingID string) error {
	f.flagged = append(f.flagged, bookingID)
	return nil
}

type recordingObserver struct {
	outcomes map[string]int
}

func (o *recordingObserver) ObserveReminder(reminderType, outcome string) {
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[reminderType+"/"+outcome]++
}

const (
	ownerPhone = "+447700900001"
	leadPhone  = "+447700900123"
)

var (
	bookedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	callAt   = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
)

func testBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:              "booking-1",
		OrgID:           "org-1",
		LeadID:          "lead-1",
		ScheduledAt:     callAt,
		DurationMinutes: 30,
		Status:          bookings.StatusScheduled,
		MeetLink:        "https://meet.google.com/abc-defg-hij",
	}
}

func testLead() *leads.Lead {
	return &leads.Lead{ID: "lead-1", OrgID: "org-1", Name: "Jane Doe", Phone: leadPhone, Status: leads.StatusBooked}
}

func testOrg() *orgs.Organization {
	return &orgs.Organization{ID: "org-1", Name: "Peak Fitness", OwnerName: "Sam", OwnerPhone: ownerPhone}
}
