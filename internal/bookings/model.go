package bookings

import (
	"errors"
	"strings"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

var (
	// ErrBookingNotFound is returned when a booking does not exist in the organization.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidTransition is returned when a status change would regress a booking.
	ErrInvalidTransition = errors.New("booking status transition not allowed")
)

// Status tracks a booked call.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a booking in status from may move to to.
// Only scheduled bookings move, and only to a terminal status.
func CanTransition(from, to Status) bool {
	return from == StatusScheduled && to != StatusScheduled && to.Valid()
}

// Booking is a consultation call placed on the organization's calendar.
type Booking struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"organization_id"`
	LeadID          string    `json:"lead_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	CalendarEventID string    `json:"google_calendar_event_id,omitempty"`
	MeetLink        string    `json:"google_meet_link,omitempty"`
	ReminderSent    bool      `json:"reminder_sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndsAt returns the end of the call.
func (b *Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// BookingRequest asks the orchestrator to book the time the lead wrote in Text.
type BookingRequest struct {
	OrgID          string    `json:"-"`
	LeadID         string    `json:"lead_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Text           string    `json:"text"`
	Now            time.Time `json:"-"`
}

// Validate checks the identifiers and message text are present.
func (r *BookingRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.OrgID) == "":
		return apperr.Validation("bookings.book", "organization id is required", map[string]any{"field": "organization_id"})
	case strings.TrimSpace(r.LeadID) == "":
		return apperr.Validation("bookings.book", "lead id is required", map[string]any{"field": "lead_id"})
	case strings.TrimSpace(r.Text) == "":
		return apperr.Validation("bookings.book", "text is required", map[string]any{"field": "text"})
	}
	return nil
}

// ListFilter narrows ListByOrg results.
type ListFilter struct {
	Status Status
	LeadID string
	Limit  int
}

func notFound(op string) error {
	return apperr.NotFound(op, "booking not found", ErrBookingNotFound)
}

func invalidTransition(op string, from, to Status) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Op:      op,
		Message: "booking is " + string(from) + " and cannot become " + string(to),
		Detail:  map[string]any{"from": from, "to": to},
		Err:     ErrInvalidTransition,
	}
}
