// Package calendar defines the calendar provider used to place bookings.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned when an event no longer exists.
var ErrEventNotFound = errors.New("calendar event not found")

// EventDetails describes an event to create.
type EventDetails struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeEmail string
	// WithMeeting requests a video meeting link on the event.
	WithMeeting bool
}

// CreatedEvent is what the provider returns for a new event.
type CreatedEvent struct {
	ID         string `json:"id"`
	MeetingURL string `json:"meeting_url,omitempty"`
	HTMLLink   string `json:"html_link,omitempty"`
}

// Provider is a calendar the orchestrator can check and write to.
type Provider interface {
	// CheckAvailability reports whether [start, end) is free.
	CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (bool, error)
	CreateEvent(ctx context.Context, calendarID string, ev EventDetails) (CreatedEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
