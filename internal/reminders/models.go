package reminders

import (
	"errors"
	"time"
)

// ErrReminderNotFound is returned when a reminder does not exist.
var ErrReminderNotFound = errors.New("reminder not found")

// Type says who a reminder goes to and when.
type Type string

const (
	TypeConfirmation      Type = "confirmation"
	TypeOneHourBefore     Type = "one_hour_before"
	TypeOwnerNotification Type = "owner_notification"
)

// Status tracks the lifecycle of a reminder. A sweep claims a pending
// reminder as sending before it calls the provider, so every reminder leaves
// pending exactly once and is sent at most once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Reminder is a WhatsApp message queued for a booking. MessageTemplate holds
// the rendered text.
type Reminder struct {
	ID              string     `json:"id"`
	BookingID       string     `json:"booking_id"`
	OrgID           string     `json:"organization_id"`
	Type            Type       `json:"reminder_type"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	RecipientPhone  string     `json:"recipient_phone"`
	MessageTemplate string     `json:"message_template"`
	Status          Status     `json:"status"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Stats holds reminder counts for the admin dashboard.
type Stats struct {
	PendingCount   int64   `json:"pending_count"`
	SendingCount   int64   `json:"sending_count"`
	SentCount      int64   `json:"sent_count"`
	FailedCount    int64   `json:"failed_count"`
	CancelledCount int64   `json:"cancelled_count"`
	DeliveryPct    float64 `json:"delivery_pct"`
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
