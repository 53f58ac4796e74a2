package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var tracer = otel.Tracer("leadconv.internal.reminders")

const (
	DefaultSweepBatch = 100
	sendTimeout       = 30 * time.Second

	markAttempts   = 3
	markRetryDelay = 200 * time.Millisecond
)

var errNoRecipient = errors.New("no recipient phone")

// BookingFlagger records on the booking that its pre-call reminder went out.
type BookingFlagger interface {
	MarkReminderSent(ctx context.Context, bookingID string) error
}

// Observer receives one outcome per processed reminder.
type Observer interface {
	ObserveReminder(reminderType, outcome string)
}

// Sweeper sends due reminders.
type Sweeper struct {
	store    Store
	sender   messaging.Sender
	bookings BookingFlagger
	observer Observer
	batch    int
	logger   *logging.Logger
}

// SweeperOption customizes a Sweeper.
type SweeperOption func(*Sweeper)

// WithBatchSize bounds how many reminders one sweep processes.
func WithBatchSize(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithBookingFlagger flags bookings once their one-hour reminder is sent.
func WithBookingFlagger(f BookingFlagger) SweeperOption {
	return func(s *Sweeper) { s.bookings = f }
}

// WithObserver reports sweep outcomes, typically to metrics.
func WithObserver(o Observer) SweeperOption {
	return func(s *Sweeper) { s.observer = o }
}

// NewSweeper creates a reminder sweeper.
func NewSweeper(store Store, sender messaging.Sender, logger *logging.Logger, opts ...SweeperOption) *Sweeper {
	if store == nil || sender == nil {
		panic("reminders: sweeper requires store and sender")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Sweeper{
		store:  store,
		sender: sender,
		batch:  DefaultSweepBatch,
		logger: logger.WithComponent("reminders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep sends every pending reminder due at now, one at a time. A reminder
// that fails to send is marked failed and the sweep continues; only a failure
// to list due reminders aborts it. Each reminder is claimed before it is sent,
// so neither a repeated sweep nor a lost status write sends it twice.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "reminders.sweep")
	defer span.End()

	var result SweepResult
	due, err := s.store.ListDue(ctx, now, s.batch)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("reminders: sweep: %w", err)
	}
	result.Due = len(due)
	span.SetAttributes(attribute.Int("leadconv.reminders_due", len(due)))
	if len(due) == 0 {
		return result, nil
	}
	s.logger.Info("processing due reminders", "count", len(due))

	for i := range due {
		if ctx.Err() != nil {
			break
		}
		r := &due[i]
		outcome := s.processOne(ctx, r, now)
		switch outcome {
		case StatusSent:
			result.Sent++
		case StatusFailed:
			result.Failed++
		default:
			result.Skipped++
		}
		if s.observer != nil {
			s.observer.ObserveReminder(string(r.Type), outcomeLabel(outcome))
		}
	}

	s.logger.Info("reminder sweep finished",
		"due", result.Due,
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// processOne returns the status the reminder ended in, or pending when it
// could not be claimed.
func (s *Sweeper) processOne(ctx context.Context, r *Reminder, now time.Time) Status {
	claimed, err := s.store.Claim(ctx, r.ID, now)
	if err != nil {
		s.logger.Error("failed to claim reminder", "error", err, "reminder_id", r.ID)
		return StatusPending
	}
	if !claimed {
		s.logger.Warn("reminder already processed", "reminder_id", r.ID)
		return StatusPending
	}

	if r.RecipientPhone == "" {
		return s.fail(ctx, r, errNoRecipient)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	messageID, err := s.sender.SendMessage(sendCtx, r.RecipientPhone, r.MessageTemplate)
	cancel()
	if err != nil {
		return s.fail(ctx, r, err)
	}

	// The message is out: the row stays claimed even if this write is lost.
	if err := s.markSent(ctx, r.ID, now); err != nil {
		s.logger.Error("reminder delivered but not marked sent", "error", err, "reminder_id", r.ID, "message_id", messageID)
	}
	if r.Type == TypeOneHourBefore && s.bookings != nil {
		if err := s.bookings.MarkReminderSent(ctx, r.BookingID); err != nil {
			s.logger.Warn("failed to flag booking reminder", "error", err, "booking_id", r.BookingID)
		}
	}
	s.logger.Info("reminder sent",
		"reminder_id", r.ID,
		"booking_id", r.BookingID,
		"org_id", r.OrgID,
		"type", r.Type,
		"message_id", messageID,
	)
	return StatusSent
}

func (s *Sweeper) markSent(ctx context.Context, id string, now time.Time) error {
	var err error
	for attempt := 0; attempt < markAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(markRetryDelay):
			}
		}
		var moved bool
		if moved, err = s.store.MarkSent(ctx, id, now); err == nil {
			if !moved {
				s.logger.Warn("reminder was no longer claimed when marked sent", "reminder_id", id)
			}
			return nil
		}
	}
	return err
}

func (s *Sweeper) fail(ctx context.Context, r *Reminder, cause error) Status {
	s.logger.Error("reminder send failed", "error", cause, "reminder_id", r.ID, "type", r.Type, "org_id", r.OrgID)
	if _, err := s.store.MarkFailed(ctx, r.ID, cause.Error()); err != nil {
		s.logger.Error("failed to mark reminder failed", "error", err, "reminder_id", r.ID)
	}
	return StatusFailed
}

func outcomeLabel(s Status) string {
	if s == StatusPending {
		return "skipped"
	}
	return string(s)
}
