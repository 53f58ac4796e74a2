package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// OneHourBefore is how long before the call the lead's reminder is sent.
const OneHourBefore = time.Hour

// Scheduler creates the reminders of a confirmed booking.
type Scheduler struct {
	store  Store
	logger *logging.Logger
}

var _ bookings.ReminderScheduler = (*Scheduler)(nil)

// NewScheduler creates a reminder scheduler.
func NewScheduler(store Store, logger *logging.Logger) *Scheduler {
	if store == nil {
		panic("reminders: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, logger: logger.WithComponent("reminders")}
}

// Plan returns the three reminders a booking gets: the owner notification
// and the lead's confirmation at now, and the lead's reminder one hour
// before the call.
func Plan(b *bookings.Booking, lead *leads.Lead, org *orgs.Organization, now time.Time) []*Reminder {
	build := func(t Type, at time.Time, phone string) *Reminder {
		return &Reminder{
			BookingID:       b.ID,
			OrgID:           b.OrgID,
			Type:            t,
			ScheduledAt:     at.UTC(),
			RecipientPhone:  phone,
			MessageTemplate: Render(t, b, lead, org),
			Status:          StatusPending,
		}
	}
	return []*Reminder{
		build(TypeOwnerNotification, now, org.OwnerPhone),
		build(TypeConfirmation, now, lead.Phone),
		build(TypeOneHourBefore, b.ScheduledAt.Add(-OneHourBefore), lead.Phone),
	}
}

// ScheduleForBooking stores the booking's reminders in one batch.
func (s *Scheduler) ScheduleForBooking(ctx context.Context, b *bookings.Booking, lead *leads.Lead, org *orgs.Organization, now time.Time) error {
	batch := Plan(b, lead, org, now)
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("reminders: schedule: %w", err)
	}
	s.logger.Info("reminders scheduled",
		"org_id", b.OrgID,
		"booking_id", b.ID,
		"count", len(batch),
		"one_hour_before", batch[2].ScheduledAt.Format(time.RFC3339),
	)
	return nil
}

// CancelForBooking cancels the booking's pending reminders.
func (s *Scheduler) CancelForBooking(ctx context.Context, bookingID string) (int64, error) {
	n, err := s.store.CancelForBooking(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("reminders cancelled", "booking_id", bookingID, "count", n)
	return n, nil
}
