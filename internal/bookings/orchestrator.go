package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/calendar"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var tracer = otel.Tracer("leadconv.internal.bookings")

// Stage names a step of the booking state machine.
type Stage string

const (
	StageLoad                Stage = "load"
	StageDetectedIntent      Stage = "detected_intent"
	StageDateTimeParsed      Stage = "datetime_parsed"
	StageAvailabilityChecked Stage = "availability_checked"
	StageEventCreated        Stage = "event_created"
	StageBookingPersisted    Stage = "booking_persisted"
)

// BookingError records the last state a booking attempt reached before it
// failed. Err carries the apperr kind.
type BookingError struct {
	Stage Stage
	Err   error
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("bookings: %s: %v", e.Stage, e.Err)
}

func (e *BookingError) Unwrap() error { return e.Err }

// StageOf returns the last state a failed Book call reached.
func StageOf(err error) (Stage, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Stage, true
	}
	return "", false
}

// ReminderScheduler queues and cancels the reminders that belong to a booking.
type ReminderScheduler interface {
	ScheduleForBooking(ctx context.Context, b *Booking, lead *leads.Lead, org *orgs.Organization, now time.Time) error
	CancelForBooking(ctx context.Context, bookingID string) (int64, error)
}

// OwnerNotifier tells the organization owner about a new booking.
type OwnerNotifier interface {
	NotifyBookingCreated(ctx context.Context, org *orgs.Organization, lead *leads.Lead, b *Booking) error
}

// OrchestratorDeps are the collaborators of an Orchestrator. Notifier is
// optional.
type OrchestratorDeps struct {
	Store             Store
	Leads             leads.Repository
	Orgs              orgs.Repository
	Calendar          calendar.Provider
	Reminders         ReminderScheduler
	Notifier          OwnerNotifier
	DefaultCalendarID string
	Logger            *logging.Logger
}

// Orchestrator turns a lead's requested time into a calendar event, a
// booking row and its reminders.
type Orchestrator struct {
	store             Store
	leads             leads.Repository
	orgs              orgs.Repository
	calendar          calendar.Provider
	reminders         ReminderScheduler
	notifier          OwnerNotifier
	defaultCalendarID string
	logger            *logging.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Store == nil || deps.Leads == nil || deps.Orgs == nil || deps.Calendar == nil || deps.Reminders == nil {
		panic("bookings: orchestrator requires store, leads, orgs, calendar and reminders")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Orchestrator{
		store:             deps.Store,
		leads:             deps.Leads,
		orgs:              deps.Orgs,
		calendar:          deps.Calendar,
		reminders:         deps.Reminders,
		notifier:          deps.Notifier,
		defaultCalendarID: deps.DefaultCalendarID,
		logger:            deps.Logger.WithComponent("bookings"),
	}
}

// Book runs DetectedIntent → DateTimeParsed → AvailabilityChecked →
// EventCreated → BookingPersisted. A failure returns a *BookingError
// wrapping a Parse, UnavailableSlot, Provider or NotFound error. Once the
// booking is stored, the lead status, reminders and owner notification are
// updated best-effort.
func (o *Orchestrator) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadconv.org_id", req.OrgID),
		attribute.String("leadconv.lead_id", req.LeadID),
	)

	fail := func(stage Stage, err error) (*Booking, error) {
		span.RecordError(err)
		span.SetAttributes(attribute.String("leadconv.booking_stage", string(stage)))
		o.logger.Warn("booking attempt stopped",
			"stage", stage,
			"kind", apperr.KindOf(err),
			"error", err,
			"org_id", req.OrgID,
			"lead_id", req.LeadID,
			"conversation_id", req.ConversationID,
		)
		return nil, &BookingError{Stage: stage, Err: err}
	}

	if err := req.Validate(); err != nil {
		return fail(StageLoad, err)
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	lead, err := o.leads.GetByID(ctx, req.OrgID, req.LeadID)
	if err != nil {
		return fail(StageLoad, err)
	}
	org, err := o.orgs.GetByID(ctx, req.OrgID)
	if err != nil {
		return fail(StageLoad, err)
	}

	// DetectedIntent: the caller decided the text is a booking request.
	start, err := ParseDateTime(req.Text, now, org.Location())
	if err != nil {
		return fail(StageDetectedIntent, err)
	}
	end := start.Add(org.BookingDuration())
	calendarID := o.calendarID(org)

	// DateTimeParsed
	free, err := o.calendar.CheckAvailability(ctx, calendarID, start, end)
	if err != nil {
		return fail(StageDateTimeParsed, apperr.Provider("bookings.check_availability", err))
	}
	if !free {
		return fail(StageDateTimeParsed, apperr.UnavailableSlot("bookings.check_availability", "that time is already taken"))
	}

	// AvailabilityChecked
	event, err := o.calendar.CreateEvent(ctx, calendarID, calendar.EventDetails{
		Summary:       fmt.Sprintf("Consultation call with %s", lead.Name),
		Description:   eventDescription(lead, org),
		Start:         start,
		End:           end,
		TimeZone:      org.Location().String(),
		AttendeeEmail: lead.Email,
		WithMeeting:   true,
	})
	if err != nil {
		return fail(StageAvailabilityChecked, apperr.Provider("bookings.create_event", err))
	}

	// EventCreated
	b := &Booking{
		OrgID:           org.ID,
		LeadID:          lead.ID,
		ScheduledAt:     start.UTC(),
		DurationMinutes: int(org.BookingDuration() / time.Minute),
		Status:          StatusScheduled,
		CalendarEventID: event.ID,
		MeetLink:        event.MeetingURL,
	}
	if err := o.store.Create(ctx, b); err != nil {
		if delErr := o.calendar.DeleteEvent(ctx, calendarID, event.ID); delErr != nil && !errors.Is(delErr, calendar.ErrEventNotFound) {
			o.logger.Error("failed to remove orphaned calendar event", "error", delErr, "event_id", event.ID)
		}
		return fail(StageEventCreated, err)
	}

	// BookingPersisted
	span.SetAttributes(attribute.String("leadconv.booking_id", b.ID))
	o.logger.Info("booking created",
		"org_id", b.OrgID,
		"lead_id", b.LeadID,
		"booking_id", b.ID,
		"scheduled_at", b.ScheduledAt.Format(time.RFC3339),
	)
	o.afterBooked(ctx, b, lead, org, now)
	return b, nil
}

func (o *Orchestrator) afterBooked(ctx context.Context, b *Booking, lead *leads.Lead, org *orgs.Organization, now time.Time) {
	if next := leads.Advance(lead.Status, leads.StatusBooked); next != lead.Status {
		if err := o.leads.UpdateStatus(ctx, lead.OrgID, lead.ID, next); err != nil {
			o.logger.Error("failed to mark lead booked", "error", err, "lead_id", lead.ID)
		} else {
			lead.Status = next
		}
	}
	if err := o.reminders.ScheduleForBooking(ctx, b, lead, org, now); err != nil {
		o.logger.Error("failed to schedule reminders", "error", err, "booking_id", b.ID)
	}
	if o.notifier != nil {
		if err := o.notifier.NotifyBookingCreated(ctx, org, lead, b); err != nil {
			o.logger.Warn("owner notification failed", "error", err, "booking_id", b.ID)
		}
	}
}

// Cancel cancels a scheduled booking and its pending reminders, then removes
// the calendar event best-effort.
func (o *Orchestrator) Cancel(ctx context.Context, orgID, bookingID string) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("leadconv.org_id", orgID), attribute.String("leadconv.booking_id", bookingID))

	current, err := o.store.Get(ctx, orgID, bookingID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, StatusCancelled) {
		return nil, invalidTransition("bookings.cancel", current.Status, StatusCancelled)
	}
	cancelled, err := o.reminders.CancelForBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("bookings: cancel reminders: %w", err)
	}
	b, err := o.store.Transition(ctx, orgID, bookingID, StatusCancelled)
	if err != nil {
		return nil, err
	}

	if b.CalendarEventID != "" {
		calendarID := o.defaultCalendarID
		if org, err := o.orgs.GetByID(ctx, orgID); err == nil {
			calendarID = o.calendarID(org)
		}
		if err := o.calendar.DeleteEvent(ctx, calendarID, b.CalendarEventID); err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
			o.logger.Warn("failed to delete calendar event", "error", err, "booking_id", b.ID, "event_id", b.CalendarEventID)
		}
	}
	o.logger.Info("booking cancelled", "org_id", orgID, "booking_id", b.ID, "reminders_cancelled", cancelled)
	return b, nil
}

// Complete marks a scheduled booking as completed and the lead as completed.
func (o *Orchestrator) Complete(ctx context.Context, orgID, bookingID string) (*Booking, error) {
	b, err := o.store.Transition(ctx, orgID, bookingID, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if lead, err := o.leads.GetByID(ctx, orgID, b.LeadID); err == nil {
		if next := leads.Advance(lead.Status, leads.StatusCompleted); next != lead.Status {
			if err := o.leads.UpdateStatus(ctx, orgID, lead.ID, next); err != nil {
				o.logger.Error("failed to mark lead completed", "error", err, "lead_id", lead.ID)
			}
		}
	}
	o.logger.Info("booking completed", "org_id", orgID, "booking_id", b.ID)
	return b, nil
}

// MarkNoShow records that the lead missed a scheduled call.
func (o *Orchestrator) MarkNoShow(ctx context.Context, orgID, bookingID string) (*Booking, error) {
	b, err := o.store.Transition(ctx, orgID, bookingID, StatusNoShow)
	if err != nil {
		return nil, err
	}
	o.logger.Info("booking marked no-show", "org_id", orgID, "booking_id", b.ID)
	return b, nil
}

func (o *Orchestrator) calendarID(org *orgs.Organization) string {
	if org.CalendarID != "" {
		return org.CalendarID
	}
	return o.defaultCalendarID
}

func eventDescription(lead *leads.Lead, org *orgs.Organization) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Consultation call booked over WhatsApp for %s.\n", org.Name)
	fmt.Fprintf(&sb, "Lead: %s\nPhone: %s\n", lead.Name, lead.Phone)
	if lead.Email != "" {
		fmt.Fprintf(&sb, "Email: %s\n", lead.Email)
	}
	if lead.Source != "" {
		fmt.Fprintf(&sb, "Source: %s\n", lead.Source)
	}
	return sb.String()
}
