package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/calendar"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
)

var errBoom = errors.New("boom")

type recordingReminders struct {
	scheduled []*Booking
	cancelled []string
	err       error
}

func (r *recordingReminders) ScheduleForBooking(ctx context.Context, b *Booking, lead *leads.Lead, org *orgs.Organization, now time.Time) error {
	copied := *b
	r.scheduled = append(r.scheduled, &copied)
	return r.err
}

func (r *recordingReminders) CancelForBooking(ctx context.Context, bookingID string) (int64, error) {
	r.cancelled = append(r.cancelled, bookingID)
	return 2, r.err
}

type recordingNotifier struct {
	notified []string
	err      error
}

func (n *recordingNotifier) NotifyBookingCreated(ctx context.Context, org *orgs.Organization, lead *leads.Lead, b *Booking) error {
	n.notified = append(n.notified, b.ID)
	return n.err
}

type brokenCalendar struct{}

func (brokenCalendar) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	return false, errBoom
}

func (brokenCalendar) CreateEvent(ctx context.Context, calendarID string, ev calendar.EventDetails) (calendar.CreatedEvent, error) {
	return calendar.CreatedEvent{}, errBoom
}

func (brokenCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return errBoom
}

type failingCreateStore struct {
	*MemoryStore
}

func (failingCreateStore) Create(ctx context.Context, b *Booking) error {
	return errBoom
}

type bookingEnv struct {
	orch      *Orchestrator
	store     Store
	leads     *leads.InMemoryRepository
	orgs      *orgs.InMemoryRepository
	cal       *calendar.MemoryProvider
	reminders *recordingReminders
	notifier  *recordingNotifier
	org       *orgs.Organization
	lead      *leads.Lead
}

type envOption func(*OrchestratorDeps)

func withCalendar(p calendar.Provider) envOption {
	return func(d *OrchestratorDeps) { d.Calendar = p }
}

func withStore(s Store) envOption {
	return func(d *OrchestratorDeps) { d.Store = s }
}

func newBookingEnv(t *testing.T, opts ...envOption) *bookingEnv {
	t.Helper()
	env := &bookingEnv{
		store:     NewMemoryStore(),
		leads:     leads.NewInMemoryRepository(),
		cal:       calendar.NewMemoryProvider(),
		reminders: &recordingReminders{},
		notifier:  &recordingNotifier{},
		org: &orgs.Organization{
			ID:                     "org-1",
			Name:                   "Peak Fitness",
			OwnerName:              "Sam",
			OwnerPhone:             "+447700900001",
			OwnerEmail:             "sam@example.com",
			CalendarID:             "primary",
			BookingDurationMinutes: 30,
		},
	}
	env.orgs = orgs.NewInMemoryRepository(env.org)

	lead, err := env.leads.Create(context.Background(), &leads.CreateLeadRequest{
		OrgID:  "org-1",
		Name:   "Jane Doe",
		Phone:  "+447700900123",
		Email:  "jane@example.com",
		Source: "facebook",
	})
	require.NoError(t, err)
	env.lead = lead

	deps := OrchestratorDeps{
		Store:     env.store,
		Leads:     env.leads,
		Orgs:      env.orgs,
		Calendar:  env.cal,
		Reminders: env.reminders,
		Notifier:  env.notifier,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.store = deps.Store
	env.orch = NewOrchestrator(deps)
	return env
}

func (e *bookingEnv) book(t *testing.T, text string) (*Booking, error) {
	t.Helper()
	return e.orch.Book(context.Background(), BookingRequest{
		OrgID:  "org-1",
		LeadID: e.lead.ID,
		Text:   text,
		Now:    testNow,
	})
}
