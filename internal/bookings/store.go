package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists bookings.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, orgID, id string) (*Booking, error)
	ListByOrg(ctx context.Context, orgID string, filter ListFilter) ([]Booking, error)
	// Transition moves a scheduled booking to a terminal status.
	Transition(ctx context.Context, orgID, id string, to Status) (*Booking, error)
	MarkReminderSent(ctx context.Context, id string) error
}

const bookingColumns = `id, organization_id, lead_id, scheduled_at, duration_minutes, status,
	COALESCE(google_calendar_event_id, ''), COALESCE(google_meet_link, ''), reminder_sent, created_at, updated_at`

// PostgresStore keeps bookings in the bookings table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("bookings: db required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = StatusScheduled
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO bookings (id, organization_id, lead_id, scheduled_at, duration_minutes, status, google_calendar_event_id, google_meet_link)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		RETURNING created_at, updated_at`,
		b.ID, b.OrgID, b.LeadID, b.ScheduledAt, b.DurationMinutes, string(b.Status), b.CalendarEventID, b.MeetLink,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("bookings: create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, orgID, id string) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+`
		FROM bookings
		WHERE organization_id = $1 AND id = $2`, orgID, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("bookings.get")
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID string, filter ListFilter) ([]Booking, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT `+bookingColumns+`
		FROM bookings
		WHERE organization_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR lead_id::text = $3)
		ORDER BY scheduled_at DESC
		LIMIT $4`, orgID, string(filter.Status), filter.LeadID, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	return out, nil
}

// Transition updates the row only while it is still scheduled. When nothing
// matches, the current row decides between NotFound and an invalid transition.
func (s *PostgresStore) Transition(ctx context.Context, orgID, id string, to Status) (*Booking, error) {
	if !CanTransition(StatusScheduled, to) {
		return nil, invalidTransition("bookings.transition", StatusScheduled, to)
	}
	row := s.db.QueryRow(ctx, `
		UPDATE bookings SET status = $3, updated_at = now()
		WHERE organization_id = $1 AND id = $2 AND status = 'scheduled'
		RETURNING `+bookingColumns, orgID, id, string(to))
	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bookings: transition: %w", err)
	}
	current, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return nil, invalidTransition("bookings.transition", current.Status, to)
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `
		UPDATE bookings SET reminder_sent = true, updated_at = now()
		WHERE id = $1`, id); err != nil {
		return fmt.Errorf("bookings: mark reminder sent: %w", err)
	}
	return nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var status string
	if err := row.Scan(&b.ID, &b.OrgID, &b.LeadID, &b.ScheduledAt, &b.DurationMinutes, &status,
		&b.CalendarEventID, &b.MeetLink, &b.ReminderSent, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

// MemoryStore is an in-process Store used in development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[string]*Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(ctx context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = StatusScheduled
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	copied := *b
	s.bookings[b.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, orgID, id string) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok || b.OrgID != orgID {
		return nil, notFound("bookings.get")
	}
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID string, filter ListFilter) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.OrgID != orgID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.LeadID != "" && b.LeadID != filter.LeadID {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Transition(ctx context.Context, orgID, id string, to Status) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.OrgID != orgID {
		return nil, notFound("bookings.transition")
	}
	if !CanTransition(b.Status, to) {
		return nil, invalidTransition("bookings.transition", b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = s.now()
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) MarkReminderSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		b.ReminderSent = true
	}
	return nil
}
