package reminders

import (
	"context"
	"fmt"
	"sort"
	"strings"
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

// Store persists reminders. Claim only moves pending rows to sending;
// MarkSent and MarkFailed only move sending rows. Each reports whether it
// moved the row.
type Store interface {
	CreateBatch(ctx context.Context, batch []*Reminder) error
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error)
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	CancelForBooking(ctx context.Context, bookingID string) (int64, error)
	ListByBooking(ctx context.Context, bookingID string) ([]Reminder, error)
	ListByOrg(ctx context.Context, orgID string, status Status, limit int) ([]Reminder, error)
	Stats(ctx context.Context, orgID string) (*Stats, error)
}

const reminderColumns = `id, booking_id, organization_id, reminder_type, scheduled_at, recipient_phone, message_template,
	status, sent_at, COALESCE(error, ''), created_at, updated_at`

// PostgresStore provides reminder operations on the reminders table.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a new reminder store.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("reminders: db required")
	}
	return &PostgresStore{db: db}
}

// CreateBatch inserts every reminder in one statement.
func (s *PostgresStore) CreateBatch(ctx context.Context, batch []*Reminder) error {
	if len(batch) == 0 {
		return nil
	}
	now := time.Now().UTC()
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO reminders (id, booking_id, organization_id, reminder_type, scheduled_at, recipient_phone, message_template, status, created_at, updated_at) VALUES `)
	for i, r := range batch {
		prepare(r, now)
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8, n+9, n+10)
		args = append(args, r.ID, r.BookingID, r.OrgID, string(r.Type), r.ScheduledAt,
			r.RecipientPhone, r.MessageTemplate, string(r.Status), r.CreatedAt, r.UpdatedAt)
	}
	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("reminders: create batch: %w", err)
	}
	return nil
}

// ListDue returns pending reminders scheduled on or before asOf, across all
// organizations, oldest first.
func (s *PostgresStore) ListDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Claim transitions a reminder from pending → sending.
func (s *PostgresStore) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sending', updated_at = $1
		WHERE id = $2 AND status = 'pending'`, at, id)
	if err != nil {
		return false, fmt.Errorf("reminders: claim: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSent transitions a reminder from sending → sent.
func (s *PostgresStore) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'sending'`, sentAt, id)
	if err != nil {
		return false, fmt.Errorf("reminders: mark sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed transitions a reminder from sending → failed.
func (s *PostgresStore) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'failed', error = $1, updated_at = now()
		WHERE id = $2 AND status = 'sending'`, reason, id)
	if err != nil {
		return false, fmt.Errorf("reminders: mark failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelForBooking cancels every pending reminder of a booking.
func (s *PostgresStore) CancelForBooking(ctx context.Context, bookingID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', updated_at = now()
		WHERE booking_id = $1 AND status = 'pending'`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("reminders: cancel for booking: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListByBooking(ctx context.Context, bookingID string) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `SELECT `+reminderColumns+`
		FROM reminders
		WHERE booking_id = $1
		ORDER BY scheduled_at ASC, reminder_type ASC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by booking: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListByOrg returns an organization's reminders, optionally filtered by status.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID string, status Status, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT `+reminderColumns+`
		FROM reminders
		WHERE organization_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY scheduled_at DESC
		LIMIT $3`, orgID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by org: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Stats returns aggregated reminder counts for an organization.
func (s *PostgresStore) Stats(ctx context.Context, orgID string) (*Stats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'sending') AS sending,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM reminders
		WHERE organization_id = $1`, orgID)

	var stats Stats
	if err := row.Scan(&stats.PendingCount, &stats.SendingCount, &stats.SentCount, &stats.FailedCount, &stats.CancelledCount); err != nil {
		return nil, fmt.Errorf("reminders: stats: %w", err)
	}
	stats.computeDelivery()
	return &stats, nil
}

func (s *Stats) computeDelivery() {
	attempted := s.SentCount + s.FailedCount
	if attempted > 0 {
		s.DeliveryPct = float64(s.SentCount) / float64(attempted) * 100
	}
}

func prepare(r *Reminder, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	r.CreatedAt = now
	r.UpdatedAt = now
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var reminderType, status string
		err := rows.Scan(
			&r.ID, &r.BookingID, &r.OrgID, &reminderType, &r.ScheduledAt,
			&r.RecipientPhone, &r.MessageTemplate, &status, &r.SentAt, &r.Error,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		r.Type = Type(reminderType)
		r.Status = Status(status)
		result = append(result, r)
	}
	return result, rows.Err()
}

// MemoryStore is an in-process Store used in development and tests.
type MemoryStore struct {
	mu        sync.Mutex
	reminders map[string]*Reminder
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reminders: make(map[string]*Reminder),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateBatch(ctx context.Context, batch []*Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, r := range batch {
		prepare(r, now)
		copied := *r
		s.reminders[r.ID] = &copied
	}
	return nil
}

func (s *MemoryStore) ListDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	return s.list(func(r *Reminder) bool {
		return r.Status == StatusPending && !r.ScheduledAt.After(asOf)
	}, limit, true), nil
}

func (s *MemoryStore) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusSending
	r.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || r.Status != StatusSending {
		return false, nil
	}
	ts := sentAt
	r.Status = StatusSent
	r.SentAt = &ts
	r.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || r.Status != StatusSending {
		return false, nil
	}
	r.Status = StatusFailed
	r.Error = reason
	r.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) CancelForBooking(ctx context.Context, bookingID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.reminders {
		if r.BookingID == bookingID && r.Status == StatusPending {
			r.Status = StatusCancelled
			r.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListByBooking(ctx context.Context, bookingID string) ([]Reminder, error) {
	return s.list(func(r *Reminder) bool { return r.BookingID == bookingID }, 0, true), nil
}

func (s *MemoryStore) ListByOrg(ctx context.Context, orgID string, status Status, limit int) ([]Reminder, error) {
	return s.list(func(r *Reminder) bool {
		return r.OrgID == orgID && (status == "" || r.Status == status)
	}, limit, false), nil
}

func (s *MemoryStore) Stats(ctx context.Context, orgID string) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats Stats
	for _, r := range s.reminders {
		if r.OrgID != orgID {
			continue
		}
		switch r.Status {
		case StatusPending:
			stats.PendingCount++
		case StatusSending:
			stats.SendingCount++
		case StatusSent:
			stats.SentCount++
		case StatusFailed:
			stats.FailedCount++
		case StatusCancelled:
			stats.CancelledCount++
		}
	}
	stats.computeDelivery()
	return &stats, nil
}

func (s *MemoryStore) list(match func(*Reminder) bool, limit int, ascending bool) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.reminders {
		if match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			if ascending {
				return out[i].ScheduledAt.Before(out[j].ScheduledAt)
			}
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].Type < out[j].Type
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
