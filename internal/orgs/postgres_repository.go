package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads organizations from the relational store.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository builds a repository over a pgx pool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("orgs: db required")
	}
	return &PostgresRepository{db: db}
}

// GetByID fetches one organization.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	var o Organization
	err := r.db.QueryRow(ctx, `
		SELECT id, name, owner_name, owner_phone, owner_email, timezone, calendar_id, booking_duration_minutes, created_at
		FROM organizations
		WHERE id = $1`, id).Scan(
		&o.ID, &o.Name, &o.OwnerName, &o.OwnerPhone, &o.OwnerEmail,
		&o.Timezone, &o.CalendarID, &o.BookingDurationMinutes, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("orgs.get", "organization not found", ErrOrgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orgs: get: %w", err)
	}
	return &o, nil
}
