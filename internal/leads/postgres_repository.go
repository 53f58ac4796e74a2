package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

const leadColumns = `id, organization_id, name, phone, email, status, source, metadata, created_at, updated_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(nonNilMetadata(req.Metadata))
	if err != nil {
		return nil, fmt.Errorf("leads: encode metadata: %w", err)
	}

	lead := &Lead{
		ID:       uuid.New().String(),
		OrgID:    req.OrgID,
		Name:     req.Name,
		Phone:    NormalizePhone(req.Phone),
		Email:    req.Email,
		Status:   StatusNew,
		Source:   req.Source,
		Metadata: copyMetadata(req.Metadata),
	}
	query := `
		INSERT INTO leads (id, organization_id, name, phone, email, status, source, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		lead.ID,
		lead.OrgID,
		lead.Name,
		lead.Phone,
		lead.Email,
		string(lead.Status),
		lead.Source,
		metadata,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches a lead scoped to the org.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND organization_id = $2`, id, orgID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("leads.get")
	}
	if err != nil {
		return nil, fmt.Errorf("leads: get: %w", err)
	}
	return lead, nil
}

// GetByPhone fetches the lead for a phone number within an org.
func (r *PostgresRepository) GetByPhone(ctx context.Context, orgID, phone string) (*Lead, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE organization_id = $1 AND phone = $2
		ORDER BY created_at DESC LIMIT 1`, orgID, NormalizePhone(phone))
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("leads.get_by_phone")
	}
	if err != nil {
		return nil, fmt.Errorf("leads: get by phone: %w", err)
	}
	return lead, nil
}

// ListByOrg returns leads for an org, newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if filter.Status != "" {
		rows, err = r.db.Query(ctx, `
			SELECT `+leadColumns+` FROM leads
			WHERE organization_id = $1 AND status = $2
			ORDER BY created_at DESC LIMIT $3 OFFSET $4`, orgID, string(filter.Status), filter.Limit, filter.Offset)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+leadColumns+` FROM leads
			WHERE organization_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orgID, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("leads: list: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// UpdateStatus sets the lead status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, orgID, id string, status Status) error {
	if !status.Valid() {
		return apperr.Validation("leads.update_status", ErrInvalidStatus.Error(), map[string]any{"status": string(status)})
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET status = $1, updated_at = $2
		WHERE id = $3 AND organization_id = $4`, string(status), time.Now().UTC(), id, orgID)
	if err != nil {
		return fmt.Errorf("leads: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("leads.update_status")
	}
	return nil
}

// SetMetadata merges one key into the metadata document.
func (r *PostgresRepository) SetMetadata(ctx context.Context, orgID, id, key, value string) error {
	patch, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return fmt.Errorf("leads: encode metadata: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET metadata = COALESCE(metadata, '{}'::jsonb) || $1::jsonb, updated_at = $2
		WHERE id = $3 AND organization_id = $4`, patch, time.Now().UTC(), id, orgID)
	if err != nil {
		return fmt.Errorf("leads: set metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("leads.set_metadata")
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead     Lead
		status   string
		metadata []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.OrgID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&status,
		&lead.Source,
		&metadata,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.Status = Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &lead, nil
}

func nonNilMetadata(md map[string]string) map[string]string {
	if md == nil {
		return map[string]string{}
	}
	return md
}
