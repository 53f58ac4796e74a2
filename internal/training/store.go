package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// Store persists training entries.
type Store interface {
	ListActive(ctx context.Context, orgID string, types ...DataType) ([]Entry, error)
	List(ctx context.Context, orgID string) ([]Entry, error)
	Create(ctx context.Context, orgID string, dataType DataType, content string) (*Entry, error)
	Update(ctx context.Context, orgID, id, content string) (*Entry, error)
	Deactivate(ctx context.Context, orgID, id string) error
}

// SQLStore reads and writes the training_data table through database/sql.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("training: db required")
	}
	return &SQLStore{db: db}
}

// ListActive returns active entries, optionally restricted to types, in
// creation order.
func (s *SQLStore) ListActive(ctx context.Context, orgID string, types ...DataType) ([]Entry, error) {
	filter := []string{}
	for _, t := range types {
		filter = append(filter, string(t))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, data_type, content, is_active, version, created_at, updated_at
		FROM training_data
		WHERE organization_id = $1 AND is_active = true
		  AND (cardinality($2::text[]) = 0 OR data_type = ANY($2::text[]))
		ORDER BY created_at ASC`, orgID, pq.Array(filter))
	if err != nil {
		return nil, fmt.Errorf("training: list active: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List returns every entry for the org, active or not.
func (s *SQLStore) List(ctx context.Context, orgID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, data_type, content, is_active, version, created_at, updated_at
		FROM training_data
		WHERE organization_id = $1
		ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("training: list: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Create inserts a version-1 active entry.
func (s *SQLStore) Create(ctx context.Context, orgID string, dataType DataType, content string) (*Entry, error) {
	if err := validate(dataType, content); err != nil {
		return nil, err
	}
	e := &Entry{
		ID:       uuid.New().String(),
		OrgID:    orgID,
		DataType: dataType,
		Content:  strings.TrimSpace(content),
		IsActive: true,
		Version:  1,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO training_data (id, organization_id, data_type, content, is_active, version)
		VALUES ($1, $2, $3, $4, true, 1)
		RETURNING created_at, updated_at`,
		e.ID, e.OrgID, string(e.DataType), e.Content).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("training: create: %w", err)
	}
	return e, nil
}

// Update replaces the content and increments the version.
func (s *SQLStore) Update(ctx context.Context, orgID, id, content string) (*Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("training.update", ErrEmptyContent.Error(), map[string]any{"field": "content"})
	}
	var e Entry
	var dataType string
	err := s.db.QueryRowContext(ctx, `
		UPDATE training_data
		SET content = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3
		RETURNING id, organization_id, data_type, content, is_active, version, created_at, updated_at`,
		strings.TrimSpace(content), id, orgID).Scan(
		&e.ID, &e.OrgID, &dataType, &e.Content, &e.IsActive, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("training.update", "training entry not found", ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("training: update: %w", err)
	}
	e.DataType = DataType(dataType)
	return &e, nil
}

// Deactivate removes the entry from prompts without deleting it.
func (s *SQLStore) Deactivate(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE training_data SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("training: deactivate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("training: deactivate: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("training.deactivate", "training entry not found", ErrEntryNotFound)
	}
	return nil
}

func validate(dataType DataType, content string) error {
	if !dataType.Valid() {
		return apperr.Validation("training.create", ErrInvalidDataType.Error(), map[string]any{"data_type": string(dataType)})
	}
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("training.create", ErrEmptyContent.Error(), map[string]any{"field": "content"})
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var dataType string
		if err := rows.Scan(&e.ID, &e.OrgID, &dataType, &e.Content, &e.IsActive, &e.Version, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("training: scan: %w", err)
		}
		e.DataType = DataType(dataType)
		out = append(out, e)
	}
	return out, rows.Err()
}
