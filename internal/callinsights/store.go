package callinsights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

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

// Store reads and writes call transcripts.
type Store interface {
	ListRanked(ctx context.Context, orgID string, limit int) ([]Transcript, error)
	Create(ctx context.Context, orgID string, req CreateTranscriptRequest) (*Transcript, error)
}

// PostgresStore keeps transcripts in the call_transcripts table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("callinsights: db required")
	}
	return &PostgresStore{db: db}
}

// ListRanked returns up to limit transcripts ordered by sentiment tier and
// recency. The ordering matches Rank.
func (s *PostgresStore) ListRanked(ctx context.Context, orgID string, limit int) ([]Transcript, error) {
	if limit <= 0 || limit > MaxRanked {
		limit = MaxRanked
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, organization_id, raw_transcript, sentiment, sales_insights, created_at
		FROM call_transcripts
		WHERE organization_id = $1
		ORDER BY CASE sentiment
			WHEN 'positive' THEN 0
			WHEN 'neutral' THEN 1
			WHEN 'negative' THEN 2
			ELSE 3 END,
			created_at DESC
		LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("callinsights: list ranked: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		var sentiment *string
		var insights []byte
		if err := rows.Scan(&t.ID, &t.OrgID, &t.RawTranscript, &sentiment, &insights, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("callinsights: scan: %w", err)
		}
		if sentiment != nil {
			t.Sentiment = Sentiment(*sentiment)
		}
		if len(insights) > 0 {
			var si SalesInsights
			if err := json.Unmarshal(insights, &si); err == nil {
				t.Insights = &si
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("callinsights: list ranked: %w", err)
	}
	return out, nil
}

// Create stores a new transcript. Transcripts are never updated.
func (s *PostgresStore) Create(ctx context.Context, orgID string, req CreateTranscriptRequest) (*Transcript, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t := &Transcript{
		ID:            uuid.New().String(),
		OrgID:         orgID,
		RawTranscript: strings.TrimSpace(req.RawTranscript),
		Sentiment:     req.Sentiment,
		Insights:      req.Insights,
	}
	var sentiment *string
	if t.Sentiment != SentimentUnknown {
		v := string(t.Sentiment)
		sentiment = &v
	}
	var insights []byte
	if t.Insights != nil {
		raw, err := json.Marshal(t.Insights)
		if err != nil {
			return nil, fmt.Errorf("callinsights: marshal insights: %w", err)
		}
		insights = raw
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO call_transcripts (id, organization_id, raw_transcript, sentiment, sales_insights)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.OrgID, t.RawTranscript, sentiment, insights).Scan(&t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("callinsights: create: %w", err)
	}
	return t, nil
}

// Validate checks the ingestion payload.
func (r CreateTranscriptRequest) Validate() error {
	if strings.TrimSpace(r.RawTranscript) == "" {
		return apperr.Validation("callinsights.create", ErrEmptyTranscript.Error(), map[string]any{"field": "raw_transcript"})
	}
	if !r.Sentiment.Valid() {
		return apperr.Validation("callinsights.create", ErrInvalidSentiment.Error(), map[string]any{"sentiment": string(r.Sentiment)})
	}
	return nil
}
