package conversation

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

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations and their messages.
type Store interface {
	// GetForLead returns the lead's conversation or a NotFound error.
	GetForLead(ctx context.Context, orgID, leadID string) (*Conversation, error)
	GetOrCreateForLead(ctx context.Context, orgID, leadID string) (*Conversation, error)
	AppendMessage(ctx context.Context, msg *Message) error
	// RecentMessages returns at most limit messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error)
	// ListAwaitingReply returns active conversations whose latest message is
	// outbound and was sent at or before the cutoff, oldest first.
	ListAwaitingReply(ctx context.Context, before time.Time, limit int) ([]Conversation, error)
}

func notFound(op string) error {
	return apperr.NotFound(op, "conversation not found", ErrConversationNotFound)
}

// PostgresStore keeps conversations in the conversations and messages tables.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("conversation: db required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetForLead(ctx context.Context, orgID, leadID string) (*Conversation, error) {
	var c Conversation
	var status string
	err := s.db.QueryRow(ctx, `
		SELECT id, organization_id, lead_id, status, last_message_at, created_at
		FROM conversations
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY created_at DESC
		LIMIT 1`, orgID, leadID).Scan(&c.ID, &c.OrgID, &c.LeadID, &status, &c.LastMessageAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("conversation.get")
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: get for lead: %w", err)
	}
	c.Status = Status(status)
	return &c, nil
}

// GetOrCreateForLead relies on the unique (organization_id, lead_id) index
// so concurrent first messages converge on one row.
func (s *PostgresStore) GetOrCreateForLead(ctx context.Context, orgID, leadID string) (*Conversation, error) {
	var c Conversation
	var status string
	err := s.db.QueryRow(ctx, `
		INSERT INTO conversations (id, organization_id, lead_id, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (organization_id, lead_id) DO UPDATE SET organization_id = EXCLUDED.organization_id
		RETURNING id, organization_id, lead_id, status, last_message_at, created_at`,
		uuid.New().String(), orgID, leadID).Scan(&c.ID, &c.OrgID, &c.LeadID, &status, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("conversation: get or create: %w", err)
	}
	c.Status = Status(status)
	return &c, nil
}

// AppendMessage inserts the message and bumps last_message_at.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	var providerID *string
	if msg.ProviderMessageID != "" {
		providerID = &msg.ProviderMessageID
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, direction, content, provider_message_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		msg.ID, msg.ConversationID, string(msg.Direction), msg.Content, providerID).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("conversation: append message: %w", err)
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE conversations SET last_message_at = $2
		WHERE id = $1`, msg.ConversationID, msg.CreatedAt); err != nil {
		return fmt.Errorf("conversation: touch conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, direction, content, COALESCE(provider_message_id, ''), created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: recent messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var direction string
		if err := rows.Scan(&m.ID, &m.ConversationID, &direction, &m.Content, &m.ProviderMessageID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		m.Direction = Direction(direction)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: recent messages: %w", err)
	}
	reverse(out)
	return out, nil
}

func (s *PostgresStore) HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM messages WHERE provider_message_id = $1)`, providerMessageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("conversation: provider message lookup: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListAwaitingReply(ctx context.Context, before time.Time, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.organization_id, c.lead_id, c.status, c.last_message_at, c.created_at
		FROM conversations c
		JOIN LATERAL (
			SELECT direction, created_at
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) last ON TRUE
		WHERE c.status = 'active'
			AND last.direction = 'outbound'
			AND last.created_at <= $1
		ORDER BY last.created_at ASC
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: awaiting reply: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var status string
		if err := rows.Scan(&c.ID, &c.OrgID, &c.LeadID, &status, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan conversation: %w", err)
		}
		c.Status = Status(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: awaiting reply: %w", err)
	}
	return out, nil
}

func reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// MemoryStore is an in-process Store used in development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]Message
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to timestamp messages.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func memoryKey(orgID, leadID string) string {
	return orgID + "/" + leadID
}

func (s *MemoryStore) GetForLead(ctx context.Context, orgID, leadID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[memoryKey(orgID, leadID)]
	if !ok {
		return nil, notFound("conversation.get")
	}
	copied := *c
	return &copied, nil
}

func (s *MemoryStore) GetOrCreateForLead(ctx context.Context, orgID, leadID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(orgID, leadID)
	c, ok := s.conversations[key]
	if !ok {
		c = &Conversation{
			ID:        uuid.New().String(),
			OrgID:     orgID,
			LeadID:    leadID,
			Status:    StatusActive,
			CreatedAt: s.now(),
		}
		s.conversations[key] = c
	}
	copied := *c
	return &copied, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = s.now()
	if existing := s.messages[msg.ConversationID]; len(existing) > 0 {
		if last := existing[len(existing)-1].CreatedAt; msg.CreatedAt.Before(last) {
			msg.CreatedAt = last
		}
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	for _, c := range s.conversations {
		if c.ID == msg.ConversationID {
			ts := msg.CreatedAt
			c.LastMessageAt = &ts
		}
	}
	return nil
}

func (s *MemoryStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	all := s.messages[conversationID]
	out := make([]Message, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemoryStore) HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ProviderMessageID == providerMessageID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *MemoryStore) ListAwaitingReply(ctx context.Context, before time.Time, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		conv Conversation
		last time.Time
	}
	var found []candidate
	for _, c := range s.conversations {
		if c.Status != StatusActive {
			continue
		}
		msgs := s.messages[c.ID]
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]
		if last.Direction != DirectionOutbound || last.CreatedAt.After(before) {
			continue
		}
		found = append(found, candidate{conv: *c, last: last.CreatedAt})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].last.Equal(found[j].last) {
			return found[i].conv.ID < found[j].conv.ID
		}
		return found[i].last.Before(found[j].last)
	})
	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]Conversation, 0, len(found))
	for _, f := range found {
		out = append(out, f.conv)
	}
	return out, nil
}
