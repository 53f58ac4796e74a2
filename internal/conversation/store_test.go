package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

func TestPostgresStoreGetForLeadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, organization_id, lead_id, status").
		WithArgs("org-1", "lead-1").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresStore(mock).GetForLead(context.Background(), "org-1", "lead-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.ErrorIs(t, err, ErrConversationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetOrCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO conversations").
		WithArgs(pgxmock.AnyArg(), "org-1", "lead-1").
		WillReturnRows(mock.NewRows([]string{"id", "organization_id", "lead_id", "status", "last_message_at", "created_at"}).
			AddRow("conv-1", "org-1", "lead-1", "active", &created, created))

	conv, err := NewPostgresStore(mock).GetOrCreateForLead(context.Background(), "org-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, StatusActive, conv.Status)
	require.NotNil(t, conv.LastMessageAt)
	assert.Equal(t, created, *conv.LastMessageAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendMessage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "conv-1", "inbound", "What are your prices?", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec("UPDATE conversations SET last_message_at").
		WithArgs("conv-1", created).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	msg := &Message{ConversationID: "conv-1", Direction: DirectionInbound, Content: "What are your prices?", ProviderMessageID: "wamid-1"}
	require.NoError(t, NewPostgresStore(mock).AppendMessage(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, created, msg.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecentMessagesOldestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM messages").
		WithArgs("conv-1", 10).
		WillReturnRows(mock.NewRows([]string{"id", "conversation_id", "direction", "content", "provider_message_id", "created_at"}).
			AddRow("m-3", "conv-1", "outbound", "third", "", t0.Add(2*time.Minute)).
			AddRow("m-2", "conv-1", "inbound", "second", "wamid-2", t0.Add(time.Minute)).
			AddRow("m-1", "conv-1", "outbound", "first", "", t0))

	msgs, err := NewPostgresStore(mock).RecentMessages(context.Background(), "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	assert.Equal(t, DirectionInbound, msgs[1].Direction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreHasProviderMessage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("wamid-1").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	store := NewPostgresStore(mock)
	seen, err := store.HasProviderMessage(context.Background(), "wamid-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.HasProviderMessage(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStoreOrderingAndLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetForLead(ctx, "org-1", "lead-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	conv, err := store.GetOrCreateForLead(ctx, "org-1", "lead-1")
	require.NoError(t, err)
	again, err := store.GetOrCreateForLead(ctx, "org-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)

	for i := 0; i < 12; i++ {
		dir := DirectionInbound
		if i%2 == 1 {
			dir = DirectionOutbound
		}
		require.NoError(t, store.AppendMessage(ctx, &Message{ConversationID: conv.ID, Direction: dir, Content: string(rune('a' + i))}))
	}
	msgs, err := store.RecentMessages(ctx, conv.ID, DefaultHistorySize)
	require.NoError(t, err)
	require.Len(t, msgs, DefaultHistorySize)
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "l", msgs[len(msgs)-1].Content)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}

	got, err := store.GetForLead(ctx, "org-1", "lead-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
}

func TestPostgresStoreListAwaitingReply(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)
	last := cutoff.Add(-2 * time.Hour)
	mock.ExpectQuery("JOIN LATERAL").
		WithArgs(cutoff, 25).
		WillReturnRows(mock.NewRows([]string{"id", "organization_id", "lead_id", "status", "last_message_at", "created_at"}).
			AddRow("conv-1", "org-1", "lead-1", "active", &last, last))

	convs, err := NewPostgresStore(mock).ListAwaitingReply(context.Background(), cutoff, 25)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "lead-1", convs[0].LeadID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStoreListAwaitingReply(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	waiting, err := store.GetOrCreateForLead(ctx, "org-1", "lead-waiting")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, &Message{ConversationID: waiting.ID, Direction: DirectionOutbound, Content: "Hi Jane"}))

	replied, err := store.GetOrCreateForLead(ctx, "org-1", "lead-replied")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, &Message{ConversationID: replied.ID, Direction: DirectionOutbound, Content: "Hi Tom"}))
	require.NoError(t, store.AppendMessage(ctx, &Message{ConversationID: replied.ID, Direction: DirectionInbound, Content: "Hello"}))

	_, err = store.GetOrCreateForLead(ctx, "org-1", "lead-empty")
	require.NoError(t, err)

	convs, err := store.ListAwaitingReply(ctx, clock, 10)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "lead-waiting", convs[0].LeadID)

	convs, err = store.ListAwaitingReply(ctx, clock.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, convs)
}
