package reminders

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reminderRowColumns = []string{
	"id", "booking_id", "organization_id", "reminder_type", "scheduled_at", "recipient_phone",
	"message_template", "status", "sent_at", "error", "created_at", "updated_at",
}

func TestPostgresStore_CreateBatchUsesOneStatement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	args := make([]any, 30)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO reminders").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))

	batch := Plan(testBooking(), testLead(), testOrg(), bookedAt)
	require.NoError(t, NewPostgresStore(mock).CreateBatch(context.Background(), batch))
	for _, r := range batch {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, StatusPending, r.Status)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("WHERE status = 'pending' AND scheduled_at <= \\$1").
		WithArgs(bookedAt, 100).
		WillReturnRows(mock.NewRows(reminderRowColumns).
			AddRow("r-1", "booking-1", "org-1", "confirmation", bookedAt, leadPhone, "Hi Jane!", "pending", nil, "", bookedAt, bookedAt))

	due, err := NewPostgresStore(mock).ListDue(context.Background(), bookedAt, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, TypeConfirmation, due[0].Type)
	assert.Nil(t, due[0].SentAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClaimGuardsOnPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE reminders SET status = 'sending'.*status = 'pending'").
		WithArgs(bookedAt, "r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE reminders SET status = 'sending'").
		WithArgs(bookedAt, "r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	claimed, err := store.Claim(context.Background(), "r-1", bookedAt)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.Claim(context.Background(), "r-1", bookedAt)
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkSentGuardsOnSending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sentAt := time.Date(2025, 3, 10, 9, 0, 5, 0, time.UTC)
	mock.ExpectExec("UPDATE reminders SET status = 'sent'.*status = 'sending'").
		WithArgs(sentAt, "r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE reminders SET status = 'sent'").
		WithArgs(sentAt, "r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	moved, err := store.MarkSent(context.Background(), "r-1", sentAt)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = store.MarkSent(context.Background(), "r-1", sentAt)
	require.NoError(t, err)
	assert.False(t, moved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CancelForBooking(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE reminders SET status = 'cancelled'").
		WithArgs("booking-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewPostgresStore(mock).CancelForBooking(context.Background(), "booking-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("COUNT").
		WithArgs("org-1").
		WillReturnRows(mock.NewRows([]string{"pending", "sending", "sent", "failed", "cancelled"}).AddRow(int64(2), int64(1), int64(3), int64(1), int64(3)))

	stats, err := NewPostgresStore(mock).Stats(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.SentCount)
	assert.Equal(t, int64(1), stats.SendingCount)
	assert.InDelta(t, 75.0, stats.DeliveryPct, 0.001)
}
