package orgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

var orgColumns = []string{"id", "name", "owner_name", "owner_phone", "owner_email", "timezone", "calendar_id", "booking_duration_minutes", "created_at"}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("SELECT id, name, owner_name").
		WithArgs("org-1").
		WillReturnRows(mock.NewRows(orgColumns).
			AddRow("org-1", "Peak Fitness", "Sam", "+447700900001", "sam@example.com", "Europe/London", "primary", 45, created))

	repo := NewPostgresRepository(mock)
	org, err := repo.GetByID(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Peak Fitness", org.Name)
	assert.Equal(t, 45*time.Minute, org.BookingDuration())
	assert.Equal(t, "Europe/London", org.Location().String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, owner_name").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresRepository(mock).GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, errors.Is(err, ErrOrgNotFound))
}

func TestOrganizationDefaults(t *testing.T) {
	var o *Organization
	assert.Equal(t, time.UTC, o.Location())
	assert.Equal(t, 30*time.Minute, o.BookingDuration())

	bad := &Organization{Timezone: "Mars/Olympus"}
	assert.Equal(t, time.UTC, bad.Location())
}

func TestInMemoryRepository(t *testing.T) {
	repo := NewInMemoryRepository(&Organization{ID: "org-1", Name: "Acme"})
	org, err := repo.GetByID(context.Background(), "org-1")
	require.NoError(t, err)
	org.Name = "mutated"

	again, err := repo.GetByID(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
