package repo

import (
	"context"
	"testing"
	"time"

	"una/internal/geo/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "user_id", "latitude", "longitude", "accuracy_m", "accuracy_tier", "shared_at", "expires_at"}

func accuracy(v float64) *float64 { return &v }

func TestPresenceRepository_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	shared := time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO presence_shares`).
		WithArgs(pgxmock.AnyArg(), "user-1", 32.08, 34.78, pgxmock.AnyArg(), "gps-fast", shared, shared.Add(2*time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewPresencePgRepository(mock).Save(context.Background(), domain.Presence{
		ID:           "7f7ab6a4-5d3c-4b43-9d39-2f8f1e0c8a11",
		UserID:       "user-1",
		Latitude:     32.08,
		Longitude:    34.78,
		Accuracy:     30,
		AccuracyTier: domain.TierGPSFast,
		SharedAt:     shared,
		ExpiresAt:    shared.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceRepository_SaveRejectsBadID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewPresencePgRepository(mock).Save(context.Background(), domain.Presence{ID: "not-a-uuid"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceRepository_LatestActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
	shared := now.Add(-30 * time.Minute)
	mock.ExpectQuery(`FROM presence_shares`).
		WithArgs("user-1", now).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("id-1", "user-1", 32.08, 34.78, (*float64)(nil), "network", shared, shared.Add(2*time.Hour)))

	got, err := NewPresencePgRepository(mock).LatestActive(context.Background(), "user-1", now)
	require.NoError(t, err)

	assert.Equal(t, "id-1", got.ID)
	assert.Zero(t, got.Accuracy)
	assert.Equal(t, domain.TierNetwork, got.AccuracyTier)
	assert.True(t, got.Active(now))
}

func TestPresenceRepository_LatestActiveMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM presence_shares`).WithArgs("user-1", now).WillReturnError(pgx.ErrNoRows)

	_, err = NewPresencePgRepository(mock).LatestActive(context.Background(), "user-1", now)
	assert.ErrorIs(t, err, domain.ErrPresenceNotFound)
}

func TestPresenceRepository_Expire(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE presence_shares`).
		WithArgs("user-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewPresencePgRepository(mock).Expire(context.Background(), "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPresenceRepository_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
	shared := now.Add(-10 * time.Minute)
	mock.ExpectQuery(`SELECT DISTINCT ON \(user_id\)`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("id-1", "user-1", 32.08, 34.78, accuracy(30), "gps-fast", shared, shared.Add(2*time.Hour)).
			AddRow("id-2", "user-2", -34.6, -58.38, accuracy(1200), "network", shared, shared.Add(2*time.Hour)))

	list, err := NewPresencePgRepository(mock).ListActive(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, 30.0, list[0].Accuracy)
	assert.Equal(t, "user-2", list[1].UserID)
	assert.Equal(t, domain.TierNetwork, list[1].AccuracyTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}
