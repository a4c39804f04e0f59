package repository

import (
	"context"
	"testing"
	"time"

	"predictions/domain/entities"
	"predictions/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewEventRepository(testDB.DB)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		event, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("round trip", func(t *testing.T) {
		event := testutil.CreateTestEvent("BTC above 100k")
		reference := decimal.RequireFromString("98765.4321")
		event.ReferencePrice = &reference
		event.Options = []entities.EventOption{
			{Label: "Up", Value: entities.AnswerUp},
			{Label: "Down", Value: entities.AnswerDown},
		}

		require.NoError(t, repo.Create(ctx, event))
		assert.NotZero(t, event.ID)
		assert.Equal(t, entities.ResolutionStatusPending, event.ResolutionStatus)

		loaded, err := repo.GetByID(ctx, event.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, event.Title, loaded.Title)
		assert.Equal(t, entities.EventStatusOpen, loaded.Status)
		assert.Equal(t, event.Options, loaded.Options)
		require.NotNil(t, loaded.ReferencePrice)
		assert.True(t, reference.Equal(*loaded.ReferencePrice))
		assert.Nil(t, loaded.FinalPrice)
		assert.True(t, decimal.RequireFromString("0.05").Equal(loaded.FeeRate))
		assert.Nil(t, loaded.CorrectAnswer)
	})

	t.Run("title exists", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestEvent("Unique title")))

		exists, err := repo.ExistsByTitle(ctx, "Unique title")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByTitle(ctx, "Missing title")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestEventRepository_TransitionStatus(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewEventRepository(testDB.DB)
	ctx := context.Background()

	event := testutil.CreateTestEvent("Transition event")
	require.NoError(t, repo.Create(ctx, event))
	testutil.SetEventStatus(t, testDB.DB, event.ID, entities.EventStatusLocked)

	ok, err := repo.TransitionStatus(ctx, event.ID, []entities.EventStatus{entities.EventStatusLocked}, entities.EventStatusResolving)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second claim loses
	ok, err = repo.TransitionStatus(ctx, event.ID, []entities.EventStatus{entities.EventStatusLocked}, entities.EventStatusResolving)
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := repo.GetStatus(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusResolving, status)

	finalPrice := decimal.RequireFromString("101.5")
	require.NoError(t, repo.MarkResolved(ctx, event.ID, "yes", &finalPrice, 7, 150))

	resolved, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusResolved, resolved.Status)
	assert.Equal(t, entities.ResolutionStatusResolved, resolved.ResolutionStatus)
	require.NotNil(t, resolved.CorrectAnswer)
	assert.Equal(t, "yes", *resolved.CorrectAnswer)
	assert.Equal(t, int64(7), resolved.PlatformFee)
	assert.Equal(t, int64(150), resolved.PrizePool)
	require.NotNil(t, resolved.FinalPrice)
	assert.True(t, finalPrice.Equal(*resolved.FinalPrice))
	assert.NotNil(t, resolved.ResolvedAt)

	// Resolving twice is rejected by the status guard
	err = repo.MarkResolved(ctx, event.ID, "yes", nil, 7, 150)
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	_, err = repo.GetStatus(ctx, 999999)
	assert.ErrorIs(t, err, entities.ErrEventNotFound)
}

func TestEventRepository_LockExpiredAndFlagStale(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewEventRepository(testDB.DB)
	ctx := context.Background()

	older := testutil.CreateTestEventEnded("Ended two days ago", 48*time.Hour)
	recent := testutil.CreateTestEventEnded("Ended a minute ago", time.Minute)
	future := testutil.CreateTestEvent("Still running")
	for _, e := range []*entities.Event{recent, older, future} {
		require.NoError(t, repo.Create(ctx, e))
	}

	locked, err := repo.LockExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.Equal(t, older.ID, locked[0].ID)
	assert.Equal(t, recent.ID, locked[1].ID)
	for _, e := range locked {
		assert.Equal(t, entities.EventStatusLocked, e.Status)
	}

	// Idempotent
	locked, err = repo.LockExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, locked)

	pending, err := repo.ListByStatus(ctx, entities.EventStatusLocked)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)

	flagged, err := repo.FlagStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, older.ID, flagged[0].ID)
	assert.NotNil(t, flagged[0].FlaggedAt)

	flagged, err = repo.FlagStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestEventRepository_RecordStake(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewEventRepository(testDB.DB)
	ctx := context.Background()

	event := testutil.CreateTestEvent("Pool event")
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, repo.RecordStake(ctx, event.ID, 40))
	require.NoError(t, repo.RecordStake(ctx, event.ID, 60))

	loaded, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), loaded.PrizePool)
	assert.Equal(t, 2, loaded.TotalBets)

	assert.ErrorIs(t, repo.RecordStake(ctx, 999999, 10), entities.ErrEventNotFound)
}
