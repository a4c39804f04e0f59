package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"predictions/application"
	"predictions/domain/entities"
	"predictions/infrastructure"
	"predictions/repository"
	"predictions/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCoordinator_ResolveEvent(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	event, users := lockedEventWithStakes(t, coordinator, testDB, "Will it rain", []stake{
		{user: "alice", prediction: "yes", amount: 100},
		{user: "bob", prediction: "yes", amount: 50},
		{user: "carol", prediction: "no", amount: 150},
	})

	result, err := coordinator.ResolveEvent(ctx, event.ID, "yes", nil)
	require.NoError(t, err)
	assert.False(t, result.AlreadyResolved)
	assert.Equal(t, "yes", result.CorrectAnswer)
	assert.Equal(t, 2, result.Winners)
	assert.Equal(t, 1, result.Losers)
	assert.Equal(t, int64(300), result.TotalPool)
	assert.Equal(t, int64(285), result.TotalPaid)
	assert.Equal(t, int64(15), result.FeeCollected)

	// Stakes were held, so balances move by net minus stake
	assert.Equal(t, int64(1090), testutil.GetUserPoints(t, testDB.DB, users["alice"]))
	assert.Equal(t, int64(1045), testutil.GetUserPoints(t, testDB.DB, users["bob"]))
	assert.Equal(t, int64(850), testutil.GetUserPoints(t, testDB.DB, users["carol"]))

	stored, err := coordinator.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusResolved, stored.Status)
	assert.Equal(t, entities.ResolutionStatusResolved, stored.ResolutionStatus)
	require.NotNil(t, stored.CorrectAnswer)
	assert.Equal(t, "yes", *stored.CorrectAnswer)
	assert.Equal(t, int64(15), stored.PlatformFee)

	outcomes, err := repository.NewOutcomeRepository(testDB.DB).GetOutcomesByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	var awarded int64
	for _, o := range outcomes {
		awarded += o.PointsAwarded
	}
	fees, err := repository.NewOutcomeRepository(testDB.DB).GetFeeTotalByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, result.TotalPool, awarded+fees)

	history, err := coordinator.GetPointsHistory(ctx, users["alice"], 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(90), history[0].ChangeAmount)

	t.Run("second resolution is a no-op", func(t *testing.T) {
		again, err := coordinator.ResolveEvent(ctx, event.ID, "no", nil)
		require.NoError(t, err)
		assert.True(t, again.AlreadyResolved)
		assert.Equal(t, int64(1090), testutil.GetUserPoints(t, testDB.DB, users["alice"]))
	})
}

func TestEventCoordinator_ResolveEventRefundsWithoutWinners(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	event, users := lockedEventWithStakes(t, coordinator, testDB, "Nobody right", []stake{
		{user: "dave", prediction: "yes", amount: 200},
		{user: "erin", prediction: "yes", amount: 300},
	})

	result, err := coordinator.ResolveEvent(ctx, event.ID, "no", nil)
	require.NoError(t, err)
	assert.True(t, result.Refunded)
	assert.Equal(t, int64(500), result.TotalPaid)
	assert.Zero(t, result.FeeCollected)

	assert.Equal(t, int64(1000), testutil.GetUserPoints(t, testDB.DB, users["dave"]))
	assert.Equal(t, int64(1000), testutil.GetUserPoints(t, testDB.DB, users["erin"]))
}

func TestEventCoordinator_ResolveEventRejectsBadInput(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	event, _ := lockedEventWithStakes(t, coordinator, testDB, "Bad input", []stake{
		{user: "frank", prediction: "yes", amount: 10},
	})

	_, err := coordinator.ResolveEvent(ctx, event.ID, "maybe", nil)
	assert.ErrorIs(t, err, entities.ErrInvalidResolutionInput)

	_, err = coordinator.ResolveEvent(ctx, 999999, "yes", nil)
	assert.ErrorIs(t, err, entities.ErrEventNotFound)

	open, err := coordinator.CreateEvent(ctx, yesNoParams("Still open"))
	require.NoError(t, err)
	_, err = coordinator.ResolveEvent(ctx, open.ID, "yes", nil)
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	stored, err := coordinator.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusLocked, stored.Status)
}

func TestEventCoordinator_FailedSettlementLeavesNoTrace(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	inner := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	failing := &failingUnitOfWorkFactory{inner: inner, failOn: 3}
	coordinator := application.NewEventCoordinator(failing, nil)

	event, users := lockedEventWithStakes(t, coordinator, testDB, "Fails midway", []stake{
		{user: "gina", prediction: "yes", amount: 100},
		{user: "hank", prediction: "no", amount: 100},
		{user: "ivan", prediction: "yes", amount: 100},
	})

	_, err := coordinator.ResolveEvent(ctx, event.ID, "yes", nil)
	require.ErrorIs(t, err, errInjected)

	// The first two payouts were rolled back with the rest
	for _, id := range users {
		assert.Equal(t, int64(1000), testutil.GetUserPoints(t, testDB.DB, id))
	}
	stored, err := coordinator.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusLocked, stored.Status)

	outcomes, err := repository.NewOutcomeRepository(testDB.DB).GetOutcomesByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	// Retrying succeeds once the fault is gone
	result, err := application.NewEventCoordinator(inner, nil).ResolveEvent(ctx, event.ID, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Winners)
}

func TestEventCoordinator_ConcurrentResolutionSettlesOnce(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	event, users := lockedEventWithStakes(t, coordinator, testDB, "Race", []stake{
		{user: "jill", prediction: "yes", amount: 100},
		{user: "kyle", prediction: "no", amount: 100},
	})

	const resolvers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
	)
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := coordinator.ResolveEvent(ctx, event.ID, "yes", nil)
			if err != nil {
				assert.ErrorIs(t, err, entities.ErrConcurrentResolution)
				return
			}
			if !result.AlreadyResolved {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	// 200 pool, 5% fee on 200 gross
	assert.Equal(t, int64(1090), testutil.GetUserPoints(t, testDB.DB, users["jill"]))
	assert.Equal(t, int64(900), testutil.GetUserPoints(t, testDB.DB, users["kyle"]))
}

func TestEventCoordinator_CancelEvent(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	event, users := lockedEventWithStakes(t, coordinator, testDB, "Called off", []stake{
		{user: "lena", prediction: "yes", amount: 250},
		{user: "milo", prediction: "no", amount: 150},
	})

	result, err := coordinator.CancelEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Participants)
	assert.Equal(t, int64(400), result.Refunded)

	for _, id := range users {
		assert.Equal(t, int64(1000), testutil.GetUserPoints(t, testDB.DB, id))
	}

	_, err = coordinator.CancelEvent(ctx, event.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	_, err = coordinator.ResolveEvent(ctx, event.ID, "yes", nil)
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestEventCoordinator_StakesAndOdds(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	event, err := coordinator.CreateEvent(ctx, yesNoParams("Odds"))
	require.NoError(t, err)

	_, err = coordinator.CreateEvent(ctx, yesNoParams("Odds"))
	assert.ErrorIs(t, err, entities.ErrInvalidEvent)

	nina := testutil.InsertUser(t, testDB.DB, "nina", 1000)
	omar := testutil.InsertUser(t, testDB.DB, "omar", 1000)

	_, err = coordinator.PlaceStake(ctx, event.ID, nina, "yes", 300)
	require.NoError(t, err)
	_, err = coordinator.PlaceStake(ctx, event.ID, omar, "no", 100)
	require.NoError(t, err)

	_, err = coordinator.PlaceStake(ctx, event.ID, nina, "no", 10)
	assert.ErrorIs(t, err, entities.ErrDuplicateStake)

	poor := testutil.InsertUser(t, testDB.DB, "poor", 5)
	_, err = coordinator.PlaceStake(ctx, event.ID, poor, "yes", 50)
	assert.ErrorIs(t, err, entities.ErrInsufficientPoints)

	odds, err := coordinator.GetOdds(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, odds, 2)
	assert.Equal(t, "yes", odds[0].Value)
	assert.Equal(t, int64(300), odds[0].Pool)
	assert.Equal(t, int64(100), odds[1].Pool)

	stored, err := coordinator.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), stored.PrizePool)
	assert.Equal(t, 2, stored.TotalBets)
}

func TestEventCoordinator_LockAndFlag(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	eventRepo := repository.NewEventRepository(testDB.DB)
	expired := testutil.CreateTestEventEnded("Expired", 48*time.Hour)
	require.NoError(t, eventRepo.Create(ctx, expired))
	live := testutil.CreateTestEvent("Live")
	require.NoError(t, eventRepo.Create(ctx, live))

	locked, err := coordinator.LockExpiredEvents(ctx)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, expired.ID, locked[0].ID)

	pending, err := coordinator.ListPendingResolution(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	flagged, err := coordinator.FlagStaleEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.NotNil(t, flagged[0].FlaggedAt)

	// Already flagged events are not flagged twice
	flagged, err = coordinator.FlagStaleEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestEventCoordinator_GetLeaderboard(t *testing.T) {
	t.Parallel()
	coordinator, testDB := newCoordinator(t)
	ctx := context.Background()

	testutil.InsertUser(t, testDB.DB, "first", 3000)
	testutil.InsertUser(t, testDB.DB, "second", 2000)
	testutil.InsertUser(t, testDB.DB, "third", 1000)

	page, err := coordinator.GetLeaderboard(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "first", page.Users[0].Username)
	assert.Equal(t, "second", page.Users[1].Username)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
}
