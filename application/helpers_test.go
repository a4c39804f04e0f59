package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"predictions/application"
	"predictions/domain/entities"
	"predictions/domain/interfaces"
	"predictions/infrastructure"
	"predictions/repository/testutil"

	"github.com/stretchr/testify/require"
)

func newCoordinator(t *testing.T) (*application.EventCoordinator, *testutil.TestDatabase) {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)
	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	return application.NewEventCoordinator(uowFactory, nil), testDB
}

func yesNoParams(title string) entities.CreateEventParams {
	now := time.Now()
	return entities.CreateEventParams{
		Title:     title,
		StartTime: now.Add(-time.Minute),
		EndTime:   now.Add(time.Hour),
		Options: []entities.EventOption{
			{Label: "Yes", Value: "yes"},
			{Label: "No", Value: "no"},
		},
		PotEnabled: true,
		MinBet:     1,
		MaxBet:     10000,
	}
}

type stake struct {
	user       string
	prediction string
	amount     int64
}

// lockedEventWithStakes creates an event, places the stakes and locks it.
// Every user starts with 1000 points.
func lockedEventWithStakes(t *testing.T, coordinator *application.EventCoordinator, testDB *testutil.TestDatabase, title string, stakes []stake) (*entities.Event, map[string]int64) {
	t.Helper()
	ctx := context.Background()

	event, err := coordinator.CreateEvent(ctx, yesNoParams(title))
	require.NoError(t, err)

	users := make(map[string]int64, len(stakes))
	for _, s := range stakes {
		users[s.user] = testutil.InsertUser(t, testDB.DB, fmt.Sprintf("%s-%d", s.user, event.ID), 1000)
		_, err := coordinator.PlaceStake(ctx, event.ID, users[s.user], s.prediction, s.amount)
		require.NoError(t, err)
	}

	testutil.SetEventStatus(t, testDB.DB, event.ID, entities.EventStatusLocked)
	return event, users
}

// failingUnitOfWorkFactory wraps units of work so that the Nth outcome write fails
type failingUnitOfWorkFactory struct {
	inner  application.UnitOfWorkFactory
	failOn int

	mu    sync.Mutex
	calls int
}

func (f *failingUnitOfWorkFactory) Create() application.UnitOfWork {
	return &failingUnitOfWork{UnitOfWork: f.inner.Create(), factory: f}
}

type failingUnitOfWork struct {
	application.UnitOfWork
	factory *failingUnitOfWorkFactory
}

func (u *failingUnitOfWork) OutcomeRepository() interfaces.OutcomeRepository {
	return &failingOutcomeRepository{OutcomeRepository: u.UnitOfWork.OutcomeRepository(), factory: u.factory}
}

type failingOutcomeRepository struct {
	interfaces.OutcomeRepository
	factory *failingUnitOfWorkFactory
}

var errInjected = errors.New("injected outcome write failure")

func (r *failingOutcomeRepository) CreateOutcome(ctx context.Context, outcome *entities.EventOutcome) error {
	r.factory.mu.Lock()
	r.factory.calls++
	fail := r.factory.calls == r.factory.failOn
	r.factory.mu.Unlock()

	if fail {
		return errInjected
	}
	return r.OutcomeRepository.CreateOutcome(ctx, outcome)
}
