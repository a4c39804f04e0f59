package services

import (
	"testing"
	"time"

	"predictions/domain/entities"
	"predictions/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestEventID  = int64(1)
	TestUser1ID  = int64(101)
	TestUser2ID  = int64(102)
	TestUser3ID  = int64(103)
	TestOptYes   = "yes"
	TestOptNo    = "no"
	TestMinBet   = int64(10)
	TestMaxBet   = int64(500)
	TestStarting = int64(1000)
)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	EventRepo       *testhelpers.MockEventRepository
	ParticipantRepo *testhelpers.MockParticipantRepository
	OutcomeRepo     *testhelpers.MockOutcomeRepository
	UserRepo        *testhelpers.MockUserRepository
	HistoryRepo     *testhelpers.MockPointsHistoryRepository
	LeaderboardRepo *testhelpers.MockLeaderboardRepository
	EventPublisher  *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		EventRepo:       &testhelpers.MockEventRepository{},
		ParticipantRepo: &testhelpers.MockParticipantRepository{},
		OutcomeRepo:     &testhelpers.MockOutcomeRepository{},
		UserRepo:        &testhelpers.MockUserRepository{},
		HistoryRepo:     &testhelpers.MockPointsHistoryRepository{},
		LeaderboardRepo: &testhelpers.MockLeaderboardRepository{},
		EventPublisher:  &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.EventRepo.AssertExpectations(t)
	m.ParticipantRepo.AssertExpectations(t)
	m.OutcomeRepo.AssertExpectations(t)
	m.UserRepo.AssertExpectations(t)
	m.HistoryRepo.AssertExpectations(t)
	m.LeaderboardRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// AllowEvents accepts any published domain event
func (m *TestMocks) AllowEvents() {
	m.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// EventBuilder builds events for tests
type EventBuilder struct {
	event *entities.Event
}

// NewEventBuilder starts from a LOCKED yes/no event with a 5% fee
func NewEventBuilder() *EventBuilder {
	now := time.Now()
	return &EventBuilder{event: &entities.Event{
		ID:        TestEventID,
		Title:     "Will it rain tomorrow?",
		Category:  "weather",
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour),
		Status:    entities.EventStatusLocked,
		Options: []entities.EventOption{
			{Label: "Yes", Value: TestOptYes},
			{Label: "No", Value: TestOptNo},
		},
		PotEnabled: true,
		MinBet:     TestMinBet,
		MaxBet:     TestMaxBet,
		FeeRate:    decimal.RequireFromString("0.05"),
	}}
}

func (b *EventBuilder) WithStatus(status entities.EventStatus) *EventBuilder {
	b.event.Status = status
	return b
}

func (b *EventBuilder) WithFeeRate(rate string) *EventBuilder {
	b.event.FeeRate = decimal.RequireFromString(rate)
	return b
}

func (b *EventBuilder) WithOptions(values ...string) *EventBuilder {
	b.event.Options = nil
	for _, v := range values {
		b.event.Options = append(b.event.Options, entities.EventOption{Label: v, Value: v})
	}
	return b
}

func (b *EventBuilder) WithReferencePrice(price string) *EventBuilder {
	p := decimal.RequireFromString(price)
	b.event.ReferencePrice = &p
	return b
}

func (b *EventBuilder) EndingIn(d time.Duration) *EventBuilder {
	b.event.StartTime = time.Now().Add(-time.Hour)
	b.event.EndTime = time.Now().Add(d)
	return b
}

func (b *EventBuilder) Build() *entities.Event {
	return b.event
}

// participant creates an unsettled stake
func participant(id, userID int64, prediction string, amount int64) *entities.Participant {
	return &entities.Participant{
		ID:         id,
		EventID:    TestEventID,
		UserID:     userID,
		Prediction: prediction,
		Amount:     amount,
	}
}

// activeUser creates a user whose available points equal their balance minus held
func activeUser(id int64, points, held int64) *entities.User {
	return &entities.User{
		ID:              id,
		Username:        "user",
		Points:          points,
		AvailablePoints: points - held,
	}
}
