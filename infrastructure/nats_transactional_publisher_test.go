package infrastructure

import (
	"context"
	"errors"
	"testing"

	"predictions/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	PublishedEvents []events.Event
	PublishError    error
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func TestNATSTransactionalPublisher_FlushPublishesInOrder(t *testing.T) {
	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	locked := events.EventStateChangeEvent{EventID: 1, OldState: "LOCKED", NewState: "RESOLVING"}
	resolved := events.EventResolvedEvent{EventID: 1, CorrectAnswer: "yes", Winners: 2, TotalPaid: 285, FeeCollected: 15}

	require.NoError(t, transPublisher.Publish(locked))
	require.NoError(t, transPublisher.Publish(resolved))

	// Nothing leaves before the flush
	assert.Empty(t, mockPublisher.PublishedEvents)
	assert.Equal(t, 2, transPublisher.PendingCount())

	require.NoError(t, transPublisher.Flush(context.Background()))

	require.Len(t, mockPublisher.PublishedEvents, 2)
	assert.Equal(t, locked, mockPublisher.PublishedEvents[0])
	assert.Equal(t, resolved, mockPublisher.PublishedEvents[1])
	assert.Equal(t, 0, transPublisher.PendingCount())

	// A second flush publishes nothing new
	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Len(t, mockPublisher.PublishedEvents, 2)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, transPublisher.Publish(events.StakePlacedEvent{EventID: 1, UserID: 2, Amount: 50}))
	transPublisher.Discard()

	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Empty(t, mockPublisher.PublishedEvents)
}

func TestNATSTransactionalPublisher_FlushSwallowsPublishErrors(t *testing.T) {
	mockPublisher := &MockEventPublisher{PublishError: errors.New("nats down")}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, transPublisher.Publish(events.EventCreatedEvent{EventID: 3, Title: "t"}))

	// The transaction already committed, so delivery failures are logged only
	assert.NoError(t, transPublisher.Flush(context.Background()))
	assert.Equal(t, 0, transPublisher.PendingCount())
}
