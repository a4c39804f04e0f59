package infrastructure

import (
	"fmt"

	"predictions/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var subjectsByType = map[events.EventType]string{
	events.EventTypePointsChange:     "predictions.points.changed",
	events.EventTypeEventCreated:     "predictions.events.created",
	events.EventTypeEventStateChange: "predictions.events.state_changed",
	events.EventTypeEventFlagged:     "predictions.events.flagged",
	events.EventTypeEventResolved:    "predictions.events.resolved",
	events.EventTypeStakePlaced:      "predictions.stakes.placed",
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("predictions.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range subjectsByType {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"predictions.>"}
}
