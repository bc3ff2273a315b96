package infrastructure

import (
	"fmt"

	"prizepool/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "pool.balance_changed"
	case events.EventTypeDrawOpened:
		return "pool.draws.opened"
	case events.EventTypeDrawCommitted:
		return "pool.draws.committed"
	case events.EventTypeDrawRewarded:
		return "pool.draws.rewarded"
	case events.EventTypeDepositPause:
		return "pool.deposits.paused"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "pool.balance_changed":
		return events.EventTypeBalanceChange
	case "pool.draws.opened":
		return events.EventTypeDrawOpened
	case "pool.draws.committed":
		return events.EventTypeDrawCommitted
	case "pool.draws.rewarded":
		return events.EventTypeDrawRewarded
	case "pool.deposits.paused":
		return events.EventTypeDepositPause
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"pool.balance_changed",
		"pool.draws.opened",
		"pool.draws.committed",
		"pool.draws.rewarded",
		"pool.deposits.paused",
	}
}
