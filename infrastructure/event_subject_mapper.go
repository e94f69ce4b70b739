package infrastructure

import (
	"fmt"

	"betbot/events"
)

const subjectPrefix = "betbot"

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:    "betbot.accounts.balance_changed",
	events.EventTypeAccountCreated:   "betbot.accounts.created",
	events.EventTypeRoleChanged:      "betbot.accounts.role_changed",
	events.EventTypeSettingChanged:   "betbot.settings.changed",
	events.EventTypeWagerProposed:    "betbot.wagers.proposed",
	events.EventTypeWagerSettled:     "betbot.wagers.settled",
	events.EventTypeWagerCanceled:    "betbot.wagers.canceled",
	events.EventTypeWagerExpired:     "betbot.wagers.expired",
	events.EventTypeDepositSubmitted: "betbot.deposits.submitted",
	events.EventTypeDepositResolved:  "betbot.deposits.resolved",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("%s.unknown.%s", subjectPrefix, event.Type())
}

// EventTypes returns every event type that has a subject
func (m *EventSubjectMapper) EventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(eventSubjects))
	for t := range eventSubjects {
		types = append(types, t)
	}
	return types
}

// StreamSubjects returns the subject filter for the event stream
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{subjectPrefix + ".>"}
}
