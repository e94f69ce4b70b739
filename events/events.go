package events

import (
	"time"

	"betbot/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeAccountCreated   EventType = "account_created"
	EventTypeRoleChanged      EventType = "role_changed"
	EventTypeSettingChanged   EventType = "setting_changed"
	EventTypeWagerProposed    EventType = "wager_proposed"
	EventTypeWagerSettled     EventType = "wager_settled"
	EventTypeWagerCanceled    EventType = "wager_canceled"
	EventTypeWagerExpired     EventType = "wager_expired"
	EventTypeDepositSubmitted EventType = "deposit_submitted"
	EventTypeDepositResolved  EventType = "deposit_resolved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64                  `json:"user_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	ChangeAmount    int64                  `json:"change_amount"`
	TransactionType models.TransactionType `json:"transaction_type"`
	RelatedID       *int64                 `json:"related_id,omitempty"`
	RelatedType     *models.RelatedType    `json:"related_type,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent is emitted the first time an id is seen
type AccountCreatedEvent struct {
	UserID         int64       `json:"user_id"`
	Role           models.Role `json:"role"`
	InitialBalance int64       `json:"initial_balance"`
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

type RoleChangedEvent struct {
	UserID  int64       `json:"user_id"`
	ActorID int64       `json:"actor_id"`
	OldRole models.Role `json:"old_role"`
	NewRole models.Role `json:"new_role"`
}

func (e RoleChangedEvent) Type() EventType {
	return EventTypeRoleChanged
}

type SettingChangedEvent struct {
	Key     models.SettingKey `json:"key"`
	Value   string            `json:"value"`
	ActorID int64             `json:"actor_id"`
}

func (e SettingChangedEvent) Type() EventType {
	return EventTypeSettingChanged
}

// WagerProposedEvent represents a new pending wager
type WagerProposedEvent struct {
	Wager models.Wager `json:"wager"`
}

func (e WagerProposedEvent) Type() EventType {
	return EventTypeWagerProposed
}

// WagerSettledEvent represents a joined and paid-out wager
type WagerSettledEvent struct {
	Settlement models.Settlement `json:"settlement"`
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// WagerCanceledEvent represents a wager withdrawn by its proposer
type WagerCanceledEvent struct {
	Wager models.Wager `json:"wager"`
}

func (e WagerCanceledEvent) Type() EventType {
	return EventTypeWagerCanceled
}

// WagerExpiredEvent represents a wager nobody joined in time
type WagerExpiredEvent struct {
	Wager     models.Wager `json:"wager"`
	ExpiredAt time.Time    `json:"expired_at"`
}

func (e WagerExpiredEvent) Type() EventType {
	return EventTypeWagerExpired
}

type DepositSubmittedEvent struct {
	Deposit models.Deposit `json:"deposit"`
}

func (e DepositSubmittedEvent) Type() EventType {
	return EventTypeDepositSubmitted
}

type DepositResolvedEvent struct {
	Deposit models.Deposit `json:"deposit"`
}

func (e DepositResolvedEvent) Type() EventType {
	return EventTypeDepositResolved
}
