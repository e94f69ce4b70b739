package models

import (
	"fmt"
	"math"
	"time"
)

// WagerState represents the state of a wager
type WagerState string

const (
	WagerStatePending  WagerState = "pending"
	WagerStateActive   WagerState = "active"
	WagerStateSettled  WagerState = "settled"
	WagerStateCanceled WagerState = "canceled"
	WagerStateExpired  WagerState = "expired"
)

// IsTerminal reports whether no further transition is possible
func (s WagerState) IsTerminal() bool {
	return s == WagerStateSettled || s == WagerStateCanceled || s == WagerStateExpired
}

// MessageRef points at a message published on the chat platform
type MessageRef struct {
	ChatID    int64
	MessageID int64
	// HasPhoto is set when the message is a photo whose caption carries the text.
	HasPhoto bool
}

// Wager is a two-party stake contest proposed in a group chat
type Wager struct {
	ID           int64
	ProposerID   int64
	ProposerName string
	Stake        int64
	State        WagerState
	OpponentID   *int64
	OpponentName string
	ChatID       int64
	Message      *MessageRef
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// MaxStake keeps pot*taxRate within int64 for any rate up to 100%.
const MaxStake = math.MaxInt64 / 200

// NewWager builds a pending wager, rejecting a stake outside (0, MaxStake]
func NewWager(proposerID int64, proposerName string, chatID, stake int64, now time.Time) (*Wager, error) {
	if stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidInput)
	}
	if stake > MaxStake {
		return nil, fmt.Errorf("%w: stake cannot exceed %d", ErrInvalidInput, MaxStake)
	}
	return &Wager{
		ProposerID:   proposerID,
		ProposerName: proposerName,
		Stake:        stake,
		State:        WagerStatePending,
		ChatID:       chatID,
		CreatedAt:    now,
	}, nil
}

// Pot is the total staked by both sides
func (w *Wager) Pot() int64 {
	return 2 * w.Stake
}

// Settlement is the outcome of a joined wager
type Settlement struct {
	Wager      Wager
	WinnerID   int64
	WinnerName string
	LoserID    int64
	LoserName  string
	Pot        int64
	Tax        int64
	Prize      int64
	// TaxCollected is false when a participant is the owner; the tax is then withheld but not credited.
	TaxCollected bool
}

// ComputeTax returns round(pot*rate/100), rounding exact halves to even.
func ComputeTax(pot, ratePercent int64) int64 {
	if pot <= 0 || ratePercent <= 0 {
		return 0
	}
	q, r := pot*ratePercent/100, pot*ratePercent%100
	if r > 50 || (r == 50 && q%2 == 1) {
		q++
	}
	return q
}
