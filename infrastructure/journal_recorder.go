package infrastructure

import (
	"context"

	"betbot/events"
	"betbot/models"
	"betbot/repository"

	log "github.com/sirupsen/logrus"
)

// Journal is the write side of the audit journal
type Journal interface {
	RecordBalanceChanges(ctx context.Context, entries []*models.BalanceHistory) error
	RecordWagerOutcome(ctx context.Context, outcome repository.WagerOutcome) error
	RecordDepositDecision(ctx context.Context, d models.Deposit) error
}

// JournalRecorder copies bus events into the audit journal. Write failures
// are logged and never reach the live stores.
type JournalRecorder struct {
	journal Journal
}

func NewJournalRecorder(journal Journal) *JournalRecorder {
	return &JournalRecorder{journal: journal}
}

// Attach subscribes the recorder to the journaled event types
func (r *JournalRecorder) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, r.onBalanceChange)
	bus.SubscribeAll(r.onWagerFinished,
		events.EventTypeWagerSettled,
		events.EventTypeWagerCanceled,
		events.EventTypeWagerExpired,
	)
	bus.Subscribe(events.EventTypeDepositResolved, r.onDepositResolved)
}

func (r *JournalRecorder) onBalanceChange(ctx context.Context, event events.Event) {
	e, ok := event.(events.BalanceChangeEvent)
	if !ok {
		return
	}

	entry := &models.BalanceHistory{
		UserID:          e.UserID,
		BalanceBefore:   e.OldBalance,
		BalanceAfter:    e.NewBalance,
		ChangeAmount:    e.ChangeAmount,
		TransactionType: e.TransactionType,
		RelatedID:       e.RelatedID,
		RelatedType:     e.RelatedType,
	}
	if err := r.journal.RecordBalanceChanges(ctx, []*models.BalanceHistory{entry}); err != nil {
		log.WithFields(log.Fields{
			"userID": e.UserID,
			"error":  err,
		}).Error("Failed to journal balance change")
	}
}

func (r *JournalRecorder) onWagerFinished(ctx context.Context, event events.Event) {
	var outcome repository.WagerOutcome
	switch e := event.(type) {
	case events.WagerSettledEvent:
		winner := e.Settlement.WinnerID
		outcome = repository.WagerOutcome{
			Wager:    e.Settlement.Wager,
			WinnerID: &winner,
			Tax:      e.Settlement.Tax,
			Prize:    e.Settlement.Prize,
		}
	case events.WagerCanceledEvent:
		outcome = repository.WagerOutcome{Wager: e.Wager}
	case events.WagerExpiredEvent:
		outcome = repository.WagerOutcome{Wager: e.Wager}
	default:
		return
	}

	if err := r.journal.RecordWagerOutcome(ctx, outcome); err != nil {
		log.WithFields(log.Fields{
			"wagerID": outcome.Wager.ID,
			"state":   outcome.Wager.State,
			"error":   err,
		}).Error("Failed to journal wager outcome")
	}
}

func (r *JournalRecorder) onDepositResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.DepositResolvedEvent)
	if !ok {
		return
	}
	if err := r.journal.RecordDepositDecision(ctx, e.Deposit); err != nil {
		log.WithFields(log.Fields{
			"depositID": e.Deposit.ID,
			"error":     err,
		}).Error("Failed to journal deposit decision")
	}
}
