package service

import (
	"fmt"
	"math"

	"betbot/events"
	"betbot/models"
	"betbot/repository"
)

// balanceRecord is one movement applied inside a ledger mutation
type balanceRecord struct {
	userID int64
	before int64
	after  int64
	txType models.TransactionType
}

// ledgerTx gives a Mutate callback typed balance operations and remembers
// every movement so the matching events can be staged afterwards.
type ledgerTx struct {
	accounts map[int64]*models.Account
	records  []balanceRecord
}

func (t *ledgerTx) account(id int64) *models.Account {
	return t.accounts[id]
}

// set overwrites a balance
func (t *ledgerTx) set(id int64, balance int64, txType models.TransactionType) {
	acct := t.accounts[id]
	if acct.Balance == balance {
		return
	}
	t.records = append(t.records, balanceRecord{
		userID: id,
		before: acct.Balance,
		after:  balance,
		txType: txType,
	})
	acct.Balance = balance
}

// add applies delta, refusing a debit the account cannot cover and a
// credit that would not fit in an int64
func (t *ledgerTx) add(id int64, delta int64, txType models.TransactionType) error {
	acct := t.accounts[id]
	if delta > 0 && acct.Balance > math.MaxInt64-delta {
		return fmt.Errorf("%w: crediting %d to account %d would overflow its balance", models.ErrInvalidInput, delta, id)
	}
	if delta < 0 && acct.Balance+delta < 0 {
		return fmt.Errorf("%w: account %d has %d, needs %d", models.ErrInsufficientFunds, id, acct.Balance, -delta)
	}
	t.set(id, acct.Balance+delta, txType)
	return nil
}

// stageBalanceChanges publishes the events of one committed mutation.
// Account creation and sentinel repair happen on load, before any
// recorded movement, so they are staged first.
func stageBalanceChanges(bus *events.TransactionalBus, accounts map[int64]models.Account, changes []repository.BalanceChange, records []balanceRecord, related *Related) {
	for _, change := range changes {
		if change.Created {
			bus.Publish(events.AccountCreatedEvent{
				UserID:         change.UserID,
				Role:           accounts[change.UserID].Role,
				InitialBalance: change.Before,
			})
			bus.Publish(events.BalanceChangeEvent{
				UserID:          change.UserID,
				OldBalance:      0,
				NewBalance:      change.Before,
				ChangeAmount:    change.Before,
				TransactionType: models.TransactionTypeInitial,
			})
		}
		if change.Repaired {
			bus.Publish(events.BalanceChangeEvent{
				UserID:          change.UserID,
				OldBalance:      change.Before,
				NewBalance:      models.SentinelBalance,
				ChangeAmount:    models.SentinelBalance - change.Before,
				TransactionType: models.TransactionTypeSentinel,
			})
		}
	}

	for _, r := range records {
		event := events.BalanceChangeEvent{
			UserID:          r.userID,
			OldBalance:      r.before,
			NewBalance:      r.after,
			ChangeAmount:    r.after - r.before,
			TransactionType: r.txType,
		}
		if related != nil {
			id, typ := related.ID, related.Type
			event.RelatedID = &id
			event.RelatedType = &typ
		}
		bus.Publish(event)
	}
}
