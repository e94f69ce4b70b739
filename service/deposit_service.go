package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"betbot/events"
	"betbot/models"

	log "github.com/sirupsen/logrus"
)

type depositService struct {
	deposits DepositRepository
	ledger   LedgerService
	guard    *AccessGuard
	bus      *events.Bus
	now      func() time.Time
}

// NewDepositService creates a new deposit service
func NewDepositService(deposits DepositRepository, ledger LedgerService, guard *AccessGuard, bus *events.Bus) DepositService {
	return &depositService{
		deposits: deposits,
		ledger:   ledger,
		guard:    guard,
		bus:      bus,
		now:      time.Now,
	}
}

// Quote prices amount credits at the current credit price
func (s *depositService) Quote(ctx context.Context, amount int64) (*DepositQuote, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}

	price := s.ledger.IntSetting(ctx, models.SettingCreditPrice, models.DefaultCreditPrice)
	if price > 0 && amount > math.MaxInt64/price {
		return nil, fmt.Errorf("%w: amount %d is too large to price", models.ErrInvalidInput, amount)
	}
	card, _ := s.ledger.Setting(ctx, models.SettingCardNumber)
	holder, _ := s.ledger.Setting(ctx, models.SettingCardHolder)

	return &DepositQuote{
		Amount:     amount,
		Price:      price,
		TotalCost:  amount * price,
		CardNumber: card,
		CardHolder: holder,
	}, nil
}

// Submit queues a receipt for review
func (s *depositService) Submit(ctx context.Context, userID, amount int64, receiptRef string) (*models.Deposit, error) {
	// Validate inputs
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}
	if strings.TrimSpace(receiptRef) == "" {
		return nil, fmt.Errorf("%w: a receipt is required", models.ErrInvalidInput)
	}

	deposit := s.deposits.Create(models.Deposit{
		UserID:     userID,
		Amount:     amount,
		ReceiptRef: receiptRef,
		Status:     models.DepositStatusPending,
		CreatedAt:  s.now(),
	})

	log.WithFields(log.Fields{
		"depositID": deposit.ID,
		"userID":    userID,
		"amount":    amount,
	}).Info("Deposit submitted for review")

	s.bus.Emit(context.WithoutCancel(ctx), events.DepositSubmittedEvent{Deposit: deposit})
	return &deposit, nil
}

// Resolve applies an admin decision. The status check and the credit run
// under the deposit store lock, so concurrent decisions on one deposit
// produce exactly one change and every other caller sees ErrAlreadyResolved.
func (s *depositService) Resolve(ctx context.Context, txID int64, decision models.Decision, actorID int64) (*models.Deposit, error) {
	if decision != models.DecisionApprove && decision != models.DecisionReject {
		return nil, fmt.Errorf("%w: unknown decision %q", models.ErrInvalidInput, decision)
	}
	if !s.guard.IsAdmin(ctx, actorID) {
		return nil, fmt.Errorf("%w: only admins can review deposits", models.ErrNotAuthorized)
	}

	bus := events.NewTransactionalBus(s.bus)
	resolved, err := s.deposits.Update(txID, func(d *models.Deposit) error {
		if !d.IsPending() {
			return fmt.Errorf("%w: deposit %d is already %s", models.ErrAlreadyResolved, d.ID, d.Status)
		}

		if decision == models.DecisionApprove {
			postings := []Posting{{UserID: d.UserID, Delta: d.Amount, Type: models.TransactionTypeDeposit}}
			related := &Related{ID: d.ID, Type: models.RelatedTypeDeposit}
			if _, err := s.ledger.PostStaged(ctx, bus, postings, related); err != nil {
				return fmt.Errorf("failed to credit deposit %d: %w", d.ID, err)
			}
			d.Status = models.DepositStatusApproved
		} else {
			d.Status = models.DepositStatusRejected
		}

		resolvedAt := s.now()
		resolver := actorID
		d.ResolvedBy = &resolver
		d.ResolvedAt = &resolvedAt
		return nil
	})
	if err != nil {
		bus.Discard()
		return nil, err
	}

	log.WithFields(log.Fields{
		"depositID": txID,
		"status":    resolved.Status,
		"adminID":   actorID,
	}).Info("Deposit resolved")

	bus.Publish(events.DepositResolvedEvent{Deposit: resolved})
	bus.Flush(ctx)
	return &resolved, nil
}

func (s *depositService) Pending(ctx context.Context) []models.Deposit {
	return s.deposits.ListByStatus(models.DepositStatusPending)
}

func (s *depositService) PendingCount(ctx context.Context) int {
	return s.deposits.CountByStatus(models.DepositStatusPending)
}
