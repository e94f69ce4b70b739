package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"betbot/events"
	"betbot/models"

	log "github.com/sirupsen/logrus"
)

// DefaultWagerTimeout is how long a wager waits for an opponent
const DefaultWagerTimeout = 120 * time.Second

// errNotPending stops an expiry that lost the race to Join or Cancel
var errNotPending = errors.New("wager is no longer pending")

// ExpiryTag is the scheduler tag of a wager's expiry job
func ExpiryTag(wagerID int64) string {
	return fmt.Sprintf("wager_timeout_%d", wagerID)
}

type wagerService struct {
	wagers    WagerRepository
	ledger    LedgerService
	scheduler Scheduler
	random    RandomSource
	bus       *events.Bus
	timeout   time.Duration
	now       func() time.Time
}

// NewWagerService creates a new wager service
func NewWagerService(wagers WagerRepository, ledger LedgerService, scheduler Scheduler, random RandomSource, bus *events.Bus, timeout time.Duration) WagerService {
	if timeout <= 0 {
		timeout = DefaultWagerTimeout
	}
	return &wagerService{
		wagers:    wagers,
		ledger:    ledger,
		scheduler: scheduler,
		random:    random,
		bus:       bus,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Propose creates a pending wager and schedules its expiry
func (s *wagerService) Propose(ctx context.Context, req ProposeRequest) (*models.Wager, error) {
	// Validate inputs
	wager, err := models.NewWager(req.ProposerID, req.ProposerName, req.ChatID, req.Stake, s.now())
	if err != nil {
		return nil, err
	}

	proposer, err := s.ledger.GetOrCreateAccount(ctx, req.ProposerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposer: %w", err)
	}
	if proposer.Balance < req.Stake {
		return nil, fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, proposer.Balance, req.Stake)
	}

	created := s.wagers.Create(*wager)

	id := created.ID
	if err := s.scheduler.ScheduleOnce(ExpiryTag(id), s.timeout, func() {
		s.Expire(context.Background(), id)
	}); err != nil {
		// A wager that can never expire would stay open forever
		_, _ = s.wagers.Update(id, func(w *models.Wager) error {
			w.State = models.WagerStateCanceled
			return nil
		})
		return nil, fmt.Errorf("failed to schedule wager expiry: %w", err)
	}

	log.WithFields(log.Fields{
		"wagerID":    id,
		"proposerID": req.ProposerID,
		"chatID":     req.ChatID,
		"stake":      req.Stake,
	}).Info("Wager proposed")

	s.bus.Emit(context.WithoutCancel(ctx), events.WagerProposedEvent{Wager: created})
	return &created, nil
}

func (s *wagerService) AttachMessage(ctx context.Context, wagerID int64, ref models.MessageRef) error {
	_, err := s.wagers.Update(wagerID, func(w *models.Wager) error {
		w.Message = &ref
		return nil
	})
	return err
}

// Join takes the other side of a pending wager and settles it. The state
// check, both debits, the draw and the payouts happen under the wager
// lock, so Join, Cancel and Expire on one wager never interleave.
func (s *wagerService) Join(ctx context.Context, req JoinRequest) (*models.Settlement, error) {
	taxRate := s.taxRate(ctx)
	ownerID := s.ledger.OwnerID()
	bus := events.NewTransactionalBus(s.bus)

	var settlement models.Settlement
	_, err := s.wagers.Update(req.WagerID, func(w *models.Wager) error {
		if w.State != models.WagerStatePending {
			return fmt.Errorf("%w: someone already joined this wager", models.ErrAlreadyResolved)
		}
		if w.ProposerID == req.ActorID {
			return fmt.Errorf("%w: cannot join your own wager", models.ErrForbidden)
		}

		// Tentatively active; any error below restores the pending wager
		opponentID := req.ActorID
		w.State = models.WagerStateActive
		w.OpponentID = &opponentID
		w.OpponentName = req.ActorName

		pick, err := s.random.Intn(2)
		if err != nil {
			return fmt.Errorf("failed to select winner: %w", err)
		}
		winnerID, winnerName, loserID, loserName := w.ProposerID, w.ProposerName, opponentID, req.ActorName
		if pick == 1 {
			winnerID, winnerName, loserID, loserName = loserID, loserName, winnerID, winnerName
		}

		pot := w.Pot()
		tax := models.ComputeTax(pot, taxRate)
		prize := pot - tax
		taxCollected := tax > 0 && w.ProposerID != ownerID && opponentID != ownerID

		postings := []Posting{
			{UserID: opponentID, Delta: -w.Stake, Type: models.TransactionTypeWagerStake},
			{UserID: w.ProposerID, Delta: -w.Stake, Type: models.TransactionTypeWagerStake},
			{UserID: winnerID, Delta: prize, Type: models.TransactionTypeWagerPrize},
		}
		if taxCollected {
			postings = append(postings, Posting{UserID: ownerID, Delta: tax, Type: models.TransactionTypeWagerTax})
		}

		related := &Related{ID: w.ID, Type: models.RelatedTypeWager}
		if _, err := s.ledger.PostStaged(ctx, bus, postings, related); err != nil {
			return err
		}

		resolvedAt := s.now()
		w.State = models.WagerStateSettled
		w.ResolvedAt = &resolvedAt

		settlement = models.Settlement{
			Wager:        *w,
			WinnerID:     winnerID,
			WinnerName:   winnerName,
			LoserID:      loserID,
			LoserName:    loserName,
			Pot:          pot,
			Tax:          tax,
			Prize:        prize,
			TaxCollected: taxCollected,
		}
		return nil
	})
	if err != nil {
		bus.Discard()
		return nil, err
	}

	// Outside the lock; a concurrently firing expiry re-checks and finds the wager gone
	s.scheduler.Cancel(ExpiryTag(req.WagerID))

	log.WithFields(log.Fields{
		"wagerID":  req.WagerID,
		"winnerID": settlement.WinnerID,
		"loserID":  settlement.LoserID,
		"pot":      settlement.Pot,
		"tax":      settlement.Tax,
	}).Info("Wager settled")

	bus.Publish(events.WagerSettledEvent{Settlement: settlement})
	bus.Flush(ctx)
	return &settlement, nil
}

// Cancel withdraws a pending wager. Only the proposer may do this.
func (s *wagerService) Cancel(ctx context.Context, wagerID, actorID int64) (*models.Wager, error) {
	canceled, err := s.wagers.Update(wagerID, func(w *models.Wager) error {
		if w.ProposerID != actorID {
			return fmt.Errorf("%w: only the proposer can cancel this wager", models.ErrNotAuthorized)
		}
		if w.State != models.WagerStatePending {
			return fmt.Errorf("%w: wager is no longer pending", models.ErrAlreadyResolved)
		}
		resolvedAt := s.now()
		w.State = models.WagerStateCanceled
		w.ResolvedAt = &resolvedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scheduler.Cancel(ExpiryTag(wagerID))

	log.WithFields(log.Fields{
		"wagerID":    wagerID,
		"proposerID": actorID,
	}).Info("Wager canceled")

	s.bus.Emit(context.WithoutCancel(ctx), events.WagerCanceledEvent{Wager: canceled})
	return &canceled, nil
}

// Expire ends a wager nobody joined. It is a no-op when the wager was
// already consumed, so a late or repeated firing never notifies twice.
func (s *wagerService) Expire(ctx context.Context, wagerID int64) bool {
	expired, err := s.wagers.Update(wagerID, func(w *models.Wager) error {
		if w.State != models.WagerStatePending {
			return errNotPending
		}
		resolvedAt := s.now()
		w.State = models.WagerStateExpired
		w.ResolvedAt = &resolvedAt
		return nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"wagerID": wagerID,
			"reason":  err,
		}).Debug("Skipping wager expiry")
		return false
	}

	log.WithField("wagerID", wagerID).Info("Wager expired")

	s.bus.Emit(context.WithoutCancel(ctx), events.WagerExpiredEvent{
		Wager:     expired,
		ExpiredAt: *expired.ResolvedAt,
	})
	return true
}

func (s *wagerService) Get(ctx context.Context, wagerID int64) (*models.Wager, error) {
	w, ok := s.wagers.Get(wagerID)
	if !ok {
		return nil, fmt.Errorf("%w: wager %d", models.ErrNotFound, wagerID)
	}
	return &w, nil
}

func (s *wagerService) Live(ctx context.Context) []models.Wager {
	return s.wagers.Live()
}

func (s *wagerService) History(ctx context.Context, limit int) []models.Wager {
	return s.wagers.History(limit)
}

// taxRate reads the tax percentage, treating garbage as no tax
func (s *wagerService) taxRate(ctx context.Context) int64 {
	rate := s.ledger.IntSetting(ctx, models.SettingBetTaxRate, 0)
	switch {
	case rate < 0:
		return 0
	case rate > 100:
		return 100
	}
	return rate
}
