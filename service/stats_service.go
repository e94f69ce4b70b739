package service

import (
	"context"
	"sync"

	"betbot/events"
	"betbot/models"
)

// statsService implements the StatsService interface. Wager outcomes are
// counted from the event bus because settled wagers are not retained in
// full.
type statsService struct {
	ledger   LedgerService
	deposits DepositService
	wagers   WagerService

	mu     sync.Mutex
	totals models.WagerStats
}

// NewStatsService creates a new stats service subscribed to wager events
func NewStatsService(ledger LedgerService, deposits DepositService, wagers WagerService, bus *events.Bus) StatsService {
	s := &statsService{
		ledger:   ledger,
		deposits: deposits,
		wagers:   wagers,
	}
	bus.SubscribeAll(s.handleWagerEvent,
		events.EventTypeWagerSettled,
		events.EventTypeWagerCanceled,
		events.EventTypeWagerExpired,
	)
	return s
}

func (s *statsService) handleWagerEvent(ctx context.Context, event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case events.WagerSettledEvent:
		s.totals.Settled++
		s.totals.TotalStaked += e.Settlement.Pot
		if e.Settlement.TaxCollected {
			s.totals.TaxCollected += e.Settlement.Tax
		}
	case events.WagerCanceledEvent:
		s.totals.Canceled++
	case events.WagerExpiredEvent:
		s.totals.Expired++
	}
}

// BotStats returns the admin panel figures
func (s *statsService) BotStats(ctx context.Context) models.BotStats {
	users, balance := s.ledger.Totals(ctx)
	return models.BotStats{
		TotalUsers:      users,
		TotalBalance:    balance,
		PendingDeposits: s.deposits.PendingCount(ctx),
		LiveWagers:      len(s.wagers.Live(ctx)),
	}
}

func (s *statsService) WagerStats(ctx context.Context) models.WagerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}
