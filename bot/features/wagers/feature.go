package wagers

import (
	"context"
	"sync"
	"time"

	"betbot/bot/common"
	"betbot/events"
	"betbot/models"
	"betbot/service"

	log "github.com/sirupsen/logrus"
)

// Feature publishes interactive wager messages and reacts to their buttons
type Feature struct {
	wagers      service.WagerService
	ledger      service.LedgerService
	responder   *common.Responder
	platform    common.Platform
	settleDelay time.Duration

	// reveals tracks delayed result edits
	reveals sync.WaitGroup
}

func New(wagers service.WagerService, ledger service.LedgerService, responder *common.Responder, platform common.Platform, settleDelay time.Duration) *Feature {
	return &Feature{
		wagers:      wagers,
		ledger:      ledger,
		responder:   responder,
		platform:    platform,
		settleDelay: settleDelay,
	}
}

// Attach subscribes to expiries so the stale wager message is updated
func (f *Feature) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWagerExpired, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.WagerExpiredEvent)
		if !ok {
			return
		}
		f.handleExpired(ctx, e.Wager)
	})
}

// HandleCallback routes bet_join_ and bet_cancel_ clicks
func (f *Feature) HandleCallback(ctx context.Context, u common.Update) (bool, error) {
	if id, ok := common.ParseCallbackID(u.Data, common.CallbackBetJoin); ok {
		return true, f.handleJoin(ctx, u, id)
	}
	if id, ok := common.ParseCallbackID(u.Data, common.CallbackBetCancel); ok {
		return true, f.handleCancel(ctx, u, id)
	}
	return false, nil
}

// HandlePropose handles "bet N" in a group
func (f *Feature) HandlePropose(ctx context.Context, u common.Update, stake int64) error {
	return f.handlePropose(ctx, u, stake)
}

// Wait blocks until every pending result edit has been published
func (f *Feature) Wait() {
	f.reveals.Wait()
}

func (f *Feature) handleExpired(ctx context.Context, w models.Wager) {
	if w.Message == nil {
		log.WithField("wagerID", w.ID).Debug("Expired wager has no message to update")
		return
	}
	f.responder.Edit(ctx, *w.Message, expiredText(w), nil)
}
