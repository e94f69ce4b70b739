package account

import (
	"context"
	"strconv"

	"betbot/bot/common"
	"betbot/service"
)

// Feature covers balances, referrals, transfers and staff deductions
type Feature struct {
	ledger    service.LedgerService
	guard     *service.AccessGuard
	stats     service.StatsService
	responder *common.Responder
	platform  common.Platform
}

func New(ledger service.LedgerService, guard *service.AccessGuard, stats service.StatsService, responder *common.Responder, platform common.Platform) *Feature {
	return &Feature{
		ledger:    ledger,
		guard:     guard,
		stats:     stats,
		responder: responder,
		platform:  platform,
	}
}

// HandleStart handles /start with an optional referrer id
func (f *Feature) HandleStart(ctx context.Context, u common.Update, args []string) error {
	var referrerID int64
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			referrerID = id
		}
	}
	return f.handleStart(ctx, u, referrerID)
}

// HandleBalance shows the sender's balance, or in groups the replied
// user's balance when the sender is staff
func (f *Feature) HandleBalance(ctx context.Context, u common.Update) error {
	if u.Private {
		return f.handleOwnBalance(ctx, u)
	}
	return f.handleGroupBalance(ctx, u)
}

func (f *Feature) HandleReferral(ctx context.Context, u common.Update) error {
	return f.handleReferral(ctx, u)
}

// HandleTransfer handles a "transfer N" reply in a group. It reports
// false when the message is not a reply.
func (f *Feature) HandleTransfer(ctx context.Context, u common.Update, amount int64) (bool, error) {
	if u.ReplyTo == nil {
		return false, nil
	}
	return true, f.handleTransfer(ctx, u, amount)
}

// HandleDeduct handles a "deduct N" reply in a group. Non-staff senders
// and messages that are not replies are left unhandled.
func (f *Feature) HandleDeduct(ctx context.Context, u common.Update, amount int64) (bool, error) {
	if u.ReplyTo == nil || !f.guard.IsStaff(ctx, u.From.ID) {
		return false, nil
	}
	return true, f.handleDeduct(ctx, u, amount)
}
