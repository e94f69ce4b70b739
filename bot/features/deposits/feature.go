package deposits

import (
	"context"

	"betbot/bot/common"
	"betbot/service"
)

// Feature runs the receipt upload conversation and the admin review buttons
type Feature struct {
	deposits  service.DepositService
	ledger    service.LedgerService
	sessions  *common.SessionStore
	responder *common.Responder
}

func New(deposits service.DepositService, ledger service.LedgerService, sessions *common.SessionStore, responder *common.Responder) *Feature {
	return &Feature{
		deposits:  deposits,
		ledger:    ledger,
		sessions:  sessions,
		responder: responder,
	}
}

// HandleCommand starts a deposit from /deposit
func (f *Feature) HandleCommand(ctx context.Context, u common.Update) error {
	f.sessions.Start(u.From.ID, common.Session{Kind: common.SessionDepositAmount})
	f.responder.Reply(ctx, u, "Please enter the number of credits you want to buy:")
	return nil
}

// HandleSession continues a deposit conversation
func (f *Feature) HandleSession(ctx context.Context, u common.Update, session common.Session) error {
	switch session.Kind {
	case common.SessionDepositAmount:
		return f.handleAmount(ctx, u)
	case common.SessionDepositReceipt:
		return f.handleReceipt(ctx, u, session.Amount)
	}
	return nil
}

// HandleCallback routes tx_approve_ and tx_reject_ clicks
func (f *Feature) HandleCallback(ctx context.Context, u common.Update) (bool, error) {
	if id, ok := common.ParseCallbackID(u.Data, common.CallbackTxApprove); ok {
		return true, f.handleResolve(ctx, u, id, true)
	}
	if id, ok := common.ParseCallbackID(u.Data, common.CallbackTxReject); ok {
		return true, f.handleResolve(ctx, u, id, false)
	}
	return false, nil
}
