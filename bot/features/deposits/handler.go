package deposits

import (
	"context"
	"errors"
	"fmt"

	"betbot/bot/common"
	"betbot/models"

	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleAmount(ctx context.Context, u common.Update) error {
	amount, ok := common.ParsePositive(u.Text)
	if !ok {
		f.responder.Reply(ctx, u, "❌ Please enter a positive whole number.")
		return nil
	}

	quote, err := f.deposits.Quote(ctx, amount)
	if err != nil {
		return err
	}

	f.sessions.Start(u.From.ID, common.Session{Kind: common.SessionDepositReceipt, Amount: amount})
	f.responder.Reply(ctx, u, fmt.Sprintf(
		"Amount payable for %s credits: %s\n\n"+
			"Please transfer the amount to the card below, then send a photo of the receipt:\n"+
			"Card number: %s\n"+
			"Card holder: %s",
		common.FormatBalance(quote.Amount), common.FormatToman(quote.TotalCost), quote.CardNumber, quote.CardHolder))
	return nil
}

func (f *Feature) handleReceipt(ctx context.Context, u common.Update, amount int64) error {
	if u.PhotoRef == "" {
		f.responder.Reply(ctx, u, "❌ Please send a photo of the payment receipt.")
		return nil
	}

	deposit, err := f.deposits.Submit(ctx, u.From.ID, amount, u.PhotoRef)
	if err != nil {
		return err
	}
	f.sessions.End(u.From.ID)

	review := models.OutboundMessage{
		Text:     reviewCaption(deposit, u.From),
		PhotoRef: deposit.ReceiptRef,
		Buttons: [][]models.Button{{
			{Label: "✅ Approve", Data: fmt.Sprintf("%s%d", common.CallbackTxApprove, deposit.ID)},
			{Label: "❌ Reject", Data: fmt.Sprintf("%s%d", common.CallbackTxReject, deposit.ID)},
		}},
	}
	admins := f.ledger.Admins(ctx)
	reached := f.responder.NotifyAll(ctx, admins, review)
	log.WithFields(log.Fields{
		"txID":    deposit.ID,
		"userID":  deposit.UserID,
		"admins":  len(admins),
		"reached": reached,
	}).Info("Deposit receipt forwarded for review")

	f.responder.Reply(ctx, u, "✅ Your receipt was sent to the admins. Your balance will be charged once it is approved.")
	return nil
}

func (f *Feature) handleResolve(ctx context.Context, u common.Update, txID int64, approve bool) error {
	decision := models.DecisionReject
	if approve {
		decision = models.DecisionApprove
	}

	deposit, err := f.deposits.Resolve(ctx, txID, decision, u.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			f.responder.Answer(ctx, u, "", false)
			if u.Source != nil {
				f.responder.Edit(ctx, *u.Source, u.SourceText+"\n\n(transaction not found)", nil)
			}
			return nil
		case errors.Is(err, models.ErrNotAuthorized):
			return common.Refusal(err, "⛔️ Only admins can review deposits.")
		case errors.Is(err, models.ErrAlreadyResolved):
			return common.Refusal(err, "This transaction has already been processed.")
		}
		return err
	}

	f.responder.Answer(ctx, u, "", false)
	status := "❌ Rejected."
	notice := fmt.Sprintf("❌ Your payment for %s credits was rejected.", common.FormatBalance(deposit.Amount))
	if deposit.Status == models.DepositStatusApproved {
		status = "✅ Approved."
		notice = fmt.Sprintf("✅ Your payment for %s credits was approved and your balance was charged.", common.FormatBalance(deposit.Amount))
	}
	if u.Source != nil {
		f.responder.Edit(ctx, *u.Source, u.SourceText+"\n\n"+status, nil)
	}
	_ = f.responder.Notify(ctx, deposit.UserID, models.OutboundMessage{Text: notice})
	return nil
}

func reviewCaption(d *models.Deposit, from common.User) string {
	return fmt.Sprintf("🧾 New credit request (ID: %d)\nUser: %s (%d)\nCredits: %s",
		d.ID, common.DisplayName(from), from.ID, common.FormatBalance(d.Amount))
}
