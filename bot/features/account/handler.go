package account

import (
	"context"
	"errors"
	"fmt"

	"betbot/bot/common"
	"betbot/models"

	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleStart(ctx context.Context, u common.Update, referrerID int64) error {
	acct, err := f.ledger.GetOrCreateAccount(ctx, u.From.ID)
	if err != nil {
		return err
	}

	if acct.IsAdmin() {
		stats := f.stats.BotStats(ctx)
		f.responder.Reply(ctx, u, fmt.Sprintf("👑 Welcome to the admin panel!\n\n"+
			"📊 Bot statistics:\n"+
			"  -  👥 Total users: %s\n"+
			"  -  🧾 Pending transactions: %s\n\n"+
			"Send /admin for the list of admin commands.",
			common.FormatBalance(int64(stats.TotalUsers)), common.FormatBalance(int64(stats.PendingDeposits))))
		return nil
	}

	if referrerID != 0 {
		reward, applied, err := f.ledger.ApplyReferral(ctx, u.From.ID, referrerID)
		if err != nil {
			log.WithFields(log.Fields{
				"userID":     u.From.ID,
				"referrerID": referrerID,
			}).WithError(err).Warn("Failed to apply referral")
		} else if applied {
			_ = f.responder.Notify(ctx, referrerID, models.OutboundMessage{
				Text: fmt.Sprintf("🎁 Congratulations! %s joined through your link and you received %s.",
					common.DisplayName(u.From), common.FormatCredits(reward)),
			})
		}
	}

	f.responder.Reply(ctx, u, "👋 Welcome to the betting bot.\n\n"+
		"/balance - your balance\n"+
		"/deposit - buy credits\n"+
		"/referral - your invite link\n"+
		"/support - contact support")
	return nil
}

func (f *Feature) handleOwnBalance(ctx context.Context, u common.Update) error {
	acct, err := f.ledger.GetOrCreateAccount(ctx, u.From.ID)
	if err != nil {
		return err
	}
	price := f.ledger.IntSetting(ctx, models.SettingCreditPrice, models.DefaultCreditPrice)
	f.responder.Reply(ctx, u, fmt.Sprintf("💰 Your balance: %s\nEquivalent: %s",
		common.FormatCredits(acct.Balance), common.FormatTomanValue(acct.Balance, price)))
	return nil
}

func (f *Feature) handleGroupBalance(ctx context.Context, u common.Update) error {
	target := u.From
	if u.ReplyTo != nil && f.guard.IsStaff(ctx, u.From.ID) {
		target = *u.ReplyTo
	}

	acct, err := f.ledger.GetOrCreateAccount(ctx, target.ID)
	if err != nil {
		return err
	}
	price := f.ledger.IntSetting(ctx, models.SettingCreditPrice, models.DefaultCreditPrice)
	f.responder.Reply(ctx, u, fmt.Sprintf("👤 User: %s\n💰 Credit balance: %s\n💳 Estimated value: %s",
		common.DisplayName(target), common.FormatBalance(acct.Balance), common.FormatTomanValue(acct.Balance, price)))
	return nil
}

func (f *Feature) handleReferral(ctx context.Context, u common.Update) error {
	reward := f.ledger.IntSetting(ctx, models.SettingReferralReward, models.DefaultReferralReward)
	f.responder.Reply(ctx, u, fmt.Sprintf("🎁 Your invite link:\n\n%s\n\nEarn %s for every successful invite!",
		f.platform.ReferralLink(u.From.ID), common.FormatCredits(reward)))
	return nil
}

func (f *Feature) handleTransfer(ctx context.Context, u common.Update, amount int64) error {
	receiver := *u.ReplyTo
	if receiver.ID == u.From.ID {
		f.responder.Reply(ctx, u, "You cannot transfer credits to yourself.")
		return nil
	}

	if _, err := f.ledger.Transfer(ctx, u.From.ID, receiver.ID, amount); err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			return common.Refusal(err, "❌ Your balance is not enough.")
		}
		return err
	}

	f.responder.Reply(ctx, u, fmt.Sprintf("✅ Transfer complete ✅\n\n👤 From: %s\n👥 To: %s\n💰 Amount: %s",
		common.DisplayName(u.From), common.DisplayName(receiver), common.FormatCredits(amount)))
	return nil
}

func (f *Feature) handleDeduct(ctx context.Context, u common.Update, amount int64) error {
	target := *u.ReplyTo
	switch target.ID {
	case u.From.ID:
		f.responder.Reply(ctx, u, "You cannot deduct credits from yourself.")
		return nil
	case f.ledger.OwnerID():
		f.responder.Reply(ctx, u, "You cannot deduct credits from the owner.")
		return nil
	}

	receipt, err := f.ledger.Deduct(ctx, u.From.ID, target.ID, amount)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			return common.Refusal(err, fmt.Sprintf("User %s does not have enough balance to deduct %s.",
				common.DisplayName(target), common.FormatCredits(amount)))
		}
		return err
	}

	f.responder.Reply(ctx, u, fmt.Sprintf("❌ %s deducted from %s.\n"+
		"🧾 Deduction receipt:\n"+
		"📤 Staff: %s\n"+
		"📥 User: %s\n"+
		"💰 Amount: %s\n"+
		"⏰ %s",
		common.FormatCredits(receipt.Amount), common.DisplayName(target),
		common.DisplayName(u.From), common.DisplayName(target),
		common.FormatBalance(receipt.Amount), common.FormatTimestamp(receipt.At)))
	return nil
}
