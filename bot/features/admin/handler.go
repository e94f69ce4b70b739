package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"betbot/bot/common"
	"betbot/models"
)

func (f *Feature) handlePanel(ctx context.Context, u common.Update, args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		if name != "admin" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("👑 Welcome to the admin panel:\n")
	for _, name := range names {
		b.WriteString("\n")
		b.WriteString(commands[name].usage)
	}
	f.responder.Reply(ctx, u, b.String())
	return nil
}

func (f *Feature) handleStats(ctx context.Context, u common.Update, args []string) error {
	bot := f.stats.BotStats(ctx)
	wagers := f.stats.WagerStats(ctx)
	f.responder.Reply(ctx, u, fmt.Sprintf("📊 Bot statistics:\n"+
		"  -  👥 Total users: %s\n"+
		"  -  💰 Total user credits: %s\n"+
		"  -  🧾 Pending transactions: %s\n"+
		"  -  🎲 Live bets: %s\n\n"+
		"🎲 Finished bets: %d settled, %d cancelled, %d expired\n"+
		"💰 Staked: %s\n"+
		"📉 Tax collected: %s",
		common.FormatBalance(int64(bot.TotalUsers)),
		common.FormatBalance(bot.TotalBalance),
		common.FormatBalance(int64(bot.PendingDeposits)),
		common.FormatBalance(int64(bot.LiveWagers)),
		wagers.Settled, wagers.Canceled, wagers.Expired,
		common.FormatCredits(wagers.TotalStaked),
		common.FormatCredits(wagers.TaxCollected)))
	return nil
}

func intArg(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, errUsage
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, errUsage
	}
	return n, nil
}

func (f *Feature) handleSetTax(ctx context.Context, u common.Update, args []string) error {
	rate, err := intArg(args, 0)
	if err != nil {
		return err
	}
	if err := f.settings.SetTaxRate(ctx, u.From.ID, rate); err != nil {
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The bet tax was set to %d%%.", rate))
	return nil
}

func (f *Feature) handleSetPrice(ctx context.Context, u common.Update, args []string) error {
	price, err := intArg(args, 0)
	if err != nil {
		return err
	}
	if err := f.settings.SetCreditPrice(ctx, u.From.ID, price); err != nil {
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The credit price was set to %s.", common.FormatToman(price)))
	return nil
}

func (f *Feature) handleSetReward(ctx context.Context, u common.Update, args []string) error {
	reward, err := intArg(args, 0)
	if err != nil {
		return err
	}
	if err := f.settings.SetReferralReward(ctx, u.From.ID, reward); err != nil {
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The referral reward was set to %s.", common.FormatCredits(reward)))
	return nil
}

func (f *Feature) handleSetCard(ctx context.Context, u common.Update, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	number := strings.Join(args, " ")
	if err := f.settings.SetCardNumber(ctx, u.From.ID, number); err != nil {
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The card number was set to %s.", number))
	return nil
}

func (f *Feature) handleSetHolder(ctx context.Context, u common.Update, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	holder := strings.Join(args, " ")
	if err := f.settings.SetCardHolder(ctx, u.From.ID, holder); err != nil {
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The card holder was set to %s.", holder))
	return nil
}

func (f *Feature) handleSetBalance(ctx context.Context, u common.Update, args []string) error {
	target, err := intArg(args, 0)
	if err != nil {
		return err
	}
	balance, err := intArg(args, 1)
	if err != nil {
		return err
	}

	acct, err := f.ledger.SetBalance(ctx, u.From.ID, target, balance)
	if err != nil {
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The balance of user %d is now %s.", acct.ID, common.FormatCredits(acct.Balance)))
	return nil
}

func (f *Feature) handleSetRole(ctx context.Context, u common.Update, args []string) error {
	target, err := intArg(args, 0)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errUsage
	}
	role, err := models.ParseRole(strings.ToLower(args[1]))
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			return common.Refusal(err, "⛔️ The owner role cannot be assigned.")
		}
		return errUsage
	}

	acct, err := f.ledger.SetRole(ctx, u.From.ID, target, role)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			return common.Refusal(err, "⛔️ Only the owner can change roles, and the owner's role cannot change.")
		}
		return err
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ User %d is now %s. Balance: %s.", acct.ID, acct.Role, common.FormatCredits(acct.Balance)))
	return nil
}

func (f *Feature) handleAddChannel(ctx context.Context, u common.Update, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	added, err := f.channels.Add(ctx, u.From.ID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if added.Warning != nil {
		f.responder.Reply(ctx, u, fmt.Sprintf("⚠️ Warning: the bot could not check the members of %s. "+
			"Membership checks will fail until the bot is an admin there.\n%v", added.Channel.Handle, added.Warning))
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ Channel %s was added.", added.Channel.Handle))
	return nil
}

func (f *Feature) handleRemoveChannel(ctx context.Context, u common.Update, args []string) error {
	channels := f.channels.List(ctx)
	if len(channels) == 0 {
		f.responder.Reply(ctx, u, "There are no channels to remove.")
		return nil
	}

	buttons := make([][]models.Button, 0, len(channels)+1)
	for _, ch := range channels {
		buttons = append(buttons, []models.Button{{Label: ch.Handle, Data: common.CallbackAdminRemove + ch.Handle}})
	}
	buttons = append(buttons, []models.Button{{Label: "Cancel", Data: common.CallbackAdminRemoveCancel}})
	f.responder.ReplyWithButtons(ctx, u, "Please choose the channel to remove:", buttons)
	return nil
}

func (f *Feature) handleRemoveCallback(ctx context.Context, u common.Update) error {
	if u.Data == common.CallbackAdminRemoveCancel {
		f.responder.Answer(ctx, u, "", false)
		if u.Source != nil {
			f.responder.Edit(ctx, *u.Source, "Operation cancelled.", nil)
		}
		return nil
	}

	handle := strings.TrimPrefix(u.Data, common.CallbackAdminRemove)
	text := fmt.Sprintf("✅ Channel %s was removed.", handle)
	if err := f.channels.Remove(ctx, u.From.ID, handle); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		text = fmt.Sprintf("❌ Channel %s was not found (it may already have been removed).", handle)
	}

	f.responder.Answer(ctx, u, "", false)
	if u.Source != nil {
		f.responder.Edit(ctx, *u.Source, text, nil)
	}
	return nil
}

func (f *Feature) handleChannels(ctx context.Context, u common.Update, args []string) error {
	channels := f.channels.List(ctx)
	if len(channels) == 0 {
		f.responder.Reply(ctx, u, "No required channels are set.")
		return nil
	}

	var b strings.Builder
	b.WriteString("Required channels:\n")
	for i, ch := range channels {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, ch.Handle, ch.Link)
	}
	f.responder.Reply(ctx, u, b.String())
	return nil
}

func (f *Feature) handleLock(ctx context.Context, u common.Update, args []string) error {
	locked, err := f.settings.ToggleChannelLock(ctx, u.From.ID)
	if err != nil {
		return err
	}
	status := "disabled"
	if locked {
		status = "enabled"
	}
	f.responder.Reply(ctx, u, fmt.Sprintf("✅ The required channel lock is now %s.", status))
	return nil
}

func (f *Feature) handleSetPhoto(ctx context.Context, u common.Update, args []string) error {
	f.sessions.Start(u.From.ID, common.Session{Kind: common.SessionBetPhoto})
	f.responder.Reply(ctx, u, "Please send the photo to use for bets.")
	return nil
}

func (f *Feature) handleClearPhoto(ctx context.Context, u common.Update, args []string) error {
	if err := f.settings.ClearBetPhoto(ctx, u.From.ID); err != nil {
		return err
	}
	f.responder.Reply(ctx, u, "✅ The bet photo was removed.")
	return nil
}
