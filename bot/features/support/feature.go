package support

import (
	"context"
	"fmt"
	"strings"

	"betbot/bot/common"
	"betbot/models"
	"betbot/service"
)

// Feature relays support messages between users and admins
type Feature struct {
	ledger    service.LedgerService
	guard     *service.AccessGuard
	sessions  *common.SessionStore
	responder *common.Responder
}

func New(ledger service.LedgerService, guard *service.AccessGuard, sessions *common.SessionStore, responder *common.Responder) *Feature {
	return &Feature{
		ledger:    ledger,
		guard:     guard,
		sessions:  sessions,
		responder: responder,
	}
}

// HandleCommand starts a support message from /support
func (f *Feature) HandleCommand(ctx context.Context, u common.Update) error {
	f.sessions.Start(u.From.ID, common.Session{Kind: common.SessionSupportMessage})
	f.responder.Reply(ctx, u, "Please write your message for the support team:")
	return nil
}

// HandleSession continues a support conversation
func (f *Feature) HandleSession(ctx context.Context, u common.Update, session common.Session) error {
	if strings.TrimSpace(u.Text) == "" {
		f.responder.Reply(ctx, u, "❌ Please send a text message.")
		return nil
	}

	switch session.Kind {
	case common.SessionSupportMessage:
		return f.relayToAdmins(ctx, u)
	case common.SessionSupportReply:
		return f.relayToUser(ctx, u, session.Target)
	}
	return nil
}

// HandleCallback routes reply_support_ clicks
func (f *Feature) HandleCallback(ctx context.Context, u common.Update) (bool, error) {
	target, ok := common.ParseCallbackID(u.Data, common.CallbackReplySupport)
	if !ok {
		return false, nil
	}
	if err := f.guard.RequireAdmin(ctx, u.From.ID); err != nil {
		return true, common.Refusal(err, "⛔️ Only admins can answer support messages.")
	}

	f.responder.Answer(ctx, u, "", false)
	f.sessions.Start(u.From.ID, common.Session{Kind: common.SessionSupportReply, Target: target})
	_ = f.responder.Notify(ctx, u.From.ID, models.OutboundMessage{
		Text: fmt.Sprintf("Please write your reply for user %d:", target),
	})
	return true, nil
}

func (f *Feature) relayToAdmins(ctx context.Context, u common.Update) error {
	f.sessions.End(u.From.ID)

	msg := models.OutboundMessage{
		Text: fmt.Sprintf("📨 New support message from %s (%d):\n\n%s", common.DisplayName(u.From), u.From.ID, u.Text),
		Buttons: [][]models.Button{{
			{Label: "✍️ Reply to user", Data: fmt.Sprintf("%s%d", common.CallbackReplySupport, u.From.ID)},
		}},
	}
	f.responder.NotifyAll(ctx, f.ledger.Admins(ctx), msg)
	f.responder.Reply(ctx, u, "✅ Your message was sent to the support team.")
	return nil
}

func (f *Feature) relayToUser(ctx context.Context, u common.Update, target int64) error {
	f.sessions.End(u.From.ID)

	err := f.responder.Notify(ctx, target, models.OutboundMessage{Text: "✉️ Support reply:\n\n" + u.Text})
	if err != nil {
		f.responder.Reply(ctx, u, fmt.Sprintf("❌ Failed to deliver the message to the user: %v", err))
		return nil
	}
	f.responder.Reply(ctx, u, "✅ Your reply was sent to the user.")
	return nil
}
