package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"betbot/models"

	log "github.com/sirupsen/logrus"
)

// RouteResult tells the dispatcher whether to keep routing an update
type RouteResult int

const (
	// RouteContinue lets the update through to the regular handlers
	RouteContinue RouteResult = iota
	// RouteHandled means the gate fully answered the update
	RouteHandled
	// RouteBlocked stops routing because the user is missing channels
	RouteBlocked
)

func (r RouteResult) String() string {
	switch r {
	case RouteContinue:
		return "continue"
	case RouteHandled:
		return "handled"
	case RouteBlocked:
		return "blocked"
	}
	return fmt.Sprintf("RouteResult(%d)", int(r))
}

// CallbackCheckMembership is the payload of the recheck button
const CallbackCheckMembership = "check_join_membership"

// GateRequest describes the inbound update being gated
type GateRequest struct {
	UserID int64
	ChatID int64
	// MessageID is the inbound message; prompts are sent as replies to it.
	MessageID int64
	// CallbackID is set for button clicks.
	CallbackID string
	Data       string
	// Source is the message the clicked button belongs to.
	Source *models.MessageRef
}

func (r GateRequest) isCallback() bool {
	return r.CallbackID != ""
}

func (r GateRequest) isRecheck() bool {
	return r.isCallback() && r.Data == CallbackCheckMembership
}

// MembershipGate blocks users who have not joined every required channel
// while the channel lock is on
type MembershipGate struct {
	ledger    LedgerService
	channels  ChannelRepository
	provider  MembershipProvider
	messenger Messenger
	alerts    sync.WaitGroup
}

// NewMembershipGate creates a new membership gate
func NewMembershipGate(ledger LedgerService, channels ChannelRepository, provider MembershipProvider, messenger Messenger) *MembershipGate {
	return &MembershipGate{
		ledger:    ledger,
		channels:  channels,
		provider:  provider,
		messenger: messenger,
	}
}

// Check runs before any other routing. Delivery failures of the gate's own
// messages are logged; only the route decision is returned.
func (g *MembershipGate) Check(ctx context.Context, req GateRequest) (RouteResult, error) {
	if req.UserID == g.ledger.OwnerID() {
		return RouteContinue, nil
	}

	channels := g.channels.List()
	lock, _ := g.ledger.Setting(ctx, models.SettingForcedChannelLock)
	if lock != "true" || len(channels) == 0 {
		if req.isRecheck() {
			// A stale prompt from before the lock was lifted
			g.answer(ctx, req, "", false)
			g.deletePrompt(ctx, req)
			return RouteHandled, nil
		}
		return RouteContinue, nil
	}

	missing := g.unsatisfied(ctx, req.UserID, channels)

	if req.isRecheck() {
		if len(missing) == 0 {
			g.answer(ctx, req, "", false)
			g.deletePrompt(ctx, req)
			if _, err := g.messenger.Send(ctx, models.OutboundMessage{
				ChatID: req.UserID,
				Text:   "✅ Your membership is confirmed. Welcome!\nYou can now use the bot.",
			}); err != nil {
				log.WithError(err).WithField("userID", req.UserID).Warn("Failed to send membership welcome")
			}
			return RouteHandled, nil
		}

		g.answer(ctx, req, "❌ You have not joined all the channels yet.", true)
		if req.Source != nil {
			text := "Please join the remaining channels below, then press the check button:"
			if err := g.messenger.Edit(ctx, *req.Source, text, promptButtons(missing)); err != nil {
				log.WithError(err).WithField("userID", req.UserID).Warn("Failed to update membership prompt")
			}
		}
		return RouteBlocked, nil
	}

	if len(missing) == 0 {
		return RouteContinue, nil
	}

	prompt := models.OutboundMessage{
		ChatID:  req.ChatID,
		Text:    promptText(missing),
		Buttons: promptButtons(missing),
		ReplyTo: req.MessageID,
	}
	if req.isCallback() {
		g.answer(ctx, req, "⛔️ You need to join the channels first.", true)
		prompt.ChatID = req.UserID
		prompt.ReplyTo = 0
	}
	if _, err := g.messenger.Send(ctx, prompt); err != nil {
		log.WithError(err).WithField("userID", req.UserID).Warn("Failed to send membership prompt")
	}
	return RouteBlocked, nil
}

// unsatisfied returns the channels the user is not a member of. A provider
// failure counts as not a member, and the owner is told about it.
func (g *MembershipGate) unsatisfied(ctx context.Context, userID int64, channels []models.Channel) []models.Channel {
	var missing []models.Channel
	for _, ch := range channels {
		member, err := g.provider.IsMember(ctx, ch, userID)
		if err != nil {
			log.WithFields(log.Fields{
				"userID":  userID,
				"channel": ch.Handle,
				"error":   err,
			}).Error("Failed to check channel membership")
			g.alertOwner(ctx, userID, ch, err)
			missing = append(missing, ch)
			continue
		}
		if !member {
			missing = append(missing, ch)
		}
	}
	return missing
}

// alertOwner reports a provider failure without waiting for delivery
func (g *MembershipGate) alertOwner(ctx context.Context, userID int64, ch models.Channel, cause error) {
	msg := models.OutboundMessage{
		ChatID: g.ledger.OwnerID(),
		Text: fmt.Sprintf("⚠️ Membership check failed\nCould not check user %d in %s.\nThe bot may not be an admin there, or the handle is wrong.\nError: %v",
			userID, ch.Handle, cause),
	}

	g.alerts.Add(1)
	go func() {
		defer g.alerts.Done()
		if _, err := g.messenger.Send(context.WithoutCancel(ctx), msg); err != nil {
			log.WithError(err).Warn("Failed to alert owner about membership check failure")
		}
	}()
}

// WaitAlerts blocks until every pending owner alert has been attempted
func (g *MembershipGate) WaitAlerts() {
	g.alerts.Wait()
}

func (g *MembershipGate) answer(ctx context.Context, req GateRequest, text string, alert bool) {
	if err := g.messenger.AnswerCallback(ctx, models.CallbackAnswer{
		CallbackID: req.CallbackID,
		Text:       text,
		Alert:      alert,
	}); err != nil {
		log.WithError(err).Debug("Failed to answer membership callback")
	}
}

func (g *MembershipGate) deletePrompt(ctx context.Context, req GateRequest) {
	if req.Source == nil {
		return
	}
	if err := g.messenger.Delete(ctx, *req.Source); err != nil {
		log.WithError(err).Debug("Failed to delete membership prompt")
	}
}

func promptText(missing []models.Channel) string {
	var b strings.Builder
	b.WriteString("⚪️ To use the bot, please join all of the channels below and then press \"Check membership\":")
	for _, ch := range missing {
		b.WriteString("\n- ")
		b.WriteString(ch.Handle)
	}
	return b.String()
}

func promptButtons(missing []models.Channel) [][]models.Button {
	rows := make([][]models.Button, 0, len(missing)+1)
	for _, ch := range missing {
		rows = append(rows, []models.Button{{Label: "Join " + ch.Handle, URL: ch.Link}})
	}
	rows = append(rows, []models.Button{{Label: "✅ Check membership", Data: CallbackCheckMembership}})
	return rows
}
