package wagers

import (
	"context"
	"errors"
	"time"

	"betbot/bot/common"
	"betbot/models"
	"betbot/service"

	log "github.com/sirupsen/logrus"
)

func (f *Feature) handlePropose(ctx context.Context, u common.Update, stake int64) error {
	w, err := f.wagers.Propose(ctx, service.ProposeRequest{
		ProposerID:   u.From.ID,
		ProposerName: common.DisplayName(u.From),
		ChatID:       u.ChatID,
		Stake:        stake,
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			return common.Refusal(err, "❌ Your balance is not enough for this bet.")
		}
		return err
	}

	msg := models.OutboundMessage{
		ChatID:  u.ChatID,
		Text:    proposalText(w, f.platform.BotName()),
		Buttons: proposalButtons(w.ID),
		ReplyTo: u.MessageID,
	}
	if photo, ok := f.ledger.Setting(ctx, models.SettingBetPhotoFileID); ok && photo != "" && photo != models.NoPhoto {
		msg.PhotoRef = photo
	}

	messenger := f.responder.Messenger()
	ref, err := messenger.Send(ctx, msg)
	if err != nil && msg.PhotoRef != "" {
		log.WithField("wagerID", w.ID).WithError(err).Warn("Failed to send bet photo, falling back to text")
		msg.PhotoRef = ""
		ref, err = messenger.Send(ctx, msg)
	}
	if err != nil {
		// Nobody can join a wager without its buttons
		if _, cancelErr := f.wagers.Cancel(ctx, w.ID, u.From.ID); cancelErr != nil {
			log.WithField("wagerID", w.ID).WithError(cancelErr).Warn("Failed to withdraw unpublished wager")
		}
		return common.NewSystemError(err, "failed to publish wager message")
	}

	if err := f.wagers.AttachMessage(ctx, w.ID, ref); err != nil {
		// Joined or expired in the meantime; the message is handled by that path
		log.WithField("wagerID", w.ID).WithError(err).Debug("Wager resolved before its message was attached")
	}
	return nil
}

func (f *Feature) handleJoin(ctx context.Context, u common.Update, wagerID int64) error {
	settlement, err := f.wagers.Join(ctx, service.JoinRequest{
		WagerID:   wagerID,
		ActorID:   u.From.ID,
		ActorName: common.DisplayName(u.From),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			f.staleWager(ctx, u)
			return nil
		case errors.Is(err, models.ErrForbidden):
			return common.Refusal(err, "You cannot join your own bet.")
		case errors.Is(err, models.ErrAlreadyResolved):
			return common.Refusal(err, "Someone else joined this bet first.")
		case errors.Is(err, models.ErrInsufficientFunds):
			return common.Refusal(err, "❌ The balance is not enough to join this bet.")
		}
		return err
	}

	f.responder.Answer(ctx, u, "✅ You joined the bet! Selecting the winner...", false)

	ref := u.Source
	if ref == nil {
		ref = settlement.Wager.Message
	}
	if ref == nil {
		return nil
	}
	f.responder.Edit(ctx, *ref, selectingText, nil)
	f.reveal(*ref, settlement)
	return nil
}

// reveal shows the settlement after the suspense delay. The wager is
// already settled; only the message lags behind.
func (f *Feature) reveal(ref models.MessageRef, settlement *models.Settlement) {
	text := resultText(settlement, f.platform.BotName())
	f.reveals.Add(1)
	time.AfterFunc(f.settleDelay, func() {
		defer f.reveals.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f.responder.Edit(ctx, ref, text, nil)
	})
}

func (f *Feature) handleCancel(ctx context.Context, u common.Update, wagerID int64) error {
	w, err := f.wagers.Cancel(ctx, wagerID, u.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			f.staleWager(ctx, u)
			return nil
		case errors.Is(err, models.ErrNotAuthorized):
			return common.Refusal(err, "You did not start this bet.")
		case errors.Is(err, models.ErrAlreadyResolved):
			return common.Refusal(err, "This bet can no longer be cancelled.")
		}
		return err
	}

	f.responder.Answer(ctx, u, "✅ The bet was cancelled.", false)
	ref := u.Source
	if ref == nil {
		ref = w.Message
	}
	if ref != nil {
		f.responder.Edit(ctx, *ref, canceledText(w), nil)
	}
	return nil
}

// staleWager answers a click on a wager that is no longer live
func (f *Feature) staleWager(ctx context.Context, u common.Update) {
	f.responder.Answer(ctx, u, "", false)
	if u.Source != nil {
		f.responder.Edit(ctx, *u.Source, "This bet is no longer active.", nil)
	}
}
