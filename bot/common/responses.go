package common

import (
	"context"
	"errors"
	"fmt"

	"betbot/models"
	"betbot/service"

	log "github.com/sirupsen/logrus"
)

// Responder sends replies for an update and maps errors to user messages
type Responder struct {
	messenger service.Messenger
	ownerID   int64
}

// NewResponder creates a new responder
func NewResponder(messenger service.Messenger, ownerID int64) *Responder {
	return &Responder{
		messenger: messenger,
		ownerID:   ownerID,
	}
}

// Messenger exposes the underlying messenger for features that edit or delete
func (r *Responder) Messenger() service.Messenger {
	return r.messenger
}

// Reply answers an update in its own chat
func (r *Responder) Reply(ctx context.Context, u Update, text string) {
	r.ReplyWithButtons(ctx, u, text, nil)
}

// ReplyWithButtons answers an update in its own chat with an inline keyboard
func (r *Responder) ReplyWithButtons(ctx context.Context, u Update, text string, buttons [][]models.Button) {
	msg := models.OutboundMessage{
		ChatID:  u.ChatID,
		Text:    text,
		Buttons: buttons,
	}
	if !u.Private && !u.IsCallback() {
		msg.ReplyTo = u.MessageID
	}
	if _, err := r.messenger.Send(ctx, msg); err != nil {
		log.WithFields(log.Fields{
			"update_id": u.ID,
			"chat_id":   u.ChatID,
		}).WithError(err).Warn("Failed to send reply")
	}
}

// Notify sends a message to a user's private chat. Delivery failures are
// logged and returned so callers can tell the sender.
func (r *Responder) Notify(ctx context.Context, userID int64, msg models.OutboundMessage) error {
	msg.ChatID = userID
	if _, err := r.messenger.Send(ctx, msg); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
		}).WithError(err).Warn("Failed to notify user")
		return err
	}
	return nil
}

// NotifyAll sends msg to every recipient and returns how many were reached
func (r *Responder) NotifyAll(ctx context.Context, recipients []int64, msg models.OutboundMessage) int {
	sent := 0
	for _, id := range recipients {
		if r.Notify(ctx, id, msg) == nil {
			sent++
		}
	}
	return sent
}

// Answer acknowledges a button click
func (r *Responder) Answer(ctx context.Context, u Update, text string, alert bool) {
	if !u.IsCallback() {
		return
	}
	err := r.messenger.AnswerCallback(ctx, models.CallbackAnswer{
		CallbackID: u.CallbackID,
		Text:       text,
		Alert:      alert,
	})
	if err != nil {
		log.WithField("update_id", u.ID).WithError(err).Debug("Failed to answer callback")
	}
}

// Edit replaces the text of the message a button belongs to
func (r *Responder) Edit(ctx context.Context, ref models.MessageRef, text string, buttons [][]models.Button) {
	if err := r.messenger.Edit(ctx, ref, text, buttons); err != nil {
		log.WithFields(log.Fields{
			"chat_id":    ref.ChatID,
			"message_id": ref.MessageID,
		}).WithError(err).Warn("Failed to edit message")
	}
}

// HandleError processes an error and responds appropriately
func (r *Responder) HandleError(ctx context.Context, u Update, err error) {
	if err == nil {
		return
	}

	fields := log.Fields{
		"update_id": u.ID,
		"user_id":   u.From.ID,
		"chat_id":   u.ChatID,
		"error":     err.Error(),
	}
	text := UserMessage(err)
	alert := true
	var botErr *BotError
	if errors.As(err, &botErr) {
		fields["context"] = botErr.Context
		alert = botErr.Alert
	}

	if IsExpected(err) {
		log.WithFields(fields).Debug("Request refused")
	} else {
		// Unexpected error - log full details but show generic message to user
		log.WithFields(fields).Error("Unexpected error handling update")
		text = GenericFailure
		r.reportToOwner(ctx, u, err)
	}

	if u.IsCallback() {
		r.Answer(ctx, u, text, alert)
		return
	}
	r.Reply(ctx, u, text)
}

func (r *Responder) reportToOwner(ctx context.Context, u Update, err error) {
	if r.ownerID == 0 {
		return
	}
	trigger := u.Text
	if u.IsCallback() {
		trigger = u.Data
	}
	report := fmt.Sprintf("⚠️ Error while handling an update\nUser: %d\nChat: %d\nTrigger: %s\nUpdate: %s\n\n%v",
		u.From.ID, u.ChatID, trigger, u.ID, err)
	_ = r.Notify(ctx, r.ownerID, models.OutboundMessage{Text: Truncate(report, MaxMessageLength)})
}
