package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"betbot/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the client calls
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Client publishes messages and answers membership questions over the
// Telegram Bot API
type Client struct {
	api  API
	self tgbotapi.User
}

// NewClient creates a client acting as self
func NewClient(api API, self tgbotapi.User) *Client {
	return &Client{api: api, self: self}
}

func (c *Client) Name() string { return "telegram" }

func (c *Client) BotName() string { return c.self.UserName }

// ReferralLink builds a deep link that starts the bot with the referrer id
func (c *Client) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", c.self.UserName, userID)
}

func (c *Client) Send(ctx context.Context, msg models.OutboundMessage) (models.MessageRef, error) {
	var chattable tgbotapi.Chattable
	if msg.PhotoRef != "" {
		photo := tgbotapi.NewPhoto(msg.ChatID, tgbotapi.FileID(msg.PhotoRef))
		photo.Caption = msg.Text
		photo.ReplyToMessageID = int(msg.ReplyTo)
		if len(msg.Buttons) > 0 {
			photo.ReplyMarkup = keyboard(msg.Buttons)
		}
		chattable = photo
	} else {
		text := tgbotapi.NewMessage(msg.ChatID, msg.Text)
		text.ReplyToMessageID = int(msg.ReplyTo)
		if len(msg.Buttons) > 0 {
			text.ReplyMarkup = keyboard(msg.Buttons)
		}
		chattable = text
	}

	sent, err := c.api.Send(chattable)
	if err != nil {
		return models.MessageRef{}, fmt.Errorf("send to chat %d: %w", msg.ChatID, err)
	}
	return models.MessageRef{
		ChatID:    msg.ChatID,
		MessageID: int64(sent.MessageID),
		HasPhoto:  msg.PhotoRef != "",
	}, nil
}

func (c *Client) Edit(ctx context.Context, ref models.MessageRef, text string, buttons [][]models.Button) error {
	var markup *tgbotapi.InlineKeyboardMarkup
	if len(buttons) > 0 {
		kb := keyboard(buttons)
		markup = &kb
	}

	var chattable tgbotapi.Chattable
	if ref.HasPhoto {
		edit := tgbotapi.NewEditMessageCaption(ref.ChatID, int(ref.MessageID), text)
		edit.ReplyMarkup = markup
		chattable = edit
	} else {
		edit := tgbotapi.NewEditMessageText(ref.ChatID, int(ref.MessageID), text)
		edit.ReplyMarkup = markup
		chattable = edit
	}

	if _, err := c.api.Request(chattable); err != nil {
		// Re-rendering the same content is not a failure
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, ref models.MessageRef) error {
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, int(ref.MessageID))); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, answer models.CallbackAnswer) error {
	cb := tgbotapi.NewCallback(answer.CallbackID, answer.Text)
	cb.ShowAlert = answer.Alert
	if _, err := c.api.Request(cb); err != nil {
		return fmt.Errorf("answer callback %s: %w", answer.CallbackID, err)
	}
	return nil
}

// IsMember reports whether userID is an active member of the channel.
// Restricted users count only while they are still in the chat.
func (c *Client) IsMember(ctx context.Context, channel models.Channel, userID int64) (bool, error) {
	member, err := c.api.GetChatMember(memberConfig(channel.Handle, userID))
	if err != nil {
		return false, fmt.Errorf("get member %d of %s: %w", userID, channel.Handle, err)
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	case "restricted":
		return member.IsMember, nil
	}
	return false, nil
}

// Verify checks that the bot administers the channel, which Telegram
// requires before it reveals the member list
func (c *Client) Verify(ctx context.Context, channel models.Channel) error {
	member, err := c.api.GetChatMember(memberConfig(channel.Handle, c.self.ID))
	if err != nil {
		return fmt.Errorf("look up bot in %s: %w", channel.Handle, err)
	}
	if member.Status != "creator" && member.Status != "administrator" {
		return fmt.Errorf("bot is not an administrator of %s", channel.Handle)
	}
	return nil
}

// memberConfig addresses a chat by numeric id or by @username
func memberConfig(handle string, userID int64) tgbotapi.GetChatMemberConfig {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	if id, err := strconv.ParseInt(handle, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = handle
	}
	return cfg
}

func keyboard(buttons [][]models.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		var line []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL != "" {
				line = append(line, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				line = append(line, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(line...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
