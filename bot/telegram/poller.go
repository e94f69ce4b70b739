package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"betbot/bot/common"
	"betbot/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Poller long-polls the Bot API and hands every update to a handler on
// its own goroutine
type Poller struct {
	bot     *tgbotapi.BotAPI
	handler common.Handler
	wg      sync.WaitGroup
}

// Connect authenticates the token and returns the API handle
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}
	api.Debug = debug
	log.WithField("username", api.Self.UserName).Info("Authorized on Telegram")
	return api, nil
}

func NewPoller(bot *tgbotapi.BotAPI, handler common.Handler) *Poller {
	return &Poller{bot: bot, handler: handler}
}

// Run blocks until ctx is done, then waits for in-flight updates
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := p.bot.GetUpdatesChan(cfg)

	defer p.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			u, ok := convertUpdate(upd)
			if !ok {
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.handler.Dispatch(ctx, u)
			}()
		}
	}
}

// convertUpdate maps messages and button clicks; everything else is dropped
func convertUpdate(upd tgbotapi.Update) (common.Update, bool) {
	if q := upd.CallbackQuery; q != nil {
		// Clicks on inline-mode messages carry no chat
		if q.From == nil || q.Message == nil || q.Message.Chat == nil {
			return common.Update{}, false
		}
		m := q.Message
		return common.Update{
			From:       toUser(q.From),
			ChatID:     m.Chat.ID,
			Private:    m.Chat.IsPrivate(),
			CallbackID: q.ID,
			Data:       q.Data,
			Source: &models.MessageRef{
				ChatID:    m.Chat.ID,
				MessageID: int64(m.MessageID),
				HasPhoto:  len(m.Photo) > 0,
			},
			SourceText: messageText(m),
		}, true
	}

	m := upd.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return common.Update{}, false
	}
	u := common.Update{
		From:      toUser(m.From),
		ChatID:    m.Chat.ID,
		Private:   m.Chat.IsPrivate(),
		MessageID: int64(m.MessageID),
		Text:      messageText(m),
	}
	if len(m.Photo) > 0 {
		// Sizes are ordered smallest first
		u.PhotoRef = m.Photo[len(m.Photo)-1].FileID
	}
	if r := m.ReplyToMessage; r != nil && r.From != nil {
		replied := toUser(r.From)
		u.ReplyTo = &replied
	}
	return u, true
}

func messageText(m *tgbotapi.Message) string {
	if len(m.Photo) > 0 {
		return m.Caption
	}
	return m.Text
}

func toUser(u *tgbotapi.User) common.User {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return common.User{ID: u.ID, Name: name}
}
