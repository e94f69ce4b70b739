package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"betbot/bot/common"
	"betbot/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Bot receives gateway events and hands them to a handler
type Bot struct {
	session *discordgo.Session
	client  *Client
	handler common.Handler
	ctx     context.Context
	wg      sync.WaitGroup
}

// New prepares a gateway session. Nothing is received until Start.
func New(token string) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers

	return &Bot{
		session: dg,
		client:  NewClient(dg, nil),
	}, nil
}

// Client is the messenger and membership provider of the connection
func (b *Bot) Client() *Client {
	return b.client
}

// Start opens the websocket connection and routes events to handler
func (b *Bot) Start(ctx context.Context, handler common.Handler) error {
	b.ctx = ctx
	b.handler = handler

	b.session.AddHandler(b.handleMessage)
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.client.self = b.session.State.User
	log.WithField("username", b.session.State.User.Username).Info("Connected to Discord")
	return nil
}

// Close disconnects and waits for in-flight handlers
func (b *Bot) Close() error {
	err := b.session.Close()
	b.wg.Wait()
	return err
}

func (b *Bot) dispatch(u common.Update, after func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handler.Dispatch(b.ctx, u)
		if after != nil {
			after()
		}
	}()
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	u, ok := convertMessage(m.Message)
	if !ok {
		return
	}
	if u.Private {
		b.client.rememberDM(u.From.ID, m.ChannelID)
	}
	b.dispatch(u, nil)
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	u, ok := convertInteraction(i.Interaction)
	if !ok {
		return
	}
	b.client.track(i.Interaction)
	if u.Private {
		b.client.rememberDM(u.From.ID, i.ChannelID)
	}
	b.dispatch(u, func() {
		// Discord shows an error on clicks left unanswered
		if _, pending := b.client.take(i.ID); pending {
			resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
			if err := s.InteractionRespond(i.Interaction, resp); err != nil {
				log.WithError(err).WithField("interaction", i.ID).Debug("Failed to acknowledge interaction")
			}
		}
	})
}

func convertMessage(m *discordgo.Message) (common.Update, bool) {
	if m.Author == nil || m.Author.Bot {
		return common.Update{}, false
	}
	from, ok := toUser(m.Author)
	if !ok {
		return common.Update{}, false
	}
	messageID, _ := strconv.ParseInt(m.ID, 10, 64)

	u := common.Update{
		From:      from,
		Private:   m.GuildID == "",
		MessageID: messageID,
		Text:      strings.TrimSpace(m.Content),
	}
	if u.Private {
		u.ChatID = from.ID
	} else if u.ChatID, ok = snowflake(m.ChannelID); !ok {
		return common.Update{}, false
	}

	for _, a := range m.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			u.PhotoRef = a.URL
			break
		}
	}
	if r := m.ReferencedMessage; r != nil && r.Author != nil {
		if replied, ok := toUser(r.Author); ok {
			u.ReplyTo = &replied
		}
	}
	return u, true
}

func convertInteraction(i *discordgo.Interaction) (common.Update, bool) {
	user := i.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return common.Update{}, false
	}
	from, ok := toUser(user)
	if !ok {
		return common.Update{}, false
	}

	u := common.Update{
		From:       from,
		Private:    i.GuildID == "",
		CallbackID: i.ID,
		Data:       i.MessageComponentData().CustomID,
	}
	if u.Private {
		u.ChatID = from.ID
	} else if u.ChatID, ok = snowflake(i.ChannelID); !ok {
		return common.Update{}, false
	}

	if i.Message != nil {
		if messageID, ok := snowflake(i.Message.ID); ok {
			u.Source = &models.MessageRef{
				ChatID:    u.ChatID,
				MessageID: messageID,
				HasPhoto:  len(i.Message.Embeds) > 0,
			}
			u.SourceText = i.Message.Content
		}
	}
	return u, true
}

func toUser(user *discordgo.User) (common.User, bool) {
	id, ok := snowflake(user.ID)
	if !ok {
		return common.User{}, false
	}
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	return common.User{ID: id, Name: name}, true
}

func snowflake(id string) (int64, bool) {
	v, err := strconv.ParseInt(id, 10, 64)
	return v, err == nil
}
