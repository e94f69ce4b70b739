package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"betbot/models"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of *discordgo.Session the client calls
type Session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Client publishes messages over the Discord REST API. Chat ids are
// snowflakes; a user id addresses the DM channel with that user.
type Client struct {
	session Session
	self    *discordgo.User

	mu sync.Mutex
	// channels maps a chat id to the channel messages are posted in
	channels map[int64]string
	// pending holds button interactions until they are acknowledged
	pending map[string]*discordgo.Interaction
}

func NewClient(session Session, self *discordgo.User) *Client {
	return &Client{
		session:  session,
		self:     self,
		channels: make(map[int64]string),
		pending:  make(map[string]*discordgo.Interaction),
	}
}

func (c *Client) Name() string { return "discord" }

func (c *Client) BotName() string { return c.self.Username }

// ReferralLink is the command a new user sends the bot in a DM; Discord has
// no start parameters
func (c *Client) ReferralLink(userID int64) string {
	return fmt.Sprintf("/start %d", userID)
}

// resolveChannel finds the channel behind a chat id, opening a DM channel
// when the id belongs to a user
func (c *Client) resolveChannel(chatID int64) (string, error) {
	c.mu.Lock()
	channelID, ok := c.channels[chatID]
	c.mu.Unlock()
	if ok {
		return channelID, nil
	}

	id := strconv.FormatInt(chatID, 10)
	channelID = id
	if _, err := c.session.Channel(id); err != nil {
		dm, dmErr := c.session.UserChannelCreate(id)
		if dmErr != nil {
			return "", fmt.Errorf("resolve chat %d: %w", chatID, errors.Join(err, dmErr))
		}
		channelID = dm.ID
	}

	c.mu.Lock()
	c.channels[chatID] = channelID
	c.mu.Unlock()
	return channelID, nil
}

// rememberDM records the DM channel of a user seen in an inbound message
func (c *Client) rememberDM(userID int64, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[userID] = channelID
}

func (c *Client) Send(ctx context.Context, msg models.OutboundMessage) (models.MessageRef, error) {
	channelID, err := c.resolveChannel(msg.ChatID)
	if err != nil {
		return models.MessageRef{}, err
	}

	data := &discordgo.MessageSend{
		Content:    msg.Text,
		Components: components(msg.Buttons),
	}
	if msg.PhotoRef != "" {
		data.Embeds = []*discordgo.MessageEmbed{{
			Image: &discordgo.MessageEmbedImage{URL: msg.PhotoRef},
		}}
	}
	if msg.ReplyTo != 0 {
		data.Reference = &discordgo.MessageReference{
			MessageID: strconv.FormatInt(msg.ReplyTo, 10),
			ChannelID: channelID,
		}
	}

	sent, err := c.session.ChannelMessageSendComplex(channelID, data)
	if err != nil {
		return models.MessageRef{}, fmt.Errorf("send to chat %d: %w", msg.ChatID, err)
	}
	messageID, err := strconv.ParseInt(sent.ID, 10, 64)
	if err != nil {
		return models.MessageRef{}, fmt.Errorf("parse message id %q: %w", sent.ID, err)
	}
	return models.MessageRef{ChatID: msg.ChatID, MessageID: messageID, HasPhoto: msg.PhotoRef != ""}, nil
}

// Edit replaces the content; the photo embed of a photo message is kept.
func (c *Client) Edit(ctx context.Context, ref models.MessageRef, text string, buttons [][]models.Button) error {
	channelID, err := c.resolveChannel(ref.ChatID)
	if err != nil {
		return err
	}

	edit := discordgo.NewMessageEdit(channelID, strconv.FormatInt(ref.MessageID, 10)).SetContent(text)
	rows := components(buttons)
	if rows == nil {
		rows = []discordgo.MessageComponent{}
	}
	edit.Components = &rows

	if _, err := c.session.ChannelMessageEditComplex(edit); err != nil {
		return fmt.Errorf("edit message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, ref models.MessageRef) error {
	channelID, err := c.resolveChannel(ref.ChatID)
	if err != nil {
		return err
	}
	if err := c.session.ChannelMessageDelete(channelID, strconv.FormatInt(ref.MessageID, 10)); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}

// track keeps an interaction until it is answered
func (c *Client) track(i *discordgo.Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[i.ID] = i
}

func (c *Client) take(callbackID string) (*discordgo.Interaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.pending[callbackID]
	delete(c.pending, callbackID)
	return i, ok
}

// AnswerCallback acknowledges a click. Text is shown only to the clicking
// user; an empty answer just stops the loading state.
func (c *Client) AnswerCallback(ctx context.Context, answer models.CallbackAnswer) error {
	interaction, ok := c.take(answer.CallbackID)
	if !ok {
		return fmt.Errorf("interaction %s already answered or unknown", answer.CallbackID)
	}

	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	if answer.Text != "" {
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: answer.Text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}
	if err := c.session.InteractionRespond(interaction, resp); err != nil {
		return fmt.Errorf("answer interaction %s: %w", answer.CallbackID, err)
	}
	return nil
}

// IsMember reports whether userID belongs to the guild named by the
// channel handle
func (c *Client) IsMember(ctx context.Context, channel models.Channel, userID int64) (bool, error) {
	_, err := c.session.GuildMember(channel.Handle, strconv.FormatInt(userID, 10))
	if err == nil {
		return true, nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("get member %d of guild %s: %w", userID, channel.Handle, err)
}

// Verify checks that the bot is in the guild
func (c *Client) Verify(ctx context.Context, channel models.Channel) error {
	if _, err := c.session.GuildMember(channel.Handle, c.self.ID); err != nil {
		return fmt.Errorf("bot is not a member of guild %s: %w", channel.Handle, err)
	}
	return nil
}

func components(buttons [][]models.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, row := range buttons {
		var line []discordgo.MessageComponent
		for _, b := range row {
			if b.URL != "" {
				line = append(line, discordgo.Button{Label: b.Label, Style: discordgo.LinkButton, URL: b.URL})
			} else {
				line = append(line, discordgo.Button{Label: b.Label, Style: discordgo.PrimaryButton, CustomID: b.Data})
			}
		}
		rows = append(rows, discordgo.ActionsRow{Components: line})
	}
	return rows
}
