package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"betbot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, data)
	msg, _ := args.Get(0).(*discordgo.Message)
	return msg, args.Error(1)
}

func (m *mockSession) ChannelMessageEditComplex(edit *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(edit)
	msg, _ := args.Get(0).(*discordgo.Message)
	return msg, args.Error(1)
}

func (m *mockSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	return m.Called(channelID, messageID).Error(0)
}

func (m *mockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return m.Called(interaction, resp).Error(0)
}

func (m *mockSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	args := m.Called(recipientID)
	ch, _ := args.Get(0).(*discordgo.Channel)
	return ch, args.Error(1)
}

func (m *mockSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	args := m.Called(guildID, userID)
	member, _ := args.Get(0).(*discordgo.Member)
	return member, args.Error(1)
}

func (m *mockSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	args := m.Called(channelID)
	ch, _ := args.Get(0).(*discordgo.Channel)
	return ch, args.Error(1)
}

var self = &discordgo.User{ID: "999", Username: "bet_bot"}

func notFound() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func TestClient_SendToGuildChannel(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)

	session.On("Channel", "500").Return(&discordgo.Channel{ID: "500"}, nil).Once()
	session.On("ChannelMessageSendComplex", "500", mock.MatchedBy(func(data *discordgo.MessageSend) bool {
		row, ok := data.Components[0].(discordgo.ActionsRow)
		if !ok || len(row.Components) != 2 {
			return false
		}
		join := row.Components[0].(discordgo.Button)
		link := row.Components[1].(discordgo.Button)
		return data.Content == "New bet" &&
			data.Reference.MessageID == "7" &&
			join.CustomID == "bet_join_1" &&
			link.Style == discordgo.LinkButton
	})).Return(&discordgo.Message{ID: "800"}, nil).Twice()

	msg := models.OutboundMessage{
		ChatID:  500,
		Text:    "New bet",
		ReplyTo: 7,
		Buttons: [][]models.Button{{
			{Label: "Join", Data: "bet_join_1"},
			{Label: "Rules", URL: "https://example.com"},
		}},
	}
	ref, err := c.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, models.MessageRef{ChatID: 500, MessageID: 800}, ref)

	// The channel lookup is cached
	_, err = c.Send(context.Background(), msg)
	require.NoError(t, err)
	session.AssertExpectations(t)
}

func TestClient_SendToUserOpensDM(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)

	session.On("Channel", "100").Return(nil, notFound()).Once()
	session.On("UserChannelCreate", "100").Return(&discordgo.Channel{ID: "dm-100"}, nil).Once()
	session.On("ChannelMessageSendComplex", "dm-100", mock.MatchedBy(func(data *discordgo.MessageSend) bool {
		return data.Embeds[0].Image.URL == "https://cdn/receipt.png" && data.Components == nil
	})).Return(&discordgo.Message{ID: "801"}, nil).Once()

	ref, err := c.Send(context.Background(), models.OutboundMessage{ChatID: 100, Text: "receipt", PhotoRef: "https://cdn/receipt.png"})

	require.NoError(t, err)
	assert.True(t, ref.HasPhoto)
	session.AssertExpectations(t)
}

func TestClient_SendUsesRememberedDM(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)
	c.rememberDM(100, "dm-100")

	session.On("ChannelMessageSendComplex", "dm-100", mock.Anything).Return(&discordgo.Message{ID: "1"}, nil).Once()

	_, err := c.Send(context.Background(), models.OutboundMessage{ChatID: 100, Text: "hi"})
	require.NoError(t, err)
	session.AssertExpectations(t)
}

func TestClient_EditClearsButtons(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)
	c.rememberDM(100, "dm-100")

	session.On("ChannelMessageEditComplex", mock.MatchedBy(func(e *discordgo.MessageEdit) bool {
		return e.Channel == "dm-100" && e.ID == "801" && *e.Content == "✅ Approved." && len(*e.Components) == 0
	})).Return(&discordgo.Message{}, nil).Once()

	require.NoError(t, c.Edit(context.Background(), models.MessageRef{ChatID: 100, MessageID: 801}, "✅ Approved.", nil))
	session.AssertExpectations(t)
}

func TestClient_AnswerCallback(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)
	interaction := &discordgo.Interaction{ID: "i-1"}
	c.track(interaction)

	session.On("InteractionRespond", interaction, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Type == discordgo.InteractionResponseChannelMessageWithSource &&
			r.Data.Content == "nope" &&
			r.Data.Flags == discordgo.MessageFlagsEphemeral
	})).Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, c.AnswerCallback(ctx, models.CallbackAnswer{CallbackID: "i-1", Text: "nope", Alert: true}))
	assert.Error(t, c.AnswerCallback(ctx, models.CallbackAnswer{CallbackID: "i-1"}))
	session.AssertExpectations(t)
}

func TestClient_IsMember(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)
	guild := models.Channel{Handle: "700"}

	session.On("GuildMember", "700", "100").Return(&discordgo.Member{}, nil).Once()
	session.On("GuildMember", "700", "200").Return(nil, notFound()).Once()
	session.On("GuildMember", "700", "300").Return(nil, errors.New("HTTP 500")).Once()

	ctx := context.Background()
	member, err := c.IsMember(ctx, guild, 100)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = c.IsMember(ctx, guild, 200)
	require.NoError(t, err)
	assert.False(t, member)

	_, err = c.IsMember(ctx, guild, 300)
	assert.Error(t, err)
}

func TestClient_Verify(t *testing.T) {
	session := new(mockSession)
	c := NewClient(session, self)

	session.On("GuildMember", "700", "999").Return(&discordgo.Member{}, nil).Once()
	session.On("GuildMember", "701", "999").Return(nil, notFound()).Once()

	assert.NoError(t, c.Verify(context.Background(), models.Channel{Handle: "700"}))
	assert.Error(t, c.Verify(context.Background(), models.Channel{Handle: "701"}))
}

func TestClient_Identity(t *testing.T) {
	c := NewClient(new(mockSession), self)
	assert.Equal(t, "discord", c.Name())
	assert.Equal(t, "bet_bot", c.BotName())
	assert.Equal(t, "/start 42", c.ReferralLink(42))
}
