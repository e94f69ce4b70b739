package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"betbot/models"
	"betbot/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	newsChannel = models.Channel{Handle: "@news", Link: "https://t.me/news"}
	chatChannel = models.Channel{Handle: "@chat", Link: "https://t.me/chat"}
)

type gateEnv struct {
	*testEnv
	channels  *repository.ChannelStore
	provider  *MockMembershipProvider
	messenger *MockMessenger
	gate      *MembershipGate
}

func newGateEnv(t *testing.T, locked bool, channels ...models.Channel) *gateEnv {
	t.Helper()
	env := newTestEnv(t)
	store := repository.NewChannelStore()
	for _, ch := range channels {
		store.Put(ch)
	}
	if locked {
		env.ledger.SetSetting(context.Background(), models.SettingForcedChannelLock, "true")
	}

	provider := new(MockMembershipProvider)
	messenger := new(MockMessenger)
	return &gateEnv{
		testEnv:   env,
		channels:  store,
		provider:  provider,
		messenger: messenger,
		gate:      NewMembershipGate(env.ledger, store, provider, messenger),
	}
}

func sentTo(chatID int64) interface{} {
	return mock.MatchedBy(func(msg models.OutboundMessage) bool { return msg.ChatID == chatID })
}

func TestMembershipGate_OwnerExempt(t *testing.T) {
	env := newGateEnv(t, true, newsChannel)

	result, err := env.gate.Check(context.Background(), GateRequest{UserID: testOwnerID, ChatID: testOwnerID})
	require.NoError(t, err)
	assert.Equal(t, RouteContinue, result)
	env.provider.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestMembershipGate_Bypassed(t *testing.T) {
	tests := []struct {
		name     string
		locked   bool
		channels []models.Channel
	}{
		{"lock off", false, []models.Channel{newsChannel}},
		{"no channels", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newGateEnv(t, tt.locked, tt.channels...)

			result, err := env.gate.Check(context.Background(), GateRequest{UserID: 100, ChatID: 100})
			require.NoError(t, err)
			assert.Equal(t, RouteContinue, result)
			env.provider.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
			env.messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		})
	}
}

// Member of @news but not @chat: blocked with a prompt naming only @chat,
// then let through after joining and pressing the recheck button
func TestMembershipGate_TwoChannels_PromptThenRecheck(t *testing.T) {
	ctx := context.Background()
	env := newGateEnv(t, true, newsChannel, chatChannel)

	env.provider.On("IsMember", mock.Anything, newsChannel, int64(100)).Return(true, nil)
	env.provider.On("IsMember", mock.Anything, chatChannel, int64(100)).Return(false, nil).Once()
	env.provider.On("IsMember", mock.Anything, chatChannel, int64(100)).Return(true, nil)

	var prompt models.OutboundMessage
	env.messenger.On("Send", mock.Anything, sentTo(-100)).Run(func(args mock.Arguments) {
		prompt = args.Get(1).(models.OutboundMessage)
	}).Return(models.MessageRef{ChatID: -100, MessageID: 9}, nil).Once()

	result, err := env.gate.Check(ctx, GateRequest{UserID: 100, ChatID: -100, MessageID: 8})
	require.NoError(t, err)
	assert.Equal(t, RouteBlocked, result)

	assert.Contains(t, prompt.Text, "@chat")
	assert.NotContains(t, prompt.Text, "@news")
	assert.Equal(t, int64(8), prompt.ReplyTo)
	require.Len(t, prompt.Buttons, 2)
	assert.Equal(t, "https://t.me/chat", prompt.Buttons[0][0].URL)
	assert.Equal(t, CallbackCheckMembership, prompt.Buttons[1][0].Data)

	// The user joins @chat and rechecks
	source := models.MessageRef{ChatID: 100, MessageID: 9}
	env.messenger.On("AnswerCallback", mock.Anything, mock.Anything).Return(nil)
	env.messenger.On("Delete", mock.Anything, source).Return(nil).Once()
	env.messenger.On("Send", mock.Anything, sentTo(100)).Return(models.MessageRef{}, nil).Once()

	result, err = env.gate.Check(ctx, GateRequest{
		UserID:     100,
		ChatID:     100,
		CallbackID: "cb-1",
		Data:       CallbackCheckMembership,
		Source:     &source,
	})
	require.NoError(t, err)
	assert.Equal(t, RouteHandled, result)

	// The next event passes without any prompt
	result, err = env.gate.Check(ctx, GateRequest{UserID: 100, ChatID: -100})
	require.NoError(t, err)
	assert.Equal(t, RouteContinue, result)

	env.messenger.AssertExpectations(t)
	env.messenger.AssertNumberOfCalls(t, "Send", 2)
}

func TestMembershipGate_RecheckStillMissing(t *testing.T) {
	ctx := context.Background()
	env := newGateEnv(t, true, newsChannel, chatChannel)
	env.provider.On("IsMember", mock.Anything, newsChannel, int64(100)).Return(false, nil)
	env.provider.On("IsMember", mock.Anything, chatChannel, int64(100)).Return(true, nil)

	source := models.MessageRef{ChatID: 100, MessageID: 9}
	env.messenger.On("AnswerCallback", mock.Anything, mock.MatchedBy(func(a models.CallbackAnswer) bool {
		return a.CallbackID == "cb-1" && a.Alert
	})).Return(nil).Once()
	env.messenger.On("Edit", mock.Anything, source, mock.Anything, mock.MatchedBy(func(rows [][]models.Button) bool {
		return len(rows) == 2 && rows[0][0].URL == newsChannel.Link
	})).Return(nil).Once()

	result, err := env.gate.Check(ctx, GateRequest{
		UserID:     100,
		ChatID:     100,
		CallbackID: "cb-1",
		Data:       CallbackCheckMembership,
		Source:     &source,
	})
	require.NoError(t, err)
	assert.Equal(t, RouteBlocked, result)
	env.messenger.AssertExpectations(t)
	env.messenger.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestMembershipGate_ProviderErrorFailsClosedAndAlertsOwner(t *testing.T) {
	ctx := context.Background()
	env := newGateEnv(t, true, newsChannel)
	env.provider.On("IsMember", mock.Anything, newsChannel, int64(100)).Return(false, errors.New("bot is not an admin"))

	env.messenger.On("Send", mock.Anything, sentTo(100)).Return(models.MessageRef{}, nil).Once()
	env.messenger.On("Send", mock.Anything, mock.MatchedBy(func(msg models.OutboundMessage) bool {
		return msg.ChatID == testOwnerID && strings.Contains(msg.Text, "@news")
	})).Return(models.MessageRef{}, errors.New("owner blocked the bot")).Once()

	result, err := env.gate.Check(ctx, GateRequest{UserID: 100, ChatID: 100})
	require.NoError(t, err)
	assert.Equal(t, RouteBlocked, result)

	env.gate.WaitAlerts()
	env.messenger.AssertExpectations(t)
}

func TestMembershipGate_ButtonWhileGated(t *testing.T) {
	ctx := context.Background()
	env := newGateEnv(t, true, newsChannel)
	env.provider.On("IsMember", mock.Anything, newsChannel, int64(100)).Return(false, nil)

	env.messenger.On("AnswerCallback", mock.Anything, mock.MatchedBy(func(a models.CallbackAnswer) bool {
		return a.Alert
	})).Return(nil).Once()
	env.messenger.On("Send", mock.Anything, mock.MatchedBy(func(msg models.OutboundMessage) bool {
		return msg.ChatID == 100 && msg.ReplyTo == 0
	})).Return(models.MessageRef{}, nil).Once()

	result, err := env.gate.Check(ctx, GateRequest{UserID: 100, ChatID: -100, CallbackID: "cb-2", Data: "bet_join_1"})
	require.NoError(t, err)
	assert.Equal(t, RouteBlocked, result)
	env.messenger.AssertExpectations(t)
}

func TestMembershipGate_StaleRecheckAfterUnlock(t *testing.T) {
	ctx := context.Background()
	env := newGateEnv(t, false, newsChannel)

	source := models.MessageRef{ChatID: 100, MessageID: 9}
	env.messenger.On("AnswerCallback", mock.Anything, mock.Anything).Return(nil).Once()
	env.messenger.On("Delete", mock.Anything, source).Return(nil).Once()

	result, err := env.gate.Check(ctx, GateRequest{
		UserID:     100,
		CallbackID: "cb-3",
		Data:       CallbackCheckMembership,
		Source:     &source,
	})
	require.NoError(t, err)
	assert.Equal(t, RouteHandled, result)
	env.messenger.AssertExpectations(t)
}

func TestRouteResult_String(t *testing.T) {
	assert.Equal(t, "continue", RouteContinue.String())
	assert.Equal(t, "handled", RouteHandled.String())
	assert.Equal(t, "blocked", RouteBlocked.String())
}
