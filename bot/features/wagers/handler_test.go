package wagers

import (
	"context"
	"errors"
	"testing"

	"betbot/bot/common"
	"betbot/bot/testutil"
	"betbot/models"
	"betbot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	groupID  int64 = -100
	proposer int64 = 100
	joiner   int64 = 200
)

func newFeature(t *testing.T) (*Feature, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	f := New(env.Wagers, env.Ledger, env.Responder, testutil.Platform{}, 0)
	f.Attach(env.Bus)
	return f, env
}

func TestHandlePropose_PublishesAndAttaches(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 500)
	out := env.Record()

	require.NoError(t, f.HandlePropose(context.Background(), testutil.Message(proposer, groupID, "bet 200"), 200))

	sent := out.SentTo(groupID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "New bet (ID: 1)")
	assert.Contains(t, sent[0].Text, "200 credits")
	assert.Contains(t, sent[0].Text, "@bet_bot")
	assert.Empty(t, sent[0].PhotoRef)
	assert.Equal(t, "bet_join_1", sent[0].Buttons[0][0].Data)
	assert.Equal(t, "bet_cancel_1", sent[0].Buttons[0][1].Data)

	w, err := env.Wagers.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, w.Message)
	assert.Equal(t, testutil.SentRef, *w.Message)
}

func TestHandlePropose_InsufficientFunds(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 50)

	err := f.HandlePropose(context.Background(), testutil.Message(proposer, groupID, "bet 200"), 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))
	assert.Equal(t, "❌ Your balance is not enough for this bet.", common.UserMessage(err))
	assert.Empty(t, env.Wagers.Live(context.Background()))
}

func TestHandlePropose_PhotoFallsBackToText(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 500)
	env.Ledger.SetSetting(context.Background(), models.SettingBetPhotoFileID, "photo-1")

	env.Messenger.On("Send", mock.Anything, mock.MatchedBy(func(m models.OutboundMessage) bool {
		return m.PhotoRef == "photo-1"
	})).Return(models.MessageRef{}, errors.New("wrong file id")).Once()
	out := env.Record()

	require.NoError(t, f.HandlePropose(context.Background(), testutil.Message(proposer, groupID, "bet 100"), 100))

	sent := out.SentTo(groupID)
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].PhotoRef)
	assert.Len(t, env.Wagers.Live(context.Background()), 1)
}

func TestHandlePropose_SendFailureWithdrawsWager(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 500)
	env.Messenger.On("Send", mock.Anything, mock.Anything).Return(models.MessageRef{}, errors.New("chat not found")).Once()

	err := f.HandlePropose(context.Background(), testutil.Message(proposer, groupID, "bet 100"), 100)
	require.Error(t, err)
	assert.False(t, common.IsExpected(err))
	assert.Empty(t, env.Wagers.Live(context.Background()))
	assert.Equal(t, int64(500), env.Balance(t, proposer))
}

func TestHandleCallback_JoinSettlesAndReveals(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 500)
	env.Fund(t, joiner, 500)
	env.Random.On("Intn", 2).Return(0, nil).Once()
	out := env.Record()

	ctx := context.Background()
	require.NoError(t, f.HandlePropose(ctx, testutil.Message(proposer, groupID, "bet 100"), 100))

	handled, err := f.HandleCallback(ctx, testutil.Callback(joiner, "bet_join_1", testutil.SentRef))
	require.NoError(t, err)
	assert.True(t, handled)
	f.Wait()

	answers := out.Answers()
	require.Len(t, answers, 1)
	assert.False(t, answers[0].Alert)

	edits := out.Edits()
	require.Len(t, edits, 2)
	assert.Equal(t, selectingText, edits[0].Text)
	assert.Contains(t, edits[1].Text, "Winner: user100")
	assert.Contains(t, edits[1].Text, "Loser: user200")
	assert.Contains(t, edits[1].Text, "Prize: 196 credits")
	assert.Contains(t, edits[1].Text, "Tax: 4 credits")
	assert.Nil(t, edits[1].Buttons)

	assert.Equal(t, int64(596), env.Balance(t, proposer))
	assert.Equal(t, int64(400), env.Balance(t, joiner))
}

func TestHandleCallback_JoinRefusals(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 500)
	env.Fund(t, joiner, 10)
	env.Record()

	ctx := context.Background()
	require.NoError(t, f.HandlePropose(ctx, testutil.Message(proposer, groupID, "bet 100"), 100))

	_, err := f.HandleCallback(ctx, testutil.Callback(proposer, "bet_join_1", testutil.SentRef))
	assert.Equal(t, "You cannot join your own bet.", common.UserMessage(err))

	_, err = f.HandleCallback(ctx, testutil.Callback(joiner, "bet_join_1", testutil.SentRef))
	assert.True(t, errors.Is(err, models.ErrInsufficientFunds))
	assert.True(t, common.IsExpected(err))

	w, err := env.Wagers.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.WagerStatePending, w.State)
}

func TestHandleCallback_StaleWager(t *testing.T) {
	f, env := newFeature(t)
	out := env.Record()

	handled, err := f.HandleCallback(context.Background(), testutil.Callback(joiner, "bet_join_42", testutil.SentRef))
	require.NoError(t, err)
	assert.True(t, handled)

	edits := out.Edits()
	require.Len(t, edits, 1)
	assert.Equal(t, "This bet is no longer active.", edits[0].Text)
}

func TestHandleCallback_Cancel(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 500)
	out := env.Record()

	ctx := context.Background()
	require.NoError(t, f.HandlePropose(ctx, testutil.Message(proposer, groupID, "bet 100"), 100))

	_, err := f.HandleCallback(ctx, testutil.Callback(joiner, "bet_cancel_1", testutil.SentRef))
	assert.Equal(t, "You did not start this bet.", common.UserMessage(err))

	_, err = f.HandleCallback(ctx, testutil.Callback(proposer, "bet_cancel_1", testutil.SentRef))
	require.NoError(t, err)

	edits := out.Edits()
	require.Len(t, edits, 1)
	assert.Equal(t, "❌ Bet cancelled by user100.", edits[0].Text)
	assert.Empty(t, env.Wagers.Live(ctx))
	env.Scheduler.AssertCalled(t, "Cancel", service.ExpiryTag(1))
}

func TestExpiry_EditsMessage(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, proposer, 2000)
	out := env.Record()

	ctx := context.Background()
	require.NoError(t, f.HandlePropose(ctx, testutil.Message(proposer, groupID, "bet 1500"), 1500))

	fire, ok := env.Scheduler.Job(service.ExpiryTag(1))
	require.True(t, ok)
	fire()
	env.Drain(t)

	edits := out.Edits()
	require.Len(t, edits, 1)
	assert.Equal(t, "⏰ The bet of 1,500 credits expired.", edits[0].Text)
	assert.Equal(t, testutil.SentRef, edits[0].Ref)
}

func TestHandleCallback_Unrelated(t *testing.T) {
	f, _ := newFeature(t)
	handled, err := f.HandleCallback(context.Background(), testutil.Callback(joiner, "tx_approve_1", testutil.SentRef))
	assert.NoError(t, err)
	assert.False(t, handled)
}
