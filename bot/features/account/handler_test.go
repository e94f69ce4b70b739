package account

import (
	"context"
	"regexp"
	"testing"

	"betbot/bot/common"
	"betbot/bot/testutil"
	"betbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	groupID   int64 = -100
	alice     int64 = 100
	bob       int64 = 200
	moderator int64 = 300
)

func newFeature(t *testing.T) (*Feature, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	return New(env.Ledger, env.Guard, env.Stats, env.Responder, testutil.Platform{}), env
}

func replyTo(u common.Update, id int64) common.Update {
	u.ReplyTo = &common.User{ID: id, Name: "target"}
	return u
}

func TestHandleStart_Referral(t *testing.T) {
	f, env := newFeature(t)
	out := env.Record()
	ctx := context.Background()
	before := env.Balance(t, alice)

	require.NoError(t, f.HandleStart(ctx, testutil.Message(bob, bob, "/start 100"), []string{"100"}))
	assert.Equal(t, before+models.DefaultReferralReward, env.Balance(t, alice))

	notices := out.SentTo(alice)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "user200 joined through your link")

	// The reward is paid once
	require.NoError(t, f.HandleStart(ctx, testutil.Message(bob, bob, "/start 100"), []string{"100"}))
	assert.Equal(t, before+models.DefaultReferralReward, env.Balance(t, alice))
	assert.Len(t, out.SentTo(alice), 1)
	assert.Len(t, out.SentTo(bob), 2)
}

func TestHandleStart_IgnoresMalformedAndSelfReferral(t *testing.T) {
	f, env := newFeature(t)
	out := env.Record()
	ctx := context.Background()

	require.NoError(t, f.HandleStart(ctx, testutil.Message(bob, bob, "/start abc"), []string{"abc"}))
	require.NoError(t, f.HandleStart(ctx, testutil.Message(bob, bob, "/start 200"), []string{"200"}))

	assert.Equal(t, models.DefaultInitialBalance, env.Balance(t, bob))
	assert.Len(t, out.SentTo(bob), 2)
}

func TestHandleStart_AdminSeesStats(t *testing.T) {
	f, env := newFeature(t)
	out := env.Record()

	require.NoError(t, f.HandleStart(context.Background(), testutil.Message(testutil.OwnerID, testutil.OwnerID, "/start"), nil))
	msgs := out.SentTo(testutil.OwnerID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "admin panel")
	assert.Contains(t, msgs[0].Text, "Total users")
}

func TestHandleBalance_Private(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, alice, 25)
	out := env.Record()

	require.NoError(t, f.HandleBalance(context.Background(), testutil.Message(alice, alice, "/balance")))
	msgs := out.SentTo(alice)
	require.Len(t, msgs, 1)
	assert.Equal(t, "💰 Your balance: 25 credits\nEquivalent: 25,000 toman", msgs[0].Text)
}

func TestHandleBalance_GroupStaffSeesRepliedUser(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, alice, 25)
	env.Fund(t, bob, 70)
	env.Promote(t, moderator, models.RoleModerator)
	out := env.Record()
	ctx := context.Background()

	// A regular user replying still sees their own balance
	require.NoError(t, f.HandleBalance(ctx, replyTo(testutil.Message(alice, groupID, "balance"), bob)))
	require.NoError(t, f.HandleBalance(ctx, replyTo(testutil.Message(moderator, groupID, "balance"), bob)))

	msgs := out.SentTo(groupID)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "User: user100")
	assert.Contains(t, msgs[0].Text, "Credit balance: 25")
	assert.Contains(t, msgs[1].Text, "User: target")
	assert.Contains(t, msgs[1].Text, "Credit balance: 70")
	assert.Equal(t, int64(10), msgs[1].ReplyTo)
}

func TestHandleReferral(t *testing.T) {
	f, env := newFeature(t)
	out := env.Record()

	require.NoError(t, f.HandleReferral(context.Background(), testutil.Message(alice, alice, "/referral")))
	msgs := out.SentTo(alice)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "https://t.me/bet_bot?start=100")
	assert.Contains(t, msgs[0].Text, "5 credits")
}

func TestHandleTransfer(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, alice, 100)
	env.Fund(t, bob, 0)
	out := env.Record()
	ctx := context.Background()

	// Without a reply there is nobody to pay
	handled, err := f.HandleTransfer(ctx, testutil.Message(alice, groupID, "transfer 10"), 10)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, out.Sent())

	handled, err = f.HandleTransfer(ctx, replyTo(testutil.Message(alice, groupID, "transfer 40"), bob), 40)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, int64(60), env.Balance(t, alice))
	assert.Equal(t, int64(40), env.Balance(t, bob))

	_, err = f.HandleTransfer(ctx, replyTo(testutil.Message(alice, groupID, "transfer 400"), bob), 400)
	assert.Equal(t, "❌ Your balance is not enough.", common.UserMessage(err))

	_, err = f.HandleTransfer(ctx, replyTo(testutil.Message(alice, groupID, "transfer 1"), alice), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(60), env.Balance(t, alice))

	msgs := out.SentTo(groupID)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "Transfer complete")
	assert.Equal(t, "You cannot transfer credits to yourself.", msgs[1].Text)
}

func TestHandleDeduct(t *testing.T) {
	f, env := newFeature(t)
	env.Fund(t, bob, 100)
	env.Promote(t, moderator, models.RoleModerator)
	out := env.Record()
	ctx := context.Background()

	// Regular users are ignored without a reply
	handled, err := f.HandleDeduct(ctx, replyTo(testutil.Message(alice, groupID, "deduct 10"), bob), 10)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, out.Sent())
	assert.Equal(t, int64(100), env.Balance(t, bob))

	handled, err = f.HandleDeduct(ctx, replyTo(testutil.Message(moderator, groupID, "deduct 30"), bob), 30)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, int64(70), env.Balance(t, bob))

	_, err = f.HandleDeduct(ctx, replyTo(testutil.Message(moderator, groupID, "deduct 300"), bob), 300)
	assert.Contains(t, common.UserMessage(err), "does not have enough balance")

	_, err = f.HandleDeduct(ctx, replyTo(testutil.Message(moderator, groupID, "deduct 1"), moderator), 1)
	require.NoError(t, err)
	_, err = f.HandleDeduct(ctx, replyTo(testutil.Message(moderator, groupID, "deduct 1"), testutil.OwnerID), 1)
	require.NoError(t, err)
	assert.Equal(t, models.SentinelBalance, env.Balance(t, testutil.OwnerID))

	msgs := out.SentTo(groupID)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Text, "30 credits deducted from target")
	assert.Regexp(t, regexp.MustCompile(`⏰ \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`), msgs[0].Text)
	assert.Equal(t, "You cannot deduct credits from yourself.", msgs[1].Text)
	assert.Equal(t, "You cannot deduct credits from the owner.", msgs[2].Text)
}
