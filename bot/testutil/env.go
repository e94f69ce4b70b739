package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"betbot/bot/common"
	"betbot/events"
	"betbot/models"
	"betbot/repository"
	"betbot/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// OwnerID is the owner identity of every test environment
const OwnerID int64 = 1

// SentRef is what the recording messenger returns for every Send
var SentRef = models.MessageRef{ChatID: -100, MessageID: 1000}

// Platform is a fixed Telegram-like bot identity
type Platform struct{}

func (Platform) Name() string    { return "telegram" }
func (Platform) BotName() string { return "bet_bot" }
func (Platform) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/bet_bot?start=%d", userID)
}

// Env wires the real services over in-memory stores with mocked
// platform collaborators
type Env struct {
	Bus       *events.Bus
	Ledger    service.LedgerService
	Guard     *service.AccessGuard
	Wagers    service.WagerService
	Deposits  service.DepositService
	Settings  service.SettingsService
	Channels  service.ChannelService
	Stats     service.StatsService
	Gate      *service.MembershipGate
	Scheduler *service.MockScheduler
	Random    *service.MockRandomSource
	Messenger *service.MockMessenger
	Provider  *service.MockMembershipProvider
	Responder *common.Responder
	Sessions  *common.SessionStore

	ChannelStore *repository.ChannelStore
}

// NewEnv builds a fresh environment. The scheduler accepts every job.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	bus := events.NewBus()
	ledger := service.NewLedgerService(repository.NewAccountStore(), repository.NewSettingsStore(models.DefaultSettings()), bus, OwnerID, time.UTC)
	guard := service.NewAccessGuard(ledger)

	scheduler := new(service.MockScheduler)
	scheduler.On("ScheduleOnce", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	scheduler.On("Cancel", mock.Anything).Return()

	random := new(service.MockRandomSource)
	messenger := new(service.MockMessenger)
	provider := new(service.MockMembershipProvider)
	channels := repository.NewChannelStore()

	wagers := service.NewWagerService(repository.NewWagerStore(), ledger, scheduler, random, bus, service.DefaultWagerTimeout)
	deposits := service.NewDepositService(repository.NewDepositStore(), ledger, guard, bus)

	return &Env{
		Bus:          bus,
		Ledger:       ledger,
		Guard:        guard,
		Wagers:       wagers,
		Deposits:     deposits,
		Settings:     service.NewSettingsService(ledger, guard, bus),
		Channels:     service.NewChannelService(channels, provider, guard),
		Stats:        service.NewStatsService(ledger, deposits, wagers, bus),
		Gate:         service.NewMembershipGate(ledger, channels, provider, messenger),
		Scheduler:    scheduler,
		Random:       random,
		Messenger:    messenger,
		Provider:     provider,
		Responder:    common.NewResponder(messenger, OwnerID),
		Sessions:     common.NewSessionStore(),
		ChannelStore: channels,
	}
}

// Fund sets a user's balance through the owner
func (e *Env) Fund(t *testing.T, userID, balance int64) {
	t.Helper()
	_, err := e.Ledger.SetBalance(context.Background(), OwnerID, userID, balance)
	require.NoError(t, err)
}

// Promote assigns a role through the owner
func (e *Env) Promote(t *testing.T, userID int64, role models.Role) {
	t.Helper()
	_, err := e.Ledger.SetRole(context.Background(), OwnerID, userID, role)
	require.NoError(t, err)
}

func (e *Env) Balance(t *testing.T, userID int64) int64 {
	t.Helper()
	acct, err := e.Ledger.GetOrCreateAccount(context.Background(), userID)
	require.NoError(t, err)
	return acct.Balance
}

// Drain waits for every emitted event to reach its handlers
func (e *Env) Drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Bus.Drain(ctx))
}

// Edit is one recorded message edit
type Edit struct {
	Ref     models.MessageRef
	Text    string
	Buttons [][]models.Button
}

// Outbox records the effects published through the mock messenger
type Outbox struct {
	mu      sync.Mutex
	sent    []models.OutboundMessage
	edits   []Edit
	answers []models.CallbackAnswer
	deleted []models.MessageRef
}

// Record registers catch-all messenger expectations that succeed and
// capture their arguments. Expectations registered before Record take
// precedence.
func (e *Env) Record() *Outbox {
	out := &Outbox{}
	e.Messenger.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out.mu.Lock()
		defer out.mu.Unlock()
		out.sent = append(out.sent, args.Get(1).(models.OutboundMessage))
	}).Return(SentRef, nil).Maybe()
	e.Messenger.On("Edit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out.mu.Lock()
		defer out.mu.Unlock()
		buttons, _ := args.Get(3).([][]models.Button)
		out.edits = append(out.edits, Edit{Ref: args.Get(1).(models.MessageRef), Text: args.String(2), Buttons: buttons})
	}).Return(nil).Maybe()
	e.Messenger.On("AnswerCallback", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out.mu.Lock()
		defer out.mu.Unlock()
		out.answers = append(out.answers, args.Get(1).(models.CallbackAnswer))
	}).Return(nil).Maybe()
	e.Messenger.On("Delete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out.mu.Lock()
		defer out.mu.Unlock()
		out.deleted = append(out.deleted, args.Get(1).(models.MessageRef))
	}).Return(nil).Maybe()
	return out
}

func (o *Outbox) Sent() []models.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.OutboundMessage(nil), o.sent...)
}

// SentTo returns the messages addressed to chatID
func (o *Outbox) SentTo(chatID int64) []models.OutboundMessage {
	var out []models.OutboundMessage
	for _, m := range o.Sent() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (o *Outbox) Edits() []Edit {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Edit(nil), o.edits...)
}

func (o *Outbox) Answers() []models.CallbackAnswer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.CallbackAnswer(nil), o.answers...)
}

func (o *Outbox) Deleted() []models.MessageRef {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.MessageRef(nil), o.deleted...)
}

// Message builds a group or private text update
func Message(from int64, chatID int64, text string) common.Update {
	return common.Update{
		ID:        fmt.Sprintf("test-%d-%d", from, chatID),
		From:      common.User{ID: from, Name: fmt.Sprintf("user%d", from)},
		ChatID:    chatID,
		Private:   chatID == from,
		MessageID: 10,
		Text:      text,
	}
}

// Callback builds a button click on source
func Callback(from int64, data string, source models.MessageRef) common.Update {
	return common.Update{
		ID:         fmt.Sprintf("test-cb-%d", from),
		From:       common.User{ID: from, Name: fmt.Sprintf("user%d", from)},
		ChatID:     source.ChatID,
		Private:    source.ChatID == from,
		CallbackID: fmt.Sprintf("cb-%d", from),
		Data:       data,
		Source:     &source,
	}
}
