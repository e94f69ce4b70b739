package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"betbot/events"
	"betbot/models"
	"betbot/repository"

	"github.com/stretchr/testify/require"
)

const testOwnerID int64 = 1

type testEnv struct {
	bus      *events.Bus
	accounts *repository.AccountStore
	settings *repository.SettingsStore
	ledger   LedgerService
	guard    *AccessGuard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bus := events.NewBus()
	accounts := repository.NewAccountStore()
	settings := repository.NewSettingsStore(models.DefaultSettings())
	ledger := NewLedgerService(accounts, settings, bus, testOwnerID, time.UTC)

	return &testEnv{
		bus:      bus,
		accounts: accounts,
		settings: settings,
		ledger:   ledger,
		guard:    NewAccessGuard(ledger),
	}
}

// fund sets a user's balance through the owner
func (e *testEnv) fund(t *testing.T, userID, balance int64) {
	t.Helper()
	_, err := e.ledger.SetBalance(context.Background(), testOwnerID, userID, balance)
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	acct, err := e.ledger.GetOrCreateAccount(context.Background(), userID)
	require.NoError(t, err)
	return acct.Balance
}

// drain waits for every emitted event to reach its handlers
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.bus.Drain(ctx))
}

// eventRecorder collects events of the given types
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *testEnv) record(types ...events.EventType) *eventRecorder {
	r := &eventRecorder{}
	e.bus.SubscribeAll(func(ctx context.Context, ev events.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}, types...)
	return r
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) count(t events.EventType) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Type() == t {
			n++
		}
	}
	return n
}
