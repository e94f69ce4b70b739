package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"betbot/events"
	"betbot/models"
	"betbot/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminID int64 = 50

func newDepositEnv(t *testing.T) (*testEnv, DepositService) {
	t.Helper()
	env := newTestEnv(t)
	_, err := env.ledger.SetRole(context.Background(), testOwnerID, testAdminID, models.RoleAdmin)
	require.NoError(t, err)
	return env, NewDepositService(repository.NewDepositStore(), env.ledger, env.guard, env.bus)
}

func TestDepositService_Quote(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	env.ledger.SetSetting(ctx, models.SettingCardNumber, "6037-0000-1111-2222")
	env.ledger.SetSetting(ctx, models.SettingCardHolder, "Sara")

	quote, err := deposits.Quote(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.Price)
	assert.Equal(t, int64(30000), quote.TotalCost)
	assert.Equal(t, "6037-0000-1111-2222", quote.CardNumber)
	assert.Equal(t, "Sara", quote.CardHolder)

	_, err = deposits.Quote(ctx, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDepositService_Quote_TooLargeToPrice(t *testing.T) {
	ctx := context.Background()
	_, deposits := newDepositEnv(t)

	quote, err := deposits.Quote(ctx, math.MaxInt64/100)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Nil(t, quote)

	quote, err = deposits.Quote(ctx, math.MaxInt64/1000)
	require.NoError(t, err)
	assert.Positive(t, quote.TotalCost)
}

func TestDepositService_Submit(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	rec := env.record(events.EventTypeDepositSubmitted)

	d, err := deposits.Submit(ctx, 100, 50, "photo-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
	assert.Equal(t, models.DepositStatusPending, d.Status)

	d2, err := deposits.Submit(ctx, 100, 20, "photo-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), d2.ID)

	assert.Equal(t, 2, deposits.PendingCount(ctx))
	assert.Len(t, deposits.Pending(ctx), 2)

	env.drain(t)
	assert.Equal(t, 2, rec.count(events.EventTypeDepositSubmitted))
}

func TestDepositService_Submit_Validation(t *testing.T) {
	ctx := context.Background()
	_, deposits := newDepositEnv(t)

	_, err := deposits.Submit(ctx, 100, 0, "photo")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = deposits.Submit(ctx, 100, 10, "  ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDepositService_Resolve_Approve(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	d, err := deposits.Submit(ctx, 100, 50, "photo")
	require.NoError(t, err)

	resolved, err := deposits.Resolve(ctx, d.ID, models.DecisionApprove, testAdminID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, testAdminID, *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	assert.Equal(t, int64(60), env.balance(t, 100))
	assert.Equal(t, 0, deposits.PendingCount(ctx))
}

func TestDepositService_Resolve_ApproveOverflowKeepsPending(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	env.fund(t, 42, math.MaxInt64-5)
	d, err := deposits.Submit(ctx, 42, 10, "photo")
	require.NoError(t, err)

	_, err = deposits.Resolve(ctx, d.ID, models.DecisionApprove, testAdminID)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.NotErrorIs(t, err, models.ErrInsufficientFunds)

	assert.Equal(t, int64(math.MaxInt64-5), env.balance(t, 42))
	assert.Equal(t, 1, deposits.PendingCount(ctx))
}

func TestDepositService_Resolve_Reject(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	d, err := deposits.Submit(ctx, 100, 50, "photo")
	require.NoError(t, err)

	resolved, err := deposits.Resolve(ctx, d.ID, models.DecisionReject, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusRejected, resolved.Status)
	assert.Equal(t, int64(10), env.balance(t, 100))
}

func TestDepositService_Resolve_Twice(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	rec := env.record(events.EventTypeDepositResolved)
	d, err := deposits.Submit(ctx, 100, 50, "photo")
	require.NoError(t, err)

	_, err = deposits.Resolve(ctx, d.ID, models.DecisionReject, testAdminID)
	require.NoError(t, err)

	_, err = deposits.Resolve(ctx, d.ID, models.DecisionApprove, testOwnerID)
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)

	assert.Equal(t, int64(10), env.balance(t, 100))
	env.drain(t)
	assert.Equal(t, 1, rec.count(events.EventTypeDepositResolved))
}

func TestDepositService_Resolve_ConcurrentExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	d, err := deposits.Submit(ctx, 100, 50, "photo")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, alreadyResolved := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := models.DecisionApprove
			if i%2 == 1 {
				decision = models.DecisionReject
			}
			_, err := deposits.Resolve(ctx, d.ID, decision, testAdminID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, models.ErrAlreadyResolved):
				alreadyResolved++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 19, alreadyResolved)

	balance := env.balance(t, 100)
	assert.True(t, balance == 10 || balance == 60, "balance %d", balance)
}

func TestDepositService_Resolve_NotAdmin(t *testing.T) {
	ctx := context.Background()
	env, deposits := newDepositEnv(t)
	_, err := env.ledger.SetRole(ctx, testOwnerID, 60, models.RoleModerator)
	require.NoError(t, err)
	d, err := deposits.Submit(ctx, 100, 50, "photo")
	require.NoError(t, err)

	_, err = deposits.Resolve(ctx, d.ID, models.DecisionApprove, 60)
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	_, err = deposits.Resolve(ctx, d.ID, models.DecisionApprove, 100)
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	assert.Equal(t, 1, deposits.PendingCount(ctx))
}

func TestDepositService_Resolve_Unknown(t *testing.T) {
	ctx := context.Background()
	_, deposits := newDepositEnv(t)

	_, err := deposits.Resolve(ctx, 404, models.DecisionApprove, testAdminID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = deposits.Resolve(ctx, 1, models.Decision("maybe"), testAdminID)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
