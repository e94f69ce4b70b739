package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"betbot/events"
	"betbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_GetOrCreateAccount_StartingBalances(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	owner, err := env.ledger.GetOrCreateAccount(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.Equal(t, models.SentinelBalance, owner.Balance)

	user, err := env.ledger.GetOrCreateAccount(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegular, user.Role)
	assert.Equal(t, models.DefaultInitialBalance, user.Balance)

	// Existing accounts are returned as they are
	again, err := env.ledger.GetOrCreateAccount(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, user.CreatedAt, again.CreatedAt)
}

func TestLedgerService_GetOrCreateAccount_InitialBalanceSetting(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.ledger.SetSetting(ctx, models.SettingInitialBalance, "250")
	acct, err := env.ledger.GetOrCreateAccount(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(250), acct.Balance)

	env.ledger.SetSetting(ctx, models.SettingInitialBalance, "lots")
	acct, err = env.ledger.GetOrCreateAccount(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(10), acct.Balance)
}

func TestLedgerService_GetOrCreateAccount_EmitsCreationEvents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rec := env.record(events.EventTypeAccountCreated, events.EventTypeBalanceChange)

	_, err := env.ledger.GetOrCreateAccount(ctx, 100)
	require.NoError(t, err)
	_, err = env.ledger.GetOrCreateAccount(ctx, 100)
	require.NoError(t, err)
	env.drain(t)

	assert.Equal(t, 1, rec.count(events.EventTypeAccountCreated))
	assert.Equal(t, 1, rec.count(events.EventTypeBalanceChange))
}

func TestLedgerService_AdjustBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	balance, err := env.ledger.AdjustBalance(ctx, 100, 15, models.TransactionTypeAdjustment)
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance)

	balance, err = env.ledger.AdjustBalance(ctx, 100, -25, models.TransactionTypeAdjustment)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestLedgerService_AdjustBalance_RejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledger.AdjustBalance(ctx, 100, -11, models.TransactionTypeAdjustment)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, int64(10), env.balance(t, 100))
}

func TestLedgerService_AdjustBalance_RejectsOverflowingCredit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 100, math.MaxInt64-5)

	_, err := env.ledger.AdjustBalance(ctx, 100, 10, models.TransactionTypeAdjustment)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, int64(math.MaxInt64-5), env.balance(t, 100))

	balance, err := env.ledger.AdjustBalance(ctx, 100, 5, models.TransactionTypeAdjustment)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), balance)
}

func TestLedgerService_AdjustBalance_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 100, 20)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.ledger.AdjustBalance(ctx, 100, -1, models.TransactionTypeAdjustment); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, succeeded)
	assert.Equal(t, int64(0), env.balance(t, 100))
}

func TestLedgerService_Post_FailedBatchChangesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 100, 50)
	env.fund(t, 200, 5)

	_, err := env.ledger.Post(ctx, []Posting{
		{UserID: 100, Delta: -20, Type: models.TransactionTypeWagerStake},
		{UserID: 200, Delta: -20, Type: models.TransactionTypeWagerStake},
		{UserID: 200, Delta: 40, Type: models.TransactionTypeWagerPrize},
	}, nil)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	assert.Equal(t, int64(50), env.balance(t, 100))
	assert.Equal(t, int64(5), env.balance(t, 200))
}

func TestLedgerService_Post_EmitsOneEventPerPosting(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 100, 50)
	env.fund(t, 200, 50)
	rec := env.record(events.EventTypeBalanceChange)

	related := &Related{ID: 9, Type: models.RelatedTypeWager}
	_, err := env.ledger.Post(ctx, []Posting{
		{UserID: 100, Delta: -20, Type: models.TransactionTypeWagerStake},
		{UserID: 200, Delta: -20, Type: models.TransactionTypeWagerStake},
		{UserID: 200, Delta: 40, Type: models.TransactionTypeWagerPrize},
	}, related)
	require.NoError(t, err)
	env.drain(t)

	got := rec.all()
	require.Len(t, got, 3)
	for _, ev := range got {
		change := ev.(events.BalanceChangeEvent)
		require.NotNil(t, change.RelatedID)
		assert.Equal(t, int64(9), *change.RelatedID)
		assert.Equal(t, models.RelatedTypeWager, *change.RelatedType)
	}
}

func TestLedgerService_Post_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.Post(context.Background(), nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLedgerService_SetRole_PromoteAndDemote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 42, 777)

	acct, err := env.ledger.SetRole(ctx, testOwnerID, 42, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, acct.Role)
	assert.Equal(t, models.SentinelBalance, acct.Balance)

	acct, err = env.ledger.SetRole(ctx, testOwnerID, 42, models.RoleRegular)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegular, acct.Role)
	assert.Equal(t, int64(10), acct.Balance)
	assert.Equal(t, int64(10), env.balance(t, 42))
}

func TestLedgerService_SetRole_ModeratorKeepsBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 42, 777)

	acct, err := env.ledger.SetRole(ctx, testOwnerID, 42, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, acct.Role)
	assert.Equal(t, int64(777), acct.Balance)
}

func TestLedgerService_SetRole_OnlyOwner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledger.SetRole(ctx, testOwnerID, 50, models.RoleAdmin)
	require.NoError(t, err)

	// An admin still cannot change roles
	_, err = env.ledger.SetRole(ctx, 50, 42, models.RoleModerator)
	assert.ErrorIs(t, err, models.ErrForbidden)

	acct, err := env.ledger.GetOrCreateAccount(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegular, acct.Role)
}

func TestLedgerService_SetRole_OwnerIsImmutable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledger.SetRole(ctx, testOwnerID, testOwnerID, models.RoleRegular)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.ledger.SetRole(ctx, testOwnerID, 42, models.RoleOwner)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.ledger.SetRole(ctx, testOwnerID, 42, models.Role("superuser"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLedgerService_SetBalance_AdminSentinelRepairedOnRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledger.SetRole(ctx, testOwnerID, 50, models.RoleAdmin)
	require.NoError(t, err)

	acct, err := env.ledger.SetBalance(ctx, testOwnerID, 50, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), acct.Balance)

	assert.Equal(t, models.SentinelBalance, env.balance(t, 50))
}

func TestLedgerService_SetBalance_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledger.SetBalance(ctx, 100, 200, 50)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.ledger.SetBalance(ctx, 100, 200, -1)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.ledger.SetBalance(ctx, testOwnerID, 200, -1)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLedgerService_Transfer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.fund(t, 100, 100)

	result, err := env.ledger.Transfer(ctx, 100, 200, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.FromBalance)
	assert.Equal(t, int64(40), result.ToBalance)
}

func TestLedgerService_Transfer_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		name    string
		from    int64
		to      int64
		amount  int64
		wantErr error
	}{
		{"zero amount", 100, 200, 0, models.ErrInvalidInput},
		{"negative amount", 100, 200, -5, models.ErrInvalidInput},
		{"to self", 100, 100, 5, models.ErrInvalidInput},
		{"insufficient", 100, 200, 11, models.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.Transfer(ctx, tt.from, tt.to, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, int64(10), env.balance(t, 100))
}

func TestLedgerService_Deduct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tehran := time.FixedZone("IRST", 3*3600+1800)
	env.ledger = NewLedgerService(env.accounts, env.settings, env.bus, testOwnerID, tehran)
	env.fund(t, 100, 40)

	_, err := env.ledger.SetRole(ctx, testOwnerID, 60, models.RoleModerator)
	require.NoError(t, err)

	receipt, err := env.ledger.Deduct(ctx, 60, 100, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(25), receipt.NewBalance)
	assert.Equal(t, tehran, receipt.At.Location())
}

func TestLedgerService_Deduct_Guards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.ledger.SetRole(ctx, testOwnerID, 60, models.RoleModerator)
	require.NoError(t, err)

	_, err = env.ledger.Deduct(ctx, 100, 200, 5)
	assert.ErrorIs(t, err, models.ErrForbidden, "regular users cannot deduct")

	_, err = env.ledger.Deduct(ctx, 60, 60, 5)
	assert.ErrorIs(t, err, models.ErrForbidden, "cannot deduct from yourself")

	_, err = env.ledger.Deduct(ctx, 60, testOwnerID, 5)
	assert.ErrorIs(t, err, models.ErrForbidden, "cannot deduct from the owner")

	_, err = env.ledger.Deduct(ctx, 60, 200, 11)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestLedgerService_ApplyReferral_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	reward, applied, err := env.ledger.ApplyReferral(ctx, 300, 100)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.DefaultReferralReward, reward)
	assert.Equal(t, int64(15), env.balance(t, 100))

	_, applied, err = env.ledger.ApplyReferral(ctx, 300, 200)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(10), env.balance(t, 200))

	acct, err := env.ledger.GetOrCreateAccount(ctx, 300)
	require.NoError(t, err)
	require.NotNil(t, acct.ReferredBy)
	assert.Equal(t, int64(100), *acct.ReferredBy)
}

func TestLedgerService_ApplyReferral_NotSelf(t *testing.T) {
	env := newTestEnv(t)

	_, applied, err := env.ledger.ApplyReferral(context.Background(), 100, 100)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLedgerService_Admins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledger.SetRole(ctx, testOwnerID, 70, models.RoleAdmin)
	require.NoError(t, err)
	_, err = env.ledger.SetRole(ctx, testOwnerID, 50, models.RoleAdmin)
	require.NoError(t, err)
	_, err = env.ledger.SetRole(ctx, testOwnerID, 60, models.RoleModerator)
	require.NoError(t, err)

	assert.Equal(t, []int64{testOwnerID, 50, 70}, env.ledger.Admins(ctx))
}

func TestAccessGuard_Roles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.ledger.SetRole(ctx, testOwnerID, 50, models.RoleAdmin)
	require.NoError(t, err)
	_, err = env.ledger.SetRole(ctx, testOwnerID, 60, models.RoleModerator)
	require.NoError(t, err)

	assert.True(t, env.guard.IsAdmin(ctx, testOwnerID))
	assert.True(t, env.guard.IsAdmin(ctx, 50))
	assert.False(t, env.guard.IsAdmin(ctx, 60))
	assert.True(t, env.guard.IsModerator(ctx, 60))
	assert.True(t, env.guard.IsStaff(ctx, 60))
	assert.False(t, env.guard.IsStaff(ctx, 100))

	assert.NoError(t, env.guard.RequireOwner(ctx, testOwnerID))
	assert.ErrorIs(t, env.guard.RequireOwner(ctx, 50), models.ErrForbidden)
	assert.ErrorIs(t, env.guard.RequireAdmin(ctx, 60), models.ErrForbidden)
	assert.ErrorIs(t, env.guard.RequireStaff(ctx, 100), models.ErrForbidden)
}
