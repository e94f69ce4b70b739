package repository

import (
	"sync"
	"testing"

	"betbot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regularFactory(balance int64) AccountFactory {
	return func(id int64) models.Account {
		return models.Account{Balance: balance, Role: models.RoleRegular}
	}
}

func TestAccountStore_Mutate_CreatesLazily(t *testing.T) {
	store := NewAccountStore()

	accounts, changes, err := store.Mutate([]int64{42}, regularFactory(10), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(10), accounts[42].Balance)
	assert.Equal(t, int64(42), accounts[42].ID)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Created)
	assert.Len(t, store.List(), 1)
}

func TestAccountStore_Mutate_MissingWithoutFactory(t *testing.T) {
	store := NewAccountStore()

	_, _, err := store.Mutate([]int64{7}, nil, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountStore_Mutate_RejectsNegativeBalance(t *testing.T) {
	store := NewAccountStore()
	_, _, err := store.Mutate([]int64{1, 2}, regularFactory(100), nil)
	require.NoError(t, err)

	_, _, err = store.Mutate([]int64{1, 2}, nil, func(accts map[int64]*models.Account) error {
		accts[1].Balance -= 150
		accts[2].Balance += 150
		return nil
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Neither side of the batch was written
	a, _ := store.Get(1)
	b, _ := store.Get(2)
	assert.Equal(t, int64(100), a.Balance)
	assert.Equal(t, int64(100), b.Balance)
}

func TestAccountStore_Get_RepairsAdminSentinel(t *testing.T) {
	store := NewAccountStore()
	_, _, err := store.Mutate([]int64{5}, func(id int64) models.Account {
		return models.Account{Balance: 3, Role: models.RoleAdmin}
	}, nil)
	require.NoError(t, err)

	acct, ok := store.Get(5)
	require.True(t, ok)
	assert.Equal(t, models.SentinelBalance, acct.Balance)
}

func TestAccountStore_Mutate_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	store := NewAccountStore()
	_, _, err := store.Mutate([]int64{1}, regularFactory(100), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.Mutate([]int64{1}, nil, func(accts map[int64]*models.Account) error {
				accts[1].Balance -= 10
				return nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	acct, _ := store.Get(1)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), acct.Balance)
}
