package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"betbot/models"
)

// AccountFactory builds the account for an id seen for the first time
type AccountFactory func(id int64) models.Account

// BalanceChange describes one account's balance movement inside a mutation
type BalanceChange struct {
	UserID  int64
	Before  int64
	After   int64
	Created bool
	// Repaired is set when the sentinel repair moved the balance before fn ran.
	Repaired bool
}

// AccountStore owns every account. All access is serialized by one mutex,
// which makes each mutation linearizable per account and across the set of
// accounts it touches.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	now      func() time.Time
}

// NewAccountStore creates an empty account store
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]*models.Account),
		now:      time.Now,
	}
}

// Mutate loads (or creates with factory) the accounts for ids, repairs
// sentinel balances and runs fn over working copies. Nothing is written
// when fn fails or when any touched balance would end below zero.
func (s *AccountStore) Mutate(ids []int64, factory AccountFactory, fn func(accounts map[int64]*models.Account) error) (map[int64]models.Account, []BalanceChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	working := make(map[int64]*models.Account, len(ids))
	changes := make(map[int64]*BalanceChange, len(ids))

	for _, id := range ids {
		if _, seen := working[id]; seen {
			continue
		}
		change := &BalanceChange{UserID: id}
		var acct models.Account
		if existing, ok := s.accounts[id]; ok {
			acct = *existing
		} else {
			if factory == nil {
				return nil, nil, fmt.Errorf("%w: account %d", models.ErrNotFound, id)
			}
			acct = factory(id)
			acct.ID = id
			acct.CreatedAt = now
			acct.UpdatedAt = now
			change.Created = true
		}
		change.Before = acct.Balance
		change.Repaired = acct.RepairSentinel()
		working[id] = &acct
		changes[id] = change
	}

	if fn != nil {
		if err := fn(working); err != nil {
			return nil, nil, err
		}
	}

	for id, acct := range working {
		if acct.Balance < 0 {
			return nil, nil, fmt.Errorf("%w: account %d would end at %d", models.ErrInsufficientFunds, id, acct.Balance)
		}
	}

	result := make(map[int64]models.Account, len(working))
	var moved []BalanceChange
	for _, id := range ids {
		acct, ok := working[id]
		if !ok {
			continue
		}
		if _, done := result[id]; done {
			continue
		}
		change := changes[id]
		change.After = acct.Balance
		if change.After != change.Before || change.Created {
			acct.UpdatedAt = now
			moved = append(moved, *change)
		}
		stored := *acct
		s.accounts[id] = &stored
		result[id] = stored
	}

	return result, moved, nil
}

// Get returns a copy of the account without creating it. The sentinel
// repair is applied and persisted.
func (s *AccountStore) Get(id int64) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return models.Account{}, false
	}
	if acct.RepairSentinel() {
		acct.UpdatedAt = s.now()
	}
	return *acct, true
}

// List returns copies of all accounts ordered by id
func (s *AccountStore) List() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		acct.RepairSentinel()
		accounts = append(accounts, *acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts
}
