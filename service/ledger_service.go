package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"betbot/events"
	"betbot/models"

	log "github.com/sirupsen/logrus"
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	accounts AccountRepository
	settings SettingsRepository
	bus      *events.Bus
	ownerID  int64
	location *time.Location
	now      func() time.Time
}

// NewLedgerService creates a new ledger service. Receipts are stamped in
// location, or UTC when it is nil.
func NewLedgerService(accounts AccountRepository, settings SettingsRepository, bus *events.Bus, ownerID int64, location *time.Location) LedgerService {
	if location == nil {
		location = time.UTC
	}
	return &ledgerService{
		accounts: accounts,
		settings: settings,
		bus:      bus,
		ownerID:  ownerID,
		location: location,
		now:      time.Now,
	}
}

func (s *ledgerService) OwnerID() int64 {
	return s.ownerID
}

// newAccount is the factory for ids seen for the first time
func (s *ledgerService) newAccount(id int64) models.Account {
	if id == s.ownerID {
		return models.Account{Role: models.RoleOwner, Balance: models.SentinelBalance}
	}
	return models.Account{Role: models.RoleRegular, Balance: s.initialBalance()}
}

func (s *ledgerService) initialBalance() int64 {
	value, ok := s.settings.Get(models.SettingInitialBalance)
	return models.ParseIntSetting(value, ok, models.DefaultInitialBalance)
}

// mutate runs fn over the accounts for ids in one critical section and
// stages the resulting events on bus
func (s *ledgerService) mutate(bus *events.TransactionalBus, ids []int64, related *Related, fn func(tx *ledgerTx) error) (map[int64]models.Account, error) {
	var tx ledgerTx
	result, changes, err := s.accounts.Mutate(ids, s.newAccount, func(accounts map[int64]*models.Account) error {
		tx = ledgerTx{accounts: accounts}
		if fn == nil {
			return nil
		}
		return fn(&tx)
	})
	if err != nil {
		return nil, err
	}

	stageBalanceChanges(bus, result, changes, tx.records, related)
	return result, nil
}

// GetOrCreateAccount retrieves an account, creating it on first reference
func (s *ledgerService) GetOrCreateAccount(ctx context.Context, id int64) (*models.Account, error) {
	bus := events.NewTransactionalBus(s.bus)
	result, err := s.mutate(bus, []int64{id}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	bus.Flush(ctx)

	acct := result[id]
	return &acct, nil
}

func (s *ledgerService) AdjustBalance(ctx context.Context, id int64, delta int64, txType models.TransactionType) (int64, error) {
	bus := events.NewTransactionalBus(s.bus)
	result, err := s.mutate(bus, []int64{id}, nil, func(tx *ledgerTx) error {
		return tx.add(id, delta, txType)
	})
	if err != nil {
		return 0, err
	}
	bus.Flush(ctx)

	return result[id].Balance, nil
}

func (s *ledgerService) Post(ctx context.Context, postings []Posting, related *Related) (map[int64]models.Account, error) {
	bus := events.NewTransactionalBus(s.bus)
	result, err := s.PostStaged(ctx, bus, postings, related)
	if err != nil {
		return nil, err
	}
	bus.Flush(ctx)
	return result, nil
}

func (s *ledgerService) PostStaged(ctx context.Context, bus *events.TransactionalBus, postings []Posting, related *Related) (map[int64]models.Account, error) {
	if len(postings) == 0 {
		return nil, fmt.Errorf("%w: empty posting batch", models.ErrInvalidInput)
	}

	ids := make([]int64, 0, len(postings))
	for _, p := range postings {
		ids = append(ids, p.UserID)
	}

	return s.mutate(bus, ids, related, func(tx *ledgerTx) error {
		for _, p := range postings {
			if err := tx.add(p.UserID, p.Delta, p.Type); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetBalance overwrites a balance. The actor must be an admin.
func (s *ledgerService) SetBalance(ctx context.Context, actorID, targetID, balance int64) (*models.Account, error) {
	bus := events.NewTransactionalBus(s.bus)
	result, err := s.mutate(bus, []int64{actorID, targetID}, nil, func(tx *ledgerTx) error {
		if !tx.account(actorID).IsAdmin() {
			return fmt.Errorf("%w: only admins can set balances", models.ErrForbidden)
		}
		if balance < 0 {
			return fmt.Errorf("%w: balance cannot be negative", models.ErrInvalidInput)
		}
		tx.set(targetID, balance, models.TransactionTypeAdminSet)
		return nil
	})
	if err != nil {
		return nil, err
	}
	bus.Flush(ctx)

	log.WithFields(log.Fields{
		"actorID":  actorID,
		"targetID": targetID,
		"balance":  balance,
	}).Info("Balance set by admin")

	acct := result[targetID]
	return &acct, nil
}

// SetRole changes the role of targetID. Only the owner may do this, and the
// owner's own role never changes.
func (s *ledgerService) SetRole(ctx context.Context, actorID, targetID int64, role models.Role) (*models.Account, error) {
	switch role {
	case models.RoleAdmin, models.RoleModerator, models.RoleRegular:
	case models.RoleOwner:
		return nil, fmt.Errorf("%w: the owner role cannot be assigned", models.ErrForbidden)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}
	if targetID == s.ownerID {
		return nil, fmt.Errorf("%w: the owner's role cannot be changed", models.ErrForbidden)
	}

	bus := events.NewTransactionalBus(s.bus)
	var oldRole models.Role
	result, err := s.mutate(bus, []int64{actorID, targetID}, nil, func(tx *ledgerTx) error {
		if !tx.account(actorID).IsOwner() {
			return fmt.Errorf("%w: only the owner can change roles", models.ErrForbidden)
		}

		target := tx.account(targetID)
		oldRole = target.Role
		target.Role = role

		// Promotion and demotion reset the balance; moderators keep theirs
		switch role {
		case models.RoleAdmin:
			tx.set(targetID, models.SentinelBalance, models.TransactionTypeRoleReset)
		case models.RoleRegular:
			tx.set(targetID, s.initialBalance(), models.TransactionTypeRoleReset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bus.Publish(events.RoleChangedEvent{
		UserID:  targetID,
		ActorID: actorID,
		OldRole: oldRole,
		NewRole: role,
	})
	bus.Flush(ctx)

	acct := result[targetID]
	return &acct, nil
}

func (s *ledgerService) Transfer(ctx context.Context, fromID, toID, amount int64) (*TransferResult, error) {
	// Validate inputs
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidInput)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", models.ErrInvalidInput)
	}

	bus := events.NewTransactionalBus(s.bus)
	result, err := s.mutate(bus, []int64{fromID, toID}, nil, func(tx *ledgerTx) error {
		if err := tx.add(fromID, -amount, models.TransactionTypeTransferOut); err != nil {
			return err
		}
		return tx.add(toID, amount, models.TransactionTypeTransferIn)
	})
	if err != nil {
		return nil, err
	}
	bus.Flush(ctx)

	return &TransferResult{
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		FromBalance: result[fromID].Balance,
		ToBalance:   result[toID].Balance,
	}, nil
}

// Deduct removes credits from targetID. The actor must be staff, and
// neither the actor nor the owner can be the target.
func (s *ledgerService) Deduct(ctx context.Context, actorID, targetID, amount int64) (*DeductionReceipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deduction amount must be positive", models.ErrInvalidInput)
	}
	if actorID == targetID {
		return nil, fmt.Errorf("%w: cannot deduct from yourself", models.ErrForbidden)
	}
	if targetID == s.ownerID {
		return nil, fmt.Errorf("%w: cannot deduct from the owner", models.ErrForbidden)
	}

	bus := events.NewTransactionalBus(s.bus)
	result, err := s.mutate(bus, []int64{actorID, targetID}, nil, func(tx *ledgerTx) error {
		if !tx.account(actorID).IsStaff() {
			return fmt.Errorf("%w: only admins and moderators can deduct credits", models.ErrForbidden)
		}
		return tx.add(targetID, -amount, models.TransactionTypeDeduction)
	})
	if err != nil {
		return nil, err
	}
	bus.Flush(ctx)

	return &DeductionReceipt{
		ActorID:    actorID,
		TargetID:   targetID,
		Amount:     amount,
		NewBalance: result[targetID].Balance,
		At:         s.now().In(s.location),
	}, nil
}

// ApplyReferral links newUserID to referrerID the first time and credits
// the referrer. It returns the reward paid and whether it was applied.
func (s *ledgerService) ApplyReferral(ctx context.Context, newUserID, referrerID int64) (int64, bool, error) {
	if newUserID == referrerID {
		return 0, false, nil
	}

	reward := s.IntSetting(ctx, models.SettingReferralReward, models.DefaultReferralReward)
	applied := false

	bus := events.NewTransactionalBus(s.bus)
	related := &Related{ID: newUserID, Type: models.RelatedTypeAccount}
	_, err := s.mutate(bus, []int64{newUserID, referrerID}, related, func(tx *ledgerTx) error {
		user := tx.account(newUserID)
		if user.ReferredBy != nil || user.IsAdmin() {
			return nil
		}
		ref := referrerID
		user.ReferredBy = &ref
		applied = true

		if reward > 0 {
			return tx.add(referrerID, reward, models.TransactionTypeReferral)
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to apply referral: %w", err)
	}
	bus.Flush(ctx)

	if !applied {
		return 0, false, nil
	}
	log.WithFields(log.Fields{
		"userID":     newUserID,
		"referrerID": referrerID,
		"reward":     reward,
	}).Info("Referral applied")
	return reward, true, nil
}

func (s *ledgerService) Setting(ctx context.Context, key models.SettingKey) (string, bool) {
	return s.settings.Get(key)
}

func (s *ledgerService) IntSetting(ctx context.Context, key models.SettingKey, fallback int64) int64 {
	value, ok := s.settings.Get(key)
	return models.ParseIntSetting(value, ok, fallback)
}

func (s *ledgerService) SetSetting(ctx context.Context, key models.SettingKey, value string) {
	s.settings.Set(key, value)
}

// Admins returns every admin-flagged account id. The owner is always included.
func (s *ledgerService) Admins(ctx context.Context) []int64 {
	ids := []int64{s.ownerID}
	for _, acct := range s.accounts.List() {
		if acct.IsAdmin() && acct.ID != s.ownerID {
			ids = append(ids, acct.ID)
		}
	}
	sort.Slice(ids[1:], func(i, j int) bool { return ids[i+1] < ids[j+1] })
	return ids
}

func (s *ledgerService) Totals(ctx context.Context) (int, int64) {
	accounts := s.accounts.List()
	var total int64
	for _, acct := range accounts {
		total += acct.Balance
	}
	return len(accounts), total
}
