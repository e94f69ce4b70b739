package service

import (
	"context"
	"time"

	"betbot/events"
	"betbot/models"
	"betbot/repository"
)

// AccountRepository defines the interface for account storage
type AccountRepository interface {
	// Mutate runs fn over the accounts for ids atomically, creating missing
	// ones with factory. Nothing is stored when fn fails or a balance would end negative.
	Mutate(ids []int64, factory repository.AccountFactory, fn func(accounts map[int64]*models.Account) error) (map[int64]models.Account, []repository.BalanceChange, error)

	// Get returns an account without creating it
	Get(id int64) (models.Account, bool)

	// List returns every account ordered by id
	List() []models.Account

	Count() int
}

// SettingsRepository defines the interface for global settings storage
type SettingsRepository interface {
	Get(key models.SettingKey) (string, bool)
	Set(key models.SettingKey, value string)
}

// WagerRepository defines the interface for live wager storage
type WagerRepository interface {
	// Create assigns the next id and stores the wager
	Create(w models.Wager) models.Wager

	// Get returns a live wager
	Get(id int64) (models.Wager, bool)

	// Update runs fn under the store lock. An error discards every change fn made.
	Update(id int64, fn func(w *models.Wager) error) (models.Wager, error)

	// Live returns the live wagers ordered by id
	Live() []models.Wager

	// History returns archived wagers, most recent first
	History(limit int) []models.Wager
}

// DepositRepository defines the interface for deposit storage
type DepositRepository interface {
	Create(d models.Deposit) models.Deposit
	Get(id int64) (models.Deposit, bool)

	// Update runs fn under the store lock. An error discards every change fn made.
	Update(id int64, fn func(d *models.Deposit) error) (models.Deposit, error)

	ListByStatus(status models.DepositStatus) []models.Deposit
	CountByStatus(status models.DepositStatus) int
}

// ChannelRepository defines the interface for required channel storage
type ChannelRepository interface {
	// Put stores a channel and reports whether it was new
	Put(channel models.Channel) bool

	// Remove deletes a channel and reports whether it existed
	Remove(handle string) bool

	List() []models.Channel
}

// Scheduler runs a callback once after a delay. Jobs are identified by tag
// so they can be cancelled before they fire.
type Scheduler interface {
	// ScheduleOnce registers fn to run once after the delay
	ScheduleOnce(tag string, after time.Duration, fn func()) error

	// Cancel removes a job that has not fired yet. Unknown tags are ignored.
	Cancel(tag string)
}

// Messenger publishes outbound effects on the chat platform
type Messenger interface {
	// Send publishes a new message and returns a reference to it
	Send(ctx context.Context, msg models.OutboundMessage) (models.MessageRef, error)

	// Edit replaces the text (or caption) and buttons of a message. Nil buttons remove the keyboard.
	Edit(ctx context.Context, ref models.MessageRef, text string, buttons [][]models.Button) error

	// Delete removes a message
	Delete(ctx context.Context, ref models.MessageRef) error

	// AnswerCallback acknowledges a button click, optionally with a popup
	AnswerCallback(ctx context.Context, answer models.CallbackAnswer) error
}

// MembershipProvider answers channel membership questions
type MembershipProvider interface {
	// IsMember reports whether userID belongs to the channel
	IsMember(ctx context.Context, channel models.Channel, userID int64) (bool, error)

	// Verify checks that the bot itself can inspect the channel's members
	Verify(ctx context.Context, channel models.Channel) error
}

// RandomSource draws uniformly distributed integers in [0, n)
type RandomSource interface {
	Intn(n int) (int, error)
}

// Posting is one line of an atomic ledger batch
type Posting struct {
	UserID int64
	Delta  int64
	Type   models.TransactionType
}

// Related ties postings to the entity that caused them
type Related struct {
	ID   int64
	Type models.RelatedType
}

// TransferResult reports both sides of a transfer
type TransferResult struct {
	FromID      int64
	ToID        int64
	Amount      int64
	FromBalance int64
	ToBalance   int64
}

// DeductionReceipt is shown in the group after staff remove credits
type DeductionReceipt struct {
	ActorID    int64
	TargetID   int64
	Amount     int64
	NewBalance int64
	At         time.Time
}

// DepositQuote is the payment instruction for a requested amount
type DepositQuote struct {
	Amount     int64
	Price      int64
	TotalCost  int64
	CardNumber string
	CardHolder string
}

// LedgerService owns accounts and settings
type LedgerService interface {
	// OwnerID returns the configured owner identity
	OwnerID() int64

	// GetOrCreateAccount returns the account, creating it on first reference
	GetOrCreateAccount(ctx context.Context, id int64) (*models.Account, error)

	// AdjustBalance applies delta atomically and fails with ErrInsufficientFunds
	// instead of going below zero
	AdjustBalance(ctx context.Context, id int64, delta int64, txType models.TransactionType) (int64, error)

	// Post applies postings in order as one atomic batch. A debit that would
	// leave its account negative fails the whole batch.
	Post(ctx context.Context, postings []Posting, related *Related) (map[int64]models.Account, error)

	// PostStaged is Post with the resulting events staged on bus. The caller
	// flushes bus once its own locks are released.
	PostStaged(ctx context.Context, bus *events.TransactionalBus, postings []Posting, related *Related) (map[int64]models.Account, error)

	// SetBalance overwrites a balance (admin only)
	SetBalance(ctx context.Context, actorID, targetID, balance int64) (*models.Account, error)

	// SetRole changes a role (owner only)
	SetRole(ctx context.Context, actorID, targetID int64, role models.Role) (*models.Account, error)

	// Transfer moves credits between two accounts
	Transfer(ctx context.Context, fromID, toID, amount int64) (*TransferResult, error)

	// Deduct removes credits from a user (admin or moderator only)
	Deduct(ctx context.Context, actorID, targetID, amount int64) (*DeductionReceipt, error)

	// ApplyReferral links a new user to a referrer and pays the reward once
	ApplyReferral(ctx context.Context, newUserID, referrerID int64) (int64, bool, error)

	// Setting reads a raw setting value
	Setting(ctx context.Context, key models.SettingKey) (string, bool)

	// IntSetting reads a numeric setting, returning fallback when missing or malformed
	IntSetting(ctx context.Context, key models.SettingKey, fallback int64) int64

	// SetSetting writes a raw setting value without authorization checks
	SetSetting(ctx context.Context, key models.SettingKey, value string)

	// Admins returns the ids of all admin-flagged accounts including the owner
	Admins(ctx context.Context) []int64

	// Totals returns the number of accounts and the sum of balances
	Totals(ctx context.Context) (int, int64)
}

// ProposeRequest carries a new wager proposal
type ProposeRequest struct {
	ProposerID   int64
	ProposerName string
	ChatID       int64
	Stake        int64
}

// JoinRequest carries an attempt to take the other side of a wager
type JoinRequest struct {
	WagerID   int64
	ActorID   int64
	ActorName string
}

// WagerService runs the wager lifecycle
type WagerService interface {
	// Propose creates a pending wager and schedules its expiry
	Propose(ctx context.Context, req ProposeRequest) (*models.Wager, error)

	// AttachMessage records the interactive message published for a wager
	AttachMessage(ctx context.Context, wagerID int64, ref models.MessageRef) error

	// Join settles a pending wager against the actor
	Join(ctx context.Context, req JoinRequest) (*models.Settlement, error)

	// Cancel withdraws a pending wager (proposer only)
	Cancel(ctx context.Context, wagerID, actorID int64) (*models.Wager, error)

	// Expire ends a wager nobody joined. Returns false when it was already resolved.
	Expire(ctx context.Context, wagerID int64) bool

	// Get returns a live wager
	Get(ctx context.Context, wagerID int64) (*models.Wager, error)

	// Live returns all live wagers
	Live(ctx context.Context) []models.Wager

	// History returns recently finished wagers, most recent first
	History(ctx context.Context, limit int) []models.Wager
}

// DepositService runs the manual deposit review queue
type DepositService interface {
	// Quote prices a requested credit amount
	Quote(ctx context.Context, amount int64) (*DepositQuote, error)

	// Submit queues a receipt for admin review
	Submit(ctx context.Context, userID, amount int64, receiptRef string) (*models.Deposit, error)

	// Resolve approves or rejects a pending deposit exactly once
	Resolve(ctx context.Context, txID int64, decision models.Decision, actorID int64) (*models.Deposit, error)

	// Pending returns the deposits waiting for review
	Pending(ctx context.Context) []models.Deposit

	PendingCount(ctx context.Context) int
}

// SettingsService applies admin changes to global settings
type SettingsService interface {
	SetTaxRate(ctx context.Context, actorID, rate int64) error
	SetCreditPrice(ctx context.Context, actorID, price int64) error
	SetReferralReward(ctx context.Context, actorID, reward int64) error
	SetCardNumber(ctx context.Context, actorID int64, number string) error
	SetCardHolder(ctx context.Context, actorID int64, holder string) error
	SetBetPhoto(ctx context.Context, actorID int64, fileRef string) error
	ClearBetPhoto(ctx context.Context, actorID int64) error

	// ToggleChannelLock flips the membership lock and returns the new state
	ToggleChannelLock(ctx context.Context, actorID int64) (bool, error)
}

// AddedChannel is a stored required channel. Warning is set when the bot
// cannot inspect the channel's members.
type AddedChannel struct {
	Channel models.Channel
	Warning error
}

// ChannelService manages the required channels for the membership gate
type ChannelService interface {
	Add(ctx context.Context, actorID int64, input string) (*AddedChannel, error)

	Remove(ctx context.Context, actorID int64, handle string) error

	List(ctx context.Context) []models.Channel
}

// StatsService aggregates figures for the admin panel and health endpoint
type StatsService interface {
	BotStats(ctx context.Context) models.BotStats
	WagerStats(ctx context.Context) models.WagerStats
}
