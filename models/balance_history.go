package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial     TransactionType = "initial"
	TransactionTypeWagerStake  TransactionType = "wager_stake"
	TransactionTypeWagerPrize  TransactionType = "wager_prize"
	TransactionTypeWagerTax    TransactionType = "wager_tax"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeDeduction   TransactionType = "deduction"
	TransactionTypeReferral    TransactionType = "referral"
	TransactionTypeAdminSet    TransactionType = "admin_set"
	TransactionTypeRoleReset   TransactionType = "role_reset"
	TransactionTypeSentinel    TransactionType = "sentinel_repair"
	TransactionTypeAdjustment  TransactionType = "adjustment"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeWager   RelatedType = "wager"
	RelatedTypeDeposit RelatedType = "deposit"
	RelatedTypeAccount RelatedType = "account"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID              int64           `db:"id"`
	UserID          int64           `db:"user_id"`
	BalanceBefore   int64           `db:"balance_before"`
	BalanceAfter    int64           `db:"balance_after"`
	ChangeAmount    int64           `db:"change_amount"`
	TransactionType TransactionType `db:"transaction_type"`
	RelatedID       *int64          `db:"related_id"`
	RelatedType     *RelatedType    `db:"related_type"`
	CreatedAt       time.Time       `db:"created_at"`
}
