package models

import "time"

// DepositStatus represents the review state of a deposit
type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "pending"
	DepositStatusApproved DepositStatus = "approved"
	DepositStatusRejected DepositStatus = "rejected"
)

// Decision is an admin verdict on a pending deposit
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Deposit is a manual top-up request waiting for admin review
type Deposit struct {
	ID         int64
	UserID     int64
	Amount     int64
	ReceiptRef string
	Status     DepositStatus
	ResolvedBy *int64
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// IsPending checks if the deposit can still be resolved
func (d *Deposit) IsPending() bool {
	return d.Status == DepositStatusPending
}
