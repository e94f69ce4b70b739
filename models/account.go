package models

import (
	"fmt"
	"time"
)

// SentinelBalance is the balance owner and admin accounts are held at.
const SentinelBalance int64 = 1_000_000_000

// Role is the access level of an account
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleRegular   Role = "regular"
)

// ParseRole converts user input into a Role. The owner role cannot be assigned.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleRegular:
		return Role(s), nil
	case RoleOwner:
		return "", fmt.Errorf("%w: the owner role cannot be assigned", ErrForbidden)
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// Account represents a chat user with a credit balance
type Account struct {
	ID         int64
	Balance    int64
	Role       Role
	ReferredBy *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOwner reports whether the account is the designated owner
func (a *Account) IsOwner() bool {
	return a.Role == RoleOwner
}

// IsAdmin is true for admins and the owner
func (a *Account) IsAdmin() bool {
	return a.Role == RoleOwner || a.Role == RoleAdmin
}

func (a *Account) IsModerator() bool {
	return a.Role == RoleModerator
}

// IsStaff is true for anyone allowed to moderate balances in groups
func (a *Account) IsStaff() bool {
	return a.IsAdmin() || a.IsModerator()
}

// RepairSentinel lifts owner and admin balances back up to the sentinel.
// Returns true when the balance was changed.
func (a *Account) RepairSentinel() bool {
	if a.IsAdmin() && a.Balance < SentinelBalance {
		a.Balance = SentinelBalance
		return true
	}
	return false
}
