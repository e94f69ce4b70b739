package service

import (
	"context"
	"fmt"

	"betbot/models"
)

// AccessGuard answers role questions about an actor. It holds no state of
// its own; roles live on the ledger accounts.
type AccessGuard struct {
	ledger LedgerService
}

// NewAccessGuard creates a guard backed by the ledger
func NewAccessGuard(ledger LedgerService) *AccessGuard {
	return &AccessGuard{ledger: ledger}
}

func (g *AccessGuard) role(ctx context.Context, actorID int64) models.Role {
	if actorID == g.ledger.OwnerID() {
		return models.RoleOwner
	}
	acct, err := g.ledger.GetOrCreateAccount(ctx, actorID)
	if err != nil {
		return models.RoleRegular
	}
	return acct.Role
}

func (g *AccessGuard) IsOwner(ctx context.Context, actorID int64) bool {
	return actorID == g.ledger.OwnerID()
}

// IsAdmin is true for admins and the owner
func (g *AccessGuard) IsAdmin(ctx context.Context, actorID int64) bool {
	r := g.role(ctx, actorID)
	return r == models.RoleOwner || r == models.RoleAdmin
}

func (g *AccessGuard) IsModerator(ctx context.Context, actorID int64) bool {
	return g.role(ctx, actorID) == models.RoleModerator
}

// IsStaff is true for admins, moderators and the owner
func (g *AccessGuard) IsStaff(ctx context.Context, actorID int64) bool {
	r := g.role(ctx, actorID)
	return r != models.RoleRegular && r != ""
}

func (g *AccessGuard) RequireOwner(ctx context.Context, actorID int64) error {
	if !g.IsOwner(ctx, actorID) {
		return fmt.Errorf("%w: owner only", models.ErrForbidden)
	}
	return nil
}

func (g *AccessGuard) RequireAdmin(ctx context.Context, actorID int64) error {
	if !g.IsAdmin(ctx, actorID) {
		return fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return nil
}

func (g *AccessGuard) RequireStaff(ctx context.Context, actorID int64) error {
	if !g.IsStaff(ctx, actorID) {
		return fmt.Errorf("%w: admins and moderators only", models.ErrForbidden)
	}
	return nil
}
