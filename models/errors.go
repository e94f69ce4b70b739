package models

import "errors"

// Domain errors. Callers wrap them with detail and match with errors.Is.
var (
	ErrNotAuthorized     = errors.New("not authorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyResolved   = errors.New("already resolved")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrExternalProvider  = errors.New("external provider error")
)

// IsDomainError reports whether err belongs to the domain taxonomy and
// should be shown to the user as a refusal rather than reported as a fault.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotAuthorized,
		ErrForbidden,
		ErrInsufficientFunds,
		ErrAlreadyResolved,
		ErrNotFound,
		ErrInvalidInput,
		ErrExternalProvider,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
