package common

import (
	"errors"
	"fmt"

	"betbot/models"
)

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string      // Message shown to the chat user
	LogMessage  string      // Internal message for logging
	Alert       bool        // Whether a button click is answered with a popup
	Err         error       // Underlying error
	Context     interface{} // Additional context for logging
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues (validation, insufficient funds, etc)
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
		Alert:       true,
	}
}

// NewSystemError creates an error for system issues (platform failures, unexpected state, etc)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: GenericFailure,
		LogMessage:  logMessage,
		Alert:       true,
		Err:         err,
	}
}

// Refusal wraps a domain error with the text shown to the user. Errors
// outside the domain taxonomy are returned unchanged.
func Refusal(err error, userMessage string) error {
	if err == nil || !models.IsDomainError(err) {
		return err
	}
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  "request refused",
		Alert:       true,
		Err:         err,
	}
}

// IsExpected reports whether err is a refusal rather than a fault
func IsExpected(err error) bool {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Err == nil || models.IsDomainError(botErr.Err)
	}
	return models.IsDomainError(err)
}

// UserMessage picks the text shown to the user for err
func UserMessage(err error) string {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.UserMessage
	}

	switch {
	case errors.Is(err, models.ErrNotAuthorized), errors.Is(err, models.ErrForbidden):
		return "⛔️ You are not allowed to do that."
	case errors.Is(err, models.ErrInsufficientFunds):
		return "❌ Your balance is not enough."
	case errors.Is(err, models.ErrAlreadyResolved):
		return "⚠️ This has already been handled."
	case errors.Is(err, models.ErrNotFound):
		return "❌ Not found. It may have expired."
	case errors.Is(err, models.ErrInvalidInput):
		return "❌ Invalid input."
	case errors.Is(err, models.ErrExternalProvider):
		return "⚠️ The chat platform did not respond. Please try again later."
	}
	return GenericFailure
}
