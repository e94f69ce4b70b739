package common

import "time"

// Callback payload prefixes
const (
	CallbackBetJoin           = "bet_join_"
	CallbackBetCancel         = "bet_cancel_"
	CallbackTxApprove         = "tx_approve_"
	CallbackTxReject          = "tx_reject_"
	CallbackReplySupport      = "reply_support_"
	CallbackAdminRemove       = "admin_remove_"
	CallbackAdminRemoveCancel = "admin_remove_cancel"
)

// UI constants
const (
	// MaxMessageLength is the longest text a single chat message may carry
	MaxMessageLength = 4096
	MaxButtonsPerRow = 2
)

// Session constants
const (
	SessionTTL           = 30 * time.Minute
	SessionSweepInterval = 5 * time.Minute
)

// GenericFailure is shown when an unexpected error interrupts a request
const GenericFailure = "❌ Something went wrong. Please try again later."
