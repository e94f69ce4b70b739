package common

import "context"

// Platform describes the bot account on the chat platform
type Platform interface {
	// Name is the platform identifier, "telegram" or "discord"
	Name() string

	// BotName is the public handle shown in wager messages
	BotName() string

	// ReferralLink builds the invite link that credits userID
	ReferralLink(userID int64) string
}

// Handler consumes the updates a platform adapter receives
type Handler interface {
	Dispatch(ctx context.Context, u Update)
}
