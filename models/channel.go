package models

// Channel is a required external channel for the membership gate
type Channel struct {
	// Handle is the platform reference used for membership lookups
	// (@name on Telegram, a guild id on Discord).
	Handle string
	Link   string
}
