package models

// Button is an inline action attached to an outbound message. Exactly one of
// Data (a callback payload) or URL is set.
type Button struct {
	Label string
	Data  string
	URL   string
}

// OutboundMessage is a platform-neutral message to publish
type OutboundMessage struct {
	ChatID int64
	Text   string
	// PhotoRef sends a photo with Text as caption when set.
	PhotoRef string
	Buttons  [][]Button
	// ReplyTo is the message id being answered, 0 for none.
	ReplyTo int64
}

// CallbackAnswer acknowledges a button click
type CallbackAnswer struct {
	CallbackID string
	Text       string
	Alert      bool
}
