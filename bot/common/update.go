package common

import (
	"strconv"
	"strings"

	"betbot/models"
	"betbot/service"
)

// User identifies the author of a message
type User struct {
	ID   int64
	Name string
}

// Update is a platform-neutral inbound message or button click
type Update struct {
	// ID correlates the log lines of one update
	ID string

	From User
	// ChatID equals From.ID in private chats.
	ChatID    int64
	Private   bool
	MessageID int64
	Text      string
	// PhotoRef is the platform reference of an attached image.
	PhotoRef string
	// ReplyTo is the author of the message being replied to.
	ReplyTo *User

	// Button clicks
	CallbackID string
	Data       string
	Source     *models.MessageRef
	// SourceText is the text or caption of the Source message.
	SourceText string
}

// IsCallback reports whether the update is a button click
func (u Update) IsCallback() bool {
	return u.CallbackID != ""
}

// GateRequest converts the update for the membership gate
func (u Update) GateRequest() service.GateRequest {
	return service.GateRequest{
		UserID:     u.From.ID,
		ChatID:     u.ChatID,
		MessageID:  u.MessageID,
		CallbackID: u.CallbackID,
		Data:       u.Data,
		Source:     u.Source,
	}
}

// Command splits a slash command into its name and arguments. The
// "@botname" suffix used in groups is dropped.
func (u Update) Command() (string, []string, bool) {
	if !strings.HasPrefix(u.Text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(u.Text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:], true
}

// ParseCallbackID extracts the numeric id following prefix
func ParseCallbackID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParsePositive parses a strictly positive integer amount
func ParsePositive(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
