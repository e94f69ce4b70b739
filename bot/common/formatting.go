package common

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatBalance formats a balance amount with thousand separators
func FormatBalance(balance int64) string {
	return printer.Sprintf("%d", balance)
}

// FormatCredits renders an amount with its unit
func FormatCredits(amount int64) string {
	return FormatBalance(amount) + " credits"
}

// FormatToman renders a toman price
func FormatToman(amount int64) string {
	return FormatBalance(amount) + " toman"
}

// FormatTomanValue prices credits at price toman each, saturating at the
// largest representable amount
func FormatTomanValue(credits, price int64) string {
	if price > 0 && credits > math.MaxInt64/price {
		return "over " + FormatToman(math.MaxInt64)
	}
	return FormatToman(credits * price)
}

// FormatTimestamp renders a receipt time in its own location
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// DisplayName falls back to the numeric id when a user has no name
func DisplayName(u User) string {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Sprintf("user %d", u.ID)
	}
	return u.Name
}

// Truncate cuts s to at most max runes, marking the cut
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
