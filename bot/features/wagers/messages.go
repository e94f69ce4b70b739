package wagers

import (
	"fmt"

	"betbot/bot/common"
	"betbot/models"
)

const selectingText = "🎲 Selecting the winner..."

// proposalText is the body of a new wager message
func proposalText(w *models.Wager, botName string) string {
	return fmt.Sprintf("♦️ — New bet (ID: %d) — ♦️\n"+
		"| 💰 | Stake: %s credits\n"+
		"| 👤 | Started by: %s\n"+
		"♦️ — @%s — ♦️",
		w.ID, common.FormatBalance(w.Stake), w.ProposerName, botName)
}

// proposalButtons builds the join/cancel keyboard for a wager
func proposalButtons(wagerID int64) [][]models.Button {
	return [][]models.Button{{
		{Label: "✅ Join", Data: fmt.Sprintf("%s%d", common.CallbackBetJoin, wagerID)},
		{Label: "❌ Cancel bet", Data: fmt.Sprintf("%s%d", common.CallbackBetCancel, wagerID)},
	}}
}

func resultText(s *models.Settlement, botName string) string {
	return fmt.Sprintf("♦️ — Bet result — ♦️\n"+
		"| 🏆 | Winner: %s\n"+
		"| ❌ | Loser: %s\n"+
		"| 🎁 | Prize: %s credits\n"+
		"| 📉 | Tax: %s credits (of the pot)\n"+
		"♦️ — @%s — ♦️",
		s.WinnerName, s.LoserName, common.FormatBalance(s.Prize), common.FormatBalance(s.Tax), botName)
}

func canceledText(w *models.Wager) string {
	return fmt.Sprintf("❌ Bet cancelled by %s.", w.ProposerName)
}

func expiredText(w models.Wager) string {
	return fmt.Sprintf("⏰ The bet of %s credits expired.", common.FormatBalance(w.Stake))
}
