package models

// BotStats represents aggregated figures shown on the admin panel
type BotStats struct {
	TotalUsers      int
	TotalBalance    int64
	PendingDeposits int
	LiveWagers      int
}

// WagerStats summarizes archived wager outcomes
type WagerStats struct {
	Settled      int
	Canceled     int
	Expired      int
	TotalStaked  int64
	TaxCollected int64
}
