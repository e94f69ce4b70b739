package testutil

import (
	"time"

	"betbot/models"
)

// CreateTestAccount creates a regular account with the given balance
func CreateTestAccount(id int64, balance int64) models.Account {
	now := time.Now()
	return models.Account{
		ID:        id,
		Balance:   balance,
		Role:      models.RoleRegular,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestWager creates a pending wager proposed by proposerID
func CreateTestWager(proposerID, stake int64) models.Wager {
	return models.Wager{
		ProposerID:   proposerID,
		ProposerName: "proposer",
		Stake:        stake,
		State:        models.WagerStatePending,
		ChatID:       -100,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateTestDeposit creates a pending deposit request
func CreateTestDeposit(userID, amount int64) models.Deposit {
	return models.Deposit{
		UserID:     userID,
		Amount:     amount,
		ReceiptRef: "receipt-file-id",
		Status:     models.DepositStatusPending,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateTestBalanceHistory creates a journal entry for userID
func CreateTestBalanceHistory(userID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   1000,
		BalanceAfter:    500,
		ChangeAmount:    -500,
		TransactionType: transactionType,
	}
}
