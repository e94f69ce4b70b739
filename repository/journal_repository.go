package repository

import (
	"context"
	"fmt"
	"time"

	"betbot/database"
	"betbot/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both the pool and a transaction
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WagerOutcome is the journal row for a wager that reached a terminal state
type WagerOutcome struct {
	Wager    models.Wager
	WinnerID *int64
	Tax      int64
	Prize    int64
}

// JournalRepository writes the append-only audit trail. Nothing is ever
// read back into the live stores.
type JournalRepository struct {
	db *database.DB
	q  queryable
}

// NewJournalRepository creates a journal repository on the pool
func NewJournalRepository(db *database.DB) *JournalRepository {
	return &JournalRepository{db: db, q: db.Pool}
}

// RecordBalanceChanges inserts every change in one transaction
func (r *JournalRepository) RecordBalanceChanges(ctx context.Context, entries []*models.BalanceHistory) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, h := range entries {
			if err := insertBalanceHistory(ctx, tx, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertBalanceHistory(ctx context.Context, q queryable, h *models.BalanceHistory) error {
	query := `
		INSERT INTO balance_history
		(user_id, balance_before, balance_after, change_amount, transaction_type, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := q.QueryRow(ctx, query,
		h.UserID,
		h.BalanceBefore,
		h.BalanceAfter,
		h.ChangeAmount,
		h.TransactionType,
		h.RelatedID,
		h.RelatedType,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for user %d: %w", h.UserID, err)
	}
	return nil
}

// GetBalanceHistory returns the most recent entries for a user
func (r *JournalRepository) GetBalanceHistory(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_before, balance_after, change_amount,
		       transaction_type, related_id, related_type, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var h models.BalanceHistory
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.BalanceBefore,
			&h.BalanceAfter,
			&h.ChangeAmount,
			&h.TransactionType,
			&h.RelatedID,
			&h.RelatedType,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		histories = append(histories, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return histories, nil
}

// RecordWagerOutcome stores a finished wager
func (r *JournalRepository) RecordWagerOutcome(ctx context.Context, outcome WagerOutcome) error {
	w := outcome.Wager
	resolvedAt := time.Now().UTC()
	if w.ResolvedAt != nil {
		resolvedAt = *w.ResolvedAt
	}

	query := `
		INSERT INTO wager_outcomes
		(wager_id, started_at, proposer_id, opponent_id, chat_id, stake, state, winner_id, tax, prize, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (wager_id, started_at) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query,
		w.ID,
		w.CreatedAt,
		w.ProposerID,
		w.OpponentID,
		w.ChatID,
		w.Stake,
		string(w.State),
		outcome.WinnerID,
		outcome.Tax,
		outcome.Prize,
		resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome of wager %d: %w", w.ID, err)
	}
	return nil
}

// CountWagerOutcomes returns how many outcomes are stored per state
func (r *JournalRepository) CountWagerOutcomes(ctx context.Context) (map[models.WagerState]int, error) {
	rows, err := r.q.Query(ctx, `SELECT state, COUNT(*) FROM wager_outcomes GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count wager outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.WagerState]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan wager outcome count: %w", err)
		}
		counts[models.WagerState(state)] = n
	}
	return counts, rows.Err()
}

// RecordDepositDecision stores an approved or rejected deposit
func (r *JournalRepository) RecordDepositDecision(ctx context.Context, d models.Deposit) error {
	resolvedAt := time.Now().UTC()
	if d.ResolvedAt != nil {
		resolvedAt = *d.ResolvedAt
	}

	query := `
		INSERT INTO deposit_decisions
		(deposit_id, requested_at, user_id, amount, status, resolved_by, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (deposit_id, requested_at) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query,
		d.ID,
		d.CreatedAt,
		d.UserID,
		d.Amount,
		string(d.Status),
		d.ResolvedBy,
		resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision for deposit %d: %w", d.ID, err)
	}
	return nil
}
