package repository

import (
	"context"
	"fmt"

	"prizepool/domain/entities"

	"github.com/jackc/pgx/v5"
)

// BalanceHistoryRepository implements balance history data access
type BalanceHistoryRepository struct {
	q Queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(q Queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: q}
}

// Record inserts a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	query := `
		INSERT INTO balance_history (account_id, draw_id, balance_before, balance_after,
		                             change_amount, transaction_type, transaction_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		history.AccountID,
		history.DrawID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		history.TransactionMetadata,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for account %d: %w", history.AccountID, err)
	}

	return nil
}

// GetByAccount retrieves an account's balance history, most recent first
func (r *BalanceHistoryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, account_id, draw_id, balance_before, balance_after,
		       change_amount, transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

// GetByDraw retrieves all balance changes attributed to a draw
func (r *BalanceHistoryRepository) GetByDraw(ctx context.Context, drawID int64) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, account_id, draw_id, balance_before, balance_after,
		       change_amount, transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE draw_id = $1
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for draw %d: %w", drawID, err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

func collectHistory(rows pgx.Rows) ([]*entities.BalanceHistory, error) {
	var entries []*entities.BalanceHistory
	for rows.Next() {
		var entry entities.BalanceHistory
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.DrawID,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.ChangeAmount,
			&entry.TransactionType,
			&entry.TransactionMetadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return entries, nil
}
