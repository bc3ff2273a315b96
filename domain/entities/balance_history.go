package entities

import (
	"time"
)

// BalanceHistory represents a historical balance change in the pool
// ledger, the audit trail behind the conservation invariant.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	AccountID           int64           `db:"account_id"`
	DrawID              *int64          `db:"draw_id"` // NULL for changes outside a draw context
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}

// IsPositiveChange returns true if the change amount is positive
func (bh *BalanceHistory) IsPositiveChange() bool {
	return bh.ChangeAmount > 0
}

// IsNegativeChange returns true if the change amount is negative
func (bh *BalanceHistory) IsNegativeChange() bool {
	return bh.ChangeAmount < 0
}

// IsRewardTransaction returns true if the reward step produced this change
func (bh *BalanceHistory) IsRewardTransaction() bool {
	return bh.TransactionType.IsRewardGenerated()
}
