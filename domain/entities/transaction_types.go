package entities

// TransactionType represents the type of balance change
type TransactionType string

// All transaction types supported by the system
const (
	// Depositor-initiated transactions
	TransactionTypeDeposit           TransactionType = "deposit"
	TransactionTypeWithdraw          TransactionType = "withdraw"
	TransactionTypeOpenWithdraw      TransactionType = "open_withdraw"
	TransactionTypeCommittedWithdraw TransactionType = "committed_withdraw"

	// Reward-step transactions
	TransactionTypeWinnings TransactionType = "winnings"
	TransactionTypeFee      TransactionType = "fee"
)

// IsCredit returns true if the transaction type increases the account balance
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypeDeposit ||
		tt == TransactionTypeWinnings ||
		tt == TransactionTypeFee
}

// IsWithdrawal returns true if the transaction type moves funds out of the pool
func (tt TransactionType) IsWithdrawal() bool {
	return tt == TransactionTypeWithdraw ||
		tt == TransactionTypeOpenWithdraw ||
		tt == TransactionTypeCommittedWithdraw
}

// IsRewardGenerated returns true if the transaction was produced by the reward step
func (tt TransactionType) IsRewardGenerated() bool {
	return tt == TransactionTypeWinnings || tt == TransactionTypeFee
}
