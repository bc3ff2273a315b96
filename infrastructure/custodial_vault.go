package infrastructure

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// CustodialVault is an in-memory custody account implementing both the
// external balance provider and the fund gateway. It stands in for a
// yield-bearing custody integration: deposits and accrued yield are
// credited, withdrawals transfer out.
type CustodialVault struct {
	mu      sync.Mutex
	balance int64
}

// NewCustodialVault creates an empty vault.
func NewCustodialVault() *CustodialVault {
	return &CustodialVault{}
}

// Balance returns the vault's current balance.
func (v *CustodialVault) Balance(ctx context.Context) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

// Credit adds deposited funds or accrued yield to the vault.
func (v *CustodialVault) Credit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance += amount
	return nil
}

// TransferOut moves withdrawn funds out of the vault.
func (v *CustodialVault) TransferOut(ctx context.Context, accountID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative, got %d", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if amount > v.balance {
		return fmt.Errorf("vault balance %d cannot cover transfer of %d", v.balance, amount)
	}
	v.balance -= amount

	log.WithFields(log.Fields{
		"accountID": accountID,
		"amount":    amount,
		"remaining": v.balance,
	}).Debug("Transferred funds out of vault")
	return nil
}
