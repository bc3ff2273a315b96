package interfaces

import (
	"context"

	"prizepool/domain/entities"
	"prizepool/domain/events"
	"prizepool/domain/fixedpoint"
)

// EntropySource supplies the external seed used to pick draw winners.
// The seed is hashed to 32 bytes before use as draw entropy; the source
// itself is a trusted oracle input.
type EntropySource interface {
	// IsCommitPhase reports whether the source is still in its commit
	// phase, i.e. the current seed has not been revealed yet
	IsCommitPhase(ctx context.Context) (bool, error)

	// CurrentSeed returns the revealed seed
	CurrentSeed(ctx context.Context) (int64, error)
}

// ExternalBalanceProvider reports the pool's externally custodied
// funds. How that balance grows is outside the core's scope; the gap
// between it and the accounted balance is the yield a reward
// distributes.
type ExternalBalanceProvider interface {
	Balance(ctx context.Context) (int64, error)
}

// FundGateway moves withdrawn funds out of the pool's custody. The
// facade finishes all state mutation before invoking it.
type FundGateway interface {
	TransferOut(ctx context.Context, accountID, amount int64) error
}

// BlockCounter exposes the external monotonic sequence counter the
// lock and cooldown windows are evaluated against.
type BlockCounter interface {
	CurrentBlock(ctx context.Context) (int64, error)
}

// ShareTokenListener is notified synchronously so an external
// share-token ledger can mint and burn in lockstep. It is optional;
// its absence does not affect core correctness, and its failures are
// logged rather than propagated.
type ShareTokenListener interface {
	OnDrawCommitted(ctx context.Context, openSupplyAtCommit int64) error
	OnWithdraw(ctx context.Context, accountID, amount int64) error
}

// DrawWinnerListener is a per-winner opt-in callback invoked after a
// winner is finalized. It runs last of all reward side effects: a
// failure propagates to the Reward caller, but state committed up to
// that point is final.
type DrawWinnerListener interface {
	OnDrawWinner(ctx context.Context, drawID, winner, netWinnings int64) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// DepositResult describes a completed deposit.
type DepositResult struct {
	AccountID  int64
	Amount     int64
	NewBalance int64
	DrawID     int64
}

// WithdrawResult describes a completed withdrawal.
type WithdrawResult struct {
	AccountID int64
	Amount    int64
}

// RewardResult describes a finalized draw reward.
type RewardResult struct {
	Draw          *entities.Draw
	Winner        int64
	GrossWinnings int64
	NetWinnings   int64
	Fee           int64
	RolledOver    bool
}

// PoolService is the externally callable surface of the pool. Every
// operation executes under a single serialization lock; no two
// operations interleave.
type PoolService interface {
	// Deposit adds funds to the current open draw for the account
	Deposit(ctx context.Context, accountID, amount int64) (*DepositResult, error)

	// Withdraw removes the account's entire ledger balance from the pool
	Withdraw(ctx context.Context, accountID int64) (*WithdrawResult, error)

	// WithdrawOpenDeposit removes exactly amount from the account's
	// open-stage deposit
	WithdrawOpenDeposit(ctx context.Context, accountID, amount int64) (*WithdrawResult, error)

	// WithdrawCommittedDeposit removes exactly amount from the account's
	// committed-stage deposit
	WithdrawCommittedDeposit(ctx context.Context, accountID, amount int64) (*WithdrawResult, error)

	// OpenNextDraw promotes the current open draw to committed (if one
	// exists) and opens a new draw
	OpenNextDraw(ctx context.Context) (*entities.Draw, error)

	// Lock starts the reward lock window
	Lock(ctx context.Context, callerID int64) error

	// Unlock ends the reward lock window without rewarding
	Unlock(ctx context.Context, callerID int64) error

	// Reward finalizes the committed draw: picks a winner, splits the
	// yield into fee and net winnings, and re-deposits the winnings
	Reward(ctx context.Context, callerID int64) (*RewardResult, error)

	// Admin operations on next-draw settings
	SetNextFeeFraction(ctx context.Context, callerID int64, fraction fixedpoint.Fraction) error
	SetNextFeeBeneficiary(ctx context.Context, callerID, beneficiary int64) error
	PauseDeposits(ctx context.Context, callerID int64) error
	ResumeDeposits(ctx context.Context, callerID int64) error

	// RegisterWinnerListener opts an account into winner notifications
	RegisterWinnerListener(accountID int64, listener DrawWinnerListener)

	// UnregisterWinnerListener removes an account's winner listener
	UnregisterWinnerListener(accountID int64)

	// Read surface
	CurrentOpenDraw() *entities.Draw
	CurrentCommittedDraw() *entities.Draw
	AccountedBalance() int64
	OpenSupply() int64
	CommittedSupply() int64
	TotalBalanceOf(accountID int64) int64
	OpenBalanceOf(accountID int64) int64
	CommittedBalanceOf(accountID int64) int64
	OddsOf(accountID int64) fixedpoint.Fraction
	IsLocked(ctx context.Context) (bool, error)
	CanLock(ctx context.Context) (bool, error)
}
