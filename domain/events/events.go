package events

import "prizepool/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange EventType = "balance_change"
	EventTypeDrawOpened    EventType = "draw_opened"
	EventTypeDrawCommitted EventType = "draw_committed"
	EventTypeDrawRewarded  EventType = "draw_rewarded"
	EventTypeDepositPause  EventType = "deposit_pause"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a ledger balance change that occurred
type BalanceChangeEvent struct {
	AccountID       int64
	OldBalance      int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionType entities.TransactionType
	DrawID          int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// DrawOpenedEvent represents a new draw entering the open stage
type DrawOpenedEvent struct {
	DrawID         int64
	OpenedAtBlock  int64
	FeeFraction    string
	FeeBeneficiary int64
}

func (e DrawOpenedEvent) Type() EventType {
	return EventTypeDrawOpened
}

// DrawCommittedEvent represents an open draw being promoted to the
// committed stage
type DrawCommittedEvent struct {
	DrawID             int64
	CommittedSupply    int64
	PromotedOpenSupply int64
}

func (e DrawCommittedEvent) Type() EventType {
	return EventTypeDrawCommitted
}

// DrawRewardedEvent represents a committed draw being finalized
type DrawRewardedEvent struct {
	DrawID        int64
	Winner        int64
	GrossWinnings int64
	NetWinnings   int64
	Fee           int64
	RolledOver    bool
}

func (e DrawRewardedEvent) Type() EventType {
	return EventTypeDrawRewarded
}

// DepositPauseEvent represents deposits being paused or resumed
type DepositPauseEvent struct {
	Paused bool
}

func (e DepositPauseEvent) Type() EventType {
	return EventTypeDepositPause
}
