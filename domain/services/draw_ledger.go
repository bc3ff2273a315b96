package services

import (
	"fmt"
	"time"

	"prizepool/domain/entities"
	"prizepool/domain/fixedpoint"
	"prizepool/domain/interfaces"
	"prizepool/domain/sumtree"
	"prizepool/domain/timelock"
)

// DrawLedger is the in-memory draw lifecycle engine: two selection
// trees (open and committed stage), per-account ledger balances, the
// accounted balance, the draw records and the time-lock guard.
//
// It is a strictly serialized state machine: the owning facade holds a
// single lock across every call, and no method performs IO. Time is
// the block counter value callers pass in.
type DrawLedger struct {
	openTree      *sumtree.Tree
	committedTree *sumtree.Tree
	guard         *timelock.Guard

	// balances holds each account's total ledger balance: open plus
	// committed deposits plus credited fees and winnings.
	balances  map[int64]int64
	accounted int64

	draws           map[int64]*entities.Draw
	openDrawID      int64
	committedDrawID int64
	nextDrawID      int64

	nextFeeFraction    fixedpoint.Fraction
	nextFeeBeneficiary int64
}

// OpenNextDrawResult reports the outcome of an OpenNextDraw call.
type OpenNextDrawResult struct {
	Opened *entities.Draw

	// Committed is the draw promoted from open to committed by this
	// call, nil when this opened the very first draw.
	Committed *entities.Draw

	// PromotedOpenSupply is the open-stage supply moved to the
	// committed stage, reported to the share-token listener.
	PromotedOpenSupply int64
}

// NewDrawLedger creates a ledger with no draws. The first OpenNextDraw
// call creates draw 1.
func NewDrawLedger(guard *timelock.Guard, feeFraction fixedpoint.Fraction, feeBeneficiary int64) (*DrawLedger, error) {
	if guard == nil {
		return nil, fmt.Errorf("%w: nil time-lock guard", entities.ErrInvalidArgument)
	}
	if !feeFraction.Valid() {
		return nil, fmt.Errorf("%w: fee fraction %s outside [0,1]", entities.ErrInvalidArgument, feeFraction)
	}
	if feeBeneficiary == entities.NoAccount {
		return nil, fmt.Errorf("%w: zero fee beneficiary", entities.ErrInvalidArgument)
	}

	return &DrawLedger{
		openTree:           sumtree.New(),
		committedTree:      sumtree.New(),
		guard:              guard,
		balances:           make(map[int64]int64),
		draws:              make(map[int64]*entities.Draw),
		nextDrawID:         1,
		nextFeeFraction:    feeFraction,
		nextFeeBeneficiary: feeBeneficiary,
	}, nil
}

// OpenNextDraw promotes the current open draw (if any) to the
// committed stage and opens a new draw snapshotting the current
// next-draw fee settings. Fails with ErrNotYetRewarded while a
// committed draw is still awaiting its reward.
func (l *DrawLedger) OpenNextDraw(nowBlock int64) (*OpenNextDrawResult, error) {
	if l.committedDrawID != 0 && !l.draws[l.committedDrawID].IsRewarded() {
		return nil, entities.ErrNotYetRewarded
	}

	result := &OpenNextDrawResult{}

	if l.openDrawID != 0 {
		// Promote: bulk-merge the open tree into the committed tree.
		// Committed weights accumulate so earlier depositors stay
		// eligible in every subsequent draw.
		promoted := l.openTree.TotalWeight()
		for _, stake := range l.openTree.Entries() {
			merged := l.committedTree.WeightOf(stake.Account) + stake.Weight
			if err := l.committedTree.Set(stake.Account, merged); err != nil {
				return nil, fmt.Errorf("promoting account %d: %w", stake.Account, err)
			}
		}
		l.openTree = sumtree.New()
		l.committedDrawID = l.openDrawID
		result.Committed = l.draws[l.committedDrawID]
		result.PromotedOpenSupply = promoted
	}

	draw := &entities.Draw{
		ID:             l.nextDrawID,
		FeeFraction:    l.nextFeeFraction,
		FeeBeneficiary: l.nextFeeBeneficiary,
		OpenedAtBlock:  nowBlock,
		CreatedAt:      time.Now().UTC(),
	}
	l.draws[draw.ID] = draw
	l.openDrawID = draw.ID
	l.nextDrawID++

	result.Opened = draw
	return result, nil
}

// Deposit credits the account's ledger balance and open-stage weight.
func (l *DrawLedger) Deposit(accountID, amount int64) error {
	if accountID == entities.NoAccount {
		return fmt.Errorf("%w: zero account id", entities.ErrInvalidArgument)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: deposit amount must be positive, got %d", entities.ErrInvalidArgument, amount)
	}
	if l.openDrawID == 0 {
		return entities.ErrNoOpenDraw
	}
	if amount > fixedpoint.MaxAmount-l.accounted {
		return fmt.Errorf("%w: accounted balance", fixedpoint.ErrOverflow)
	}

	if err := l.openTree.Set(accountID, l.openTree.WeightOf(accountID)+amount); err != nil {
		return err
	}
	l.balances[accountID] += amount
	l.accounted += amount
	return nil
}

// WithdrawAll removes the account's entire ledger balance, zeroing
// both tree weights. Disallowed while the pool is locked.
func (l *DrawLedger) WithdrawAll(accountID, nowBlock int64) (int64, error) {
	if accountID == entities.NoAccount {
		return 0, fmt.Errorf("%w: zero account id", entities.ErrInvalidArgument)
	}
	if l.guard.IsLocked(nowBlock) {
		return 0, entities.ErrPoolLocked
	}

	amount := l.balances[accountID]
	if amount == 0 {
		return 0, fmt.Errorf("%w: account %d has no balance", entities.ErrInsufficientFunds, accountID)
	}

	if err := l.openTree.Set(accountID, 0); err != nil {
		return 0, err
	}
	if err := l.committedTree.Set(accountID, 0); err != nil {
		return 0, err
	}
	delete(l.balances, accountID)
	l.accounted -= amount
	return amount, nil
}

// WithdrawOpen removes exactly amount from the account's open-stage
// weight and ledger balance.
func (l *DrawLedger) WithdrawOpen(accountID, amount, nowBlock int64) error {
	return l.withdrawStaged(l.openTree, accountID, amount, nowBlock)
}

// WithdrawCommitted removes exactly amount from the account's
// committed-stage weight and ledger balance.
func (l *DrawLedger) WithdrawCommitted(accountID, amount, nowBlock int64) error {
	return l.withdrawStaged(l.committedTree, accountID, amount, nowBlock)
}

func (l *DrawLedger) withdrawStaged(tree *sumtree.Tree, accountID, amount, nowBlock int64) error {
	if accountID == entities.NoAccount {
		return fmt.Errorf("%w: zero account id", entities.ErrInvalidArgument)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: withdrawal amount must be positive, got %d", entities.ErrInvalidArgument, amount)
	}
	if l.guard.IsLocked(nowBlock) {
		return entities.ErrPoolLocked
	}

	weight := tree.WeightOf(accountID)
	if amount > weight {
		return fmt.Errorf("%w: requested %d, staged deposit is %d", entities.ErrInsufficientFunds, amount, weight)
	}
	if amount > l.balances[accountID] {
		return fmt.Errorf("%w: requested %d, balance is %d", entities.ErrInsufficientFunds, amount, l.balances[accountID])
	}

	if err := tree.Set(accountID, weight-amount); err != nil {
		return err
	}
	l.balances[accountID] -= amount
	if l.balances[accountID] == 0 {
		delete(l.balances, accountID)
	}
	l.accounted -= amount
	return nil
}

// Reward finalizes the committed draw. The caller supplies the block
// counter, the 32-byte draw entropy and a snapshot of the external
// balance taken once at the start of the operation.
//
// When no eligible participant exists or net winnings are zero, the
// accounted balance advances only by the fee: the undistributed yield
// deliberately stays unaccounted and rolls into the next reward's
// gross winnings instead of being lost.
func (l *DrawLedger) Reward(nowBlock int64, entropy [32]byte, externalBalance int64) (*interfaces.RewardResult, error) {
	if l.committedDrawID == 0 {
		return nil, entities.ErrNoCommittedDraw
	}
	draw := l.draws[l.committedDrawID]
	if draw.IsRewarded() {
		return nil, entities.ErrAlreadyRewarded
	}
	if !l.guard.IsLocked(nowBlock) {
		return nil, entities.ErrPoolNotLocked
	}

	l.guard.Unlock(nowBlock)

	winner := l.committedTree.Draw(entropy)

	gross := fixedpoint.ClampAmount(externalBalance - l.accounted)
	fee, err := draw.FeeFraction.MulAmount(gross)
	if err != nil {
		return nil, fmt.Errorf("computing fee for draw %d: %w", draw.ID, err)
	}
	net := gross - fee

	if fee > 0 {
		l.balances[draw.FeeBeneficiary] += fee
	}

	rolledOver := winner == entities.NoAccount || net == 0
	if !rolledOver {
		// Winnings start compounding immediately: credit the ledger and
		// the current open tree under the winner's account.
		if err := l.openTree.Set(winner, l.openTree.WeightOf(winner)+net); err != nil {
			return nil, err
		}
		l.balances[winner] += net
		l.accounted = externalBalance
	} else {
		l.accounted += fee
		if winner == entities.NoAccount {
			net = 0
		}
	}

	draw.Finalize(entropy, winner, net, fee)

	return &interfaces.RewardResult{
		Draw:          draw,
		Winner:        winner,
		GrossWinnings: gross,
		NetWinnings:   net,
		Fee:           fee,
		RolledOver:    rolledOver,
	}, nil
}

// Lock starts the reward lock window.
func (l *DrawLedger) Lock(nowBlock int64) error {
	return l.guard.Lock(nowBlock)
}

// Unlock ends the reward lock window. Idempotent.
func (l *DrawLedger) Unlock(nowBlock int64) {
	l.guard.Unlock(nowBlock)
}

// IsLocked reports whether the reward lock window is active.
func (l *DrawLedger) IsLocked(nowBlock int64) bool {
	return l.guard.IsLocked(nowBlock)
}

// CanLock reports whether Lock would succeed at nowBlock.
func (l *DrawLedger) CanLock(nowBlock int64) bool {
	return l.guard.CanLock(nowBlock)
}

// SetNextFeeFraction updates the fee fraction snapshotted by the next
// OpenNextDraw.
func (l *DrawLedger) SetNextFeeFraction(fraction fixedpoint.Fraction) error {
	if !fraction.Valid() {
		return fmt.Errorf("%w: fee fraction %s outside [0,1]", entities.ErrInvalidArgument, fraction)
	}
	l.nextFeeFraction = fraction
	return nil
}

// SetNextFeeBeneficiary updates the beneficiary snapshotted by the
// next OpenNextDraw.
func (l *DrawLedger) SetNextFeeBeneficiary(beneficiary int64) error {
	if beneficiary == entities.NoAccount {
		return fmt.Errorf("%w: zero fee beneficiary", entities.ErrInvalidArgument)
	}
	l.nextFeeBeneficiary = beneficiary
	return nil
}

// BalanceOf returns the account's total ledger balance.
func (l *DrawLedger) BalanceOf(accountID int64) int64 {
	return l.balances[accountID]
}

// OpenWeightOf returns the account's open-stage weight.
func (l *DrawLedger) OpenWeightOf(accountID int64) int64 {
	return l.openTree.WeightOf(accountID)
}

// CommittedWeightOf returns the account's committed-stage weight.
func (l *DrawLedger) CommittedWeightOf(accountID int64) int64 {
	return l.committedTree.WeightOf(accountID)
}

// OpenSupply returns the open tree's total weight.
func (l *DrawLedger) OpenSupply() int64 {
	return l.openTree.TotalWeight()
}

// CommittedSupply returns the committed tree's total weight.
func (l *DrawLedger) CommittedSupply() int64 {
	return l.committedTree.TotalWeight()
}

// AccountedBalance returns the ledger's belief about total custodied
// funds.
func (l *DrawLedger) AccountedBalance() int64 {
	return l.accounted
}

// TotalLedgerBalance returns the sum of all account balances. Equals
// AccountedBalance in every settled state.
func (l *DrawLedger) TotalLedgerBalance() int64 {
	var sum int64
	for _, b := range l.balances {
		sum += b
	}
	return sum
}

// CurrentOpenDraw returns the open draw, nil before the first open.
func (l *DrawLedger) CurrentOpenDraw() *entities.Draw {
	if l.openDrawID == 0 {
		return nil
	}
	return l.draws[l.openDrawID]
}

// CurrentCommittedDraw returns the most recently committed draw
// (possibly already rewarded), nil before draw 2 opens.
func (l *DrawLedger) CurrentCommittedDraw() *entities.Draw {
	if l.committedDrawID == 0 {
		return nil
	}
	return l.draws[l.committedDrawID]
}

// DrawByID returns the draw record with the given id, nil if unknown.
func (l *DrawLedger) DrawByID(id int64) *entities.Draw {
	return l.draws[id]
}

// OddsOf returns the account's chance of winning the committed draw.
func (l *DrawLedger) OddsOf(accountID int64) fixedpoint.Fraction {
	total := l.committedTree.TotalWeight()
	if total == 0 {
		return fixedpoint.Zero
	}
	odds, err := fixedpoint.NewFraction(l.committedTree.WeightOf(accountID), total)
	if err != nil {
		return fixedpoint.Zero
	}
	return odds
}
