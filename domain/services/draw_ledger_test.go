package services

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"prizepool/domain/entities"
	"prizepool/domain/fixedpoint"
	"prizepool/domain/timelock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBeneficiary = int64(900)
	testLockBlocks  = int64(10)
	testCooldown    = int64(5)
)

func newTestLedger(t *testing.T, feeFraction string) *DrawLedger {
	t.Helper()

	guard, err := timelock.New(testLockBlocks, testCooldown)
	require.NoError(t, err)

	fraction, err := fixedpoint.ParseFraction(feeFraction)
	require.NoError(t, err)

	ledger, err := NewDrawLedger(guard, fraction, testBeneficiary)
	require.NoError(t, err)
	return ledger
}

func testEntropy(i uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	return sha256.Sum256(buf[:])
}

// assertConserved checks the pool-wide conservation invariant.
func assertConserved(t *testing.T, ledger *DrawLedger) {
	t.Helper()
	assert.Equal(t, ledger.AccountedBalance(), ledger.TotalLedgerBalance(),
		"sum of ledger balances must equal accounted balance")
}

func TestNewDrawLedgerValidation(t *testing.T) {
	t.Parallel()

	guard, err := timelock.New(10, 5)
	require.NoError(t, err)

	_, err = NewDrawLedger(nil, fixedpoint.Zero, testBeneficiary)
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)

	_, err = NewDrawLedger(guard, fixedpoint.One+1, testBeneficiary)
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)

	_, err = NewDrawLedger(guard, fixedpoint.Zero, entities.NoAccount)
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestOpenNextDrawSequencing(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")

	// First open creates draw 1 with nothing to promote.
	res, err := ledger.OpenNextDraw(100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Opened.ID)
	assert.Nil(t, res.Committed)

	// Second open promotes draw 1 and creates draw 2.
	res, err = ledger.OpenNextDraw(110)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Opened.ID)
	require.NotNil(t, res.Committed)
	assert.Equal(t, int64(1), res.Committed.ID)

	// Draw 1 is committed and unrewarded, so a third open must fail.
	_, err = ledger.OpenNextDraw(120)
	assert.ErrorIs(t, err, entities.ErrNotYetRewarded)
	assert.ErrorIs(t, err, entities.ErrPreconditionViolation)

	// After rewarding, ids keep incrementing by exactly one.
	require.NoError(t, ledger.Lock(120))
	_, err = ledger.Reward(121, testEntropy(1), ledger.AccountedBalance())
	require.NoError(t, err)

	res, err = ledger.OpenNextDraw(130)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Opened.ID)
	assert.Equal(t, int64(2), res.Committed.ID)
}

func TestDepositValidation(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")

	// No open draw yet.
	assert.ErrorIs(t, ledger.Deposit(1, 100), entities.ErrNoOpenDraw)

	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)

	assert.ErrorIs(t, ledger.Deposit(entities.NoAccount, 100), entities.ErrInvalidArgument)
	assert.ErrorIs(t, ledger.Deposit(1, 0), entities.ErrInvalidArgument)
	assert.ErrorIs(t, ledger.Deposit(1, -5), entities.ErrInvalidArgument)

	require.NoError(t, ledger.Deposit(1, 100))
	assert.Equal(t, int64(100), ledger.OpenWeightOf(1))
	assert.Equal(t, int64(100), ledger.BalanceOf(1))
	assert.Equal(t, int64(100), ledger.AccountedBalance())
	assert.Equal(t, int64(0), ledger.CommittedWeightOf(1))
	assertConserved(t, ledger)
}

func TestPromotionMovesOpenToCommitted(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)

	require.NoError(t, ledger.Deposit(1, 70))
	require.NoError(t, ledger.Deposit(2, 30))
	assert.Equal(t, int64(100), ledger.OpenSupply())
	assert.Equal(t, int64(0), ledger.CommittedSupply())

	res, err := ledger.OpenNextDraw(10)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.PromotedOpenSupply)

	assert.Equal(t, int64(0), ledger.OpenSupply())
	assert.Equal(t, int64(100), ledger.CommittedSupply())
	assert.Equal(t, int64(70), ledger.CommittedWeightOf(1))

	// Deposits after promotion land in the new open stage and do not
	// change committed odds.
	require.NoError(t, ledger.Deposit(3, 500))
	assert.Equal(t, int64(500), ledger.OpenSupply())
	assert.Equal(t, int64(100), ledger.CommittedSupply())
	assert.Equal(t, fixedpoint.Zero, ledger.OddsOf(3))
	assertConserved(t, ledger)
}

func TestCommittedWeightsAccumulateAcrossDraws(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 10))

	_, err = ledger.OpenNextDraw(10)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 5))

	require.NoError(t, ledger.Lock(10))
	_, err = ledger.Reward(11, testEntropy(1), ledger.AccountedBalance())
	require.NoError(t, err)

	_, err = ledger.OpenNextDraw(20)
	require.NoError(t, err)
	assert.Equal(t, int64(15), ledger.CommittedWeightOf(1))
	assert.Equal(t, int64(0), ledger.OpenWeightOf(1))
}

func TestRewardPaysFullYieldToSingleWinner(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)

	require.NoError(t, ledger.Deposit(1, 10))
	require.NoError(t, ledger.Deposit(2, 10))

	_, err = ledger.OpenNextDraw(10)
	require.NoError(t, err)

	require.NoError(t, ledger.Lock(10))

	// External balance grew by 2 units of yield.
	result, err := ledger.Reward(15, testEntropy(7), 22)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.GrossWinnings)
	assert.Equal(t, int64(2), result.NetWinnings)
	assert.Equal(t, int64(0), result.Fee)
	assert.False(t, result.RolledOver)
	require.Contains(t, []int64{1, 2}, result.Winner)

	loser := int64(3) - result.Winner
	assert.Equal(t, int64(12), ledger.BalanceOf(result.Winner))
	assert.Equal(t, int64(10), ledger.BalanceOf(loser))

	// Winnings re-enter the current open stage immediately.
	assert.Equal(t, int64(2), ledger.OpenWeightOf(result.Winner))
	assert.Equal(t, int64(22), ledger.AccountedBalance())
	assertConserved(t, ledger)

	// The draw record is finalized and immutable.
	assert.True(t, result.Draw.IsRewarded())
	assert.Equal(t, result.Winner, result.Draw.Winner)
	assert.NotNil(t, result.Draw.RewardedAt)
}

func TestRewardFeeSplitRoundsHalfUp(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0.1")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 100))

	_, err = ledger.OpenNextDraw(10)
	require.NoError(t, err)
	require.NoError(t, ledger.Lock(10))

	// Gross 25: fee = 2.5 rounded half-up to 3, net 22.
	result, err := ledger.Reward(12, testEntropy(3), 125)
	require.NoError(t, err)

	assert.Equal(t, int64(25), result.GrossWinnings)
	assert.Equal(t, int64(3), result.Fee)
	assert.Equal(t, int64(22), result.NetWinnings)
	assert.Equal(t, int64(1), result.Winner)

	assert.Equal(t, int64(3), ledger.BalanceOf(testBeneficiary))
	assert.Equal(t, int64(122), ledger.BalanceOf(1))
	assert.Equal(t, int64(125), ledger.AccountedBalance())
	assertConserved(t, ledger)
}

func TestRewardPreconditions(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")

	// No committed draw at all.
	_, err := ledger.Reward(1, testEntropy(1), 0)
	assert.ErrorIs(t, err, entities.ErrNoCommittedDraw)

	_, err = ledger.OpenNextDraw(1)
	require.NoError(t, err)
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	// Committed draw exists but the pool is not locked.
	_, err = ledger.Reward(6, testEntropy(1), 0)
	assert.ErrorIs(t, err, entities.ErrPoolNotLocked)

	require.NoError(t, ledger.Lock(6))
	_, err = ledger.Reward(7, testEntropy(1), 0)
	require.NoError(t, err)

	// A second reward of the same draw fails even when locked again.
	require.NoError(t, ledger.Lock(20))
	_, err = ledger.Reward(21, testEntropy(2), 0)
	assert.ErrorIs(t, err, entities.ErrAlreadyRewarded)
}

func TestRewardUnlocksGuard(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	require.NoError(t, ledger.Lock(6))
	_, err = ledger.Reward(8, testEntropy(1), 0)
	require.NoError(t, err)

	assert.False(t, ledger.IsLocked(8))
	// Cooldown runs from the unlock inside Reward.
	assert.False(t, ledger.CanLock(9))
	assert.True(t, ledger.CanLock(13))
}

func TestNoWinnerRollover(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")

	// Two empty draws: the committed tree has no participants.
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	// First yield increment arrives with nobody committed.
	require.NoError(t, ledger.Lock(10))
	result, err := ledger.Reward(11, testEntropy(1), 2)
	require.NoError(t, err)
	assert.True(t, result.RolledOver)
	assert.Equal(t, entities.NoAccount, result.Winner)
	assert.Equal(t, int64(2), result.GrossWinnings)
	assert.Equal(t, int64(0), result.NetWinnings)

	// Accounted balance advanced only by the (zero) fee; the yield
	// stays unaccounted and rolls forward.
	assert.Equal(t, int64(0), ledger.AccountedBalance())

	// Second cycle: the rolled-over yield plus new yield is the gross.
	_, err = ledger.OpenNextDraw(20)
	require.NoError(t, err)
	require.NoError(t, ledger.Lock(20))
	result, err = ledger.Reward(21, testEntropy(2), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.GrossWinnings)
	assertConserved(t, ledger)
}

func TestNoWinnerRolloverStillCreditsFee(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0.5")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	require.NoError(t, ledger.Lock(10))
	result, err := ledger.Reward(11, testEntropy(1), 2)
	require.NoError(t, err)

	assert.True(t, result.RolledOver)
	assert.Equal(t, int64(1), result.Fee)
	assert.Equal(t, int64(1), ledger.BalanceOf(testBeneficiary))
	assert.Equal(t, int64(1), ledger.AccountedBalance())
	assertConserved(t, ledger)
}

func TestSingleCommittedParticipantAlwaysWins(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(42, 1))
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	require.NoError(t, ledger.Lock(10))
	result, err := ledger.Reward(11, [32]byte{}, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Winner)
}

func TestWithdrawAll(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 30))
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 20))

	// Locked pool rejects withdrawals.
	require.NoError(t, ledger.Lock(10))
	_, err = ledger.WithdrawAll(1, 12)
	assert.ErrorIs(t, err, entities.ErrPoolLocked)
	ledger.Unlock(12)

	amount, err := ledger.WithdrawAll(1, 13)
	require.NoError(t, err)
	assert.Equal(t, int64(50), amount)
	assert.Equal(t, int64(0), ledger.BalanceOf(1))
	assert.Equal(t, int64(0), ledger.OpenWeightOf(1))
	assert.Equal(t, int64(0), ledger.CommittedWeightOf(1))
	assert.Equal(t, int64(0), ledger.AccountedBalance())
	assertConserved(t, ledger)

	_, err = ledger.WithdrawAll(1, 14)
	assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
}

func TestPartialWithdrawals(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 30))
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 20))

	// 30 committed, 20 open.
	assert.ErrorIs(t, ledger.WithdrawOpen(1, 21, 6), entities.ErrInsufficientFunds)
	assert.ErrorIs(t, ledger.WithdrawCommitted(1, 31, 6), entities.ErrInsufficientFunds)
	assert.ErrorIs(t, ledger.WithdrawOpen(1, 0, 6), entities.ErrInvalidArgument)

	require.NoError(t, ledger.WithdrawOpen(1, 5, 6))
	assert.Equal(t, int64(15), ledger.OpenWeightOf(1))
	assert.Equal(t, int64(45), ledger.BalanceOf(1))

	require.NoError(t, ledger.WithdrawCommitted(1, 30, 7))
	assert.Equal(t, int64(0), ledger.CommittedWeightOf(1))
	assert.Equal(t, int64(15), ledger.BalanceOf(1))
	assert.Equal(t, int64(15), ledger.AccountedBalance())
	assertConserved(t, ledger)
}

func TestFeeBeneficiaryCanWithdrawCredits(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0.5")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 100))
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	require.NoError(t, ledger.Lock(10))
	_, err = ledger.Reward(11, testEntropy(1), 110)
	require.NoError(t, err)
	require.Equal(t, int64(5), ledger.BalanceOf(testBeneficiary))

	// The beneficiary holds no tree weight, only a ledger credit.
	amount, err := ledger.WithdrawAll(testBeneficiary, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5), amount)
	assertConserved(t, ledger)
}

func TestNextFeeSettingsSnapshotAtOpen(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0.1")
	res, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	firstFraction := res.Opened.FeeFraction

	half, err := fixedpoint.ParseFraction("0.5")
	require.NoError(t, err)
	require.NoError(t, ledger.SetNextFeeFraction(half))
	require.NoError(t, ledger.SetNextFeeBeneficiary(901))

	// The already-open draw keeps its snapshot.
	assert.Equal(t, firstFraction, ledger.CurrentOpenDraw().FeeFraction)
	assert.Equal(t, testBeneficiary, ledger.CurrentOpenDraw().FeeBeneficiary)

	res, err = ledger.OpenNextDraw(10)
	require.NoError(t, err)
	assert.Equal(t, half, res.Opened.FeeFraction)
	assert.Equal(t, int64(901), res.Opened.FeeBeneficiary)

	assert.ErrorIs(t, ledger.SetNextFeeFraction(fixedpoint.One+1), entities.ErrInvalidArgument)
	assert.ErrorIs(t, ledger.SetNextFeeBeneficiary(entities.NoAccount), entities.ErrInvalidArgument)
}

func TestConservationAcrossOperationSequence(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0.1")
	block := int64(1)

	_, err := ledger.OpenNextDraw(block)
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, ledger.Deposit(i, i*100))
		assertConserved(t, ledger)
	}

	block = 20
	_, err = ledger.OpenNextDraw(block)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(6, 50))
	assertConserved(t, ledger)

	require.NoError(t, ledger.WithdrawOpen(6, 25, block))
	require.NoError(t, ledger.WithdrawCommitted(2, 200, block))
	assertConserved(t, ledger)

	require.NoError(t, ledger.Lock(block))
	_, err = ledger.Reward(block+1, testEntropy(9), ledger.AccountedBalance()+77)
	require.NoError(t, err)
	assertConserved(t, ledger)

	block = 40
	_, err = ledger.OpenNextDraw(block)
	require.NoError(t, err)
	_, err = ledger.WithdrawAll(1, block)
	require.NoError(t, err)
	assertConserved(t, ledger)
}

func TestRewardFairnessProportionalToCommittedWeight(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, "0")
	_, err := ledger.OpenNextDraw(1)
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(1, 70))
	require.NoError(t, ledger.Deposit(2, 30))
	_, err = ledger.OpenNextDraw(5)
	require.NoError(t, err)

	seven, err := fixedpoint.NewFraction(70, 100)
	require.NoError(t, err)
	assert.Equal(t, seven, ledger.OddsOf(1))

	three, err := fixedpoint.NewFraction(30, 100)
	require.NoError(t, err)
	assert.Equal(t, three, ledger.OddsOf(2))
}
