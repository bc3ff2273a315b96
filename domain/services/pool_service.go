package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"prizepool/domain/entities"
	"prizepool/domain/events"
	"prizepool/domain/fixedpoint"
	"prizepool/domain/interfaces"
	"prizepool/domain/utils"

	log "github.com/sirupsen/logrus"
)

// poolService implements the externally callable pool surface. A
// single mutex serializes every operation: the reward computation
// depends on reading the accounted balance and the committed supply
// atomically relative to concurrent deposits.
type poolService struct {
	mu sync.Mutex

	ledger *DrawLedger
	policy entities.AccessPolicy

	entropySource   interfaces.EntropySource
	balanceProvider interfaces.ExternalBalanceProvider
	fundGateway     interfaces.FundGateway
	blockCounter    interfaces.BlockCounter

	shareListener   interfaces.ShareTokenListener // optional, may be nil
	winnerListeners map[int64]interfaces.DrawWinnerListener

	drawRepo           interfaces.DrawRepository           // optional archive, may be nil
	balanceHistoryRepo interfaces.BalanceHistoryRepository // optional archive, may be nil
	eventPublisher     interfaces.EventPublisher

	depositsPaused bool
}

// NewPoolService creates the pool facade around a draw ledger. The
// share listener and the two repositories may be nil; every other
// collaborator is required.
func NewPoolService(
	ledger *DrawLedger,
	policy entities.AccessPolicy,
	entropySource interfaces.EntropySource,
	balanceProvider interfaces.ExternalBalanceProvider,
	fundGateway interfaces.FundGateway,
	blockCounter interfaces.BlockCounter,
	shareListener interfaces.ShareTokenListener,
	drawRepo interfaces.DrawRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) (interfaces.PoolService, error) {
	if ledger == nil {
		return nil, fmt.Errorf("%w: nil ledger", entities.ErrInvalidArgument)
	}
	if entropySource == nil || balanceProvider == nil || fundGateway == nil || blockCounter == nil {
		return nil, fmt.Errorf("%w: missing collaborator", entities.ErrInvalidArgument)
	}
	if eventPublisher == nil {
		return nil, fmt.Errorf("%w: nil event publisher", entities.ErrInvalidArgument)
	}

	return &poolService{
		ledger:             ledger,
		policy:             policy,
		entropySource:      entropySource,
		balanceProvider:    balanceProvider,
		fundGateway:        fundGateway,
		blockCounter:       blockCounter,
		shareListener:      shareListener,
		winnerListeners:    make(map[int64]interfaces.DrawWinnerListener),
		drawRepo:           drawRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}, nil
}

// hashSeed derives the 32-byte draw entropy from the collaborator's
// revealed seed.
func hashSeed(seed int64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	return sha256.Sum256(buf[:])
}

func (s *poolService) requireAdmin(callerID int64) error {
	if !s.policy.IsAdmin(callerID) {
		return fmt.Errorf("account %d: %w", callerID, entities.ErrNotAuthorized)
	}
	return nil
}

func (s *poolService) currentBlock(ctx context.Context) (int64, error) {
	now, err := s.blockCounter.CurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read block counter: %w", err)
	}
	return now, nil
}

// Deposit adds funds to the current open draw for the account.
func (s *poolService) Deposit(ctx context.Context, accountID, amount int64) (*interfaces.DepositResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depositsPaused {
		return nil, entities.ErrDepositsPaused
	}

	before := s.ledger.BalanceOf(accountID)
	if err := s.ledger.Deposit(accountID, amount); err != nil {
		return nil, err
	}

	draw := s.ledger.CurrentOpenDraw()
	drawID := draw.ID
	utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, &entities.BalanceHistory{
		AccountID:       accountID,
		DrawID:          &drawID,
		BalanceBefore:   before,
		BalanceAfter:    before + amount,
		ChangeAmount:    amount,
		TransactionType: entities.TransactionTypeDeposit,
		TransactionMetadata: map[string]any{
			"open_supply": s.ledger.OpenSupply(),
		},
	})

	return &interfaces.DepositResult{
		AccountID:  accountID,
		Amount:     amount,
		NewBalance: before + amount,
		DrawID:     drawID,
	}, nil
}

// Withdraw removes the account's entire ledger balance. All state is
// updated before the external transfer is issued, and the serialization
// mutex excludes any re-invocation while the transfer is in flight.
func (s *poolService) Withdraw(ctx context.Context, accountID int64) (*interfaces.WithdrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now, err := s.currentBlock(ctx)
	if err != nil {
		return nil, err
	}

	before := s.ledger.BalanceOf(accountID)
	amount, err := s.ledger.WithdrawAll(accountID, now)
	if err != nil {
		return nil, err
	}

	utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, &entities.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   before,
		BalanceAfter:    0,
		ChangeAmount:    -amount,
		TransactionType: entities.TransactionTypeWithdraw,
	})
	s.notifyWithdraw(ctx, accountID, amount)

	if err := s.fundGateway.TransferOut(ctx, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to transfer out withdrawal for account %d: %w", accountID, err)
	}

	return &interfaces.WithdrawResult{AccountID: accountID, Amount: amount}, nil
}

// WithdrawOpenDeposit removes exactly amount from the account's
// open-stage deposit.
func (s *poolService) WithdrawOpenDeposit(ctx context.Context, accountID, amount int64) (*interfaces.WithdrawResult, error) {
	return s.withdrawStaged(ctx, accountID, amount, entities.TransactionTypeOpenWithdraw)
}

// WithdrawCommittedDeposit removes exactly amount from the account's
// committed-stage deposit.
func (s *poolService) WithdrawCommittedDeposit(ctx context.Context, accountID, amount int64) (*interfaces.WithdrawResult, error) {
	return s.withdrawStaged(ctx, accountID, amount, entities.TransactionTypeCommittedWithdraw)
}

func (s *poolService) withdrawStaged(ctx context.Context, accountID, amount int64, txType entities.TransactionType) (*interfaces.WithdrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now, err := s.currentBlock(ctx)
	if err != nil {
		return nil, err
	}

	before := s.ledger.BalanceOf(accountID)
	if txType == entities.TransactionTypeOpenWithdraw {
		err = s.ledger.WithdrawOpen(accountID, amount, now)
	} else {
		err = s.ledger.WithdrawCommitted(accountID, amount, now)
	}
	if err != nil {
		return nil, err
	}

	utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, &entities.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   before,
		BalanceAfter:    before - amount,
		ChangeAmount:    -amount,
		TransactionType: txType,
	})
	s.notifyWithdraw(ctx, accountID, amount)

	if err := s.fundGateway.TransferOut(ctx, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to transfer out withdrawal for account %d: %w", accountID, err)
	}

	return &interfaces.WithdrawResult{AccountID: accountID, Amount: amount}, nil
}

func (s *poolService) notifyWithdraw(ctx context.Context, accountID, amount int64) {
	if s.shareListener == nil {
		return
	}
	if err := s.shareListener.OnWithdraw(ctx, accountID, amount); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"accountID": accountID,
			"amount":    amount,
		}).Error("Share token listener failed on withdraw")
	}
}

// OpenNextDraw promotes the current open draw and opens the next one.
func (s *poolService) OpenNextDraw(ctx context.Context) (*entities.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now, err := s.currentBlock(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.OpenNextDraw(now)
	if err != nil {
		return nil, err
	}

	if result.Committed != nil {
		if s.shareListener != nil {
			if err := s.shareListener.OnDrawCommitted(ctx, result.PromotedOpenSupply); err != nil {
				log.WithError(err).WithField("drawID", result.Committed.ID).
					Error("Share token listener failed on draw commit")
			}
		}
		if err := s.eventPublisher.Publish(events.DrawCommittedEvent{
			DrawID:             result.Committed.ID,
			CommittedSupply:    s.ledger.CommittedSupply(),
			PromotedOpenSupply: result.PromotedOpenSupply,
		}); err != nil {
			log.WithError(err).Error("Failed to publish draw committed event")
		}
	}

	if s.drawRepo != nil {
		if err := s.drawRepo.Create(ctx, result.Opened); err != nil {
			log.WithError(err).WithField("drawID", result.Opened.ID).
				Error("Failed to archive opened draw")
		}
	}
	if err := s.eventPublisher.Publish(events.DrawOpenedEvent{
		DrawID:         result.Opened.ID,
		OpenedAtBlock:  result.Opened.OpenedAtBlock,
		FeeFraction:    result.Opened.FeeFraction.String(),
		FeeBeneficiary: result.Opened.FeeBeneficiary,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw opened event")
	}

	log.WithFields(log.Fields{
		"drawID":    result.Opened.ID,
		"block":     now,
		"committed": result.Committed != nil,
	}).Info("Opened next draw")

	return result.Opened, nil
}

// Lock starts the reward lock window.
func (s *poolService) Lock(ctx context.Context, callerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	now, err := s.currentBlock(ctx)
	if err != nil {
		return err
	}
	if err := s.ledger.Lock(now); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrPreconditionViolation, err)
	}

	log.WithFields(log.Fields{"block": now, "callerID": callerID}).Info("Pool locked for reward")
	return nil
}

// Unlock ends the reward lock window without rewarding. Idempotent.
func (s *poolService) Unlock(ctx context.Context, callerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	now, err := s.currentBlock(ctx)
	if err != nil {
		return err
	}
	s.ledger.Unlock(now)
	return nil
}

// Reward finalizes the committed draw. The external balance is read
// once at the start and never re-read mid-computation, so a concurrent
// depositor's funds cannot be misattributed as yield. The winner
// listener runs after every balance mutation; its failure propagates
// but the reward state is already final.
func (s *poolService) Reward(ctx context.Context, callerID int64) (*interfaces.RewardResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	now, err := s.currentBlock(ctx)
	if err != nil {
		return nil, err
	}

	committing, err := s.entropySource.IsCommitPhase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query entropy source: %w", err)
	}
	if committing {
		return nil, entities.ErrSeedNotAvailable
	}
	seed, err := s.entropySource.CurrentSeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain entropy seed: %w", err)
	}

	external, err := s.balanceProvider.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read external balance: %w", err)
	}

	result, err := s.ledger.Reward(now, hashSeed(seed), external)
	if err != nil {
		return nil, err
	}

	s.archiveReward(ctx, result)

	log.WithFields(log.Fields{
		"drawID":        result.Draw.ID,
		"winner":        result.Winner,
		"grossWinnings": result.GrossWinnings,
		"netWinnings":   result.NetWinnings,
		"fee":           result.Fee,
		"rolledOver":    result.RolledOver,
	}).Info("Draw rewarded")

	// Listener last of all side effects: state already committed above
	// is final regardless of the outcome here.
	if listener, ok := s.winnerListeners[result.Winner]; ok && result.Draw.HasWinner() {
		if err := listener.OnDrawWinner(ctx, result.Draw.ID, result.Winner, result.NetWinnings); err != nil {
			return result, fmt.Errorf("draw winner listener failed for account %d: %w", result.Winner, err)
		}
	}

	return result, nil
}

// archiveReward persists the finalized draw and its balance changes.
// The in-memory ledger is authoritative; archive failures are logged.
func (s *poolService) archiveReward(ctx context.Context, result *interfaces.RewardResult) {
	if s.drawRepo != nil {
		if err := s.drawRepo.Update(ctx, result.Draw); err != nil {
			log.WithError(err).WithField("drawID", result.Draw.ID).
				Error("Failed to archive rewarded draw")
		}
	}

	drawID := result.Draw.ID
	if result.Fee > 0 {
		beneficiary := result.Draw.FeeBeneficiary
		after := s.ledger.BalanceOf(beneficiary)
		utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, &entities.BalanceHistory{
			AccountID:       beneficiary,
			DrawID:          &drawID,
			BalanceBefore:   after - result.Fee,
			BalanceAfter:    after,
			ChangeAmount:    result.Fee,
			TransactionType: entities.TransactionTypeFee,
		})
	}
	if result.Draw.HasWinner() && result.NetWinnings > 0 {
		after := s.ledger.BalanceOf(result.Winner)
		utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, &entities.BalanceHistory{
			AccountID:       result.Winner,
			DrawID:          &drawID,
			BalanceBefore:   after - result.NetWinnings,
			BalanceAfter:    after,
			ChangeAmount:    result.NetWinnings,
			TransactionType: entities.TransactionTypeWinnings,
			TransactionMetadata: map[string]any{
				"gross_winnings": result.GrossWinnings,
				"fee":            result.Fee,
			},
		})
	}

	if err := s.eventPublisher.Publish(events.DrawRewardedEvent{
		DrawID:        result.Draw.ID,
		Winner:        result.Winner,
		GrossWinnings: result.GrossWinnings,
		NetWinnings:   result.NetWinnings,
		Fee:           result.Fee,
		RolledOver:    result.RolledOver,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw rewarded event")
	}
}

// SetNextFeeFraction updates the fee fraction for draws opened later.
func (s *poolService) SetNextFeeFraction(ctx context.Context, callerID int64, fraction fixedpoint.Fraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	return s.ledger.SetNextFeeFraction(fraction)
}

// SetNextFeeBeneficiary updates the beneficiary for draws opened later.
func (s *poolService) SetNextFeeBeneficiary(ctx context.Context, callerID, beneficiary int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	return s.ledger.SetNextFeeBeneficiary(beneficiary)
}

// PauseDeposits stops accepting deposits.
func (s *poolService) PauseDeposits(ctx context.Context, callerID int64) error {
	return s.setDepositsPaused(callerID, true)
}

// ResumeDeposits resumes accepting deposits.
func (s *poolService) ResumeDeposits(ctx context.Context, callerID int64) error {
	return s.setDepositsPaused(callerID, false)
}

func (s *poolService) setDepositsPaused(callerID int64, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if s.depositsPaused == paused {
		return nil
	}
	s.depositsPaused = paused
	if err := s.eventPublisher.Publish(events.DepositPauseEvent{Paused: paused}); err != nil {
		log.WithError(err).Error("Failed to publish deposit pause event")
	}
	return nil
}

// RegisterWinnerListener opts an account into winner notifications.
func (s *poolService) RegisterWinnerListener(accountID int64, listener interfaces.DrawWinnerListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listener == nil {
		delete(s.winnerListeners, accountID)
		return
	}
	s.winnerListeners[accountID] = listener
}

// UnregisterWinnerListener removes an account's winner listener.
func (s *poolService) UnregisterWinnerListener(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.winnerListeners, accountID)
}

func (s *poolService) CurrentOpenDraw() *entities.Draw {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CurrentOpenDraw()
}

func (s *poolService) CurrentCommittedDraw() *entities.Draw {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CurrentCommittedDraw()
}

func (s *poolService) AccountedBalance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.AccountedBalance()
}

func (s *poolService) OpenSupply() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.OpenSupply()
}

func (s *poolService) CommittedSupply() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CommittedSupply()
}

func (s *poolService) TotalBalanceOf(accountID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceOf(accountID)
}

func (s *poolService) OpenBalanceOf(accountID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.OpenWeightOf(accountID)
}

func (s *poolService) CommittedBalanceOf(accountID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CommittedWeightOf(accountID)
}

func (s *poolService) OddsOf(accountID int64) fixedpoint.Fraction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.OddsOf(accountID)
}

func (s *poolService) IsLocked(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now, err := s.currentBlock(ctx)
	if err != nil {
		return false, err
	}
	return s.ledger.IsLocked(now), nil
}

func (s *poolService) CanLock(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now, err := s.currentBlock(ctx)
	if err != nil {
		return false, err
	}
	return s.ledger.CanLock(now), nil
}
