package testhelpers

import (
	"context"

	"prizepool/domain/entities"
	"prizepool/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockDrawRepository is a mock implementation of DrawRepository
type MockDrawRepository struct {
	mock.Mock
}

func (m *MockDrawRepository) Create(ctx context.Context, draw *entities.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) Update(ctx context.Context, draw *entities.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) GetByID(ctx context.Context, id int64) (*entities.Draw, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetLatest(ctx context.Context) (*entities.Draw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetRewarded(ctx context.Context, limit int) ([]*entities.Draw, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Draw), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByDraw(ctx context.Context, drawID int64) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, drawID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockEntropySource is a mock implementation of EntropySource
type MockEntropySource struct {
	mock.Mock
}

func (m *MockEntropySource) IsCommitPhase(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntropySource) CurrentSeed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockExternalBalanceProvider is a mock implementation of ExternalBalanceProvider
type MockExternalBalanceProvider struct {
	mock.Mock
}

func (m *MockExternalBalanceProvider) Balance(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockFundGateway is a mock implementation of FundGateway
type MockFundGateway struct {
	mock.Mock
}

func (m *MockFundGateway) TransferOut(ctx context.Context, accountID, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

// MockBlockCounter is a mock implementation of BlockCounter
type MockBlockCounter struct {
	mock.Mock
}

func (m *MockBlockCounter) CurrentBlock(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockShareTokenListener is a mock implementation of ShareTokenListener
type MockShareTokenListener struct {
	mock.Mock
}

func (m *MockShareTokenListener) OnDrawCommitted(ctx context.Context, openSupplyAtCommit int64) error {
	args := m.Called(ctx, openSupplyAtCommit)
	return args.Error(0)
}

func (m *MockShareTokenListener) OnWithdraw(ctx context.Context, accountID, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

// MockDrawWinnerListener is a mock implementation of DrawWinnerListener
type MockDrawWinnerListener struct {
	mock.Mock
}

func (m *MockDrawWinnerListener) OnDrawWinner(ctx context.Context, drawID, winner, netWinnings int64) error {
	args := m.Called(ctx, drawID, winner, netWinnings)
	return args.Error(0)
}
