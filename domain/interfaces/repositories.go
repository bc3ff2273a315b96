package interfaces

import (
	"context"

	"prizepool/domain/entities"
)

// DrawRepository defines the interface for the persisted draw archive
type DrawRepository interface {
	// Create persists a newly opened draw record
	Create(ctx context.Context, draw *entities.Draw) error

	// Update persists reward finalization onto an existing draw record
	Update(ctx context.Context, draw *entities.Draw) error

	// GetByID retrieves a draw by its ID
	GetByID(ctx context.Context, id int64) (*entities.Draw, error)

	// GetLatest returns the most recently opened draw, nil if none exist
	GetLatest(ctx context.Context) (*entities.Draw, error)

	// GetRewarded returns finalized draws, newest first
	GetRewarded(ctx context.Context, limit int) ([]*entities.Draw, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByAccount returns balance history for a specific account, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.BalanceHistory, error)

	// GetByDraw returns all balance changes attributed to a draw
	GetByDraw(ctx context.Context, drawID int64) ([]*entities.BalanceHistory, error)
}
