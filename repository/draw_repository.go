package repository

import (
	"context"
	"fmt"

	"prizepool/domain/entities"
	"prizepool/domain/fixedpoint"

	"github.com/jackc/pgx/v5"
)

// DrawRepository implements draw archive data access. Draw ids are
// assigned by the in-memory ledger, not the database.
type DrawRepository struct {
	q Queryable
}

// NewDrawRepository creates a new draw repository
func NewDrawRepository(q Queryable) *DrawRepository {
	return &DrawRepository{q: q}
}

const drawColumns = `id, fee_fraction, fee_beneficiary, opened_at_block, entropy,
       winner, net_winnings, fee, created_at, rewarded_at`

// Create inserts a newly opened draw
func (r *DrawRepository) Create(ctx context.Context, draw *entities.Draw) error {
	query := `
		INSERT INTO draws (id, fee_fraction, fee_beneficiary, opened_at_block, entropy,
		                   winner, net_winnings, fee, created_at, rewarded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		draw.ID,
		int64(draw.FeeFraction),
		draw.FeeBeneficiary,
		draw.OpenedAtBlock,
		draw.Entropy[:],
		draw.Winner,
		draw.NetWinnings,
		draw.Fee,
		draw.CreatedAt,
		draw.RewardedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create draw %d: %w", draw.ID, err)
	}

	return nil
}

// Update stores the reward outcome of a finalized draw
func (r *DrawRepository) Update(ctx context.Context, draw *entities.Draw) error {
	query := `
		UPDATE draws
		SET entropy = $2,
		    winner = $3,
		    net_winnings = $4,
		    fee = $5,
		    rewarded_at = $6
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		draw.ID,
		draw.Entropy[:],
		draw.Winner,
		draw.NetWinnings,
		draw.Fee,
		draw.RewardedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update draw %d: %w", draw.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("draw with ID %d not found", draw.ID)
	}

	return nil
}

// GetByID retrieves a draw by its ID, nil if it does not exist
func (r *DrawRepository) GetByID(ctx context.Context, id int64) (*entities.Draw, error) {
	query := `SELECT ` + drawColumns + ` FROM draws WHERE id = $1`

	draw, err := scanDraw(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw by ID %d: %w", id, err)
	}

	return draw, nil
}

// GetLatest retrieves the most recently opened draw, nil when the
// archive is empty
func (r *DrawRepository) GetLatest(ctx context.Context) (*entities.Draw, error) {
	query := `SELECT ` + drawColumns + ` FROM draws ORDER BY id DESC LIMIT 1`

	draw, err := scanDraw(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draw: %w", err)
	}

	return draw, nil
}

// GetRewarded retrieves finalized draws, most recent first
func (r *DrawRepository) GetRewarded(ctx context.Context, limit int) ([]*entities.Draw, error) {
	query := `
		SELECT ` + drawColumns + `
		FROM draws
		WHERE rewarded_at IS NOT NULL
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rewarded draws: %w", err)
	}
	defer rows.Close()

	var draws []*entities.Draw
	for rows.Next() {
		draw, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, draw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draws: %w", err)
	}

	return draws, nil
}

func scanDraw(row pgx.Row) (*entities.Draw, error) {
	var draw entities.Draw
	var feeFraction int64
	var entropy []byte

	err := row.Scan(
		&draw.ID,
		&feeFraction,
		&draw.FeeBeneficiary,
		&draw.OpenedAtBlock,
		&entropy,
		&draw.Winner,
		&draw.NetWinnings,
		&draw.Fee,
		&draw.CreatedAt,
		&draw.RewardedAt,
	)
	if err != nil {
		return nil, err
	}

	draw.FeeFraction = fixedpoint.Fraction(feeFraction)
	copy(draw.Entropy[:], entropy)
	return &draw, nil
}
