package repository

import (
	"context"
	"fmt"

	"prizepool/database"
	"prizepool/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork bundles the archive repositories behind a single
// transaction, so a draw record and its balance changes land
// atomically or not at all.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DrawRepository() interfaces.DrawRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
}

// UnitOfWorkFactory creates units of work bound to the shared pool.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

func (f *unitOfWorkFactory) Create() UnitOfWork {
	return &unitOfWork{db: f.db}
}

type unitOfWork struct {
	db  *database.DB
	tx  pgx.Tx
	ctx context.Context

	drawRepo           *DrawRepository
	balanceHistoryRepo *BalanceHistoryRepository
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx
	u.drawRepo = NewDrawRepository(tx)
	u.balanceHistoryRepo = NewBalanceHistoryRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction. Safe to defer after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// DrawRepository returns the draw repository for this unit of work
func (u *unitOfWork) DrawRepository() interfaces.DrawRepository {
	return u.drawRepo
}

// BalanceHistoryRepository returns the balance history repository for
// this unit of work
func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.balanceHistoryRepo
}
