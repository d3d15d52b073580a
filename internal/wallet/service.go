// Package wallet exposes balance, deposit, withdrawal and transaction
// history for a user's wallet. All balance mutations go through the ledger
// service so every movement leaves a transaction row.
package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/taskerr"
)

// MaxDepositCents caps a single deposit. Large movements go through support.
const MaxDepositCents int64 = 100_000_00

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletReader looks up wallets outside a transaction.
type WalletReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

// TransactionReader lists a user's transaction history.
type TransactionReader interface {
	ListByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.Transaction, int, error)
}

// Ledger is the balance mutation interface the wallet service needs.
type Ledger interface {
	Deposit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error)
	Withdraw(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error)
}

type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error)
	Transactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.Transaction, int, error)
}

type service struct {
	db           TxBeginner
	wallets      WalletReader
	transactions TransactionReader
	ledger       Ledger
}

func NewService(db TxBeginner, wallets WalletReader, transactions TransactionReader, ledger Ledger) Service {
	return &service{db: db, wallets: wallets, transactions: transactions, ledger: ledger}
}

var _ Service = (*service)(nil)

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taskerr.NotFound("wallet not found")
		}
		return nil, err
	}
	return w, nil
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, taskerr.InvalidState("deposit amount must be positive")
	}
	if amountCents > MaxDepositCents {
		return 0, taskerr.InvalidState("deposit amount exceeds the maximum of %d cents", MaxDepositCents)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	balance, err := s.ledger.Deposit(ctx, tx, userID, amountCents)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) Withdraw(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, taskerr.InvalidState("withdrawal amount must be positive")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	balance, err := s.ledger.Withdraw(ctx, tx, userID, amountCents)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*models.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.transactions.ListByUserID(ctx, userID, page, limit)
}
