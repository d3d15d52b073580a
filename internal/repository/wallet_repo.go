package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// CreateTx inserts a wallet inside the given transaction. Used at registration
// so the user and wallet rows commit together.
func (r *WalletRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.Wallet) error {
	return tx.QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, balance_cents, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, w.ID, w.UserID, w.BalanceCents, w.Currency).Scan(&w.CreatedAt, &w.UpdatedAt)
}

func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.BalanceCents, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByUserIDForUpdate locks the wallet row. Call within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at, updated_at
		FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&w.ID, &w.UserID, &w.BalanceCents, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit atomically deducts amount if the balance covers it. Returns
// pgx.ErrNoRows when the wallet is missing or the balance is too low; the
// conditional update is what keeps balances non-negative under concurrency.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE wallets SET balance_cents = balance_cents - $1, updated_at = now()
		WHERE user_id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amountCents, userID).Scan(&newBalance)
	return newBalance, err
}

// Credit adds amount to the wallet and returns the new balance.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE wallets SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE user_id = $2
		RETURNING balance_cents
	`, amountCents, userID).Scan(&newBalance)
	return newBalance, err
}
