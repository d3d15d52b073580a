// Package ledger is the only writer of wallet balances. Every debit or credit
// happens inside the caller's transaction together with its transaction record,
// so money movement and audit trail commit or roll back as one unit.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/taskerr"
)

// WalletStore is the minimal wallet repository interface the ledger needs.
type WalletStore interface {
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error)
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error)
}

// TransactionStore records wallet movements.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

type Service struct {
	wallets      WalletStore
	transactions TransactionStore
}

func NewService(wallets WalletStore, transactions TransactionStore) *Service {
	return &Service{wallets: wallets, transactions: transactions}
}

// Debit deducts amountCents from the user's wallet. The conditional update in
// the store keeps the balance non-negative; a miss surfaces as
// InsufficientBalance without any partial write.
func (s *Service) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error) {
	newBalance, err := s.wallets.Debit(ctx, tx, userID, amountCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, taskerr.InsufficientBalance("insufficient balance for debit of %d cents", amountCents)
		}
		return 0, err
	}
	return newBalance, nil
}

// Credit adds amountCents to the user's wallet.
func (s *Service) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error) {
	newBalance, err := s.wallets.Credit(ctx, tx, userID, amountCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, taskerr.NotFound("wallet not found for user %s", userID)
		}
		return 0, err
	}
	return newBalance, nil
}

// ChargeJobFunding debits cost plus service fee from the advertiser and records
// the task_payment transaction for the funding event.
func (s *Service) ChargeJobFunding(ctx context.Context, tx pgx.Tx, advertiserID, jobID uuid.UUID, totalCents int64, description string) error {
	if _, err := s.Debit(ctx, tx, advertiserID, totalCents); err != nil {
		return err
	}
	return s.transactions.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      advertiserID,
		AmountCents: totalCents,
		Type:        models.TransactionTaskPayment,
		Status:      models.TransactionStatusCompleted,
		Description: description,
		JobID:       &jobID,
	})
}

// RefundJobSpots credits the advertiser for unused capacity and records the
// refund transaction. The refund includes the fee, mirroring the charge.
func (s *Service) RefundJobSpots(ctx context.Context, tx pgx.Tx, advertiserID, jobID uuid.UUID, totalCents int64, description string) error {
	if _, err := s.Credit(ctx, tx, advertiserID, totalCents); err != nil {
		return err
	}
	return s.transactions.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      advertiserID,
		AmountCents: totalCents,
		Type:        models.TransactionRefund,
		Status:      models.TransactionStatusCompleted,
		Description: description,
		JobID:       &jobID,
	})
}

// PayWorker credits the worker the per-task payment for an approved task and
// records the task_payment transaction referencing both task and job.
func (s *Service) PayWorker(ctx context.Context, tx pgx.Tx, workerID, jobID, taskID uuid.UUID, amountCents int64) error {
	if _, err := s.Credit(ctx, tx, workerID, amountCents); err != nil {
		return err
	}
	return s.transactions.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      workerID,
		AmountCents: amountCents,
		Type:        models.TransactionTaskPayment,
		Status:      models.TransactionStatusCompleted,
		Description: fmt.Sprintf("Payment for completed task %s on job %s", taskID, jobID),
		JobID:       &jobID,
		TaskID:      &taskID,
	})
}

// Deposit credits the wallet and records a deposit transaction.
func (s *Service) Deposit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error) {
	newBalance, err := s.Credit(ctx, tx, userID, amountCents)
	if err != nil {
		return 0, err
	}
	err = s.transactions.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: amountCents,
		Type:        models.TransactionDeposit,
		Status:      models.TransactionStatusCompleted,
		Description: "Wallet deposit",
	})
	return newBalance, err
}

// Withdraw debits the wallet and records a withdrawal transaction.
func (s *Service) Withdraw(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error) {
	newBalance, err := s.Debit(ctx, tx, userID, amountCents)
	if err != nil {
		return 0, err
	}
	err = s.transactions.CreateTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: amountCents,
		Type:        models.TransactionWithdrawal,
		Status:      models.TransactionStatusCompleted,
		Description: "Wallet withdrawal",
	})
	return newBalance, err
}
