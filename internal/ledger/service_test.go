package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/taskerr"
)

// ---------------------------------------------------------------------------
// In-memory mocks mirroring the conditional-update semantics of the real
// wallet repository.
// ---------------------------------------------------------------------------

type mockWallets struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
}

func newMockWallets() *mockWallets {
	return &mockWallets{balances: make(map[uuid.UUID]int64)}
}

func (m *mockWallets) set(userID uuid.UUID, cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = cents
}

func (m *mockWallets) get(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// Debit fails with pgx.ErrNoRows when the balance cannot cover the amount,
// exactly like the conditional UPDATE in the real repository.
func (m *mockWallets) Debit(_ context.Context, _ pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok || bal < amountCents {
		return 0, pgx.ErrNoRows
	}
	m.balances[userID] = bal - amountCents
	return m.balances[userID], nil
}

func (m *mockWallets) Credit(_ context.Context, _ pgx.Tx, userID uuid.UUID, amountCents int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return 0, pgx.ErrNoRows
	}
	m.balances[userID] += amountCents
	return m.balances[userID], nil
}

type mockTransactions struct {
	mu      sync.Mutex
	entries []*models.Transaction
}

func (m *mockTransactions) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockTransactions) byType(typ string) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, e := range m.entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestChargeJobFunding(t *testing.T) {
	advertiser := uuid.New()
	jobID := uuid.New()

	wallets := newMockWallets()
	wallets.set(advertiser, 2000)
	txs := &mockTransactions{}
	svc := NewService(wallets, txs)

	ctx := context.Background()
	if err := svc.ChargeJobFunding(ctx, nil, advertiser, jobID, 1050, "Payment for job: Label images"); err != nil {
		t.Fatalf("ChargeJobFunding: %v", err)
	}

	if got := wallets.get(advertiser); got != 950 {
		t.Errorf("balance after charge: got %d, want 950", got)
	}
	payments := txs.byType(models.TransactionTaskPayment)
	if len(payments) != 1 {
		t.Fatalf("task_payment entries: got %d, want 1", len(payments))
	}
	if payments[0].AmountCents != 1050 || payments[0].JobID == nil || *payments[0].JobID != jobID {
		t.Errorf("charge record wrong: %+v", payments[0])
	}

	// Insufficient balance surfaces as a domain error, not pgx.ErrNoRows.
	err := svc.ChargeJobFunding(ctx, nil, advertiser, jobID, 5000, "too much")
	if taskerr.Code(err) != taskerr.KindInsufficientBalance {
		t.Errorf("expected insufficient balance, got: %v", err)
	}
	if got := wallets.get(advertiser); got != 950 {
		t.Errorf("failed charge must not move money: got %d, want 950", got)
	}
}

func TestRefundMirrorsCharge(t *testing.T) {
	advertiser := uuid.New()
	jobID := uuid.New()

	wallets := newMockWallets()
	wallets.set(advertiser, 1050)
	txs := &mockTransactions{}
	svc := NewService(wallets, txs)

	ctx := context.Background()
	if err := svc.ChargeJobFunding(ctx, nil, advertiser, jobID, 1050, "charge"); err != nil {
		t.Fatalf("ChargeJobFunding: %v", err)
	}
	if err := svc.RefundJobSpots(ctx, nil, advertiser, jobID, 1050, "refund"); err != nil {
		t.Fatalf("RefundJobSpots: %v", err)
	}

	// Charge then full refund restores the starting balance exactly.
	if got := wallets.get(advertiser); got != 1050 {
		t.Errorf("balance after charge+refund: got %d, want 1050", got)
	}
	if n := len(txs.byType(models.TransactionRefund)); n != 1 {
		t.Errorf("refund entries: got %d, want 1", n)
	}
}

func TestPayWorker(t *testing.T) {
	worker := uuid.New()
	jobID := uuid.New()
	taskID := uuid.New()

	wallets := newMockWallets()
	wallets.set(worker, 0)
	txs := &mockTransactions{}
	svc := NewService(wallets, txs)

	if err := svc.PayWorker(context.Background(), nil, worker, jobID, taskID, 250); err != nil {
		t.Fatalf("PayWorker: %v", err)
	}
	if got := wallets.get(worker); got != 250 {
		t.Errorf("worker balance: got %d, want 250", got)
	}
	payments := txs.byType(models.TransactionTaskPayment)
	if len(payments) != 1 {
		t.Fatalf("task_payment entries: got %d, want 1", len(payments))
	}
	if payments[0].TaskID == nil || *payments[0].TaskID != taskID {
		t.Error("payment record should reference the task")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	user := uuid.New()
	wallets := newMockWallets()
	wallets.set(user, 100)
	txs := &mockTransactions{}
	svc := NewService(wallets, txs)
	ctx := context.Background()

	balance, err := svc.Deposit(ctx, nil, user, 400)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if balance != 500 {
		t.Errorf("balance after deposit: got %d, want 500", balance)
	}

	balance, err = svc.Withdraw(ctx, nil, user, 500)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance after withdrawal: got %d, want 0", balance)
	}

	// Overdraw is rejected.
	_, err = svc.Withdraw(ctx, nil, user, 1)
	if taskerr.Code(err) != taskerr.KindInsufficientBalance {
		t.Errorf("expected insufficient balance, got: %v", err)
	}

	if n := len(txs.byType(models.TransactionDeposit)); n != 1 {
		t.Errorf("deposit entries: got %d, want 1", n)
	}
	if n := len(txs.byType(models.TransactionWithdrawal)); n != 1 {
		t.Errorf("withdrawal entries: got %d, want 1", n)
	}
}

func TestCredit_MissingWallet(t *testing.T) {
	svc := NewService(newMockWallets(), &mockTransactions{})

	_, err := svc.Credit(context.Background(), nil, uuid.New(), 100)
	if taskerr.Code(err) != taskerr.KindNotFound {
		t.Errorf("expected not found, got: %v", err)
	}
}
