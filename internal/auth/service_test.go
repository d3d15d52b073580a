package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockUserStore struct {
	byEmail map[string]*models.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{byEmail: make(map[string]*models.User)}
}

func (m *mockUserStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockUserStore) CreateTx(_ context.Context, _ pgx.Tx, u *models.User) error {
	if _, exists := m.byEmail[u.Email]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *mockUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserStore) MarkVerified(_ context.Context, token string) (bool, error) {
	for _, u := range m.byEmail {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.IsVerified = true
			u.VerificationToken = nil
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserStore) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.LastLogin = &at
		}
	}
	return nil
}

type mockWalletCreator struct {
	wallets []*models.Wallet
}

func (m *mockWalletCreator) CreateTx(_ context.Context, _ pgx.Tx, w *models.Wallet) error {
	cp := *w
	m.wallets = append(m.wallets, &cp)
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegister_CreatesUserAndWallet(t *testing.T) {
	users := newMockUserStore()
	wallets := &mockWalletCreator{}
	svc := NewService(users, wallets, "test-secret")

	user, err := svc.Register(context.Background(), "worker@example.com", "s3cretpass", "Test Worker", models.RoleWorker)
	require.NoError(t, err)
	require.Equal(t, models.RoleWorker, user.Role)
	require.False(t, user.IsVerified)
	require.NotNil(t, user.VerificationToken)

	// Password is stored hashed, never plain.
	require.NotEqual(t, "s3cretpass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cretpass")))

	// The wallet exists from the moment the user does.
	require.Len(t, wallets.wallets, 1)
	require.Equal(t, user.ID, wallets.wallets[0].UserID)
	require.Zero(t, wallets.wallets[0].BalanceCents)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newMockUserStore()
	svc := NewService(users, &mockWalletCreator{}, "test-secret")

	_, err := svc.Register(context.Background(), "dup@example.com", "s3cretpass", "First", models.RoleWorker)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "dup@example.com", "otherpass1", "Second", models.RoleAdvertiser)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_InvalidRole(t *testing.T) {
	svc := NewService(newMockUserStore(), &mockWalletCreator{}, "test-secret")

	_, err := svc.Register(context.Background(), "x@example.com", "s3cretpass", "X", "admin")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestLogin_FullFlow(t *testing.T) {
	users := newMockUserStore()
	svc := NewService(users, &mockWalletCreator{}, "test-secret")
	ctx := context.Background()

	user, err := svc.Register(ctx, "login@example.com", "s3cretpass", "Login User", models.RoleAdvertiser)
	require.NoError(t, err)

	// Unverified users cannot log in.
	_, _, err = svc.Login(ctx, "login@example.com", "s3cretpass")
	require.ErrorIs(t, err, ErrUnverified)

	require.NoError(t, svc.VerifyEmail(ctx, *user.VerificationToken))

	token, logged, err := svc.Login(ctx, "login@example.com", "s3cretpass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotNil(t, logged.LastLogin)

	// The token round-trips through validation with the role claim intact.
	id, role, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, id)
	require.Equal(t, models.RoleAdvertiser, role)
}

func TestLogin_BadCredentials(t *testing.T) {
	users := newMockUserStore()
	svc := NewService(users, &mockWalletCreator{}, "test-secret")
	ctx := context.Background()

	user, err := svc.Register(ctx, "bad@example.com", "s3cretpass", "Bad Creds", models.RoleWorker)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyEmail(ctx, *user.VerificationToken))

	_, _, err = svc.Login(ctx, "bad@example.com", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cretpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmail_BadToken(t *testing.T) {
	svc := NewService(newMockUserStore(), &mockWalletCreator{}, "test-secret")
	require.Error(t, svc.VerifyEmail(context.Background(), "no-such-token"))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	users := newMockUserStore()
	issuer := NewService(users, &mockWalletCreator{}, "secret-a")
	verifier := NewService(users, &mockWalletCreator{}, "secret-b")
	ctx := context.Background()

	user, err := issuer.Register(ctx, "jwt@example.com", "s3cretpass", "JWT", models.RoleWorker)
	require.NoError(t, err)
	require.NoError(t, issuer.VerifyEmail(ctx, *user.VerificationToken))

	token, _, err := issuer.Login(ctx, "jwt@example.com", "s3cretpass")
	require.NoError(t, err)

	_, _, err = verifier.ValidateToken(ctx, token)
	require.Error(t, err)
}
