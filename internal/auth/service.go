// Package auth handles registration, email verification, login and JWT
// issuance. Registration creates the user's wallet in the same transaction,
// so a user without a wallet cannot exist.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnverified is returned when logging in before verifying the email.
	ErrUnverified = errors.New("email not verified")
	// ErrInvalidRole is returned when registering with an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)

// UserStore is the repository surface the auth service needs.
type UserStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	MarkVerified(ctx context.Context, token string) (bool, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// WalletCreator creates the user's wallet in the registration transaction.
type WalletCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.Wallet) error
}

type Service interface {
	Register(ctx context.Context, email, password, fullName, role string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	users   UserStore
	wallets WalletCreator
	secret  []byte
	tokenTTL time.Duration
}

func NewService(users UserStore, wallets WalletCreator, secret string) Service {
	return &service{
		users:    users,
		wallets:  wallets,
		secret:   []byte(secret),
		tokenTTL: 24 * time.Hour,
	}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Register(ctx context.Context, email, password, fullName, role string) (*models.User, error) {
	if role != models.RoleWorker && role != models.RoleAdvertiser {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	token := newVerificationToken()

	user := &models.User{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      string(hash),
		FullName:          fullName,
		Role:              role,
		VerificationToken: &token,
	}

	tx, err := s.users.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.users.CreateTx(ctx, tx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if err := s.wallets.CreateTx(ctx, tx, &models.Wallet{
		ID:       uuid.New(),
		UserID:   user.ID,
		Currency: "USD",
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	ok, err := s.users.MarkVerified(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("invalid or already used verification token")
	}
	return nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return "", nil, ErrUnverified
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, err
	}
	user.LastLogin = &now

	token, err := s.issueToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *service) issueToken(userID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

func newVerificationToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
