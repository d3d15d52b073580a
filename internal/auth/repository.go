package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a new user inside the given transaction so the wallet
// row can be created atomically alongside it.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, u *models.User) error {
	return tx.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, is_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsVerified, u.VerificationToken).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail returns the user for login. Returns nil, nil when not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, role, is_verified, verification_token,
		       created_at, updated_at, last_login
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsVerified,
		&u.VerificationToken, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, role, is_verified, verification_token,
		       created_at, updated_at, last_login
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsVerified,
		&u.VerificationToken, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MarkVerified flips is_verified for the user holding the token and clears
// the token. Returns false when no user holds that token.
func (r *Repository) MarkVerified(ctx context.Context, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, updated_at = NOW()
		WHERE verification_token = $1
	`, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}
