package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. A user's role is fixed at registration.
const (
	RoleWorker     = "worker"
	RoleAdvertiser = "advertiser"
	RoleAdmin      = "admin"
)

type User struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	FullName          string    `json:"full_name"`
	Role              string    `json:"role"`
	IsVerified        bool      `json:"is_verified"`
	VerificationToken *string   `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
}
