package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const ctxUserKey contextKey = "user"

// AuthedUser is the identity attached to the request context after JWTAuth.
type AuthedUser struct {
	ID   uuid.UUID
	Role string
}

// TokenValidator validates a bearer token and returns the user it identifies.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// JWTAuth authenticates requests by validating the Bearer token and putting
// the resulting user into request context.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			userID, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserKey, &AuthedUser{ID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTAuth sets the user into context when a valid token is present
// but lets unauthenticated requests through. Used on public read endpoints
// that enrich the response for logged-in viewers.
func OptionalJWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw != "" {
				if userID, role, err := validator.ValidateToken(r.Context(), raw); err == nil {
					ctx := context.WithValue(r.Context(), ctxUserKey, &AuthedUser{ID: userID, Role: role})
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated users whose role is not in the allowed
// set. Must run after JWTAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromCtx(r.Context())
			if u == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if !allowed[u.Role] {
				http.Error(w, `{"error":"insufficient permissions"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromCtx returns the authenticated user or nil.
func UserFromCtx(ctx context.Context) *AuthedUser {
	u, _ := ctx.Value(ctxUserKey).(*AuthedUser)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *AuthedUser) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
