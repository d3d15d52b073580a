package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubValidator struct {
	userID uuid.UUID
	role   string
	err    error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, string, error) {
	return s.userID, s.role, s.err
}

// okHandler writes 200 and the authed user ID (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u := UserFromCtx(r.Context())
	if u != nil {
		w.Write([]byte(u.ID.String()))
	}
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestJWTAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	mw := JWTAuth(&stubValidator{userID: userID, role: "worker"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-test-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != userID.String() {
		t.Errorf("expected user id %q in body, got %q", userID, body)
	}
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	mw := JWTAuth(&stubValidator{})(okHandler)

	cases := []struct {
		name   string
		header string
	}{
		{"no header at all", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	mw := JWTAuth(&stubValidator{err: errors.New("token expired")})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-or-garbage")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOptionalJWTAuth_NoToken(t *testing.T) {
	handler := OptionalJWTAuth(&stubValidator{err: errors.New("unused")})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromCtx(r.Context()) != nil {
				t.Error("expected no user in context")
			}
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	advertiser := &AuthedUser{ID: uuid.New(), Role: "advertiser"}
	worker := &AuthedUser{ID: uuid.New(), Role: "worker"}

	handler := RequireRole("advertiser", "admin")(okHandler)

	cases := []struct {
		name string
		user *AuthedUser
		want int
	}{
		{"allowed role", advertiser, http.StatusOK},
		{"forbidden role", worker, http.StatusForbidden},
		{"no user", nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
