package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// injectUser wraps a handler to pre-set the user in context, simulating
// what JWTAuth would do upstream.
func injectUser(u *AuthedUser, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// funding200 proves the middleware let the request through.
var funding200 = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestFundingCheck_ValidPricing(t *testing.T) {
	user := &AuthedUser{ID: uuid.New(), Role: "advertiser"}
	handler := injectUser(user, FundingCheck(nil)(funding200))

	body := `{"payment_per_task_cents":100,"max_workers":5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFundingCheck_PaymentBelowMinimum(t *testing.T) {
	user := &AuthedUser{ID: uuid.New(), Role: "advertiser"}
	handler := injectUser(user, FundingCheck(nil)(funding200))

	body := `{"payment_per_task_cents":5,"max_workers":5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "at least") {
		t.Errorf("expected minimum payment error, got: %s", rec.Body.String())
	}
}

func TestFundingCheck_ZeroWorkers(t *testing.T) {
	user := &AuthedUser{ID: uuid.New(), Role: "advertiser"}
	handler := injectUser(user, FundingCheck(nil)(funding200))

	body := `{"payment_per_task_cents":100,"max_workers":0}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFundingCheck_InsufficientBalance(t *testing.T) {
	original := walletBalanceFn
	walletBalanceFn = func(_ context.Context, _ *pgxpool.Pool, _ uuid.UUID) (int64, error) {
		return 100, nil // far below 100*5 + fee
	}
	defer func() { walletBalanceFn = original }()

	user := &AuthedUser{ID: uuid.New(), Role: "advertiser"}
	// Non-nil pool pointer so the balance branch runs; the stub never uses it.
	handler := injectUser(user, FundingCheck(&pgxpool.Pool{})(funding200))

	body := `{"payment_per_task_cents":100,"max_workers":5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFundingCheck_BodyRestoredForHandler(t *testing.T) {
	user := &AuthedUser{ID: uuid.New(), Role: "advertiser"}
	body := `{"payment_per_task_cents":100,"max_workers":5,"title":"Label images"}`

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		seen = string(b)
		w.WriteHeader(http.StatusOK)
	})

	handler := injectUser(user, FundingCheck(nil)(inner))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != body {
		t.Errorf("handler saw body %q, want %q", seen, body)
	}
}
