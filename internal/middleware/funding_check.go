package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

const ctxFundingKey contextKey = "parsed_funding"

// parsedFunding is stored in context so the handler can read the pricing
// fields without re-parsing the body.
type parsedFunding struct {
	PaymentPerTaskCents int64 `json:"payment_per_task_cents"`
	MaxWorkers          int   `json:"max_workers"`
}

// FundingFromCtx returns the total cost (payment x workers) parsed by
// FundingCheck, or 0 if not set.
func FundingFromCtx(ctx context.Context) int64 {
	if f, ok := ctx.Value(ctxFundingKey).(*parsedFunding); ok {
		return f.PaymentPerTaskCents * int64(f.MaxWorkers)
	}
	return 0
}

// FundingCheck validates job pricing before the create handler runs.
// Reads the body to extract payment fields, then replaces r.Body so the
// handler can re-read it. When a pool is given it also rejects requests
// whose advertiser wallet clearly cannot cover the funding, so obviously
// underfunded jobs fail before any transaction starts.
func FundingCheck(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromCtx(r.Context())
			if user == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek parsedFunding
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if peek.PaymentPerTaskCents < models.MinPaymentPerTaskCents {
				http.Error(w, fmt.Sprintf(`{"error":"payment per task must be at least %d cents"}`, models.MinPaymentPerTaskCents), http.StatusBadRequest)
				return
			}
			if peek.MaxWorkers < 1 {
				http.Error(w, `{"error":"max_workers must be at least 1"}`, http.StatusBadRequest)
				return
			}

			total := peek.PaymentPerTaskCents * int64(peek.MaxWorkers)
			required := total + models.ServiceFee(total)
			if pool != nil {
				balance, err := walletBalanceFn(r.Context(), pool, user.ID)
				if err != nil {
					http.Error(w, `{"error":"failed to check wallet balance"}`, http.StatusInternalServerError)
					return
				}
				if balance < required {
					http.Error(w, fmt.Sprintf(`{"error":"wallet balance %d is below the required funding %d"}`, balance, required), http.StatusPaymentRequired)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxFundingKey, &peek)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// walletBalanceFn is the function used to read the caller's wallet balance.
// Tests can replace this to avoid hitting a real database.
var walletBalanceFn = defaultWalletBalance

func defaultWalletBalance(ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID) (int64, error) {
	var balance int64
	err := pool.QueryRow(ctx, `
		SELECT balance_cents FROM wallets WHERE user_id = $1
	`, userID).Scan(&balance)
	return balance, err
}
