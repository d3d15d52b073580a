package wallet

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/taskerr"
)

// Handler serves the /v1/wallet endpoints.
type Handler struct {
	Service Service
	Logger  *slog.Logger
}

// GetBalance handles GET /v1/wallet.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	wallet, err := h.Service.Balance(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

type amountRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type balanceResponse struct {
	BalanceCents int64 `json:"balance_cents"`
}

// Deposit handles POST /v1/wallet/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	balance, err := h.Service.Deposit(r.Context(), user.ID, req.AmountCents)
	if err != nil {
		h.writeError(w, "deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{BalanceCents: balance})
}

// Withdraw handles POST /v1/wallet/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	balance, err := h.Service.Withdraw(r.Context(), user.ID, req.AmountCents)
	if err != nil {
		h.writeError(w, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{BalanceCents: balance})
}

// ListTransactions handles GET /v1/wallet/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), 20)

	txs, total, err := h.Service.Transactions(r.Context(), user.ID, page, limit)
	if err != nil {
		h.writeError(w, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := taskerr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(op, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(taskerr.Code(err)),
	})
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
