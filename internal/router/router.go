// Package router wires every HTTP endpoint to its handler and middleware
// chain. Method-qualified patterns do the method dispatch.
package router

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/auth"
	"github.com/taskhub/backend/internal/handlers"
	"github.com/taskhub/backend/internal/jobs"
	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/wallet"
)

// Deps carries everything the router needs. Pool is only used by the
// funding pre-check on job creation.
type Deps struct {
	Pool           *pgxpool.Pool
	AuthService    auth.Service
	AuthHandler    *auth.Handler
	JobsHandler    *jobs.Handler
	WalletHandler  *wallet.Handler
	CatalogHandler *handlers.CatalogHandler
}

// New returns the API http.Handler.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.JWTAuth(d.AuthService)
	optional := middleware.OptionalJWTAuth(d.AuthService)
	advertisers := middleware.RequireRole("advertiser", "admin")
	funding := middleware.FundingCheck(d.Pool)

	// Auth.
	mux.HandleFunc("POST /v1/auth/register", d.AuthHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", d.AuthHandler.Login)
	mux.HandleFunc("GET /v1/auth/verify", d.AuthHandler.VerifyEmail)
	mux.Handle("GET /v1/auth/me", authed(http.HandlerFunc(d.AuthHandler.Me)))

	// Jobs. Browsing is public; the detail view is enriched for logged-in
	// viewers; everything that moves money or state needs auth.
	mux.HandleFunc("GET /v1/jobs", d.JobsHandler.ListJobs)
	mux.Handle("GET /v1/jobs/{id}", optional(http.HandlerFunc(d.JobsHandler.GetJob)))
	mux.Handle("POST /v1/jobs", authed(advertisers(funding(http.HandlerFunc(d.JobsHandler.CreateJob)))))
	mux.Handle("PATCH /v1/jobs/{id}", authed(http.HandlerFunc(d.JobsHandler.UpdateJob)))
	mux.Handle("DELETE /v1/jobs/{id}", authed(http.HandlerFunc(d.JobsHandler.DeleteJob)))

	// Task workflow.
	mux.Handle("POST /v1/jobs/{id}/apply", authed(http.HandlerFunc(d.JobsHandler.ApplyForJob)))
	mux.Handle("POST /v1/jobs/{id}/tasks/{taskId}/submit", authed(http.HandlerFunc(d.JobsHandler.SubmitProof)))
	mux.Handle("POST /v1/jobs/{id}/tasks/{taskId}/review", authed(http.HandlerFunc(d.JobsHandler.ReviewTask)))
	mux.Handle("GET /v1/jobs/{id}/applicants", authed(http.HandlerFunc(d.JobsHandler.ListApplicants)))
	mux.Handle("GET /v1/jobs/{id}/statistics", authed(http.HandlerFunc(d.JobsHandler.JobStatistics)))

	// Wallet.
	mux.Handle("GET /v1/wallet", authed(http.HandlerFunc(d.WalletHandler.GetBalance)))
	mux.Handle("POST /v1/wallet/deposit", authed(http.HandlerFunc(d.WalletHandler.Deposit)))
	mux.Handle("POST /v1/wallet/withdraw", authed(http.HandlerFunc(d.WalletHandler.Withdraw)))
	mux.Handle("GET /v1/wallet/transactions", authed(http.HandlerFunc(d.WalletHandler.ListTransactions)))

	// Catalog.
	mux.HandleFunc("GET /v1/categories", d.CatalogHandler.ListCategories)
	mux.Handle("GET /v1/notifications", authed(http.HandlerFunc(d.CatalogHandler.ListNotifications)))
	mux.Handle("POST /v1/notifications/{id}/read", authed(http.HandlerFunc(d.CatalogHandler.MarkNotificationRead)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}
