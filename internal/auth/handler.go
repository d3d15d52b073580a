package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/models"
)

var validate = validator.New()

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=2"`
	Role     string `json:"role" validate:"required,oneof=worker advertiser"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Register handles POST /v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
		case errors.Is(err, ErrInvalidRole):
			http.Error(w, `{"error":"invalid role"}`, http.StatusBadRequest)
		default:
			h.log.Error("register failed", "error", err)
			http.Error(w, `{"error":"registration failed"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// VerifyEmail handles GET /v1/auth/verify?token=...
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, `{"error":"token is required"}`, http.StatusBadRequest)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), token); err != nil {
		http.Error(w, `{"error":"invalid or already used verification token"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// Login handles POST /v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		case errors.Is(err, ErrUnverified):
			http.Error(w, `{"error":"email not verified"}`, http.StatusForbidden)
		default:
			h.log.Error("login failed", "error", err)
			http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Me handles GET /v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authed := middleware.UserFromCtx(r.Context())
	if authed == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	user, err := h.svc.Me(r.Context(), authed.ID)
	if err != nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
