// Package handlers holds the small read-mostly endpoints that don't warrant
// a service layer of their own: categories and notifications.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/models"
)

// CategoryLister is the subset of the category repository needed here.
type CategoryLister interface {
	List(ctx context.Context) ([]*models.Category, error)
}

// NotificationStore is the subset of the notification repository needed here.
type NotificationStore interface {
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// CatalogHandler serves /v1/categories and /v1/notifications.
type CatalogHandler struct {
	Categories    CategoryLister
	Notifications NotificationStore
	Logger        *slog.Logger
}

// ListCategories handles GET /v1/categories (public, no auth).
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Categories.List(r.Context())
	if err != nil {
		h.Logger.Error("list categories", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// ListNotifications handles GET /v1/notifications.
func (h *CatalogHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	notifications, err := h.Notifications.ListByUserID(r.Context(), user.ID, limit)
	if err != nil {
		h.Logger.Error("list notifications", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /v1/notifications/{id}/read.
// Scoped to the caller's own notifications by the repository query.
func (h *CatalogHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), user.ID, id); err != nil {
		h.Logger.Error("mark notification read", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
