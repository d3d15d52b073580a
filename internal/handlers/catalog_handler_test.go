package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockCategories struct {
	categories []*models.Category
}

func (m *mockCategories) List(context.Context) ([]*models.Category, error) {
	return m.categories, nil
}

type mockNotifications struct {
	byUser map[uuid.UUID][]*models.Notification
	read   []uuid.UUID
}

func (m *mockNotifications) ListByUserID(_ context.Context, userID uuid.UUID, _ int) ([]*models.Notification, error) {
	return m.byUser[userID], nil
}

func (m *mockNotifications) MarkRead(_ context.Context, _, id uuid.UUID) error {
	m.read = append(m.read, id)
	return nil
}

func newHandler(cats *mockCategories, notifs *mockNotifications) *CatalogHandler {
	return &CatalogHandler{
		Categories:    cats,
		Notifications: notifs,
		Logger:        slog.Default(),
	}
}

func authed(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), &middleware.AuthedUser{ID: userID, Role: models.RoleWorker}))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestListCategories(t *testing.T) {
	h := newHandler(&mockCategories{categories: []*models.Category{
		{ID: uuid.New(), Name: "Data Entry"},
		{ID: uuid.New(), Name: "Surveys"},
	}}, &mockNotifications{})

	req := httptest.NewRequest(http.MethodGet, "/v1/categories", nil)
	rec := httptest.NewRecorder()
	h.ListCategories(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Data Entry") {
		t.Errorf("expected category names in body, got: %s", rec.Body.String())
	}
}

func TestListNotifications(t *testing.T) {
	userID := uuid.New()
	notifs := &mockNotifications{byUser: map[uuid.UUID][]*models.Notification{
		userID: {{ID: uuid.New(), UserID: userID, Event: models.NotifyJobApplied, Message: "A worker applied"}},
	}}
	h := newHandler(&mockCategories{}, notifs)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/notifications", nil), userID)
	rec := httptest.NewRecorder()
	h.ListNotifications(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "A worker applied") {
		t.Errorf("expected notification message in body, got: %s", rec.Body.String())
	}
}

func TestListNotifications_Unauthorized(t *testing.T) {
	h := newHandler(&mockCategories{}, &mockNotifications{})

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	rec := httptest.NewRecorder()
	h.ListNotifications(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	userID := uuid.New()
	notifID := uuid.New()
	notifs := &mockNotifications{byUser: map[uuid.UUID][]*models.Notification{}}
	h := newHandler(&mockCategories{}, notifs)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/notifications/"+notifID.String()+"/read", nil), userID)
	req.SetPathValue("id", notifID.String())
	rec := httptest.NewRecorder()
	h.MarkNotificationRead(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(notifs.read) != 1 || notifs.read[0] != notifID {
		t.Errorf("expected notification %s marked read, got %v", notifID, notifs.read)
	}
}

func TestMarkNotificationRead_BadID(t *testing.T) {
	h := newHandler(&mockCategories{}, &mockNotifications{})

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/notifications/nope/read", nil), uuid.New())
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.MarkNotificationRead(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
