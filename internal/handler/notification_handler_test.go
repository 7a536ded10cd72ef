package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cobros/internal/middleware"
	"github.com/hitoshi/cobros/internal/model"
)

// --- モック定義 ---

// mockNotificationService はNotificationServiceInterfaceのモック実装。
type mockNotificationService struct {
	listFn     func(ctx context.Context, userID string) ([]*model.Notification, error)
	markReadFn func(ctx context.Context, id, userID string) error
}

func (m *mockNotificationService) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, id, userID)
	}
	return nil
}

// --- テスト ---

func TestNotificationHandler_List(t *testing.T) {
	var gotUserID string
	svc := &mockNotificationService{
		listFn: func(ctx context.Context, userID string) ([]*model.Notification, error) {
			gotUserID = userID
			return []*model.Notification{
				{
					ID:        "notif-1",
					UserID:    userID,
					Title:     "Actualización de cuenta",
					Message:   "Tu cuenta ha sido aprobada.",
					Type:      model.NotificationSuccess,
					CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				},
			}, nil
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q", gotUserID)
	}

	var resp struct {
		Notifications []notificationResponse `json:"notifications"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].ID != "notif-1" {
		t.Errorf("notifications = %+v", resp.Notifications)
	}
}

func TestNotificationHandler_List_EmptyIsArray(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.List(w, req)

	// 通知ゼロ件でもnullではなく空配列
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(resp["notifications"]) != "[]" {
		t.Errorf("notifications = %s, want []", resp["notifications"])
	}
}

func TestNotificationHandler_List_NoUserReturns401(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	var gotID, gotUserID string
	svc := &mockNotificationService{
		markReadFn: func(ctx context.Context, id, userID string) error {
			gotID, gotUserID = id, userID
			return nil
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/notif-1/read", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "notif-1")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.ContextWithUserID(ctx, "user-1")
	w := httptest.NewRecorder()
	h.MarkRead(w, req.WithContext(ctx))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	// 所有者スコープで既読化されること
	if gotID != "notif-1" || gotUserID != "user-1" {
		t.Errorf("MarkRead(%q, %q)", gotID, gotUserID)
	}
}

func TestNotificationHandler_MarkRead_ServiceFailure(t *testing.T) {
	svc := &mockNotificationService{
		markReadFn: func(ctx context.Context, id, userID string) error {
			return errors.New("db down")
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/notif-1/read", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "notif-1")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.ContextWithUserID(ctx, "user-1")
	w := httptest.NewRecorder()
	h.MarkRead(w, req.WithContext(ctx))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
