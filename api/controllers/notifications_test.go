package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/internal/notifications"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

type testNotificationsService struct {
	notifyFn      func(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message string) error
	listFn        func(ctx context.Context, params notifications.ListParams) (*pagination.Page[models.Notification], error)
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (s *testNotificationsService) Notify(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message string) error {
	if s.notifyFn != nil {
		return s.notifyFn(ctx, userID, notificationType, title, message)
	}
	return nil
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*pagination.Page[models.Notification], error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &pagination.Page[models.Notification]{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, userID)
	}
	return 0, nil
}

func TestListNotificationsUnreadFilter(t *testing.T) {
	userID := uuid.New()
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*pagination.Page[models.Notification], error) {
			if params.UserID != userID {
				t.Fatalf("unexpected user %s", params.UserID)
			}
			if !params.UnreadOnly {
				t.Fatal("expected unread_only filter")
			}
			return &pagination.Page[models.Notification]{Total: 2}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread_only=true", nil)
	req = asUser(req, userID)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMarkNotificationReadScopedToCaller(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, uid, nid uuid.UUID) error {
			called = true
			if uid != userID || nid != notificationID {
				t.Fatalf("unexpected args %s %s", uid, nid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = asUser(req, userID)
	req = addRouteParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	notificationID := uuid.New()
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, uid, nid uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = asUser(req, uuid.New())
	req = addRouteParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadReturnsCount(t *testing.T) {
	userID := uuid.New()
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, uid uuid.UUID) (int64, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return 7, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	req = asUser(req, userID)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["marked_read"] != 7 {
		t.Fatalf("unexpected count %d", envelope.Data["marked_read"])
	}
}
