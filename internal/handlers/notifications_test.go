package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/services"
)

type stubNotificationListService struct {
	notifyFn func(context.Context, domain.Order, string) error
	listFn   func(context.Context, services.NotificationListFilter) (domain.CursorPage[domain.Notification], error)
	readFn   func(context.Context, string) (domain.Notification, error)
	unreadFn func(context.Context) (int64, error)
}

func (s *stubNotificationListService) NotifyOrderEvent(ctx context.Context, order domain.Order, event string) error {
	if s.notifyFn != nil {
		return s.notifyFn(ctx, order, event)
	}
	return nil
}

func (s *stubNotificationListService) ListNotifications(ctx context.Context, filter services.NotificationListFilter) (domain.CursorPage[domain.Notification], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Notification]{}, nil
}

func (s *stubNotificationListService) MarkRead(ctx context.Context, notificationID string) (domain.Notification, error) {
	if s.readFn != nil {
		return s.readFn(ctx, notificationID)
	}
	return domain.Notification{}, errors.New("not implemented")
}

func (s *stubNotificationListService) UnreadCount(ctx context.Context) (int64, error) {
	if s.unreadFn != nil {
		return s.unreadFn(ctx)
	}
	return 0, errors.New("not implemented")
}

func newNotificationRouter(service services.NotificationService) chi.Router {
	router := chi.NewRouter()
	router.Route("/", NewNotificationHandlers(service).Routes)
	return router
}

func TestNotificationsListAppliesStatusFilter(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	var captured services.NotificationListFilter
	service := &stubNotificationListService{
		listFn: func(ctx context.Context, filter services.NotificationListFilter) (domain.CursorPage[domain.Notification], error) {
			captured = filter
			return domain.CursorPage[domain.Notification]{
				Items: []domain.Notification{{
					ID:        "notif-1",
					OrderID:   "order-1",
					Event:     "order.created",
					Message:   "New order order-1 received.",
					Status:    domain.NotificationStatusUnread,
					CreatedAt: now,
				}},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	router := newNotificationRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/notifications?status=unread&pageSize=5", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	if captured.Status == nil || *captured.Status != domain.NotificationStatusUnread {
		t.Fatalf("expected unread filter, got %v", captured.Status)
	}
	if captured.Pagination.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", captured.Pagination.PageSize)
	}

	env := decodeEnvelope(t, rr)
	items, ok := env.Data["notifications"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one notification, got %v", env.Data["notifications"])
	}
	first, _ := items[0].(map[string]any)
	if first["status"] != "unread" || first["order_id"] != "order-1" {
		t.Fatalf("unexpected payload: %+v", first)
	}
	if _, present := first["read_at"]; present {
		t.Fatal("expected read_at omitted for unread notification")
	}
}

func TestNotificationsListRejectsUnknownStatus(t *testing.T) {
	router := newNotificationRouter(&stubNotificationListService{})
	req := httptest.NewRequest(http.MethodGet, "/notifications?status=archived", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	readAt := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	service := &stubNotificationListService{
		readFn: func(ctx context.Context, notificationID string) (domain.Notification, error) {
			if notificationID != "notif-1" {
				t.Fatalf("unexpected id %q", notificationID)
			}
			return domain.Notification{
				ID:      "notif-1",
				OrderID: "order-1",
				Status:  domain.NotificationStatusRead,
				ReadAt:  &readAt,
			}, nil
		},
	}

	router := newNotificationRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif-1/read", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Data["status"] != "read" {
		t.Fatalf("expected read status, got %v", env.Data["status"])
	}
	if env.Data["read_at"] == nil {
		t.Fatal("expected read_at to be present")
	}
}

func TestNotificationsMarkReadNotFound(t *testing.T) {
	service := &stubNotificationListService{
		readFn: func(ctx context.Context, notificationID string) (domain.Notification, error) {
			return domain.Notification{}, services.ErrNotificationNotFound
		},
	}

	router := newNotificationRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/notifications/missing/read", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestNotificationsUnreadCount(t *testing.T) {
	service := &stubNotificationListService{
		unreadFn: func(ctx context.Context) (int64, error) { return 7, nil },
	}

	router := newNotificationRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Data["unread"] != float64(7) {
		t.Fatalf("expected unread 7, got %v", env.Data["unread"])
	}
}
