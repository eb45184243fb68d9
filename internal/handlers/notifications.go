package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 100
)

type notificationPayload struct {
	ID        string     `json:"id"`
	OrderID   string     `json:"order_id"`
	Event     string     `json:"event"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func newNotificationPayload(notification domain.Notification) notificationPayload {
	return notificationPayload{
		ID:        notification.ID,
		OrderID:   notification.OrderID,
		Event:     notification.Event,
		Message:   notification.Message,
		Status:    string(notification.Status),
		CreatedAt: notification.CreatedAt,
		ReadAt:    notification.ReadAt,
	}
}

// NotificationHandlers exposes the staff notification feed endpoints.
type NotificationHandlers struct {
	notifications services.NotificationService
}

// NewNotificationHandlers constructs admin notification handlers.
func NewNotificationHandlers(notifications services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{notifications: notifications}
}

// Routes registers the staff /notifications endpoints.
func (h *NotificationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/notifications", h.list)
	r.Get("/notifications/unread-count", h.unreadCount)
	r.Post("/notifications/{notificationID}/read", h.markRead)
}

func (h *NotificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := pageParams(r, defaultNotificationPageSize, maxNotificationPageSize)
	if err != nil {
		writeInvalidRequest(ctx, w, "invalid pagination parameters")
		return
	}

	filter := services.NotificationListFilter{Pagination: pager}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.NotificationStatus(raw)
		if status != domain.NotificationStatusUnread && status != domain.NotificationStatusRead {
			writeInvalidRequest(ctx, w, "status must be unread or read")
			return
		}
		filter.Status = &status
	}

	page, err := h.notifications.ListNotifications(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]notificationPayload, 0, len(page.Items))
	for _, notification := range page.Items {
		payload = append(payload, newNotificationPayload(notification))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Notifications fetched.", map[string]any{
		"notifications":   payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *NotificationHandlers) unreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.notifications.UnreadCount(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Unread count fetched.", map[string]any{"unread": count})
}

func (h *NotificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notification, err := h.notifications.MarkRead(ctx, chi.URLParam(r, "notificationID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Notification marked as read.", newNotificationPayload(notification))
}
