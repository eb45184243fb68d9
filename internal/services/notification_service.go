package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrNotificationInvalidInput signals the caller provided invalid data.
	ErrNotificationInvalidInput = errors.New("notifications: invalid input")
	// ErrNotificationNotFound indicates the notification does not exist.
	ErrNotificationNotFound = errors.New("notifications: not found")
)

// NotificationServiceDeps bundles collaborators for the notification service.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Publisher     OrderEventPublisher
	Logger        *zap.Logger
	Clock         func() time.Time
	IDs           func() string
}

type notificationService struct {
	notifications repositories.NotificationRepository
	publisher     OrderEventPublisher
	printer       *message.Printer
	logger        *zap.Logger
	clock         func() time.Time
	newID         func() string
}

var _ NotificationService = (*notificationService)(nil)

// NewNotificationService constructs the staff notification service.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDs
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &notificationService{
		notifications: deps.Notifications,
		publisher:     deps.Publisher,
		printer:       message.NewPrinter(language.English),
		logger:        logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: newID,
	}, nil
}

// NotifyOrderEvent records an order lifecycle event for the staff feed and
// fans it out over the event publisher. The record is the source of truth;
// a publish failure is logged and does not fail the caller.
func (s *notificationService) NotifyOrderEvent(ctx context.Context, order Order, event string) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return fmt.Errorf("%w: event name is required", ErrNotificationInvalidInput)
	}
	if order.ID == "" {
		return fmt.Errorf("%w: order id is required", ErrNotificationInvalidInput)
	}

	now := s.clock()
	notification := Notification{
		ID:        s.newID(),
		OrderID:   order.ID,
		Event:     event,
		Message:   s.describe(order, event),
		Status:    domain.NotificationStatusUnread,
		CreatedAt: now,
	}
	if err := s.notifications.Insert(ctx, notification); err != nil {
		return fmt.Errorf("notifications: store event: %w", err)
	}

	if s.publisher != nil {
		msg := OrderEventMessage{
			EventID:       notification.ID,
			OrderID:       order.ID,
			Event:         event,
			PaymentStatus: string(order.PaymentStatus),
			CustomerEmail: order.CustomerEmail,
			GrandTotal:    order.Totals.GrandTotal,
			Currency:      order.Currency,
			QueuedAt:      now,
		}
		if _, err := s.publisher.PublishOrderEvent(ctx, msg); err != nil {
			s.logger.Error("publish order event",
				zap.String("orderId", order.ID),
				zap.String("event", event),
				zap.Error(err))
		}
	}

	return nil
}

// ListNotifications returns a page of the staff feed.
func (s *notificationService) ListNotifications(ctx context.Context, filter NotificationListFilter) (domain.CursorPage[Notification], error) {
	return s.notifications.List(ctx, filter)
}

// MarkRead acknowledges a notification.
func (s *notificationService) MarkRead(ctx context.Context, notificationID string) (Notification, error) {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return Notification{}, fmt.Errorf("%w: notification id is required", ErrNotificationInvalidInput)
	}
	notification, err := s.notifications.MarkRead(ctx, notificationID, s.clock())
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Notification{}, fmt.Errorf("%w: %v", ErrNotificationNotFound, err)
		}
		return Notification{}, err
	}
	return notification, nil
}

// UnreadCount returns the number of unacknowledged notifications.
func (s *notificationService) UnreadCount(ctx context.Context) (int64, error) {
	return s.notifications.CountUnread(ctx)
}

// describe renders the human readable feed line. Amounts are grouped for
// display only; wire payloads carry the raw number.
func (s *notificationService) describe(order Order, event string) string {
	currency := strings.ToUpper(order.Currency)
	switch {
	case event == "order.created":
		return s.printer.Sprintf("Order %s placed for %d kit(s), total %.2f %s.",
			order.ID, order.Quantity, order.Totals.GrandTotal, currency)
	case strings.HasPrefix(event, "order.payment."):
		return s.printer.Sprintf("Order %s payment is now %s (%.2f %s).",
			order.ID, order.PaymentStatus, order.Totals.GrandTotal, currency)
	case strings.HasPrefix(event, "order.status."):
		return s.printer.Sprintf("Order %s moved to %s.", order.ID, order.Status)
	default:
		return s.printer.Sprintf("Order %s: %s.", order.ID, event)
	}
}
