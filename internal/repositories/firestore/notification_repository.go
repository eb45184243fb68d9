package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	pfirestore "github.com/theranostics-labs/portal-api/internal/platform/firestore"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

const notificationsCollection = "notifications"

// NotificationRepository stores order lifecycle notifications for staff.
type NotificationRepository struct {
	base *pfirestore.BaseRepository[domain.Notification]
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, notification domain.Notification) (any, error) {
		return encodeNotificationDocument(notification), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Notification, error) {
		return decodeNotificationSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.Notification](provider, notificationsCollection, encoder, decoder)
	return &NotificationRepository{base: base}, nil
}

// Insert stores a new notification.
func (r *NotificationRepository) Insert(ctx context.Context, notification domain.Notification) error {
	if r == nil || r.base == nil {
		return errors.New("notification repository not initialised")
	}
	notification.ID = strings.TrimSpace(notification.ID)
	if notification.ID == "" {
		return errors.New("notification repository: id is required")
	}

	docRef, err := r.base.DocumentRef(ctx, notification.ID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeNotificationDocument(notification)); err != nil {
		return pfirestore.WrapError("notifications.insert", err)
	}
	return nil
}

// FindByID loads a notification by identifier.
func (r *NotificationRepository) FindByID(ctx context.Context, notificationID string) (domain.Notification, error) {
	if r == nil || r.base == nil {
		return domain.Notification{}, errors.New("notification repository not initialised")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return domain.Notification{}, errors.New("notification repository: id is required")
	}
	doc, err := r.base.Get(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	return doc.Data, nil
}

// List returns notifications newest first, optionally filtered by status.
func (r *NotificationRepository) List(ctx context.Context, filter repositories.NotificationListFilter) (domain.CursorPage[domain.Notification], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Notification]{}, errors.New("notification repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var tokenTime time.Time
	var tokenID string
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var err error
		tokenTime, tokenID, err = decodeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Notification]{}, fmt.Errorf("notifications.list: invalid page token: %w", err)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if tokenID != "" {
			q = q.StartAfter(tokenTime, tokenID)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Notification]{}, err
	}

	notifications := make([]domain.Notification, 0, len(docs))
	for _, doc := range docs {
		notifications = append(notifications, doc.Data)
	}

	nextToken := ""
	if fetchLimit > 0 && len(notifications) == fetchLimit {
		last := notifications[len(notifications)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		notifications = notifications[:len(notifications)-1]
	}

	return domain.CursorPage[domain.Notification]{
		Items:         notifications,
		NextPageToken: nextToken,
	}, nil
}

// MarkRead flags a notification as acknowledged and returns the new state.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.Notification, error) {
	if r == nil || r.base == nil {
		return domain.Notification{}, errors.New("notification repository not initialised")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return domain.Notification{}, errors.New("notification repository: id is required")
	}

	readAt = readAt.UTC()
	if _, err := r.base.Update(ctx, notificationID, []firestore.Update{
		{Path: "status", Value: string(domain.NotificationStatusRead)},
		{Path: "readAt", Value: readAt},
	}); err != nil {
		return domain.Notification{}, err
	}
	return r.FindByID(ctx, notificationID)
}

// CountUnread counts notifications awaiting staff acknowledgement.
func (r *NotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("notification repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "==", string(domain.NotificationStatusUnread)).Select()
	})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

type notificationDocument struct {
	ID        string     `firestore:"-"`
	OrderID   string     `firestore:"orderId"`
	Event     string     `firestore:"event"`
	Message   string     `firestore:"message"`
	Status    string     `firestore:"status"`
	CreatedAt time.Time  `firestore:"createdAt"`
	ReadAt    *time.Time `firestore:"readAt,omitempty"`
}

func encodeNotificationDocument(notification domain.Notification) notificationDocument {
	var readAt *time.Time
	if notification.ReadAt != nil {
		t := notification.ReadAt.UTC()
		readAt = &t
	}
	return notificationDocument{
		OrderID:   notification.OrderID,
		Event:     notification.Event,
		Message:   notification.Message,
		Status:    string(notification.Status),
		CreatedAt: notification.CreatedAt.UTC(),
		ReadAt:    readAt,
	}
}

func decodeNotificationSnapshot(snap *firestore.DocumentSnapshot) (domain.Notification, error) {
	var doc notificationDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Notification{}, err
	}
	doc.ID = snap.Ref.ID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = snap.CreateTime
	}
	var readAt *time.Time
	if doc.ReadAt != nil {
		t := doc.ReadAt.UTC()
		readAt = &t
	}
	return domain.Notification{
		ID:        doc.ID,
		OrderID:   doc.OrderID,
		Event:     doc.Event,
		Message:   doc.Message,
		Status:    domain.NotificationStatus(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
		ReadAt:    readAt,
	}, nil
}

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)
