package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
)

type stubInventoryService struct {
	reserved []int
	released []int
	err      error
	kit      domain.Kit
}

func (s *stubInventoryService) CheckAvailability(_ context.Context, _ string, _ int) bool {
	return true
}

func (s *stubInventoryService) Reserve(_ context.Context, _ string, quantity int) (domain.Kit, error) {
	if s.err != nil {
		return domain.Kit{}, s.err
	}
	s.reserved = append(s.reserved, quantity)
	return s.kit, nil
}

func (s *stubInventoryService) Release(_ context.Context, _ string, quantity int) (domain.Kit, error) {
	s.released = append(s.released, quantity)
	return s.kit, nil
}

func (s *stubInventoryService) UpsertKit(_ context.Context, _ UpsertKitCommand) (domain.Kit, error) {
	return domain.Kit{}, nil
}

func (s *stubInventoryService) ListKits(_ context.Context, _ domain.Pagination) (domain.CursorPage[domain.Kit], error) {
	return domain.CursorPage[domain.Kit]{}, nil
}

type findableOrderRepo struct {
	stubOrderRepo
	byID map[string]domain.Order
}

func (r *findableOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := r.byID[orderID]
	if !ok {
		return domain.Order{}, stubRepoError{notFound: true}
	}
	return order, nil
}

func newOrderServiceForTest(t *testing.T, repo *findableOrderRepo, inventory *stubInventoryService, notifications *stubNotificationService) OrderService {
	t.Helper()
	service, err := NewOrderService(OrderServiceDeps{
		Orders:        repo,
		Inventory:     inventory,
		Notifications: notifications,
		Clock:         func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
		KitSKU:        "DNA-KIT-01",
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return service
}

func TestTransitionStatusShipReservesStock(t *testing.T) {
	repo := &findableOrderRepo{byID: map[string]domain.Order{
		"order-1": {ID: "order-1", Status: domain.OrderStatusProcessing, Quantity: 25},
	}}
	inventory := &stubInventoryService{}
	notifications := &stubNotificationService{}
	service := newOrderServiceForTest(t, repo, inventory, notifications)

	order, err := service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "order-1",
		Status:  domain.OrderStatusShipped,
		ActorID: "staff-1",
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("order status = %q", order.Status)
	}
	if len(inventory.reserved) != 1 || inventory.reserved[0] != 25 {
		t.Fatalf("reserved = %v", inventory.reserved)
	}
	if len(notifications.events) != 1 || notifications.events[0] != "order.status.shipped" {
		t.Fatalf("events = %v", notifications.events)
	}
}

func TestTransitionStatusRejectsInvalidTransition(t *testing.T) {
	repo := &findableOrderRepo{byID: map[string]domain.Order{
		"order-1": {ID: "order-1", Status: domain.OrderStatusPending},
	}}
	service := newOrderServiceForTest(t, repo, &stubInventoryService{}, nil)

	_, err := service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "order-1",
		Status:  domain.OrderStatusDelivered,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
	if len(repo.updated) != 0 {
		t.Fatal("order updated despite invalid transition")
	}
}

func TestTransitionStatusIdempotentWhenUnchanged(t *testing.T) {
	repo := &findableOrderRepo{byID: map[string]domain.Order{
		"order-1": {ID: "order-1", Status: domain.OrderStatusProcessing},
	}}
	service := newOrderServiceForTest(t, repo, &stubInventoryService{}, nil)

	order, err := service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "order-1",
		Status:  domain.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("order status = %q", order.Status)
	}
	if len(repo.updated) != 0 {
		t.Fatal("no-op transition should not persist")
	}
}

func TestTransitionStatusReleasesStockOnUpdateFailure(t *testing.T) {
	repo := &findableOrderRepo{byID: map[string]domain.Order{
		"order-1": {ID: "order-1", Status: domain.OrderStatusProcessing, Quantity: 10},
	}}
	repo.updateErr = errors.New("firestore unavailable")
	inventory := &stubInventoryService{}
	service := newOrderServiceForTest(t, repo, inventory, nil)

	_, err := service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "order-1",
		Status:  domain.OrderStatusShipped,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(inventory.released) != 1 || inventory.released[0] != 10 {
		t.Fatalf("released = %v", inventory.released)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	repo := &findableOrderRepo{byID: map[string]domain.Order{}}
	service := newOrderServiceForTest(t, repo, nil, nil)

	if _, err := service.GetOrder(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListOrdersRejectsInvertedRange(t *testing.T) {
	repo := &findableOrderRepo{byID: map[string]domain.Order{}}
	service := newOrderServiceForTest(t, repo, nil, nil)

	after := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	before := after.Add(-24 * time.Hour)
	_, err := service.ListOrders(context.Background(), OrderListFilter{
		CreatedAfter:  &after,
		CreatedBefore: &before,
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}
