package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
)

// orderStateTransitions defines the allowed fulfilment transitions. Payment
// outcomes move orders pending->processing or pending->cancelled through the
// checkout service; staff drive the rest.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Inventory     InventoryService
	Notifications NotificationService
	Logger        *zap.Logger
	Clock         func() time.Time

	// KitSKU is the stock keeping unit reserved when an order ships.
	KitSKU string
}

type orderService struct {
	orders        repositories.OrderRepository
	inventory     InventoryService
	notifications NotificationService
	logger        *zap.Logger
	clock         func() time.Time
	kitSKU        string
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs the admin order service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &orderService{
		orders:        deps.Orders,
		inventory:     deps.Inventory,
		notifications: deps.Notifications,
		logger:        logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		kitSKU: strings.TrimSpace(deps.KitSKU),
	}, nil
}

// ListOrders returns a filtered page of orders for the admin console.
func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	if filter.CreatedAfter != nil && filter.CreatedBefore != nil && filter.CreatedBefore.Before(*filter.CreatedAfter) {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: created range is inverted", ErrOrderInvalidInput)
	}
	filter.CustomerEmail = strings.ToLower(strings.TrimSpace(filter.CustomerEmail))
	return s.orders.List(ctx, filter)
}

// GetOrder returns a single order by ID.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, translateOrderError(err)
	}
	return order, nil
}

// TransitionStatus applies a staff-driven fulfilment state change. Shipping
// an order reserves kit stock; cancelling a shipped reservation is not
// supported, which is why shipped orders can only move to delivered.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	if cmd.OrderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Status == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, translateOrderError(err)
	}

	if order.Status == cmd.Status {
		return order, nil
	}
	allowed := orderStateTransitions[order.Status]
	if !slices.Contains(allowed, cmd.Status) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, cmd.Status)
	}

	if cmd.Status == domain.OrderStatusShipped && s.inventory != nil && s.kitSKU != "" {
		if _, err := s.inventory.Reserve(ctx, s.kitSKU, order.Quantity); err != nil {
			return Order{}, fmt.Errorf("order: reserve kit stock: %w", err)
		}
	}

	previous := order.Status
	order.Status = cmd.Status
	order.UpdatedAt = s.clock()

	if err := s.orders.Update(ctx, order); err != nil {
		if cmd.Status == domain.OrderStatusShipped && s.inventory != nil && s.kitSKU != "" {
			if _, releaseErr := s.inventory.Release(ctx, s.kitSKU, order.Quantity); releaseErr != nil {
				s.logger.Error("release kit stock after failed transition",
					zap.String("orderId", order.ID), zap.Error(releaseErr))
			}
		}
		return Order{}, fmt.Errorf("order: store status transition: %w", err)
	}

	s.logger.Info("order status transition",
		zap.String("orderId", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
		zap.String("actorId", cmd.ActorID))

	if s.notifications != nil {
		if err := s.notifications.NotifyOrderEvent(ctx, order, "order.status."+string(order.Status)); err != nil {
			s.logger.Error("notify status transition",
				zap.String("orderId", order.ID), zap.Error(err))
		}
	}

	return order, nil
}

func translateOrderError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	return err
}
