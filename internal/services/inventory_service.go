package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid kit parameters.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryKitNotFound indicates the SKU does not exist.
	ErrInventoryKitNotFound = errors.New("inventory: kit not found")
	// ErrInventoryInsufficientStock indicates the reservation exceeds available stock.
	ErrInventoryInsufficientStock = errors.New("inventory: insufficient stock")
)

// InventoryServiceDeps bundles collaborators for the kit inventory service.
type InventoryServiceDeps struct {
	Kits   repositories.KitRepository
	Logger *zap.Logger
	Clock  func() time.Time
	IDs    func() string
}

type inventoryService struct {
	kits   repositories.KitRepository
	logger *zap.Logger
	clock  func() time.Time
	newID  func() string
}

var _ InventoryService = (*inventoryService)(nil)

// NewInventoryService constructs the kit inventory service.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Kits == nil {
		return nil, errors.New("inventory service: kit repository is required")
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
	return &inventoryService{
		kits:   deps.Kits,
		logger: logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: newID,
	}, nil
}

// CheckAvailability reports whether the SKU can currently cover the quantity.
// Lookup failures are logged and treated as available so a degraded stock
// store never blocks a checkout.
func (s *inventoryService) CheckAvailability(ctx context.Context, sku string, quantity int) bool {
	if quantity <= 0 {
		return true
	}
	kit, err := s.kits.FindBySKU(ctx, sku)
	if err != nil {
		s.logger.Warn("kit availability lookup failed",
			zap.String("sku", sku), zap.Error(err))
		return true
	}
	if !kit.Active {
		return false
	}
	return kit.Available >= quantity
}

// Reserve moves quantity units from available to reserved.
func (s *inventoryService) Reserve(ctx context.Context, sku string, quantity int) (Kit, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Kit{}, fmt.Errorf("%w: sku is required", ErrInventoryInvalidInput)
	}
	if quantity <= 0 {
		return Kit{}, fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}
	kit, err := s.kits.Reserve(ctx, sku, quantity)
	if err != nil {
		return Kit{}, translateKitError(err)
	}
	return kit, nil
}

// Release returns quantity units from reserved to available.
func (s *inventoryService) Release(ctx context.Context, sku string, quantity int) (Kit, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Kit{}, fmt.Errorf("%w: sku is required", ErrInventoryInvalidInput)
	}
	if quantity <= 0 {
		return Kit{}, fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}
	kit, err := s.kits.Release(ctx, sku, quantity)
	if err != nil {
		return Kit{}, translateKitError(err)
	}
	return kit, nil
}

// UpsertKit creates or replaces the stock record for a SKU. Reserved counts
// are owned by the reservation path and survive upserts.
func (s *inventoryService) UpsertKit(ctx context.Context, cmd UpsertKitCommand) (Kit, error) {
	sku := strings.ToUpper(strings.TrimSpace(cmd.SKU))
	if sku == "" {
		return Kit{}, fmt.Errorf("%w: sku is required", ErrInventoryInvalidInput)
	}
	if cmd.Available < 0 {
		return Kit{}, fmt.Errorf("%w: available stock cannot be negative", ErrInventoryInvalidInput)
	}

	now := s.clock()
	kit := Kit{
		SKU:       sku,
		Name:      strings.TrimSpace(cmd.Name),
		Available: cmd.Available,
		Active:    cmd.Active,
		UpdatedAt: now,
	}

	existing, err := s.kits.FindBySKU(ctx, sku)
	switch {
	case err == nil:
		kit.ID = existing.ID
		kit.Reserved = existing.Reserved
		kit.CreatedAt = existing.CreatedAt
	case isKitNotFound(err):
		kit.ID = s.newID()
		kit.CreatedAt = now
	default:
		return Kit{}, translateKitError(err)
	}

	if err := s.kits.Upsert(ctx, kit); err != nil {
		return Kit{}, translateKitError(err)
	}
	return kit, nil
}

// ListKits returns a page of stock records for the admin console.
func (s *inventoryService) ListKits(ctx context.Context, pager Pagination) (domain.CursorPage[Kit], error) {
	return s.kits.List(ctx, pager)
}

func isKitNotFound(err error) bool {
	var kitErr *repositories.KitError
	if errors.As(err, &kitErr) && kitErr.Code == repositories.KitErrorNotFound {
		return true
	}
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func translateKitError(err error) error {
	var kitErr *repositories.KitError
	if errors.As(err, &kitErr) {
		switch kitErr.Code {
		case repositories.KitErrorNotFound:
			return fmt.Errorf("%w: %v", ErrInventoryKitNotFound, err)
		case repositories.KitErrorInsufficientStock:
			return fmt.Errorf("%w: %v", ErrInventoryInsufficientStock, err)
		case repositories.KitErrorInvalidInput:
			return fmt.Errorf("%w: %v", ErrInventoryInvalidInput, err)
		}
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrInventoryKitNotFound, err)
	}
	return err
}
