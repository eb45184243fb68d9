package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrDiscountInvalidInput indicates the caller supplied invalid tier parameters.
	ErrDiscountInvalidInput = errors.New("discounts: invalid input")
	// ErrDiscountNotFound indicates the tier does not exist.
	ErrDiscountNotFound = errors.New("discounts: tier not found")
)

// DiscountServiceDeps bundles collaborators for the discount service.
type DiscountServiceDeps struct {
	Discounts repositories.DiscountRepository
	Clock     func() time.Time
	IDs       func() string
}

type discountService struct {
	discounts repositories.DiscountRepository
	clock     func() time.Time
	newID     func() string
}

var _ DiscountService = (*discountService)(nil)

// NewDiscountService constructs the quantity discount service.
func NewDiscountService(deps DiscountServiceDeps) (DiscountService, error) {
	if deps.Discounts == nil {
		return nil, errors.New("discount service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDs
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &discountService{
		discounts: deps.Discounts,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: newID,
	}, nil
}

// ActiveTiers returns the tiers the pricing calculator applies, ascending by
// quantity threshold.
func (s *discountService) ActiveTiers(ctx context.Context) ([]DiscountTier, error) {
	return s.discounts.ListActive(ctx)
}

// ListTiers returns every tier for admin management.
func (s *discountService) ListTiers(ctx context.Context, pager Pagination) (domain.CursorPage[DiscountTier], error) {
	return s.discounts.List(ctx, pager)
}

// CreateTier stores a new tier after validating thresholds.
func (s *discountService) CreateTier(ctx context.Context, cmd UpsertDiscountTierCommand) (DiscountTier, error) {
	if err := validateTierCommand(cmd); err != nil {
		return DiscountTier{}, err
	}

	now := s.clock()
	tier := DiscountTier{
		ID:        s.newID(),
		Quantity:  cmd.Quantity,
		Discount:  cmd.Discount,
		Active:    cmd.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.discounts.Insert(ctx, tier); err != nil {
		return DiscountTier{}, err
	}
	return tier, nil
}

// UpdateTier replaces the tier state, preserving its creation time.
func (s *discountService) UpdateTier(ctx context.Context, tierID string, cmd UpsertDiscountTierCommand) (DiscountTier, error) {
	tierID = strings.TrimSpace(tierID)
	if tierID == "" {
		return DiscountTier{}, fmt.Errorf("%w: tier id is required", ErrDiscountInvalidInput)
	}
	if err := validateTierCommand(cmd); err != nil {
		return DiscountTier{}, err
	}

	existing, err := s.discounts.FindByID(ctx, tierID)
	if err != nil {
		return DiscountTier{}, translateDiscountError(err)
	}

	existing.Quantity = cmd.Quantity
	existing.Discount = cmd.Discount
	existing.Active = cmd.Active
	existing.UpdatedAt = s.clock()

	if err := s.discounts.Update(ctx, existing); err != nil {
		return DiscountTier{}, err
	}
	return existing, nil
}

// DeleteTier removes a tier.
func (s *discountService) DeleteTier(ctx context.Context, tierID string) error {
	tierID = strings.TrimSpace(tierID)
	if tierID == "" {
		return fmt.Errorf("%w: tier id is required", ErrDiscountInvalidInput)
	}
	if _, err := s.discounts.FindByID(ctx, tierID); err != nil {
		return translateDiscountError(err)
	}
	return s.discounts.Delete(ctx, tierID)
}

func validateTierCommand(cmd UpsertDiscountTierCommand) error {
	if cmd.Quantity < 1 {
		return fmt.Errorf("%w: quantity threshold must be at least 1", ErrDiscountInvalidInput)
	}
	if cmd.Discount <= 0 || cmd.Discount > 100 {
		return fmt.Errorf("%w: discount must be within (0, 100]", ErrDiscountInvalidInput)
	}
	return nil
}

func translateDiscountError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrDiscountNotFound, err)
	}
	return err
}
