package handlers

import (
	"bytes"
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

type stubDiscountTierService struct {
	activeFn func(context.Context) ([]domain.DiscountTier, error)
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.DiscountTier], error)
	createFn func(context.Context, services.UpsertDiscountTierCommand) (domain.DiscountTier, error)
	updateFn func(context.Context, string, services.UpsertDiscountTierCommand) (domain.DiscountTier, error)
	deleteFn func(context.Context, string) error
}

func (s *stubDiscountTierService) ActiveTiers(ctx context.Context) ([]domain.DiscountTier, error) {
	if s.activeFn != nil {
		return s.activeFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (s *stubDiscountTierService) ListTiers(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DiscountTier], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.DiscountTier]{}, nil
}

func (s *stubDiscountTierService) CreateTier(ctx context.Context, cmd services.UpsertDiscountTierCommand) (domain.DiscountTier, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.DiscountTier{}, errors.New("not implemented")
}

func (s *stubDiscountTierService) UpdateTier(ctx context.Context, tierID string, cmd services.UpsertDiscountTierCommand) (domain.DiscountTier, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, tierID, cmd)
	}
	return domain.DiscountTier{}, errors.New("not implemented")
}

func (s *stubDiscountTierService) DeleteTier(ctx context.Context, tierID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, tierID)
	}
	return errors.New("not implemented")
}

func sampleTier() domain.DiscountTier {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return domain.DiscountTier{
		ID:        "tier-1",
		Quantity:  20,
		Discount:  10,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPublicQuantityDiscounts(t *testing.T) {
	service := &stubDiscountTierService{
		activeFn: func(ctx context.Context) ([]domain.DiscountTier, error) {
			return []domain.DiscountTier{sampleTier()}, nil
		},
	}

	router := chi.NewRouter()
	router.Route("/", NewDiscountHandlers(service).PublicRoutes)

	req := httptest.NewRequest(http.MethodGet, "/quantity-discounts", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	tiers, ok := env.Data["tiers"].([]any)
	if !ok || len(tiers) != 1 {
		t.Fatalf("expected one tier, got %v", env.Data["tiers"])
	}
	first, _ := tiers[0].(map[string]any)
	if first["quantity"] != float64(20) || first["discount"] != float64(10) {
		t.Fatalf("unexpected tier payload: %+v", first)
	}
}

func TestAdminCreateTier(t *testing.T) {
	var captured services.UpsertDiscountTierCommand
	service := &stubDiscountTierService{
		createFn: func(ctx context.Context, cmd services.UpsertDiscountTierCommand) (domain.DiscountTier, error) {
			captured = cmd
			tier := sampleTier()
			tier.Quantity = cmd.Quantity
			tier.Discount = cmd.Discount
			return tier, nil
		},
	}

	router := chi.NewRouter()
	router.Route("/", NewDiscountHandlers(service).AdminRoutes)

	body := []byte(`{"quantity":50,"discount":15,"active":true}`)
	req := httptest.NewRequest(http.MethodPost, "/quantity-discounts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	if captured.Quantity != 50 || captured.Discount != 15 || !captured.Active {
		t.Fatalf("unexpected command: %+v", captured)
	}
}

func TestAdminUpdateTierInvalidInput(t *testing.T) {
	service := &stubDiscountTierService{
		updateFn: func(ctx context.Context, tierID string, cmd services.UpsertDiscountTierCommand) (domain.DiscountTier, error) {
			return domain.DiscountTier{}, services.ErrDiscountInvalidInput
		},
	}

	router := chi.NewRouter()
	router.Route("/", NewDiscountHandlers(service).AdminRoutes)

	body := []byte(`{"quantity":-1,"discount":15,"active":true}`)
	req := httptest.NewRequest(http.MethodPut, "/quantity-discounts/tier-1", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAdminDeleteTierNotFound(t *testing.T) {
	service := &stubDiscountTierService{
		deleteFn: func(ctx context.Context, tierID string) error {
			return services.ErrDiscountNotFound
		},
	}

	router := chi.NewRouter()
	router.Route("/", NewDiscountHandlers(service).AdminRoutes)

	req := httptest.NewRequest(http.MethodDelete, "/quantity-discounts/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Data["error"] != "not_found" {
		t.Fatalf("expected not_found code, got %v", env.Data["error"])
	}
}
