package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
)

type stubDiscountRepo struct {
	tiers map[string]domain.DiscountTier

	inserted []domain.DiscountTier
	updated  []domain.DiscountTier
	deleted  []string
}

func newStubDiscountRepo(tiers ...domain.DiscountTier) *stubDiscountRepo {
	repo := &stubDiscountRepo{tiers: map[string]domain.DiscountTier{}}
	for _, tier := range tiers {
		repo.tiers[tier.ID] = tier
	}
	return repo
}

func (r *stubDiscountRepo) Insert(_ context.Context, tier domain.DiscountTier) error {
	r.inserted = append(r.inserted, tier)
	r.tiers[tier.ID] = tier
	return nil
}

func (r *stubDiscountRepo) Update(_ context.Context, tier domain.DiscountTier) error {
	r.updated = append(r.updated, tier)
	r.tiers[tier.ID] = tier
	return nil
}

func (r *stubDiscountRepo) Delete(_ context.Context, tierID string) error {
	r.deleted = append(r.deleted, tierID)
	delete(r.tiers, tierID)
	return nil
}

func (r *stubDiscountRepo) FindByID(_ context.Context, tierID string) (domain.DiscountTier, error) {
	tier, ok := r.tiers[tierID]
	if !ok {
		return domain.DiscountTier{}, stubRepoError{notFound: true}
	}
	return tier, nil
}

func (r *stubDiscountRepo) ListActive(_ context.Context) ([]domain.DiscountTier, error) {
	var active []domain.DiscountTier
	for _, tier := range r.tiers {
		if tier.Active {
			active = append(active, tier)
		}
	}
	return active, nil
}

func (r *stubDiscountRepo) List(_ context.Context, _ domain.Pagination) (domain.CursorPage[domain.DiscountTier], error) {
	var all []domain.DiscountTier
	for _, tier := range r.tiers {
		all = append(all, tier)
	}
	return domain.CursorPage[domain.DiscountTier]{Items: all}, nil
}

func newDiscountServiceForTest(t *testing.T, repo *stubDiscountRepo) DiscountService {
	t.Helper()
	service, err := NewDiscountService(DiscountServiceDeps{
		Discounts: repo,
		Clock:     func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
		IDs:       func() string { return "tier-1" },
	})
	if err != nil {
		t.Fatalf("NewDiscountService: %v", err)
	}
	return service
}

func TestCreateTier(t *testing.T) {
	repo := newStubDiscountRepo()
	service := newDiscountServiceForTest(t, repo)

	tier, err := service.CreateTier(context.Background(), UpsertDiscountTierCommand{
		Quantity: 25,
		Discount: 10,
		Active:   true,
	})
	if err != nil {
		t.Fatalf("CreateTier: %v", err)
	}
	if tier.ID != "tier-1" {
		t.Fatalf("tier id = %q", tier.ID)
	}
	if !tier.CreatedAt.Equal(tier.UpdatedAt) {
		t.Fatal("created and updated timestamps should match on insert")
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d tiers", len(repo.inserted))
	}
}

func TestCreateTierValidation(t *testing.T) {
	service := newDiscountServiceForTest(t, newStubDiscountRepo())

	cases := []UpsertDiscountTierCommand{
		{Quantity: 0, Discount: 10},
		{Quantity: 25, Discount: 0},
		{Quantity: 25, Discount: -5},
		{Quantity: 25, Discount: 101},
	}
	for _, cmd := range cases {
		if _, err := service.CreateTier(context.Background(), cmd); !errors.Is(err, ErrDiscountInvalidInput) {
			t.Fatalf("CreateTier(%+v) = %v, want ErrDiscountInvalidInput", cmd, err)
		}
	}
}

func TestUpdateTierPreservesCreatedAt(t *testing.T) {
	created := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	repo := newStubDiscountRepo(domain.DiscountTier{
		ID:        "tier-1",
		Quantity:  25,
		Discount:  10,
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	})
	service := newDiscountServiceForTest(t, repo)

	tier, err := service.UpdateTier(context.Background(), "tier-1", UpsertDiscountTierCommand{
		Quantity: 50,
		Discount: 15,
		Active:   true,
	})
	if err != nil {
		t.Fatalf("UpdateTier: %v", err)
	}
	if !tier.CreatedAt.Equal(created) {
		t.Fatalf("created at changed: %v", tier.CreatedAt)
	}
	if tier.Quantity != 50 || tier.Discount != 15 {
		t.Fatalf("tier not updated: %+v", tier)
	}
	if tier.UpdatedAt.Equal(created) {
		t.Fatal("updated at not advanced")
	}
}

func TestUpdateTierNotFound(t *testing.T) {
	service := newDiscountServiceForTest(t, newStubDiscountRepo())

	if _, err := service.UpdateTier(context.Background(), "missing", UpsertDiscountTierCommand{
		Quantity: 25,
		Discount: 10,
	}); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound, got %v", err)
	}
}

func TestDeleteTier(t *testing.T) {
	repo := newStubDiscountRepo(domain.DiscountTier{ID: "tier-1", Quantity: 25, Discount: 10})
	service := newDiscountServiceForTest(t, repo)

	if err := service.DeleteTier(context.Background(), "tier-1"); err != nil {
		t.Fatalf("DeleteTier: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "tier-1" {
		t.Fatalf("deleted = %v", repo.deleted)
	}

	if err := service.DeleteTier(context.Background(), "tier-1"); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound, got %v", err)
	}
}
