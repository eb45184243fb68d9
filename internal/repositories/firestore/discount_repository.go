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

const discountsCollection = "quantity_discounts"

// DiscountRepository persists quantity discount tiers.
type DiscountRepository struct {
	base *pfirestore.BaseRepository[domain.DiscountTier]
}

// NewDiscountRepository constructs a Firestore-backed discount repository.
func NewDiscountRepository(provider *pfirestore.Provider) (*DiscountRepository, error) {
	if provider == nil {
		return nil, errors.New("discount repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, tier domain.DiscountTier) (any, error) {
		return encodeDiscountDocument(tier), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.DiscountTier, error) {
		return decodeDiscountSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.DiscountTier](provider, discountsCollection, encoder, decoder)
	return &DiscountRepository{base: base}, nil
}

// Insert stores a new tier document, failing if the ID already exists.
func (r *DiscountRepository) Insert(ctx context.Context, tier domain.DiscountTier) error {
	if r == nil || r.base == nil {
		return errors.New("discount repository not initialised")
	}
	tier.ID = strings.TrimSpace(tier.ID)
	if tier.ID == "" {
		return errors.New("discount repository: id is required")
	}

	docRef, err := r.base.DocumentRef(ctx, tier.ID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeDiscountDocument(tier)); err != nil {
		return pfirestore.WrapError("discounts.insert", err)
	}
	return nil
}

// Update replaces the tier document state.
func (r *DiscountRepository) Update(ctx context.Context, tier domain.DiscountTier) error {
	if r == nil || r.base == nil {
		return errors.New("discount repository not initialised")
	}
	tier.ID = strings.TrimSpace(tier.ID)
	if tier.ID == "" {
		return errors.New("discount repository: id is required")
	}
	if _, err := r.base.Set(ctx, tier.ID, tier); err != nil {
		return err
	}
	return nil
}

// Delete removes the tier document.
func (r *DiscountRepository) Delete(ctx context.Context, tierID string) error {
	if r == nil || r.base == nil {
		return errors.New("discount repository not initialised")
	}
	tierID = strings.TrimSpace(tierID)
	if tierID == "" {
		return errors.New("discount repository: id is required")
	}
	return r.base.Delete(ctx, tierID)
}

// FindByID loads a tier by its identifier.
func (r *DiscountRepository) FindByID(ctx context.Context, tierID string) (domain.DiscountTier, error) {
	if r == nil || r.base == nil {
		return domain.DiscountTier{}, errors.New("discount repository not initialised")
	}
	tierID = strings.TrimSpace(tierID)
	if tierID == "" {
		return domain.DiscountTier{}, errors.New("discount repository: id is required")
	}
	doc, err := r.base.Get(ctx, tierID)
	if err != nil {
		return domain.DiscountTier{}, err
	}
	return doc.Data, nil
}

// ListActive returns the active tiers ordered by ascending quantity
// threshold, the shape the pricing calculator consumes.
func (r *DiscountRepository) ListActive(ctx context.Context) ([]domain.DiscountTier, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("discount repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("active", "==", true).OrderBy("quantity", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	tiers := make([]domain.DiscountTier, 0, len(docs))
	for _, doc := range docs {
		tiers = append(tiers, doc.Data)
	}
	return tiers, nil
}

// List returns every tier for admin management, newest first.
func (r *DiscountRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DiscountTier], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.DiscountTier]{}, errors.New("discount repository not initialised")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var tokenTime time.Time
	var tokenID string
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		var err error
		tokenTime, tokenID, err = decodeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.DiscountTier]{}, fmt.Errorf("discounts.list: invalid page token: %w", err)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
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
		return domain.CursorPage[domain.DiscountTier]{}, err
	}

	tiers := make([]domain.DiscountTier, 0, len(docs))
	for _, doc := range docs {
		tiers = append(tiers, doc.Data)
	}

	nextToken := ""
	if fetchLimit > 0 && len(tiers) == fetchLimit {
		last := tiers[len(tiers)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		tiers = tiers[:len(tiers)-1]
	}

	return domain.CursorPage[domain.DiscountTier]{
		Items:         tiers,
		NextPageToken: nextToken,
	}, nil
}

type discountDocument struct {
	ID        string    `firestore:"-"`
	Quantity  int       `firestore:"quantity"`
	Discount  float64   `firestore:"discount"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func encodeDiscountDocument(tier domain.DiscountTier) discountDocument {
	return discountDocument{
		Quantity:  tier.Quantity,
		Discount:  tier.Discount,
		Active:    tier.Active,
		CreatedAt: tier.CreatedAt.UTC(),
		UpdatedAt: tier.UpdatedAt.UTC(),
	}
}

func decodeDiscountSnapshot(snap *firestore.DocumentSnapshot) (domain.DiscountTier, error) {
	var doc discountDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.DiscountTier{}, err
	}
	doc.ID = snap.Ref.ID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = snap.CreateTime
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = snap.UpdateTime
	}
	return domain.DiscountTier{
		ID:        doc.ID,
		Quantity:  doc.Quantity,
		Discount:  doc.Discount,
		Active:    doc.Active,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

var _ repositories.DiscountRepository = (*DiscountRepository)(nil)
