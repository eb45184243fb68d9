package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	pfirestore "github.com/theranostics-labs/portal-api/internal/platform/firestore"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

const kitsCollection = "kits"

// KitRepository tracks testing-kit stock with transactional reservations.
type KitRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[domain.Kit]
}

// NewKitRepository constructs a Firestore-backed kit stock repository.
func NewKitRepository(provider *pfirestore.Provider) (*KitRepository, error) {
	if provider == nil {
		return nil, errors.New("kit repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, kit domain.Kit) (any, error) {
		return encodeKitDocument(kit), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Kit, error) {
		return decodeKitSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.Kit](provider, kitsCollection, encoder, decoder)
	return &KitRepository{provider: provider, base: base}, nil
}

// Upsert stores the stock record for a SKU. The SKU doubles as document ID.
func (r *KitRepository) Upsert(ctx context.Context, kit domain.Kit) error {
	if r == nil || r.base == nil {
		return errors.New("kit repository not initialised")
	}
	kit.SKU = strings.ToUpper(strings.TrimSpace(kit.SKU))
	if kit.SKU == "" {
		return repositories.NewKitError(repositories.KitErrorInvalidInput, "sku is required", nil)
	}
	if _, err := r.base.Set(ctx, kit.SKU, kit); err != nil {
		return err
	}
	return nil
}

// FindBySKU loads the stock record for a SKU.
func (r *KitRepository) FindBySKU(ctx context.Context, sku string) (domain.Kit, error) {
	if r == nil || r.base == nil {
		return domain.Kit{}, errors.New("kit repository not initialised")
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Kit{}, repositories.NewKitError(repositories.KitErrorInvalidInput, "sku is required", nil)
	}
	doc, err := r.base.Get(ctx, sku)
	if err != nil {
		if isNotFound(err) {
			return domain.Kit{}, repositories.NewKitError(repositories.KitErrorNotFound, fmt.Sprintf("no stock record for %s", sku), err)
		}
		return domain.Kit{}, err
	}
	return doc.Data, nil
}

// Reserve moves quantity from available to reserved inside a transaction.
func (r *KitRepository) Reserve(ctx context.Context, sku string, quantity int) (domain.Kit, error) {
	return r.adjust(ctx, sku, quantity, true)
}

// Release returns previously reserved quantity back to available stock.
func (r *KitRepository) Release(ctx context.Context, sku string, quantity int) (domain.Kit, error) {
	return r.adjust(ctx, sku, quantity, false)
}

func (r *KitRepository) adjust(ctx context.Context, sku string, quantity int, reserve bool) (domain.Kit, error) {
	if r == nil || r.provider == nil {
		return domain.Kit{}, errors.New("kit repository not initialised")
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Kit{}, repositories.NewKitError(repositories.KitErrorInvalidInput, "sku is required", nil)
	}
	if quantity <= 0 {
		return domain.Kit{}, repositories.NewKitError(repositories.KitErrorInvalidInput, "quantity must be positive", nil)
	}

	docRef, err := r.base.DocumentRef(ctx, sku)
	if err != nil {
		return domain.Kit{}, err
	}

	var updated domain.Kit
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewKitError(repositories.KitErrorNotFound, fmt.Sprintf("no stock record for %s", sku), err)
			}
			return err
		}
		kit, err := decodeKitSnapshot(snap)
		if err != nil {
			return err
		}

		if reserve {
			if kit.Available < quantity {
				return repositories.NewKitError(repositories.KitErrorInsufficientStock,
					fmt.Sprintf("requested %d of %s, %d available", quantity, sku, kit.Available), nil)
			}
			kit.Available -= quantity
			kit.Reserved += quantity
		} else {
			if quantity > kit.Reserved {
				quantity = kit.Reserved
			}
			kit.Reserved -= quantity
			kit.Available += quantity
		}
		kit.UpdatedAt = time.Now().UTC()

		if err := tx.Set(docRef, encodeKitDocument(kit)); err != nil {
			return err
		}
		updated = kit
		return nil
	})
	if err != nil {
		var kitErr *repositories.KitError
		if errors.As(err, &kitErr) {
			return domain.Kit{}, kitErr
		}
		op := "kits.reserve"
		if !reserve {
			op = "kits.release"
		}
		return domain.Kit{}, pfirestore.WrapError(op, err)
	}
	return updated, nil
}

// List returns the stock records, newest first.
func (r *KitRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Kit], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Kit]{}, errors.New("kit repository not initialised")
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
			return domain.CursorPage[domain.Kit]{}, fmt.Errorf("kits.list: invalid page token: %w", err)
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
		return domain.CursorPage[domain.Kit]{}, err
	}

	kits := make([]domain.Kit, 0, len(docs))
	for _, doc := range docs {
		kits = append(kits, doc.Data)
	}

	nextToken := ""
	if fetchLimit > 0 && len(kits) == fetchLimit {
		last := kits[len(kits)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		kits = kits[:len(kits)-1]
	}

	return domain.CursorPage[domain.Kit]{
		Items:         kits,
		NextPageToken: nextToken,
	}, nil
}

type kitDocument struct {
	ID        string    `firestore:"-"`
	SKU       string    `firestore:"sku"`
	Name      string    `firestore:"name"`
	Available int       `firestore:"available"`
	Reserved  int       `firestore:"reserved"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func encodeKitDocument(kit domain.Kit) kitDocument {
	return kitDocument{
		SKU:       strings.ToUpper(strings.TrimSpace(kit.SKU)),
		Name:      kit.Name,
		Available: kit.Available,
		Reserved:  kit.Reserved,
		Active:    kit.Active,
		CreatedAt: kit.CreatedAt.UTC(),
		UpdatedAt: kit.UpdatedAt.UTC(),
	}
}

func decodeKitSnapshot(snap *firestore.DocumentSnapshot) (domain.Kit, error) {
	var doc kitDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Kit{}, err
	}
	doc.ID = snap.Ref.ID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = snap.CreateTime
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = snap.UpdateTime
	}
	return domain.Kit{
		ID:        doc.ID,
		SKU:       doc.SKU,
		Name:      doc.Name,
		Available: doc.Available,
		Reserved:  doc.Reserved,
		Active:    doc.Active,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

var _ repositories.KitRepository = (*KitRepository)(nil)
