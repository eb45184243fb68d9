package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	pfirestore "github.com/theranostics-labs/portal-api/internal/platform/firestore"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

const barcodesCollection = "barcodes"

// BarcodeRepository stores kit barcodes keyed by barcode number, so a
// duplicate assignment surfaces as a document-create conflict.
type BarcodeRepository struct {
	base *pfirestore.BaseRepository[domain.Barcode]
}

// NewBarcodeRepository constructs a Firestore-backed barcode repository.
func NewBarcodeRepository(provider *pfirestore.Provider) (*BarcodeRepository, error) {
	if provider == nil {
		return nil, errors.New("barcode repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, barcode domain.Barcode) (any, error) {
		return encodeBarcodeDocument(barcode), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Barcode, error) {
		return decodeBarcodeSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.Barcode](provider, barcodesCollection, encoder, decoder)
	return &BarcodeRepository{base: base}, nil
}

// Assign stores a new barcode, failing with a conflict when the number is
// already taken.
func (r *BarcodeRepository) Assign(ctx context.Context, barcode domain.Barcode) error {
	if r == nil || r.base == nil {
		return errors.New("barcode repository not initialised")
	}
	barcode.Number = strings.TrimSpace(barcode.Number)
	if barcode.Number == "" {
		return errors.New("barcode repository: number is required")
	}

	docRef, err := r.base.DocumentRef(ctx, barcode.Number)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeBarcodeDocument(barcode)); err != nil {
		return pfirestore.WrapError("barcodes.assign", err)
	}
	return nil
}

// FindByNumber loads a barcode by its printed number.
func (r *BarcodeRepository) FindByNumber(ctx context.Context, number string) (domain.Barcode, error) {
	if r == nil || r.base == nil {
		return domain.Barcode{}, errors.New("barcode repository not initialised")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return domain.Barcode{}, errors.New("barcode repository: number is required")
	}
	doc, err := r.base.Get(ctx, number)
	if err != nil {
		return domain.Barcode{}, err
	}
	return doc.Data, nil
}

// CountForOrder counts barcodes already assigned to an order.
func (r *BarcodeRepository) CountForOrder(ctx context.Context, orderID string) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("barcode repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return 0, errors.New("barcode repository: order id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).Select()
	})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

type barcodeDocument struct {
	Number     string    `firestore:"-"`
	OrderID    string    `firestore:"orderId"`
	AssignedAt time.Time `firestore:"assignedAt"`
}

func encodeBarcodeDocument(barcode domain.Barcode) barcodeDocument {
	return barcodeDocument{
		OrderID:    barcode.OrderID,
		AssignedAt: barcode.AssignedAt.UTC(),
	}
}

func decodeBarcodeSnapshot(snap *firestore.DocumentSnapshot) (domain.Barcode, error) {
	var doc barcodeDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Barcode{}, err
	}
	doc.Number = snap.Ref.ID
	if doc.AssignedAt.IsZero() {
		doc.AssignedAt = snap.CreateTime
	}
	return domain.Barcode{
		Number:     doc.Number,
		OrderID:    doc.OrderID,
		AssignedAt: doc.AssignedAt.UTC(),
	}, nil
}

var _ repositories.BarcodeRepository = (*BarcodeRepository)(nil)
