package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	pfirestore "github.com/theranostics-labs/portal-api/internal/platform/firestore"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

const invoicesCollection = "invoices"

// InvoiceRepository stores generated invoice metadata keyed by invoice number.
type InvoiceRepository struct {
	base *pfirestore.BaseRepository[domain.Invoice]
}

// NewInvoiceRepository constructs a Firestore-backed invoice repository.
func NewInvoiceRepository(provider *pfirestore.Provider) (*InvoiceRepository, error) {
	if provider == nil {
		return nil, errors.New("invoice repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, invoice domain.Invoice) (any, error) {
		return encodeInvoiceDocument(invoice), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Invoice, error) {
		return decodeInvoiceSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.Invoice](provider, invoicesCollection, encoder, decoder)
	return &InvoiceRepository{base: base}, nil
}

// Insert stores a new invoice record, failing if the number already exists.
func (r *InvoiceRepository) Insert(ctx context.Context, invoice domain.Invoice) error {
	if r == nil || r.base == nil {
		return errors.New("invoice repository not initialised")
	}
	invoice.Number = strings.TrimSpace(invoice.Number)
	if invoice.Number == "" {
		return errors.New("invoice repository: number is required")
	}

	docRef, err := r.base.DocumentRef(ctx, invoice.Number)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeInvoiceDocument(invoice)); err != nil {
		return pfirestore.WrapError("invoices.insert", err)
	}
	return nil
}

// FindByOrder loads the invoice issued for an order.
func (r *InvoiceRepository) FindByOrder(ctx context.Context, orderID string) (domain.Invoice, error) {
	if r == nil || r.base == nil {
		return domain.Invoice{}, errors.New("invoice repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Invoice{}, errors.New("invoice repository: order id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).Limit(1)
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	if len(docs) == 0 {
		return domain.Invoice{}, pfirestore.WrapError("invoices.find_by_order", status.Error(codes.NotFound, "invoice not found"))
	}
	return docs[0].Data, nil
}

type invoiceDocument struct {
	Number     string    `firestore:"-"`
	OrderID    string    `firestore:"orderId"`
	ObjectPath string    `firestore:"objectPath"`
	IssuedAt   time.Time `firestore:"issuedAt"`
}

func encodeInvoiceDocument(invoice domain.Invoice) invoiceDocument {
	return invoiceDocument{
		OrderID:    invoice.OrderID,
		ObjectPath: invoice.ObjectPath,
		IssuedAt:   invoice.IssuedAt.UTC(),
	}
}

func decodeInvoiceSnapshot(snap *firestore.DocumentSnapshot) (domain.Invoice, error) {
	var doc invoiceDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Invoice{}, err
	}
	doc.Number = snap.Ref.ID
	if doc.IssuedAt.IsZero() {
		doc.IssuedAt = snap.CreateTime
	}
	return domain.Invoice{
		Number:     doc.Number,
		OrderID:    doc.OrderID,
		ObjectPath: doc.ObjectPath,
		IssuedAt:   doc.IssuedAt.UTC(),
	}, nil
}

var _ repositories.InvoiceRepository = (*InvoiceRepository)(nil)
