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

const ordersCollection = "orders"

// OrderRepository persists checkout orders and their payment state.
type OrderRepository struct {
	base *pfirestore.BaseRepository[domain.Order]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, order domain.Order) (any, error) {
		return encodeOrderDocument(order), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Order, error) {
		return decodeOrderSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.Order](provider, ordersCollection, encoder, decoder)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order document, failing if the ID already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	order.ID = strings.TrimSpace(order.ID)
	if order.ID == "" {
		return errors.New("order repository: id is required")
	}

	docRef, err := r.base.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces the order document state.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	order.ID = strings.TrimSpace(order.ID)
	if order.ID == "" {
		return errors.New("order repository: id is required")
	}
	if _, err := r.base.Set(ctx, order.ID, order); err != nil {
		return err
	}
	return nil
}

// Delete removes the order document. Used to unwind a partially created
// checkout after a downstream failure.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order repository: id is required")
	}
	return r.base.Delete(ctx, orderID)
}

// FindByID loads an order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data, nil
}

// FindByPaymentSession resolves the order created for a PSP checkout session.
func (r *OrderRepository) FindByPaymentSession(ctx context.Context, sessionID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Order{}, errors.New("order repository: session id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("paymentSessionId", "==", sessionID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.find_by_session", status.Error(codes.NotFound, "order not found"))
	}
	return docs[0].Data, nil
}

// List returns orders for admin review, newest first, honouring the filter.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var tokenTime time.Time
	var tokenID string
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var err error
		tokenTime, tokenID, err = decodeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: invalid page token: %w", err)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		if filter.PaymentStatus != nil {
			q = q.Where("paymentStatus", "==", string(*filter.PaymentStatus))
		}
		if filter.Type != nil {
			q = q.Where("type", "==", string(*filter.Type))
		}
		if email := strings.ToLower(strings.TrimSpace(filter.CustomerEmail)); email != "" {
			q = q.Where("customerEmail", "==", email)
		}
		if filter.CreatedAfter != nil {
			q = q.Where("createdAt", ">=", filter.CreatedAfter.UTC())
		}
		if filter.CreatedBefore != nil {
			q = q.Where("createdAt", "<", filter.CreatedBefore.UTC())
		}
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
		return domain.CursorPage[domain.Order]{}, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data)
	}

	nextToken := ""
	if fetchLimit > 0 && len(orders) == fetchLimit {
		last := orders[len(orders)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		orders = orders[:len(orders)-1]
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

type orderDocument struct {
	ID               string             `firestore:"-"`
	Type             string             `firestore:"type"`
	CustomerID       string             `firestore:"customerId"`
	CustomerEmail    string             `firestore:"customerEmail"`
	ClinicID         string             `firestore:"clinicId,omitempty"`
	Product          orderProduct       `firestore:"product"`
	Quantity         int                `firestore:"quantity"`
	Totals           orderTotals        `firestore:"totals"`
	Currency         string             `firestore:"currency"`
	Status           string             `firestore:"status"`
	PaymentStatus    string             `firestore:"paymentStatus"`
	PaymentSessionID string             `firestore:"paymentSessionId,omitempty"`
	PaymentURL       string             `firestore:"paymentUrl,omitempty"`
	Shipping         addressDocument    `firestore:"shipping"`
	InvoiceNumber    string             `firestore:"invoiceNumber,omitempty"`
	CreatedAt        time.Time          `firestore:"createdAt"`
	UpdatedAt        time.Time          `firestore:"updatedAt"`
}

type orderProduct struct {
	Name        string  `firestore:"name"`
	Description string  `firestore:"description,omitempty"`
	Image       string  `firestore:"image,omitempty"`
	Price       float64 `firestore:"price"`
	Gst         float64 `firestore:"gst"`
}

type orderTotals struct {
	GstPercentage      float64 `firestore:"gstPercentage"`
	GstAmount          float64 `firestore:"gstAmount"`
	Subtotal           float64 `firestore:"subtotal"`
	DiscountPercentage float64 `firestore:"discountPercentage"`
	DiscountAmount     float64 `firestore:"discountAmount"`
	TotalAfterDiscount float64 `firestore:"totalAfterDiscount"`
	GrandTotal         float64 `firestore:"grandTotal"`
}

type addressDocument struct {
	Country       string `firestore:"country"`
	TownCity      string `firestore:"townCity"`
	Region        string `firestore:"region"`
	Postcode      string `firestore:"postcode"`
	StreetAddress string `firestore:"streetAddress"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	return orderDocument{
		Type:          string(order.Type),
		CustomerID:    order.CustomerID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(order.CustomerEmail)),
		ClinicID:      order.ClinicID,
		Product: orderProduct{
			Name:        order.Product.Name,
			Description: order.Product.Description,
			Image:       order.Product.Image,
			Price:       order.Product.Price,
			Gst:         order.Product.Gst,
		},
		Quantity: order.Quantity,
		Totals: orderTotals{
			GstPercentage:      order.Totals.GstPercentage,
			GstAmount:          order.Totals.GstAmount,
			Subtotal:           order.Totals.Subtotal,
			DiscountPercentage: order.Totals.DiscountPercentage,
			DiscountAmount:     order.Totals.DiscountAmount,
			TotalAfterDiscount: order.Totals.TotalAfterDiscount,
			GrandTotal:         order.Totals.GrandTotal,
		},
		Currency:         order.Currency,
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentSessionID: order.PaymentSessionID,
		PaymentURL:       order.PaymentURL,
		Shipping:         encodeAddressDocument(order.Shipping),
		InvoiceNumber:    order.InvoiceNumber,
		CreatedAt:        order.CreatedAt.UTC(),
		UpdatedAt:        order.UpdatedAt.UTC(),
	}
}

func decodeOrderSnapshot(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, err
	}
	doc.ID = snap.Ref.ID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = snap.CreateTime
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = snap.UpdateTime
	}
	return domain.Order{
		ID:            doc.ID,
		Type:          domain.OrderType(doc.Type),
		CustomerID:    doc.CustomerID,
		CustomerEmail: doc.CustomerEmail,
		ClinicID:      doc.ClinicID,
		Product: domain.Product{
			Name:        doc.Product.Name,
			Description: doc.Product.Description,
			Image:       doc.Product.Image,
			Price:       doc.Product.Price,
			Gst:         doc.Product.Gst,
		},
		Quantity: doc.Quantity,
		Totals: domain.OrderTotals{
			GstPercentage:      doc.Totals.GstPercentage,
			GstAmount:          doc.Totals.GstAmount,
			Subtotal:           doc.Totals.Subtotal,
			DiscountPercentage: doc.Totals.DiscountPercentage,
			DiscountAmount:     doc.Totals.DiscountAmount,
			TotalAfterDiscount: doc.Totals.TotalAfterDiscount,
			GrandTotal:         doc.Totals.GrandTotal,
		},
		Currency:         doc.Currency,
		Status:           domain.OrderStatus(doc.Status),
		PaymentStatus:    domain.PaymentStatus(doc.PaymentStatus),
		PaymentSessionID: doc.PaymentSessionID,
		PaymentURL:       doc.PaymentURL,
		Shipping:         decodeAddressDocument(doc.Shipping),
		InvoiceNumber:    doc.InvoiceNumber,
		CreatedAt:        doc.CreatedAt.UTC(),
		UpdatedAt:        doc.UpdatedAt.UTC(),
	}, nil
}

func encodeAddressDocument(address domain.Address) addressDocument {
	return addressDocument{
		Country:       address.Country,
		TownCity:      address.TownCity,
		Region:        address.Region,
		Postcode:      address.Postcode,
		StreetAddress: address.StreetAddress,
	}
}

func decodeAddressDocument(doc addressDocument) domain.Address {
	return domain.Address{
		Country:       doc.Country,
		TownCity:      doc.TownCity,
		Region:        doc.Region,
		Postcode:      doc.Postcode,
		StreetAddress: doc.StreetAddress,
	}
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
