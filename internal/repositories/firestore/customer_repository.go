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

const customersCollection = "customers"

// CustomerRepository stores purchaser records keyed by checkout email.
type CustomerRepository struct {
	base *pfirestore.BaseRepository[domain.Customer]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, customer domain.Customer) (any, error) {
		return encodeCustomerDocument(customer), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Customer, error) {
		return decodeCustomerSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.Customer](provider, customersCollection, encoder, decoder)
	return &CustomerRepository{base: base}, nil
}

// Upsert inserts or refreshes the customer record for its email. Repeat
// purchasers keep their original ID and creation time.
func (r *CustomerRepository) Upsert(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.Email == "" {
		return domain.Customer{}, errors.New("customer repository: email is required")
	}

	existing, err := r.FindByEmail(ctx, customer.Email)
	switch {
	case err == nil:
		customer.ID = existing.ID
		customer.CreatedAt = existing.CreatedAt
	case isNotFound(err):
		if strings.TrimSpace(customer.ID) == "" {
			return domain.Customer{}, errors.New("customer repository: id is required for new customers")
		}
	default:
		return domain.Customer{}, err
	}

	if _, err := r.base.Set(ctx, customer.ID, customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

// Delete removes the customer document. Used to unwind a partially created
// checkout after a downstream failure.
func (r *CustomerRepository) Delete(ctx context.Context, customerID string) error {
	if r == nil || r.base == nil {
		return errors.New("customer repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return errors.New("customer repository: id is required")
	}
	return r.base.Delete(ctx, customerID)
}

// FindByID loads a customer by identifier.
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Customer{}, errors.New("customer repository: id is required")
	}
	doc, err := r.base.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return doc.Data, nil
}

// FindByEmail loads the customer record for a checkout email.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Customer{}, errors.New("customer repository: email is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	if len(docs) == 0 {
		return domain.Customer{}, pfirestore.WrapError("customers.find_by_email", status.Error(codes.NotFound, "customer not found"))
	}
	return docs[0].Data, nil
}

// List returns customers for admin review, newest first.
func (r *CustomerRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Customer]{}, errors.New("customer repository not initialised")
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
			return domain.CursorPage[domain.Customer]{}, fmt.Errorf("customers.list: invalid page token: %w", err)
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
		return domain.CursorPage[domain.Customer]{}, err
	}

	customers := make([]domain.Customer, 0, len(docs))
	for _, doc := range docs {
		customers = append(customers, doc.Data)
	}

	nextToken := ""
	if fetchLimit > 0 && len(customers) == fetchLimit {
		last := customers[len(customers)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		customers = customers[:len(customers)-1]
	}

	return domain.CursorPage[domain.Customer]{
		Items:         customers,
		NextPageToken: nextToken,
	}, nil
}

type customerDocument struct {
	ID          string          `firestore:"-"`
	FirstName   string          `firestore:"firstName"`
	LastName    string          `firestore:"lastName,omitempty"`
	Email       string          `firestore:"email"`
	PhoneNumber string          `firestore:"phoneNumber"`
	Billing     addressDocument `firestore:"billing"`
	CreatedAt   time.Time       `firestore:"createdAt"`
	UpdatedAt   time.Time       `firestore:"updatedAt"`
}

func encodeCustomerDocument(customer domain.Customer) customerDocument {
	return customerDocument{
		FirstName:   customer.FirstName,
		LastName:    customer.LastName,
		Email:       strings.ToLower(strings.TrimSpace(customer.Email)),
		PhoneNumber: customer.PhoneNumber,
		Billing:     encodeAddressDocument(customer.Billing),
		CreatedAt:   customer.CreatedAt.UTC(),
		UpdatedAt:   customer.UpdatedAt.UTC(),
	}
}

func decodeCustomerSnapshot(snap *firestore.DocumentSnapshot) (domain.Customer, error) {
	var doc customerDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Customer{}, err
	}
	doc.ID = snap.Ref.ID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = snap.CreateTime
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = snap.UpdateTime
	}
	return domain.Customer{
		ID:          doc.ID,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		Email:       doc.Email,
		PhoneNumber: doc.PhoneNumber,
		Billing:     decodeAddressDocument(doc.Billing),
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)
