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

const kitRegistrationsCollection = "kitRegistrations"

// KitRegistrationRepository stores patient kit registrations.
type KitRegistrationRepository struct {
	base *pfirestore.BaseRepository[domain.KitRegistration]
}

// NewKitRegistrationRepository constructs a Firestore-backed kit registration repository.
func NewKitRegistrationRepository(provider *pfirestore.Provider) (*KitRegistrationRepository, error) {
	if provider == nil {
		return nil, errors.New("kit registration repository: firestore provider is required")
	}

	encoder := func(ctx context.Context, registration domain.KitRegistration) (any, error) {
		return encodeKitRegistrationDocument(registration), nil
	}
	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.KitRegistration, error) {
		return decodeKitRegistrationSnapshot(snap)
	}

	base := pfirestore.NewBaseRepository[domain.KitRegistration](provider, kitRegistrationsCollection, encoder, decoder)
	return &KitRegistrationRepository{base: base}, nil
}

// Insert stores a new kit registration.
func (r *KitRegistrationRepository) Insert(ctx context.Context, registration domain.KitRegistration) error {
	if r == nil || r.base == nil {
		return errors.New("kit registration repository not initialised")
	}
	registration.ID = strings.TrimSpace(registration.ID)
	if registration.ID == "" {
		return errors.New("kit registration repository: id is required")
	}

	docRef, err := r.base.DocumentRef(ctx, registration.ID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeKitRegistrationDocument(registration)); err != nil {
		return pfirestore.WrapError("kitRegistrations.insert", err)
	}
	return nil
}

// ExistsForBarcode reports whether a registration already exists for the barcode.
func (r *KitRegistrationRepository) ExistsForBarcode(ctx context.Context, barcodeNumber string) (bool, error) {
	if r == nil || r.base == nil {
		return false, errors.New("kit registration repository not initialised")
	}
	barcodeNumber = strings.TrimSpace(barcodeNumber)
	if barcodeNumber == "" {
		return false, errors.New("kit registration repository: barcode number is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("barcodeNumber", "==", barcodeNumber).Limit(1).Select()
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// List returns registrations newest first.
func (r *KitRegistrationRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.KitRegistration], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.KitRegistration]{}, errors.New("kit registration repository not initialised")
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
			return domain.CursorPage[domain.KitRegistration]{}, fmt.Errorf("kitRegistrations.list: invalid page token: %w", err)
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
		return domain.CursorPage[domain.KitRegistration]{}, err
	}

	registrations := make([]domain.KitRegistration, 0, len(docs))
	for _, doc := range docs {
		registrations = append(registrations, doc.Data)
	}

	nextToken := ""
	if fetchLimit > 0 && len(registrations) == fetchLimit {
		last := registrations[len(registrations)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		registrations = registrations[:len(registrations)-1]
	}

	return domain.CursorPage[domain.KitRegistration]{
		Items:         registrations,
		NextPageToken: nextToken,
	}, nil
}

type kitRegistrationDocument struct {
	ID            string    `firestore:"-"`
	BarcodeNumber string    `firestore:"barcodeNumber"`
	OrderID       string    `firestore:"orderId"`
	CustomerID    string    `firestore:"customerId"`
	FirstName     string    `firestore:"patientFirstName"`
	LastName      string    `firestore:"patientLastName"`
	Email         string    `firestore:"patientEmail"`
	Gender        string    `firestore:"patientGender"`
	Age           int       `firestore:"patientAge"`
	InformClinic  bool      `firestore:"informClinic"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

func encodeKitRegistrationDocument(registration domain.KitRegistration) kitRegistrationDocument {
	return kitRegistrationDocument{
		BarcodeNumber: registration.BarcodeNumber,
		OrderID:       registration.OrderID,
		CustomerID:    registration.CustomerID,
		FirstName:     registration.Patient.FirstName,
		LastName:      registration.Patient.LastName,
		Email:         registration.Patient.Email,
		Gender:        registration.Patient.Gender,
		Age:           registration.Patient.Age,
		InformClinic:  registration.InformClinic,
		CreatedAt:     registration.CreatedAt.UTC(),
	}
}

func decodeKitRegistrationSnapshot(snap *firestore.DocumentSnapshot) (domain.KitRegistration, error) {
	var doc kitRegistrationDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.KitRegistration{}, err
	}
	doc.ID = snap.Ref.ID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = snap.CreateTime
	}
	return domain.KitRegistration{
		ID:            doc.ID,
		BarcodeNumber: doc.BarcodeNumber,
		OrderID:       doc.OrderID,
		CustomerID:    doc.CustomerID,
		Patient: domain.Patient{
			FirstName: doc.FirstName,
			LastName:  doc.LastName,
			Email:     doc.Email,
			Gender:    doc.Gender,
			Age:       doc.Age,
		},
		InformClinic:  doc.InformClinic,
		CreatedAt:     doc.CreatedAt.UTC(),
	}, nil
}

var _ repositories.KitRegistrationRepository = (*KitRegistrationRepository)(nil)
