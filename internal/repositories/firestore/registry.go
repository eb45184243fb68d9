package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/theranostics-labs/portal-api/internal/platform/firestore"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

// Registry is the Firestore-backed implementation of repositories.Registry.
type Registry struct {
	provider *pfirestore.Provider

	discounts     *DiscountRepository
	orders        *OrderRepository
	customers     *CustomerRepository
	kits          *KitRepository
	notifications *NotificationRepository
	invoices      *InvoiceRepository
	barcodes      *BarcodeRepository
	registrations *KitRegistrationRepository
	health        repositories.HealthRepository
}

// NewRegistry wires every Firestore repository over a shared provider. The
// registry's readiness probe performs a cheap limit-1 read against the
// discounts collection.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	discounts, err := NewDiscountRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	customers, err := NewCustomerRepository(provider)
	if err != nil {
		return nil, err
	}
	kits, err := NewKitRepository(provider)
	if err != nil {
		return nil, err
	}
	notifications, err := NewNotificationRepository(provider)
	if err != nil {
		return nil, err
	}
	invoices, err := NewInvoiceRepository(provider)
	if err != nil {
		return nil, err
	}
	barcodes, err := NewBarcodeRepository(provider)
	if err != nil {
		return nil, err
	}
	registrations, err := NewKitRegistrationRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := discounts.base.Query(ctx, func(q firestore.Query) firestore.Query {
					return q.Limit(1).Select()
				})
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		discounts:     discounts,
		orders:        orders,
		customers:     customers,
		kits:          kits,
		notifications: notifications,
		invoices:      invoices,
		barcodes:      barcodes,
		registrations: registrations,
		health:        health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Discounts() repositories.DiscountRepository         { return r.discounts }
func (r *Registry) Orders() repositories.OrderRepository               { return r.orders }
func (r *Registry) Customers() repositories.CustomerRepository         { return r.customers }
func (r *Registry) Kits() repositories.KitRepository                   { return r.kits }
func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }
func (r *Registry) Invoices() repositories.InvoiceRepository           { return r.invoices }
func (r *Registry) Barcodes() repositories.BarcodeRepository           { return r.barcodes }

func (r *Registry) KitRegistrations() repositories.KitRegistrationRepository {
	return r.registrations
}

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn inside a Firestore transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx)
	})
}

var _ repositories.Registry = (*Registry)(nil)
