package repositories

import (
	"context"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Discounts() DiscountRepository
	Orders() OrderRepository
	Customers() CustomerRepository
	Kits() KitRepository
	Barcodes() BarcodeRepository
	KitRegistrations() KitRegistrationRepository
	Notifications() NotificationRepository
	Invoices() InvoiceRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DiscountRepository persists quantity discount tiers.
type DiscountRepository interface {
	Insert(ctx context.Context, tier domain.DiscountTier) error
	Update(ctx context.Context, tier domain.DiscountTier) error
	Delete(ctx context.Context, tierID string) error
	FindByID(ctx context.Context, tierID string) (domain.DiscountTier, error)
	ListActive(ctx context.Context) ([]domain.DiscountTier, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DiscountTier], error)
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	Type          *domain.OrderType
	CustomerEmail string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Pagination    domain.Pagination
}

// OrderRepository owns order persistence and lookup by payment session.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByPaymentSession(ctx context.Context, sessionID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// CustomerRepository stores purchaser records keyed by checkout email.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	Delete(ctx context.Context, customerID string) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (domain.Customer, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error)
}

// KitRepository tracks testing-kit stock levels.
type KitRepository interface {
	Upsert(ctx context.Context, kit domain.Kit) error
	FindBySKU(ctx context.Context, sku string) (domain.Kit, error)
	Reserve(ctx context.Context, sku string, quantity int) (domain.Kit, error)
	Release(ctx context.Context, sku string, quantity int) (domain.Kit, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Kit], error)
}

// BarcodeRepository stores kit barcodes assigned to paid orders. Assign must
// fail with a conflict when the barcode number is already taken.
type BarcodeRepository interface {
	Assign(ctx context.Context, barcode domain.Barcode) error
	FindByNumber(ctx context.Context, number string) (domain.Barcode, error)
	CountForOrder(ctx context.Context, orderID string) (int64, error)
}

// KitRegistrationRepository stores patient kit registrations.
type KitRegistrationRepository interface {
	Insert(ctx context.Context, registration domain.KitRegistration) error
	ExistsForBarcode(ctx context.Context, barcodeNumber string) (bool, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.KitRegistration], error)
}

// NotificationListFilter narrows staff notification listings.
type NotificationListFilter struct {
	Status     *domain.NotificationStatus
	Pagination domain.Pagination
}

// NotificationRepository stores order lifecycle notifications surfaced to staff.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	FindByID(ctx context.Context, notificationID string) (domain.Notification, error)
	List(ctx context.Context, filter NotificationListFilter) (domain.CursorPage[domain.Notification], error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.Notification, error)
	CountUnread(ctx context.Context) (int64, error)
}

// InvoiceRepository stores generated invoice metadata.
type InvoiceRepository interface {
	Insert(ctx context.Context, invoice domain.Invoice) error
	FindByOrder(ctx context.Context, orderID string) (domain.Invoice, error)
}

// HealthRepository aggregates dependency health probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
