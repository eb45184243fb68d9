package services

import (
	"context"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/forms"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Product            = domain.Product
	Order              = domain.Order
	OrderTotals        = domain.OrderTotals
	OrderStatus        = domain.OrderStatus
	OrderType          = domain.OrderType
	PaymentStatus      = domain.PaymentStatus
	DiscountTier       = domain.DiscountTier
	Customer           = domain.Customer
	Kit                = domain.Kit
	Notification       = domain.Notification
	Invoice            = domain.Invoice
	Address            = domain.Address
	Barcode            = domain.Barcode
	Patient            = domain.Patient
	KitRegistration    = domain.KitRegistration
	SystemHealthReport = domain.SystemHealthReport
)

// CheckoutService orchestrates checkout submission: validation, pricing,
// persistence, and the hosted payment session.
type CheckoutService interface {
	Submit(ctx context.Context, cmd SubmitCheckoutCommand) (CheckoutResult, error)
	PaymentStatus(ctx context.Context, sessionID string) (PaymentStatusResult, error)
	HandlePaymentEvent(ctx context.Context, cmd PaymentEventCommand) error
}

// DiscountService exposes the quantity discount tiers to checkout and admin.
type DiscountService interface {
	ActiveTiers(ctx context.Context) ([]DiscountTier, error)
	ListTiers(ctx context.Context, pager Pagination) (domain.CursorPage[DiscountTier], error)
	CreateTier(ctx context.Context, cmd UpsertDiscountTierCommand) (DiscountTier, error)
	UpdateTier(ctx context.Context, tierID string, cmd UpsertDiscountTierCommand) (DiscountTier, error)
	DeleteTier(ctx context.Context, tierID string) error
}

// ProductTokenService seals product attributes into an opaque token and
// verifies tokens presented at checkout.
type ProductTokenService interface {
	Encrypt(ctx context.Context, product Product) (string, error)
	Verify(ctx context.Context, token string) (Product, error)
}

// OrderService covers the admin order surface.
type OrderService interface {
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
}

// CustomerService covers the admin customer surface.
type CustomerService interface {
	ListCustomers(ctx context.Context, pager Pagination) (domain.CursorPage[Customer], error)
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
}

// InventoryService tracks kit stock. Availability checks at order time are
// advisory: shortages are logged, never block a checkout.
type InventoryService interface {
	CheckAvailability(ctx context.Context, sku string, quantity int) bool
	Reserve(ctx context.Context, sku string, quantity int) (Kit, error)
	Release(ctx context.Context, sku string, quantity int) (Kit, error)
	UpsertKit(ctx context.Context, cmd UpsertKitCommand) (Kit, error)
	ListKits(ctx context.Context, pager Pagination) (domain.CursorPage[Kit], error)
}

// KitRegistrationService ties dispatched kit barcodes to the patients using
// them. Staff assign barcodes to paid orders; patients verify a barcode and
// register their details against it.
type KitRegistrationService interface {
	AssignBarcodes(ctx context.Context, cmd AssignBarcodesCommand) ([]Barcode, error)
	VerifyBarcode(ctx context.Context, barcodeNumber string) (BarcodeVerification, error)
	Register(ctx context.Context, cmd RegisterKitCommand) (KitRegistration, error)
	ListRegistrations(ctx context.Context, pager Pagination) (domain.CursorPage[KitRegistration], error)
}

// NotificationService records order lifecycle events for staff and fans them
// out over the event publisher.
type NotificationService interface {
	NotifyOrderEvent(ctx context.Context, order Order, event string) error
	ListNotifications(ctx context.Context, filter NotificationListFilter) (domain.CursorPage[Notification], error)
	MarkRead(ctx context.Context, notificationID string) (Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
}

// InvoiceService issues invoice records for paid orders and signs download URLs.
type InvoiceService interface {
	Issue(ctx context.Context, order Order) (Invoice, error)
	DownloadURL(ctx context.Context, orderID string) (string, error)
}

// SystemService provides health reports used by the readiness endpoint.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher fans order lifecycle events out to interested
// consumers (notification workers, fulfilment, analytics).
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, msg OrderEventMessage) (string, error)
}

// OrderEventMessage is the wire payload published per order lifecycle event.
type OrderEventMessage struct {
	EventID        string    `json:"eventId"`
	OrderID        string    `json:"orderId"`
	Event          string    `json:"event"`
	PaymentStatus  string    `json:"paymentStatus,omitempty"`
	CustomerEmail  string    `json:"customerEmail,omitempty"`
	GrandTotal     float64   `json:"grandTotal"`
	Currency       string    `json:"currency"`
	QueuedAt       time.Time `json:"queuedAt"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

// Command and DTO definitions ------------------------------------------------

// SubmitCheckoutCommand carries the raw form state of a checkout submission.
type SubmitCheckoutCommand struct {
	Values         forms.Values
	ProductToken   string
	IdempotencyKey string
}

// CheckoutResult is returned on successful submission; the client redirects
// to PaymentURL.
type CheckoutResult struct {
	Order      Order
	PaymentURL string
}

// PaymentStatusResult maps the PSP session state for the redirect landing page.
type PaymentStatusResult struct {
	OrderID       string
	PaymentStatus PaymentStatus
	OrderStatus   OrderStatus
}

// PaymentEventCommand carries a verified PSP webhook outcome.
type PaymentEventCommand struct {
	EventID   string
	SessionID string
	Status    PaymentStatus
}

// UpsertDiscountTierCommand carries admin tier mutations.
type UpsertDiscountTierCommand struct {
	Quantity int
	Discount float64
	Active   bool
}

// OrderListFilter narrows admin order listings.
type OrderListFilter = repositories.OrderListFilter

// NotificationListFilter narrows staff notification listings.
type NotificationListFilter = repositories.NotificationListFilter

// OrderStatusTransitionCommand requests an order fulfilment state change.
type OrderStatusTransitionCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
	Note    string
}

// UpsertKitCommand carries admin kit stock mutations.
type UpsertKitCommand struct {
	SKU       string
	Name      string
	Available int
	Active    bool
}

// AssignBarcodesCommand assigns printed kit barcodes to a paid order.
type AssignBarcodesCommand struct {
	OrderID string
	Numbers []string
	ActorID string
}

// BarcodeVerification bundles the barcode with the order and customer it was
// dispatched to, returned before the patient fills in the registration form.
type BarcodeVerification struct {
	Barcode  Barcode
	Order    Order
	Customer Customer
}

// RegisterKitCommand carries a patient kit registration submission.
type RegisterKitCommand struct {
	BarcodeNumber string
	OrderID       string
	CustomerID    string
	Patient       Patient
	InformClinic  bool
}
