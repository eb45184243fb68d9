package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage carries one page of list results plus the token for the next.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// OrderType discriminates between retail and clinic checkouts.
type OrderType string

const (
	// OrderTypeCustomer is a retail order placed by an individual.
	OrderTypeCustomer OrderType = "customer"
	// OrderTypeClinic is a bulk order placed on behalf of a clinic.
	OrderTypeClinic OrderType = "clinic"
)

// Product describes the DNA testing kit being purchased. Price is the
// GST-inclusive unit price; Gst is the GST portion contained in one unit.
type Product struct {
	Name        string
	Description string
	Image       string
	Price       float64
	Gst         float64
}

// DiscountTier grants a percentage discount once the ordered quantity
// reaches the tier threshold.
type DiscountTier struct {
	ID        string
	Quantity  int
	Discount  float64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address captures a postal address used for billing or shipping.
type Address struct {
	Country       string
	TownCity      string
	Region        string
	Postcode      string
	StreetAddress string
}

// Customer stores the purchaser details captured at checkout.
type Customer struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Billing     Address
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderStatus enumerates fulfilment states for an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus enumerates payment states for an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is the persisted record of a checkout submission.
type Order struct {
	ID               string
	Type             OrderType
	CustomerID       string
	CustomerEmail    string
	ClinicID         string
	Product          Product
	Quantity         int
	Totals           OrderTotals
	Currency         string
	Status           OrderStatus
	PaymentStatus    PaymentStatus
	PaymentSessionID string
	PaymentURL       string
	Shipping         Address
	InvoiceNumber    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Kit tracks inventory for a testing kit SKU.
type Kit struct {
	ID        string
	SKU       string
	Name      string
	Available int
	Reserved  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationStatus marks whether staff have acknowledged a notification.
type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// Notification records an order lifecycle event surfaced to staff.
type Notification struct {
	ID        string
	OrderID   string
	Event     string
	Message   string
	Status    NotificationStatus
	CreatedAt time.Time
	ReadAt    *time.Time
}

// Invoice captures the generated invoice metadata for a paid order.
type Invoice struct {
	Number     string
	OrderID    string
	ObjectPath string
	IssuedAt   time.Time
}

// Barcode ties a printed kit barcode to the order it was dispatched with.
type Barcode struct {
	Number     string
	OrderID    string
	AssignedAt time.Time
}

// Patient holds the details of the person a kit is registered to.
type Patient struct {
	FirstName string
	LastName  string
	Email     string
	Gender    string
	Age       int
}

// KitRegistration links a dispatched kit barcode to the patient using it.
// InformClinic flags whether the purchasing clinic is copied on result
// communication.
type KitRegistration struct {
	ID            string
	BarcodeNumber string
	OrderID       string
	CustomerID    string
	Patient       Patient
	InformClinic  bool
	CreatedAt     time.Time
}
