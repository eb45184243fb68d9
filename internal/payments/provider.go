package payments

import (
	"context"
	"errors"
	"math"
	"time"
)

// Status enumerates the normalised payment states reported by the PSP.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or PSP confirmation.
	StatusPending Status = "pending"
	// StatusPaid indicates the PSP reports the payment as successfully captured.
	StatusPaid Status = "paid"
	// StatusFailed indicates the PSP reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusExpired indicates the hosted session lapsed before the customer paid.
	StatusExpired Status = "expired"
)

// ErrSessionNotFound is returned when the PSP has no session for the given ID.
var ErrSessionNotFound = errors.New("payments: session not found")

// CheckoutItem describes a single line item to include in a hosted checkout
// session. UnitAmount is in the currency's minor unit.
type CheckoutItem struct {
	Name        string
	Description string
	ImageURL    string
	Quantity    int64
	UnitAmount  int64
}

// CheckoutSessionRequest captures the payload required to open a hosted
// checkout session for an order.
type CheckoutSessionRequest struct {
	OrderID        string
	CustomerEmail  string
	Currency       string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
	Items          []CheckoutItem
}

// CheckoutSession represents the PSP session the customer is redirected to.
type CheckoutSession struct {
	ID          string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
}

// SessionState is the reconciliation view of a previously created session.
type SessionState struct {
	SessionID   string
	IntentID    string
	Status      Status
	AmountTotal int64
	Currency    string
	PaidAt      *time.Time
}

// Provider defines the contract for PSP adapters to implement.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	LookupSession(ctx context.Context, sessionID string) (SessionState, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

// MinorUnits converts a major-unit amount (e.g. dollars) to the minor unit
// the PSP expects (e.g. cents), rounding to the nearest cent.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
