package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/forms"
	"github.com/theranostics-labs/portal-api/internal/payments"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the submission failed outside field validation.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutPayment indicates the PSP session could not be created.
	ErrCheckoutPayment = errors.New("checkout: payment session failed")
	// ErrCheckoutOrderNotFound indicates no order matches the payment session.
	ErrCheckoutOrderNotFound = errors.New("checkout: order not found")
)

// CheckoutValidationError carries the per-field messages of a rejected
// submission. The payment collaborator is never invoked when this is returned.
type CheckoutValidationError struct {
	Fields forms.Errors
}

func (e *CheckoutValidationError) Error() string {
	return fmt.Sprintf("checkout: %d field(s) failed validation", len(e.Fields))
}

// CheckoutServiceDeps bundles collaborators for the checkout orchestrator.
type CheckoutServiceDeps struct {
	Orders        repositories.OrderRepository
	Customers     repositories.CustomerRepository
	Discounts     DiscountService
	Tokens        ProductTokenService
	Payments      payments.Provider
	Inventory     InventoryService
	Notifications NotificationService
	Invoices      InvoiceService
	Logger        *zap.Logger
	Clock         func() time.Time
	IDs           func() string

	Currency   string
	SuccessURL string
	CancelURL  string
	KitSKU     string
}

type checkoutService struct {
	orders        repositories.OrderRepository
	customers     repositories.CustomerRepository
	discounts     DiscountService
	tokens        ProductTokenService
	payments      payments.Provider
	inventory     InventoryService
	notifications NotificationService
	invoices      InvoiceService
	sanitizer     *bluemonday.Policy
	logger        *zap.Logger
	clock         func() time.Time
	newID         func() string

	currency   string
	successURL string
	cancelURL  string
	kitSKU     string
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs the checkout orchestrator.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Customers == nil {
		return nil, errors.New("checkout service: customer repository is required")
	}
	if deps.Discounts == nil {
		return nil, errors.New("checkout service: discount service is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("checkout service: product token service is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDs
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "nzd"
	}

	return &checkoutService{
		orders:        deps.Orders,
		customers:     deps.Customers,
		discounts:     deps.Discounts,
		tokens:        deps.Tokens,
		payments:      deps.Payments,
		inventory:     deps.Inventory,
		notifications: deps.Notifications,
		invoices:      deps.Invoices,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:      newID,
		currency:   currency,
		successURL: deps.SuccessURL,
		cancelURL:  deps.CancelURL,
		kitSKU:     strings.TrimSpace(deps.KitSKU),
	}, nil
}

// Submit runs the full checkout: validation over the active field union,
// product token verification, pricing, persistence, and the PSP session.
// Any validation error aborts before any collaborator with side effects is
// invoked; a PSP failure unwinds the created order and leaves the submitted
// values untouched.
func (s *checkoutService) Submit(ctx context.Context, cmd SubmitCheckoutCommand) (CheckoutResult, error) {
	orderType := cmd.Values.Get(forms.FieldType)
	if orderType != forms.TypeCustomer && orderType != forms.TypeClinic {
		return CheckoutResult{}, &CheckoutValidationError{Fields: forms.Errors{
			forms.FieldType: "Customer Type must be customer or clinic.",
		}}
	}

	fields := forms.CheckoutFields(orderType)
	if errs := forms.Validate(cmd.Values, fields); errs.HasErrors() {
		return CheckoutResult{}, &CheckoutValidationError{Fields: errs}
	}

	quantity, err := s.resolveQuantity(cmd.Values, orderType)
	if err != nil {
		return CheckoutResult{}, err
	}

	product, err := s.tokens.Verify(ctx, cmd.ProductToken)
	if err != nil {
		return CheckoutResult{}, err
	}

	tiers, err := s.discounts.ActiveTiers(ctx)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: load discount tiers: %w", err)
	}
	totals := domain.PriceOrder(quantity, product.Price, product.Gst, tiers)

	// Availability is advisory: a shortage is logged but never blocks payment.
	if s.inventory != nil && s.kitSKU != "" {
		if !s.inventory.CheckAvailability(ctx, s.kitSKU, quantity) {
			s.logger.Warn("kit stock below requested quantity",
				zap.String("sku", s.kitSKU),
				zap.Int("quantity", quantity))
		}
	}

	now := s.clock()
	customer := domain.Customer{
		ID:          s.newID(),
		FirstName:   s.clean(cmd.Values.Get("first_name")),
		LastName:    s.clean(cmd.Values.Get("last_name")),
		Email:       strings.ToLower(strings.TrimSpace(cmd.Values.Get("email"))),
		PhoneNumber: strings.TrimSpace(cmd.Values.Get("phone_number")),
		Billing: domain.Address{
			Country:       s.clean(cmd.Values.Get("country")),
			TownCity:      s.clean(cmd.Values.Get("town_city")),
			Region:        s.clean(cmd.Values.Get("region")),
			Postcode:      s.clean(cmd.Values.Get("postcode")),
			StreetAddress: s.clean(cmd.Values.Get("street_address")),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	customer, err = s.customers.Upsert(ctx, customer)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: store customer: %w", err)
	}

	order := domain.Order{
		ID:            s.newID(),
		Type:          domain.OrderType(orderType),
		CustomerID:    customer.ID,
		CustomerEmail: customer.Email,
		ClinicID:      s.clean(cmd.Values.Get("clinic_id")),
		Product:       product,
		Quantity:      quantity,
		Totals:        totals,
		Currency:      s.currency,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Shipping: domain.Address{
			Country:       s.clean(cmd.Values.Get("shipping_country")),
			TownCity:      s.clean(cmd.Values.Get("shipping_town_city")),
			Region:        s.clean(cmd.Values.Get("shipping_region")),
			Postcode:      s.clean(cmd.Values.Get("shipping_postcode")),
			StreetAddress: s.clean(cmd.Values.Get("shipping_address")),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: store order: %w", err)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:        order.ID,
		CustomerEmail:  customer.Email,
		Currency:       s.currency,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		IdempotencyKey: cmd.IdempotencyKey,
		Items: []payments.CheckoutItem{
			{
				Name:        product.Name,
				Description: product.Description,
				ImageURL:    product.Image,
				Quantity:    int64(quantity),
				UnitAmount:  payments.MinorUnits(product.Price),
			},
		},
	})
	if err != nil {
		s.unwindOrder(ctx, order.ID)
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutPayment, err)
	}

	order.PaymentSessionID = session.ID
	order.PaymentURL = session.RedirectURL
	order.UpdatedAt = s.clock()
	if err := s.orders.Update(ctx, order); err != nil {
		if expireErr := s.payments.ExpireSession(ctx, session.ID); expireErr != nil {
			s.logger.Error("expire session after update failure",
				zap.String("sessionId", session.ID), zap.Error(expireErr))
		}
		s.unwindOrder(ctx, order.ID)
		return CheckoutResult{}, fmt.Errorf("checkout: attach payment session: %w", err)
	}

	s.notify(ctx, order, "order.created")

	return CheckoutResult{Order: order, PaymentURL: session.RedirectURL}, nil
}

// PaymentStatus resolves the PSP session state for the redirect landing page
// and folds the outcome back into the order.
func (s *checkoutService) PaymentStatus(ctx context.Context, sessionID string) (PaymentStatusResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return PaymentStatusResult{}, fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}

	state, err := s.payments.LookupSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return PaymentStatusResult{}, fmt.Errorf("%w: unknown session", ErrCheckoutOrderNotFound)
		}
		return PaymentStatusResult{}, err
	}

	order, err := s.applyPaymentOutcome(ctx, sessionID, mapPaymentStatus(state.Status), "")
	if err != nil {
		return PaymentStatusResult{}, err
	}
	return PaymentStatusResult{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.Status,
	}, nil
}

// HandlePaymentEvent folds a verified PSP webhook outcome into the order.
func (s *checkoutService) HandlePaymentEvent(ctx context.Context, cmd PaymentEventCommand) error {
	if strings.TrimSpace(cmd.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}
	_, err := s.applyPaymentOutcome(ctx, cmd.SessionID, cmd.Status, cmd.EventID)
	return err
}

func (s *checkoutService) applyPaymentOutcome(ctx context.Context, sessionID string, status domain.PaymentStatus, eventID string) (domain.Order, error) {
	order, err := s.orders.FindByPaymentSession(ctx, sessionID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Order{}, fmt.Errorf("%w: no order for session", ErrCheckoutOrderNotFound)
		}
		return domain.Order{}, err
	}

	if status == "" || order.PaymentStatus == status {
		return order, nil
	}
	// A settled payment is never downgraded by a late pending/failed event.
	if order.PaymentStatus == domain.PaymentStatusPaid && status != domain.PaymentStatusRefunded {
		return order, nil
	}

	order.PaymentStatus = status
	switch status {
	case domain.PaymentStatusPaid:
		order.Status = domain.OrderStatusProcessing
	case domain.PaymentStatusFailed:
		order.Status = domain.OrderStatusCancelled
	}
	order.UpdatedAt = s.clock()

	if status == domain.PaymentStatusPaid && s.invoices != nil && order.InvoiceNumber == "" {
		invoice, err := s.invoices.Issue(ctx, order)
		if err != nil {
			s.logger.Error("issue invoice", zap.String("orderId", order.ID), zap.Error(err))
		} else {
			order.InvoiceNumber = invoice.Number
		}
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("checkout: record payment outcome: %w", err)
	}

	event := "order.payment." + string(status)
	if eventID != "" {
		event = event + ":" + eventID
	}
	s.notify(ctx, order, event)

	return order, nil
}

func (s *checkoutService) resolveQuantity(values forms.Values, orderType string) (int, error) {
	raw := strings.TrimSpace(values.Get("quantity"))
	if orderType == forms.TypeCustomer && raw == "" {
		return 1, nil
	}
	quantity, err := strconv.Atoi(raw)
	if err != nil || quantity <= 0 {
		return 0, &CheckoutValidationError{Fields: forms.Errors{
			"quantity": "Quantity (Number of Kits) must be a valid number.",
		}}
	}
	return quantity, nil
}

// unwindOrder removes a partially created order after a downstream failure.
// Cleanup failures are logged; the submission error is what surfaces.
func (s *checkoutService) unwindOrder(ctx context.Context, orderID string) {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		s.logger.Error("unwind order", zap.String("orderId", orderID), zap.Error(err))
	}
}

func (s *checkoutService) notify(ctx context.Context, order domain.Order, event string) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.NotifyOrderEvent(ctx, order, event); err != nil {
		s.logger.Error("notify order event",
			zap.String("orderId", order.ID),
			zap.String("event", event),
			zap.Error(err))
	}
}

func (s *checkoutService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func mapPaymentStatus(status payments.Status) domain.PaymentStatus {
	switch status {
	case payments.StatusPaid:
		return domain.PaymentStatusPaid
	case payments.StatusFailed, payments.StatusExpired:
		return domain.PaymentStatusFailed
	case payments.StatusPending:
		return domain.PaymentStatusPending
	default:
		return ""
	}
}
