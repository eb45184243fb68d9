package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/platform/pagination"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const defaultMaxBodySize = 64 * 1024

var errBodyTooLarge = errors.New("request body too large")

// decodeJSONBody reads at most maxSize bytes and decodes them into dst,
// rejecting unknown fields.
func decodeJSONBody(r *http.Request, dst any, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = defaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxSize {
		return errBodyTooLarge
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// pageParams extracts pageSize/pageToken into the repository pagination shape.
func pageParams(r *http.Request, defaultSize, maxSize int) (domain.Pagination, error) {
	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultSize,
		MaxPageSize:     maxSize,
	})
	if err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken}, nil
}

func writeInvalidRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

// writeServiceError maps service sentinels onto envelope failures.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *services.CheckoutValidationError
	var patientErr *services.KitRegistrationValidationError
	switch {
	case errors.As(err, &validationErr):
		httpx.WriteError(ctx, w, httpx.
			NewError("validation_failed", "Validation failed.", http.StatusBadRequest).
			WithDetails(map[string]any{"errors": validationErr.Fields}))
	case errors.As(err, &patientErr):
		httpx.WriteError(ctx, w, httpx.
			NewError("validation_failed", "Validation failed.", http.StatusBadRequest).
			WithDetails(map[string]any{"errors": patientErr.Fields}))
	case errors.Is(err, services.ErrProductTokenExpired):
		httpx.WriteError(ctx, w, httpx.NewError("product_token_expired", "Product token has expired.", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductTokenInvalid),
		errors.Is(err, services.ErrProductInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("product_token_invalid", "Product token is invalid.", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPayment):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "Payment session could not be created. Please try again.", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutOrderNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrDiscountNotFound),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrInventoryKitNotFound),
		errors.Is(err, services.ErrBarcodeNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "Resource not found.", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", "The requested state change is not allowed.", http.StatusConflict))
	case errors.Is(err, services.ErrInventoryInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "Not enough stock available.", http.StatusConflict))
	case errors.Is(err, services.ErrKitAlreadyRegistered):
		httpx.WriteError(ctx, w, httpx.NewError("kit_already_registered", "This kit has already been registered.", http.StatusConflict))
	case errors.Is(err, services.ErrBarcodeAlreadyAssigned):
		httpx.WriteError(ctx, w, httpx.NewError("barcode_assigned", "Barcode is already assigned to an order.", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutInvalidInput),
		errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrDiscountInvalidInput),
		errors.Is(err, services.ErrCustomerInvalidInput),
		errors.Is(err, services.ErrInventoryInvalidInput),
		errors.Is(err, services.ErrNotificationInvalidInput),
		errors.Is(err, services.ErrInvoiceInvalidInput),
		errors.Is(err, services.ErrKitRegistrationInvalidInput):
		writeInvalidRequest(ctx, w, "Invalid request.")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "Something went wrong. Please try again.", http.StatusInternalServerError))
	}
}

// Wire payload shapes ---------------------------------------------------------

type totalsPayload struct {
	GstPercentage      string `json:"gst_percentage"`
	GstAmount          string `json:"gst_amount"`
	Subtotal           string `json:"subtotal"`
	DiscountPercentage string `json:"discount_percentage"`
	DiscountAmount     string `json:"discount_amount"`
	TotalAfterDiscount string `json:"total_after_discount"`
	GrandTotal         string `json:"grand_total"`
}

func newTotalsPayload(totals domain.OrderTotals) totalsPayload {
	return totalsPayload{
		GstPercentage:      domain.FormatAmount(totals.GstPercentage),
		GstAmount:          domain.FormatAmount(totals.GstAmount),
		Subtotal:           domain.FormatAmount(totals.Subtotal),
		DiscountPercentage: domain.FormatAmount(totals.DiscountPercentage),
		DiscountAmount:     domain.FormatAmount(totals.DiscountAmount),
		TotalAfterDiscount: domain.FormatAmount(totals.TotalAfterDiscount),
		GrandTotal:         domain.FormatAmount(totals.GrandTotal),
	}
}

type addressPayload struct {
	Country       string `json:"country"`
	TownCity      string `json:"town_city"`
	Region        string `json:"region"`
	Postcode      string `json:"postcode"`
	StreetAddress string `json:"street_address"`
}

func newAddressPayload(address domain.Address) addressPayload {
	return addressPayload{
		Country:       address.Country,
		TownCity:      address.TownCity,
		Region:        address.Region,
		Postcode:      address.Postcode,
		StreetAddress: address.StreetAddress,
	}
}

type orderPayload struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	CustomerID    string         `json:"customer_id"`
	CustomerEmail string         `json:"customer_email"`
	ClinicID      string         `json:"clinic_id,omitempty"`
	ProductName   string         `json:"product_name"`
	Quantity      int            `json:"quantity"`
	Totals        totalsPayload  `json:"totals"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	Shipping      addressPayload `json:"shipping"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func newOrderPayload(order domain.Order) orderPayload {
	return orderPayload{
		ID:            order.ID,
		Type:          string(order.Type),
		CustomerID:    order.CustomerID,
		CustomerEmail: order.CustomerEmail,
		ClinicID:      order.ClinicID,
		ProductName:   order.Product.Name,
		Quantity:      order.Quantity,
		Totals:        newTotalsPayload(order.Totals),
		Currency:      order.Currency,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		InvoiceNumber: order.InvoiceNumber,
		Shipping:      newAddressPayload(order.Shipping),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

type tierPayload struct {
	ID        string    `json:"id"`
	Quantity  int       `json:"quantity"`
	Discount  float64   `json:"discount"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTierPayload(tier domain.DiscountTier) tierPayload {
	return tierPayload{
		ID:        tier.ID,
		Quantity:  tier.Quantity,
		Discount:  tier.Discount,
		Active:    tier.Active,
		CreatedAt: tier.CreatedAt,
		UpdatedAt: tier.UpdatedAt,
	}
}
