package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const (
	defaultCustomerPageSize = 20
	maxCustomerPageSize     = 100
)

type customerPayload struct {
	ID          string         `json:"id"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Email       string         `json:"email"`
	PhoneNumber string         `json:"phone_number"`
	Billing     addressPayload `json:"billing"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newCustomerPayload(customer domain.Customer) customerPayload {
	return customerPayload{
		ID:          customer.ID,
		FirstName:   customer.FirstName,
		LastName:    customer.LastName,
		Email:       customer.Email,
		PhoneNumber: customer.PhoneNumber,
		Billing:     newAddressPayload(customer.Billing),
		CreatedAt:   customer.CreatedAt,
		UpdatedAt:   customer.UpdatedAt,
	}
}

// CustomerHandlers exposes the staff customer endpoints.
type CustomerHandlers struct {
	customers services.CustomerService
}

// NewCustomerHandlers constructs admin customer handlers.
func NewCustomerHandlers(customers services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{customers: customers}
}

// Routes registers the staff /customers endpoints.
func (h *CustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/customers", h.list)
	r.Get("/customers/{customerID}", h.get)
}

func (h *CustomerHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := pageParams(r, defaultCustomerPageSize, maxCustomerPageSize)
	if err != nil {
		writeInvalidRequest(ctx, w, "invalid pagination parameters")
		return
	}
	page, err := h.customers.ListCustomers(ctx, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]customerPayload, 0, len(page.Items))
	for _, customer := range page.Items {
		payload = append(payload, newCustomerPayload(customer))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Customers fetched.", map[string]any{
		"customers":       payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *CustomerHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customer, err := h.customers.GetCustomer(ctx, chi.URLParam(r, "customerID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Customer fetched.", newCustomerPayload(customer))
}
