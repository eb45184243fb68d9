package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/forms"
	"github.com/theranostics-labs/portal-api/internal/platform/auth"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/platform/textutil"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const (
	defaultOrderPageSize  = 20
	maxOrderPageSize      = 100
	maxCheckoutBodySize   = 64 * 1024
	maxStatusBodySize     = 4 * 1024
	idempotencyKeyHeader  = "Idempotency-Key"
	checkoutRateLimit     = 10
	checkoutRateWindowDur = time.Minute
)

var staffOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusProcessing: {},
	domain.OrderStatusShipped:    {},
	domain.OrderStatusDelivered:  {},
	domain.OrderStatusCancelled:  {},
}

type submitCheckoutRequest struct {
	Values       map[string]string `json:"values"`
	ProductToken string            `json:"product_token"`
}

type transitionStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// CheckoutHandlers exposes the public checkout endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	limiter  rateLimiter
}

// CheckoutHandlerOption customises checkout handler construction.
type CheckoutHandlerOption func(*CheckoutHandlers)

// WithCheckoutRateLimit overrides the per-address submission budget per minute.
func WithCheckoutRateLimit(perMinute int) CheckoutHandlerOption {
	return func(h *CheckoutHandlers) {
		h.limiter = newSimpleRateLimiter(perMinute, checkoutRateWindowDur, nil)
	}
}

// NewCheckoutHandlers constructs the public checkout handlers with a per-IP
// submission rate limit.
func NewCheckoutHandlers(checkout services.CheckoutService, opts ...CheckoutHandlerOption) *CheckoutHandlers {
	h := &CheckoutHandlers{
		checkout: checkout,
		limiter:  newSimpleRateLimiter(checkoutRateLimit, checkoutRateWindowDur, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the public /orders endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders", h.submit)
	r.Get("/orders/payment-status", h.paymentStatus)
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "Too many checkout attempts. Please wait.", http.StatusTooManyRequests))
		return
	}

	var req submitCheckoutRequest
	if err := decodeJSONBody(r, &req, maxCheckoutBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.ProductToken) == "" {
		writeInvalidRequest(ctx, w, "product_token is required")
		return
	}

	values := forms.Values{}
	for name, value := range textutil.NormalizeStringMap(req.Values) {
		values[name] = value
	}

	result, err := h.checkout.Submit(ctx, services.SubmitCheckoutCommand{
		Values:         values,
		ProductToken:   req.ProductToken,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, "Order created.", map[string]any{
		"order_id":    result.Order.ID,
		"payment_url": result.PaymentURL,
	})
}

func (h *CheckoutHandlers) paymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeInvalidRequest(ctx, w, "session_id is required")
		return
	}

	result, err := h.checkout.PaymentStatus(ctx, sessionID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Payment status fetched.", map[string]any{
		"order_id":       result.OrderID,
		"payment_status": string(result.PaymentStatus),
		"order_status":   string(result.OrderStatus),
	})
}

// AdminOrderHandlers exposes the staff order management endpoints.
type AdminOrderHandlers struct {
	orders   services.OrderService
	invoices services.InvoiceService
}

// NewAdminOrderHandlers constructs admin order handlers.
func NewAdminOrderHandlers(orders services.OrderService, invoices services.InvoiceService) *AdminOrderHandlers {
	return &AdminOrderHandlers{orders: orders, invoices: invoices}
}

// Routes registers the staff /orders endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.list)
	r.Get("/orders/{orderID}", h.get)
	r.Patch("/orders/{orderID}/status", h.transition)
	r.Get("/orders/{orderID}/invoice", h.invoiceURL)
}

func (h *AdminOrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := pageParams(r, defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		writeInvalidRequest(ctx, w, "invalid pagination parameters")
		return
	}

	filter := services.OrderListFilter{Pagination: pager}
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("payment_status")); raw != "" {
		status := domain.PaymentStatus(raw)
		filter.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		orderType := domain.OrderType(raw)
		filter.Type = &orderType
	}
	filter.CustomerEmail = strings.TrimSpace(query.Get("customer_email"))

	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeInvalidRequest(ctx, w, "created_after must be a valid RFC3339 timestamp")
			return
		}
		filter.CreatedAfter = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeInvalidRequest(ctx, w, "created_before must be a valid RFC3339 timestamp")
			return
		}
		filter.CreatedBefore = &ts
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		payload = append(payload, newOrderPayload(order))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Orders fetched.", map[string]any{
		"orders":          payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *AdminOrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Order fetched.", newOrderPayload(order))
}

func (h *AdminOrderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transitionStatusRequest
	if err := decodeJSONBody(r, &req, maxStatusBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}

	status := domain.OrderStatus(strings.TrimSpace(req.Status))
	if _, ok := staffOrderStatuses[status]; !ok {
		writeInvalidRequest(ctx, w, "status must be one of processing, shipped, delivered, cancelled")
		return
	}

	actorID := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		actorID = identity.StaffID
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  status,
		ActorID: actorID,
		Note:    strings.TrimSpace(req.Note),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Order status updated.", newOrderPayload(order))
}

func (h *AdminOrderHandlers) invoiceURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invoices == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "invoice service unavailable", http.StatusServiceUnavailable))
		return
	}
	url, err := h.invoices.DownloadURL(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Invoice download link created.", map[string]any{"download_url": url})
}
