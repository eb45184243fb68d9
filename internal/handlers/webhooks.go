package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/payments"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const maxWebhookBodySize = 64 << 10

// StripeWebhookHandlers receives signed PSP deliveries and feeds verified
// session outcomes into the checkout service.
type StripeWebhookHandlers struct {
	checkout services.CheckoutService
	secret   string
	logger   *zap.Logger
}

// NewStripeWebhookHandlers constructs the webhook endpoint handlers.
func NewStripeWebhookHandlers(checkout services.CheckoutService, secret string, logger *zap.Logger) *StripeWebhookHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeWebhookHandlers{checkout: checkout, secret: secret, logger: logger}
}

// Routes registers the PSP webhook endpoint.
func (h *StripeWebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripe)
}

func (h *StripeWebhookHandlers) handleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
	if err != nil {
		writeInvalidRequest(ctx, w, "unable to read request body")
		return
	}
	if len(payload) > maxWebhookBodySize {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "Request body exceeds the allowed size.", http.StatusRequestEntityTooLarge))
		return
	}

	event, err := payments.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.Warn("rejected webhook delivery", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "Webhook signature verification failed.", http.StatusBadRequest))
		return
	}

	// Deliveries for event types outside the checkout session lifecycle are
	// acknowledged without processing so the PSP does not retry them.
	if event.SessionID == "" {
		httpx.WriteSuccess(w, http.StatusOK, "Event ignored.", map[string]any{"event_id": event.ID})
		return
	}

	cmd := services.PaymentEventCommand{
		EventID:   event.ID,
		SessionID: event.SessionID,
		Status:    paymentStatusFromProvider(event.Status),
	}
	if err := h.checkout.HandlePaymentEvent(ctx, cmd); err != nil {
		if errors.Is(err, services.ErrCheckoutOrderNotFound) {
			// The session may belong to another environment; acknowledge so
			// the PSP stops retrying.
			h.logger.Warn("webhook session has no matching order",
				zap.String("eventId", event.ID),
				zap.String("sessionId", event.SessionID))
			httpx.WriteSuccess(w, http.StatusOK, "Event ignored.", map[string]any{"event_id": event.ID})
			return
		}
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Event processed.", map[string]any{"event_id": event.ID})
}

func paymentStatusFromProvider(status payments.Status) domain.PaymentStatus {
	switch status {
	case payments.StatusPaid:
		return domain.PaymentStatusPaid
	case payments.StatusFailed, payments.StatusExpired:
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusPending
	}
}
