package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// WebhookEvent is the normalised view of a PSP webhook delivery that the
// order lifecycle cares about. Deliveries for other event types come back
// with an empty SessionID and are ignored by callers.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	IntentID  string
	Status    Status
}

// ParseWebhookEvent verifies the Stripe signature header against the webhook
// secret and extracts the session outcome from checkout.session.* events.
func ParseWebhookEvent(payload []byte, signature, secret string) (WebhookEvent, error) {
	// The endpoint is not pinned to the SDK's API version; signature
	// verification is what authenticates the delivery.
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: verify webhook signature: %w", err)
	}

	out := WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: decode webhook session: %w", err)
	}

	state := stripeSessionState(&session)
	out.SessionID = state.SessionID
	out.IntentID = state.IntentID
	out.Status = state.Status

	switch event.Type {
	case "checkout.session.expired":
		if out.Status != StatusPaid {
			out.Status = StatusExpired
		}
	case "checkout.session.async_payment_failed":
		out.Status = StatusFailed
	}

	return out, nil
}
