package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_parse_test"

func signedHeader(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhookEventCompletedSession(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_123",
				"object": "checkout.session",
				"payment_status": "paid",
				"status": "complete"
			}
		}
	}`)

	event, err := ParseWebhookEvent(payload, signedHeader(t, payload, testWebhookSecret), testWebhookSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.ID != "evt_1" || event.Type != "checkout.session.completed" {
		t.Fatalf("unexpected event metadata: %+v", event)
	}
	if event.SessionID != "cs_123" {
		t.Fatalf("expected session cs_123, got %q", event.SessionID)
	}
	if event.Status != StatusPaid {
		t.Fatalf("expected paid, got %q", event.Status)
	}
}

func TestParseWebhookEventExpiredSession(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.expired",
		"data": {
			"object": {
				"id": "cs_456",
				"object": "checkout.session",
				"payment_status": "unpaid",
				"status": "expired"
			}
		}
	}`)

	event, err := ParseWebhookEvent(payload, signedHeader(t, payload, testWebhookSecret), testWebhookSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Status != StatusExpired {
		t.Fatalf("expected expired, got %q", event.Status)
	}
}

func TestParseWebhookEventUnrelatedType(t *testing.T) {
	payload := []byte(`{"id":"evt_3","type":"invoice.created","data":{"object":{"id":"in_1"}}}`)

	event, err := ParseWebhookEvent(payload, signedHeader(t, payload, testWebhookSecret), testWebhookSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.SessionID != "" {
		t.Fatalf("expected empty session id, got %q", event.SessionID)
	}
}

func TestParseWebhookEventBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"id":"cs_789"}}}`)

	if _, err := ParseWebhookEvent(payload, signedHeader(t, payload, "whsec_other"), testWebhookSecret); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}
