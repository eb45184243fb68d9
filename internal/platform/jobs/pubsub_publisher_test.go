package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/theranostics-labs/portal-api/internal/services"
)

func TestPubSubOrderEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "portal-test",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubOrderEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderEventPublisher: %v", err)
	}

	queuedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := services.OrderEventMessage{
		EventID:        "evt_test",
		OrderID:        "order-1",
		Event:          "order.created",
		PaymentStatus:  "pending",
		CustomerEmail:  "jordan@example.com",
		GrandTotal:     330.00,
		Currency:       "nzd",
		QueuedAt:       queuedAt,
		IdempotencyKey: "idem-123",
	}

	if _, err := publisher.PublishOrderEvent(ctx, msg); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.OrderEventMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.EventID != msg.EventID || payload.OrderID != msg.OrderID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["idempotencyKey"]; attr != "idem-123" {
		t.Fatalf("expected idempotency key attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["customerEmail"]; ok {
		t.Fatalf("customer email must not be exposed as an attribute")
	}
}
