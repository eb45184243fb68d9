package httpx

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteSuccessEnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, 200, "Order created successfully.", map[string]string{"payment_url": "https://pay.example/s/1"})

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.Success || env.StatusCode != 200 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", env.Data)
	}
	if data["payment_url"] != "https://pay.example/s/1" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestWriteSuccessNilDataBecomesEmptyObject(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, 0, "ok", nil)

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.StatusCode != 200 {
		t.Fatalf("expected default 200, got %d", env.StatusCode)
	}
	if _, ok := env.Data.(map[string]any); !ok {
		t.Fatalf("expected empty object data, got %T", env.Data)
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewError("invalid_request", "quantity is required", 400).WithDetails(map[string]any{
		"errors": map[string]string{"quantity": "Quantity (Number of Kits) is required."},
	})
	WriteError(context.Background(), rec, err)

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env Envelope
	if decodeErr := json.Unmarshal(rec.Body.Bytes(), &env); decodeErr != nil {
		t.Fatalf("decode envelope: %v", decodeErr)
	}
	if env.Success {
		t.Fatal("expected success=false")
	}
	if env.Message != "quantity is required" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", env.Data)
	}
	if data["error"] != "invalid_request" {
		t.Fatalf("expected error code in data, got %v", data)
	}
	if _, ok := data["errors"]; !ok {
		t.Fatal("expected field errors under data.errors")
	}
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	err := NewError("boom", "broke", 0)
	if err.Status != 500 {
		t.Fatalf("expected default 500, got %d", err.Status)
	}
}
