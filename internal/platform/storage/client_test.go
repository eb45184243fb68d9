package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

type stubSigner struct {
	email string
	calls int
}

func (s *stubSigner) Email() string { return s.email }

func (s *stubSigner) SignBytes(_ context.Context, payload []byte) ([]byte, error) {
	s.calls++
	return []byte("signed:" + string(payload[:min(8, len(payload))])), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestSignedDownloadURL(t *testing.T) {
	signer := &stubSigner{email: "invoices@portal-test.iam.gserviceaccount.com"}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(signer, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	result, err := client.SignedDownloadURL(context.Background(), "portal-invoices", "orders/order-1/invoices/INV-1.pdf", DownloadOptions{
		ExpiresIn:    10 * time.Minute,
		Disposition:  `attachment; filename="INV-1.pdf"`,
		ResponseType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("SignedDownloadURL returned error: %v", err)
	}

	if result.Method != "GET" {
		t.Fatalf("unexpected method: %q", result.Method)
	}
	if !result.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", result.ExpiresAt)
	}
	if !strings.Contains(result.URL, "portal-invoices") {
		t.Fatalf("url missing bucket: %q", result.URL)
	}
	if !strings.Contains(result.URL, "response-content-disposition") {
		t.Fatalf("url missing disposition parameter: %q", result.URL)
	}
	if signer.calls == 0 {
		t.Fatal("expected the signer to be invoked")
	}
}

func TestSignedDownloadURLValidation(t *testing.T) {
	signer := &stubSigner{email: "invoices@portal-test.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := client.SignedDownloadURL(ctx, "", "object", DownloadOptions{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, err := client.SignedDownloadURL(ctx, "bucket", " ", DownloadOptions{}); err == nil {
		t.Fatal("expected error for empty object")
	}
	if _, err := client.SignedDownloadURL(ctx, "bucket", "object", DownloadOptions{Method: "DELETE"}); err == nil {
		t.Fatal("expected error for disallowed method")
	}
	if _, err := client.SignedDownloadURL(ctx, "bucket", "object", DownloadOptions{ExpiresIn: time.Hour}); err == nil {
		t.Fatal("expected error for excessive expiry")
	}
}

func TestNewClientRequiresSigner(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil signer")
	}
	if _, err := NewClient(&stubSigner{email: " "}); err == nil {
		t.Fatal("expected error for signer without email")
	}
}
