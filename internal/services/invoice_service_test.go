package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/storage"
)

type stubInvoiceRepo struct {
	byOrder  map[string]domain.Invoice
	inserted []domain.Invoice
}

func (r *stubInvoiceRepo) Insert(_ context.Context, invoice domain.Invoice) error {
	r.inserted = append(r.inserted, invoice)
	if r.byOrder == nil {
		r.byOrder = map[string]domain.Invoice{}
	}
	r.byOrder[invoice.OrderID] = invoice
	return nil
}

func (r *stubInvoiceRepo) FindByOrder(_ context.Context, orderID string) (domain.Invoice, error) {
	invoice, ok := r.byOrder[orderID]
	if !ok {
		return domain.Invoice{}, stubRepoError{notFound: true}
	}
	return invoice, nil
}

type stubObjectWriter struct {
	objects map[string][]byte
	types   map[string]string
}

func (w *stubObjectWriter) Bucket() string { return "portal-invoices" }

func (w *stubObjectWriter) Write(_ context.Context, object, contentType string, payload []byte) error {
	if w.objects == nil {
		w.objects = map[string][]byte{}
		w.types = map[string]string{}
	}
	w.objects[object] = payload
	w.types[object] = contentType
	return nil
}

type stubURLSigner struct {
	buckets []string
	objects []string
}

func (s *stubURLSigner) SignedDownloadURL(_ context.Context, bucket, object string, _ storage.DownloadOptions) (storage.SignedURLResult, error) {
	s.buckets = append(s.buckets, bucket)
	s.objects = append(s.objects, object)
	return storage.SignedURLResult{URL: "https://storage.example.com/" + object + "?sig=abc"}, nil
}

func newInvoiceServiceForTest(t *testing.T, repo *stubInvoiceRepo, writer *stubObjectWriter, signer *stubURLSigner) InvoiceService {
	t.Helper()
	service, err := NewInvoiceService(InvoiceServiceDeps{
		Invoices: repo,
		Writer:   writer,
		Signer:   signer,
		Clock:    func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
		IDs:      func() string { return "0001" },
	})
	if err != nil {
		t.Fatalf("NewInvoiceService: %v", err)
	}
	return service
}

func paidTestOrder() domain.Order {
	return domain.Order{
		ID:            "order-1",
		CustomerEmail: "jane.doe@example.com",
		Quantity:      25,
		Currency:      "nzd",
		Product:       domain.Product{Name: "DNA Testing Kit"},
		Totals: domain.OrderTotals{
			Subtotal:           5424.00,
			DiscountPercentage: 10,
			DiscountAmount:     542.40,
			GstAmount:          813.50,
			GrandTotal:         5695.10,
		},
	}
}

func TestIssueStoresDocumentAndRecord(t *testing.T) {
	repo := &stubInvoiceRepo{}
	writer := &stubObjectWriter{}
	service := newInvoiceServiceForTest(t, repo, writer, nil)

	invoice, err := service.Issue(context.Background(), paidTestOrder())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if invoice.Number != "INV-0001" {
		t.Fatalf("invoice number = %q", invoice.Number)
	}
	if invoice.ObjectPath != "orders/order-1/invoices/INV-0001.pdf" {
		t.Fatalf("object path = %q", invoice.ObjectPath)
	}

	payload, ok := writer.objects[invoice.ObjectPath]
	if !ok {
		t.Fatal("document not written")
	}
	body := string(payload)
	for _, want := range []string{"INV-0001", "order-1", "5695.10", "813.50", "542.40"} {
		if !strings.Contains(body, want) {
			t.Fatalf("document missing %q:\n%s", want, body)
		}
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d records", len(repo.inserted))
	}
}

func TestIssueIsIdempotentPerOrder(t *testing.T) {
	repo := &stubInvoiceRepo{}
	writer := &stubObjectWriter{}
	service := newInvoiceServiceForTest(t, repo, writer, nil)

	first, err := service.Issue(context.Background(), paidTestOrder())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := service.Issue(context.Background(), paidTestOrder())
	if err != nil {
		t.Fatalf("Issue (second): %v", err)
	}
	if first.Number != second.Number {
		t.Fatalf("expected same invoice, got %q and %q", first.Number, second.Number)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d records", len(repo.inserted))
	}
	if len(writer.objects) != 1 {
		t.Fatalf("wrote %d documents", len(writer.objects))
	}
}

func TestDownloadURL(t *testing.T) {
	repo := &stubInvoiceRepo{byOrder: map[string]domain.Invoice{
		"order-1": {Number: "INV-0001", OrderID: "order-1", ObjectPath: "orders/order-1/invoices/INV-0001.pdf"},
	}}
	signer := &stubURLSigner{}
	service := newInvoiceServiceForTest(t, repo, &stubObjectWriter{}, signer)

	url, err := service.DownloadURL(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.Contains(url, "orders/order-1/invoices/INV-0001.pdf") {
		t.Fatalf("url = %q", url)
	}
	if len(signer.buckets) != 1 || signer.buckets[0] != "portal-invoices" {
		t.Fatalf("buckets = %v", signer.buckets)
	}
}

func TestDownloadURLNotFound(t *testing.T) {
	service := newInvoiceServiceForTest(t, &stubInvoiceRepo{}, &stubObjectWriter{}, &stubURLSigner{})

	if _, err := service.DownloadURL(context.Background(), "missing"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
