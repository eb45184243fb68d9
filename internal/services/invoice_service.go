package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/storage"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrInvoiceInvalidInput signals the caller provided invalid data.
	ErrInvoiceInvalidInput = errors.New("invoices: invalid input")
	// ErrInvoiceNotFound indicates no invoice exists for the order.
	ErrInvoiceNotFound = errors.New("invoices: not found")
)

const invoiceDownloadExpiry = 15 * time.Minute

// InvoiceObjectWriter stores rendered invoice documents.
type InvoiceObjectWriter interface {
	Bucket() string
	Write(ctx context.Context, object, contentType string, payload []byte) error
}

// InvoiceURLSigner mints time-limited download URLs for stored invoices.
type InvoiceURLSigner interface {
	SignedDownloadURL(ctx context.Context, bucket, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error)
}

// InvoiceServiceDeps bundles collaborators for the invoice service.
type InvoiceServiceDeps struct {
	Invoices repositories.InvoiceRepository
	Writer   InvoiceObjectWriter
	Signer   InvoiceURLSigner
	Logger   *zap.Logger
	Clock    func() time.Time
	IDs      func() string
}

type invoiceService struct {
	invoices repositories.InvoiceRepository
	writer   InvoiceObjectWriter
	signer   InvoiceURLSigner
	printer  *message.Printer
	logger   *zap.Logger
	clock    func() time.Time
	newID    func() string
}

var _ InvoiceService = (*invoiceService)(nil)

// NewInvoiceService constructs the invoice service.
func NewInvoiceService(deps InvoiceServiceDeps) (InvoiceService, error) {
	if deps.Invoices == nil {
		return nil, errors.New("invoice service: repository is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("invoice service: object writer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDs
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &invoiceService{
		invoices: deps.Invoices,
		writer:   deps.Writer,
		signer:   deps.Signer,
		printer:  message.NewPrinter(language.English),
		logger:   logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: newID,
	}, nil
}

// Issue renders and stores the invoice for a paid order. Issuing is
// idempotent per order: a second call returns the existing invoice.
func (s *invoiceService) Issue(ctx context.Context, order Order) (Invoice, error) {
	if order.ID == "" {
		return Invoice{}, fmt.Errorf("%w: order id is required", ErrInvoiceInvalidInput)
	}

	existing, err := s.invoices.FindByOrder(ctx, order.ID)
	if err == nil {
		return existing, nil
	}
	if !isInvoiceNotFound(err) {
		return Invoice{}, err
	}

	now := s.clock()
	number := "INV-" + s.newID()
	objectPath, err := storage.BuildObjectPath(storage.PurposeInvoice, storage.PathParams{
		OrderID:       order.ID,
		InvoiceNumber: number,
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("invoices: build object path: %w", err)
	}

	if err := s.writer.Write(ctx, objectPath, "text/html; charset=utf-8", s.render(order, number, now)); err != nil {
		return Invoice{}, fmt.Errorf("invoices: store document: %w", err)
	}

	invoice := Invoice{
		Number:     number,
		OrderID:    order.ID,
		ObjectPath: objectPath,
		IssuedAt:   now,
	}
	if err := s.invoices.Insert(ctx, invoice); err != nil {
		return Invoice{}, fmt.Errorf("invoices: store record: %w", err)
	}

	s.logger.Info("invoice issued",
		zap.String("orderId", order.ID),
		zap.String("invoiceNumber", number))

	return invoice, nil
}

// DownloadURL mints a short-lived signed URL for the order's invoice.
func (s *invoiceService) DownloadURL(ctx context.Context, orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", fmt.Errorf("%w: order id is required", ErrInvoiceInvalidInput)
	}
	if s.signer == nil {
		return "", errors.New("invoices: url signer not configured")
	}

	invoice, err := s.invoices.FindByOrder(ctx, orderID)
	if err != nil {
		if isInvoiceNotFound(err) {
			return "", fmt.Errorf("%w: %v", ErrInvoiceNotFound, err)
		}
		return "", err
	}

	result, err := s.signer.SignedDownloadURL(ctx, s.writer.Bucket(), invoice.ObjectPath, storage.DownloadOptions{
		Method:      "GET",
		ExpiresIn:   invoiceDownloadExpiry,
		Disposition: fmt.Sprintf("attachment; filename=%q", invoice.Number+".pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("invoices: sign download url: %w", err)
	}
	return result.URL, nil
}

func (s *invoiceService) render(order Order, number string, issuedAt time.Time) []byte {
	currency := strings.ToUpper(order.Currency)
	var b strings.Builder
	b.WriteString("<!doctype html><html><body>\n")
	b.WriteString(s.printer.Sprintf("<h1>Tax Invoice %s</h1>\n", number))
	b.WriteString(s.printer.Sprintf("<p>Order %s, issued %s</p>\n", order.ID, issuedAt.Format("2 January 2006")))
	b.WriteString(s.printer.Sprintf("<p>Billed to %s</p>\n", order.CustomerEmail))
	b.WriteString("<table>\n")
	b.WriteString(s.printer.Sprintf("<tr><td>%s × %d</td><td>%s %s</td></tr>\n",
		order.Product.Name, order.Quantity, domain.FormatAmount(order.Totals.Subtotal), currency))
	if order.Totals.DiscountAmount > 0 {
		b.WriteString(s.printer.Sprintf("<tr><td>Discount (%s%%)</td><td>-%s %s</td></tr>\n",
			domain.FormatAmount(order.Totals.DiscountPercentage), domain.FormatAmount(order.Totals.DiscountAmount), currency))
	}
	b.WriteString(s.printer.Sprintf("<tr><td>GST</td><td>%s %s</td></tr>\n",
		domain.FormatAmount(order.Totals.GstAmount), currency))
	b.WriteString(s.printer.Sprintf("<tr><td>Total</td><td>%s %s</td></tr>\n",
		domain.FormatAmount(order.Totals.GrandTotal), currency))
	b.WriteString("</table>\n</body></html>\n")
	return []byte(b.String())
}

func isInvoiceNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
