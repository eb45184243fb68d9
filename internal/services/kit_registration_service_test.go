package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
)

type conflictRepoError struct{}

func (e conflictRepoError) Error() string       { return "stub conflict error" }
func (e conflictRepoError) IsNotFound() bool    { return false }
func (e conflictRepoError) IsConflict() bool    { return true }
func (e conflictRepoError) IsUnavailable() bool { return false }

type stubBarcodeRepo struct {
	byNumber map[string]domain.Barcode
	counts   map[string]int64

	assigned  []domain.Barcode
	assignErr error
}

func (r *stubBarcodeRepo) Assign(_ context.Context, barcode domain.Barcode) error {
	if r.assignErr != nil {
		return r.assignErr
	}
	r.assigned = append(r.assigned, barcode)
	return nil
}

func (r *stubBarcodeRepo) FindByNumber(_ context.Context, number string) (domain.Barcode, error) {
	barcode, ok := r.byNumber[number]
	if !ok {
		return domain.Barcode{}, stubRepoError{notFound: true}
	}
	return barcode, nil
}

func (r *stubBarcodeRepo) CountForOrder(_ context.Context, orderID string) (int64, error) {
	return r.counts[orderID], nil
}

type stubKitRegistrationRepo struct {
	registered map[string]bool
	inserted   []domain.KitRegistration
	insertErr  error
}

func (r *stubKitRegistrationRepo) Insert(_ context.Context, registration domain.KitRegistration) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, registration)
	return nil
}

func (r *stubKitRegistrationRepo) ExistsForBarcode(_ context.Context, barcodeNumber string) (bool, error) {
	return r.registered[barcodeNumber], nil
}

func (r *stubKitRegistrationRepo) List(_ context.Context, _ domain.Pagination) (domain.CursorPage[domain.KitRegistration], error) {
	return domain.CursorPage[domain.KitRegistration]{}, nil
}

func testBarcodeNumber(suffix string) string {
	return strings.Repeat("K", 30-len(suffix)) + suffix
}

type kitRegistrationFixture struct {
	barcodes      *stubBarcodeRepo
	registrations *stubKitRegistrationRepo
	orders        *findableOrderRepo
	customers     *findableCustomerRepo
	notifications *stubNotificationService
	service       KitRegistrationService
}

func newKitRegistrationFixture(t *testing.T) *kitRegistrationFixture {
	t.Helper()

	f := &kitRegistrationFixture{
		barcodes: &stubBarcodeRepo{
			byNumber: map[string]domain.Barcode{},
			counts:   map[string]int64{},
		},
		registrations: &stubKitRegistrationRepo{registered: map[string]bool{}},
		orders: &findableOrderRepo{byID: map[string]domain.Order{
			"order-1": {
				ID:            "order-1",
				CustomerID:    "cust-1",
				Quantity:      2,
				Status:        domain.OrderStatusShipped,
				PaymentStatus: domain.PaymentStatusPaid,
			},
		}},
		customers: &findableCustomerRepo{byID: map[string]domain.Customer{
			"cust-1": {ID: "cust-1", Email: "jane.doe@example.com"},
		}},
		notifications: &stubNotificationService{},
	}

	service, err := NewKitRegistrationService(KitRegistrationServiceDeps{
		Barcodes:      f.barcodes,
		Registrations: f.registrations,
		Orders:        f.orders,
		Customers:     f.customers,
		Notifications: f.notifications,
		Clock:         func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
		IDs:           func() string { return "reg-1" },
	})
	if err != nil {
		t.Fatalf("NewKitRegistrationService: %v", err)
	}
	f.service = service
	return f
}

func TestAssignBarcodesStoresAssignments(t *testing.T) {
	f := newKitRegistrationFixture(t)

	barcodes, err := f.service.AssignBarcodes(context.Background(), AssignBarcodesCommand{
		OrderID: "order-1",
		Numbers: []string{testBarcodeNumber("01"), testBarcodeNumber("02")},
		ActorID: "staff-1",
	})
	if err != nil {
		t.Fatalf("AssignBarcodes: %v", err)
	}
	if len(barcodes) != 2 {
		t.Fatalf("assigned %d barcodes", len(barcodes))
	}
	if len(f.barcodes.assigned) != 2 || f.barcodes.assigned[0].OrderID != "order-1" {
		t.Fatalf("stored = %+v", f.barcodes.assigned)
	}
}

func TestAssignBarcodesRejectsMalformedNumber(t *testing.T) {
	f := newKitRegistrationFixture(t)

	cases := []string{"", "short", testBarcodeNumber("0!"), testBarcodeNumber("01") + "X"}
	for _, number := range cases {
		_, err := f.service.AssignBarcodes(context.Background(), AssignBarcodesCommand{
			OrderID: "order-1",
			Numbers: []string{number},
		})
		if !errors.Is(err, ErrKitRegistrationInvalidInput) {
			t.Fatalf("number %q: expected ErrKitRegistrationInvalidInput, got %v", number, err)
		}
	}
	if len(f.barcodes.assigned) != 0 {
		t.Fatalf("stored = %+v", f.barcodes.assigned)
	}
}

func TestAssignBarcodesRequiresPaidOrder(t *testing.T) {
	f := newKitRegistrationFixture(t)
	f.orders.byID["order-1"] = domain.Order{
		ID: "order-1", Quantity: 2, PaymentStatus: domain.PaymentStatusPending,
	}

	_, err := f.service.AssignBarcodes(context.Background(), AssignBarcodesCommand{
		OrderID: "order-1",
		Numbers: []string{testBarcodeNumber("01")},
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestAssignBarcodesCapsAtOrderQuantity(t *testing.T) {
	f := newKitRegistrationFixture(t)
	f.barcodes.counts["order-1"] = 1

	_, err := f.service.AssignBarcodes(context.Background(), AssignBarcodesCommand{
		OrderID: "order-1",
		Numbers: []string{testBarcodeNumber("01"), testBarcodeNumber("02")},
	})
	if !errors.Is(err, ErrKitRegistrationInvalidInput) {
		t.Fatalf("expected ErrKitRegistrationInvalidInput, got %v", err)
	}
}

func TestAssignBarcodesReportsConflict(t *testing.T) {
	f := newKitRegistrationFixture(t)
	f.barcodes.assignErr = conflictRepoError{}

	_, err := f.service.AssignBarcodes(context.Background(), AssignBarcodesCommand{
		OrderID: "order-1",
		Numbers: []string{testBarcodeNumber("01")},
	})
	if !errors.Is(err, ErrBarcodeAlreadyAssigned) {
		t.Fatalf("expected ErrBarcodeAlreadyAssigned, got %v", err)
	}
}

func TestVerifyBarcodeReturnsOrderAndCustomer(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-1"}

	verification, err := f.service.VerifyBarcode(context.Background(), number)
	if err != nil {
		t.Fatalf("VerifyBarcode: %v", err)
	}
	if verification.Order.ID != "order-1" || verification.Customer.ID != "cust-1" {
		t.Fatalf("verification = %+v", verification)
	}
}

func TestVerifyBarcodeUnknownNumber(t *testing.T) {
	f := newKitRegistrationFixture(t)

	_, err := f.service.VerifyBarcode(context.Background(), testBarcodeNumber("99"))
	if !errors.Is(err, ErrBarcodeNotFound) {
		t.Fatalf("expected ErrBarcodeNotFound, got %v", err)
	}
}

func TestVerifyBarcodeRequiresDispatchedOrder(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-1"}
	f.orders.byID["order-1"] = domain.Order{
		ID: "order-1", CustomerID: "cust-1", Quantity: 2,
		Status: domain.OrderStatusProcessing, PaymentStatus: domain.PaymentStatusPaid,
	}

	_, err := f.service.VerifyBarcode(context.Background(), number)
	if !errors.Is(err, ErrBarcodeNotFound) {
		t.Fatalf("expected ErrBarcodeNotFound, got %v", err)
	}
}

func TestVerifyBarcodeRejectsRegisteredKit(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-1"}
	f.registrations.registered[number] = true

	_, err := f.service.VerifyBarcode(context.Background(), number)
	if !errors.Is(err, ErrKitAlreadyRegistered) {
		t.Fatalf("expected ErrKitAlreadyRegistered, got %v", err)
	}
}

func validRegisterCommand() RegisterKitCommand {
	return RegisterKitCommand{
		BarcodeNumber: testBarcodeNumber("01"),
		OrderID:       "order-1",
		CustomerID:    "cust-1",
		Patient: Patient{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "Jane.Doe@Example.com",
			Gender:    "Female",
			Age:       34,
		},
		InformClinic: true,
	}
}

func TestRegisterStoresRegistrationAndNotifies(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-1"}

	registration, err := f.service.Register(context.Background(), validRegisterCommand())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registration.ID != "reg-1" {
		t.Fatalf("registration id = %q", registration.ID)
	}
	if registration.Patient.Email != "jane.doe@example.com" || registration.Patient.Gender != "female" {
		t.Fatalf("patient = %+v", registration.Patient)
	}
	if len(f.registrations.inserted) != 1 {
		t.Fatalf("inserted = %+v", f.registrations.inserted)
	}
	if len(f.notifications.events) != 1 || f.notifications.events[0] != "kit.registered" {
		t.Fatalf("events = %v", f.notifications.events)
	}
}

func TestRegisterValidatesPatientFields(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-1"}

	cmd := validRegisterCommand()
	cmd.Patient.Email = "not-an-email"
	cmd.Patient.Age = 17

	_, err := f.service.Register(context.Background(), cmd)
	var validationErr *KitRegistrationValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected KitRegistrationValidationError, got %v", err)
	}
	if _, ok := validationErr.Fields["email"]; !ok {
		t.Fatalf("fields = %v", validationErr.Fields)
	}
	if _, ok := validationErr.Fields["age"]; !ok {
		t.Fatalf("fields = %v", validationErr.Fields)
	}
	if len(f.registrations.inserted) != 0 {
		t.Fatalf("inserted = %+v", f.registrations.inserted)
	}
}

func TestRegisterRejectsBarcodeOrderMismatch(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-2"}

	_, err := f.service.Register(context.Background(), validRegisterCommand())
	if !errors.Is(err, ErrBarcodeNotFound) {
		t.Fatalf("expected ErrBarcodeNotFound, got %v", err)
	}
}

func TestRegisterRejectsDuplicateRegistration(t *testing.T) {
	f := newKitRegistrationFixture(t)
	number := testBarcodeNumber("01")
	f.barcodes.byNumber[number] = domain.Barcode{Number: number, OrderID: "order-1"}
	f.registrations.registered[number] = true

	_, err := f.service.Register(context.Background(), validRegisterCommand())
	if !errors.Is(err, ErrKitAlreadyRegistered) {
		t.Fatalf("expected ErrKitAlreadyRegistered, got %v", err)
	}
	if len(f.notifications.events) != 0 {
		t.Fatalf("events = %v", f.notifications.events)
	}
}
