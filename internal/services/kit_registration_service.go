package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/forms"
	"github.com/theranostics-labs/portal-api/internal/repositories"
)

var (
	// ErrKitRegistrationInvalidInput signals the caller provided invalid data.
	ErrKitRegistrationInvalidInput = errors.New("kit registration: invalid input")
	// ErrBarcodeNotFound indicates no registrable kit matches the barcode.
	ErrBarcodeNotFound = errors.New("kit registration: barcode not found")
	// ErrBarcodeAlreadyAssigned indicates the barcode is taken by another order.
	ErrBarcodeAlreadyAssigned = errors.New("kit registration: barcode already assigned")
	// ErrKitAlreadyRegistered indicates a registration already exists for the barcode.
	ErrKitAlreadyRegistered = errors.New("kit registration: kit already registered")
)

// Printed kit barcodes are 30 alphanumeric characters.
var barcodeNumberPattern = regexp.MustCompile(`^[A-Za-z0-9]{30}$`)

// KitRegistrationValidationError carries per-field patient form errors.
type KitRegistrationValidationError struct {
	Fields forms.Errors
}

func (e *KitRegistrationValidationError) Error() string {
	return fmt.Sprintf("kit registration: %d field(s) failed validation", len(e.Fields))
}

// KitRegistrationServiceDeps bundles collaborators required to construct the
// kit registration service.
type KitRegistrationServiceDeps struct {
	Barcodes      repositories.BarcodeRepository
	Registrations repositories.KitRegistrationRepository
	Orders        repositories.OrderRepository
	Customers     repositories.CustomerRepository
	Notifications NotificationService
	Logger        *zap.Logger
	Clock         func() time.Time
	IDs           func() string
}

type kitRegistrationService struct {
	barcodes      repositories.BarcodeRepository
	registrations repositories.KitRegistrationRepository
	orders        repositories.OrderRepository
	customers     repositories.CustomerRepository
	notifications NotificationService
	logger        *zap.Logger
	clock         func() time.Time
	newID         func() string
}

var _ KitRegistrationService = (*kitRegistrationService)(nil)

// NewKitRegistrationService constructs the kit registration service.
func NewKitRegistrationService(deps KitRegistrationServiceDeps) (KitRegistrationService, error) {
	if deps.Barcodes == nil {
		return nil, errors.New("kit registration service: barcode repository is required")
	}
	if deps.Registrations == nil {
		return nil, errors.New("kit registration service: registration repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("kit registration service: order repository is required")
	}
	if deps.Customers == nil {
		return nil, errors.New("kit registration service: customer repository is required")
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
	return &kitRegistrationService{
		barcodes:      deps.Barcodes,
		registrations: deps.Registrations,
		orders:        deps.Orders,
		customers:     deps.Customers,
		notifications: deps.Notifications,
		logger:        logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: newID,
	}, nil
}

// AssignBarcodes ties printed kit barcodes to a paid order. The assignment is
// capped at the order quantity, counting barcodes already on the order.
func (s *kitRegistrationService) AssignBarcodes(ctx context.Context, cmd AssignBarcodesCommand) ([]Barcode, error) {
	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	if cmd.OrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrKitRegistrationInvalidInput)
	}

	numbers := make([]string, 0, len(cmd.Numbers))
	seen := make(map[string]struct{}, len(cmd.Numbers))
	for _, number := range cmd.Numbers {
		number = strings.TrimSpace(number)
		if !barcodeNumberPattern.MatchString(number) {
			return nil, fmt.Errorf("%w: barcode must be 30 alphanumeric characters", ErrKitRegistrationInvalidInput)
		}
		if _, dup := seen[number]; dup {
			return nil, fmt.Errorf("%w: duplicate barcode %s", ErrKitRegistrationInvalidInput, number)
		}
		seen[number] = struct{}{}
		numbers = append(numbers, number)
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: at least one barcode is required", ErrKitRegistrationInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, translateOrderError(err)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order %s is not paid", ErrOrderInvalidState, order.ID)
	}

	assigned, err := s.barcodes.CountForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("kit registration: count assigned barcodes: %w", err)
	}
	if assigned+int64(len(numbers)) > int64(order.Quantity) {
		return nil, fmt.Errorf("%w: order %s accepts %d barcode(s), %d already assigned",
			ErrKitRegistrationInvalidInput, order.ID, order.Quantity, assigned)
	}

	now := s.clock()
	barcodes := make([]Barcode, 0, len(numbers))
	for _, number := range numbers {
		barcode := domain.Barcode{
			Number:     number,
			OrderID:    order.ID,
			AssignedAt: now,
		}
		if err := s.barcodes.Assign(ctx, barcode); err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsConflict() {
				return nil, fmt.Errorf("%w: %s", ErrBarcodeAlreadyAssigned, number)
			}
			return nil, fmt.Errorf("kit registration: assign barcode: %w", err)
		}
		barcodes = append(barcodes, barcode)
	}

	s.logger.Info("barcodes assigned",
		zap.String("orderId", order.ID),
		zap.Int("count", len(barcodes)),
		zap.String("actorId", cmd.ActorID))

	return barcodes, nil
}

// VerifyBarcode checks that a barcode belongs to a shipped kit awaiting
// registration and returns the order and customer it was dispatched to.
func (s *kitRegistrationService) VerifyBarcode(ctx context.Context, barcodeNumber string) (BarcodeVerification, error) {
	barcodeNumber = strings.TrimSpace(barcodeNumber)
	if !barcodeNumberPattern.MatchString(barcodeNumber) {
		return BarcodeVerification{}, fmt.Errorf("%w: barcode must be 30 alphanumeric characters", ErrKitRegistrationInvalidInput)
	}

	barcode, err := s.barcodes.FindByNumber(ctx, barcodeNumber)
	if err != nil {
		return BarcodeVerification{}, translateBarcodeError(err)
	}

	order, err := s.orders.FindByID(ctx, barcode.OrderID)
	if err != nil {
		return BarcodeVerification{}, translateOrderError(err)
	}
	// A kit is registrable only once it has been dispatched.
	if order.Status != domain.OrderStatusShipped {
		return BarcodeVerification{}, fmt.Errorf("%w: kit for barcode %s has not been dispatched", ErrBarcodeNotFound, barcodeNumber)
	}

	customer, err := s.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return BarcodeVerification{}, translateCustomerError(err)
	}

	exists, err := s.registrations.ExistsForBarcode(ctx, barcodeNumber)
	if err != nil {
		return BarcodeVerification{}, fmt.Errorf("kit registration: check existing registration: %w", err)
	}
	if exists {
		return BarcodeVerification{}, fmt.Errorf("%w: barcode %s", ErrKitAlreadyRegistered, barcodeNumber)
	}

	return BarcodeVerification{Barcode: barcode, Order: order, Customer: customer}, nil
}

// Register stores the patient details against a verified barcode.
func (s *kitRegistrationService) Register(ctx context.Context, cmd RegisterKitCommand) (KitRegistration, error) {
	cmd.BarcodeNumber = strings.TrimSpace(cmd.BarcodeNumber)
	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	cmd.CustomerID = strings.TrimSpace(cmd.CustomerID)
	if !barcodeNumberPattern.MatchString(cmd.BarcodeNumber) {
		return KitRegistration{}, fmt.Errorf("%w: barcode must be 30 alphanumeric characters", ErrKitRegistrationInvalidInput)
	}
	if cmd.OrderID == "" {
		return KitRegistration{}, fmt.Errorf("%w: order id is required", ErrKitRegistrationInvalidInput)
	}
	if cmd.CustomerID == "" {
		return KitRegistration{}, fmt.Errorf("%w: customer id is required", ErrKitRegistrationInvalidInput)
	}

	if fieldErrors := forms.Validate(patientFormValues(cmd.Patient), forms.PatientFields()); fieldErrors.HasErrors() {
		return KitRegistration{}, &KitRegistrationValidationError{Fields: fieldErrors}
	}

	barcode, err := s.barcodes.FindByNumber(ctx, cmd.BarcodeNumber)
	if err != nil {
		return KitRegistration{}, translateBarcodeError(err)
	}
	if barcode.OrderID != cmd.OrderID {
		return KitRegistration{}, fmt.Errorf("%w: barcode %s does not belong to order %s", ErrBarcodeNotFound, cmd.BarcodeNumber, cmd.OrderID)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return KitRegistration{}, translateOrderError(err)
	}
	if order.CustomerID != cmd.CustomerID {
		return KitRegistration{}, fmt.Errorf("%w: order %s does not belong to customer %s", ErrKitRegistrationInvalidInput, cmd.OrderID, cmd.CustomerID)
	}
	if _, err := s.customers.FindByID(ctx, cmd.CustomerID); err != nil {
		return KitRegistration{}, translateCustomerError(err)
	}

	exists, err := s.registrations.ExistsForBarcode(ctx, cmd.BarcodeNumber)
	if err != nil {
		return KitRegistration{}, fmt.Errorf("kit registration: check existing registration: %w", err)
	}
	if exists {
		return KitRegistration{}, fmt.Errorf("%w: barcode %s", ErrKitAlreadyRegistered, cmd.BarcodeNumber)
	}

	registration := domain.KitRegistration{
		ID:            s.newID(),
		BarcodeNumber: cmd.BarcodeNumber,
		OrderID:       cmd.OrderID,
		CustomerID:    cmd.CustomerID,
		Patient:       normalizePatient(cmd.Patient),
		InformClinic:  cmd.InformClinic,
		CreatedAt:     s.clock(),
	}
	if err := s.registrations.Insert(ctx, registration); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return KitRegistration{}, fmt.Errorf("%w: barcode %s", ErrKitAlreadyRegistered, cmd.BarcodeNumber)
		}
		return KitRegistration{}, fmt.Errorf("kit registration: store registration: %w", err)
	}

	s.logger.Info("kit registered",
		zap.String("registrationId", registration.ID),
		zap.String("orderId", registration.OrderID))

	if s.notifications != nil {
		if err := s.notifications.NotifyOrderEvent(ctx, order, "kit.registered"); err != nil {
			s.logger.Error("notify kit registration",
				zap.String("orderId", order.ID), zap.Error(err))
		}
	}

	return registration, nil
}

// ListRegistrations returns registrations newest first for the admin console.
func (s *kitRegistrationService) ListRegistrations(ctx context.Context, pager Pagination) (domain.CursorPage[KitRegistration], error) {
	return s.registrations.List(ctx, pager)
}

func patientFormValues(patient Patient) forms.Values {
	return forms.Values{
		"first_name": patient.FirstName,
		"last_name":  patient.LastName,
		"email":      patient.Email,
		"gender":     patient.Gender,
		"age":        strconv.Itoa(patient.Age),
	}
}

func normalizePatient(patient Patient) Patient {
	patient.FirstName = strings.TrimSpace(patient.FirstName)
	patient.LastName = strings.TrimSpace(patient.LastName)
	patient.Email = strings.ToLower(strings.TrimSpace(patient.Email))
	patient.Gender = strings.ToLower(strings.TrimSpace(patient.Gender))
	return patient
}

func translateBarcodeError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrBarcodeNotFound, err)
	}
	return err
}
