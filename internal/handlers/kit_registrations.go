package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/auth"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const (
	defaultRegistrationPageSize = 50
	maxRegistrationPageSize     = 100
	maxRegistrationBodySize     = 16 * 1024
)

type verifyBarcodeRequest struct {
	BarcodeNumber string `json:"barcode_number"`
}

type patientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
}

type registerKitRequest struct {
	BarcodeNumber string         `json:"barcode_number"`
	OrderID       string         `json:"order_id"`
	CustomerID    string         `json:"customer_id"`
	Patient       patientRequest `json:"patient"`
	InformClinic  bool           `json:"inform_clinic"`
}

type assignBarcodesRequest struct {
	Barcodes []string `json:"barcodes"`
}

// KitRegistrationHandlers exposes the patient kit registration endpoints and
// the staff barcode assignment surface.
type KitRegistrationHandlers struct {
	registrations services.KitRegistrationService
}

// NewKitRegistrationHandlers constructs kit registration handlers.
func NewKitRegistrationHandlers(registrations services.KitRegistrationService) *KitRegistrationHandlers {
	return &KitRegistrationHandlers{registrations: registrations}
}

// Routes registers the public registration endpoints used by patients.
func (h *KitRegistrationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/kit-registrations/verify-barcode", h.verifyBarcode)
	r.Post("/kit-registrations", h.register)
}

// AdminRoutes registers the staff barcode and registration endpoints.
func (h *KitRegistrationHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/kit-registrations", h.list)
	r.Post("/orders/{orderID}/barcodes", h.assignBarcodes)
}

func (h *KitRegistrationHandlers) verifyBarcode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req verifyBarcodeRequest
	if err := decodeJSONBody(r, &req, maxRegistrationBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	verification, err := h.registrations.VerifyBarcode(ctx, req.BarcodeNumber)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Barcode verified.", map[string]any{
		"barcode_number": verification.Barcode.Number,
		"order":          newOrderPayload(verification.Order),
		"customer":       newCustomerPayload(verification.Customer),
	})
}

func (h *KitRegistrationHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerKitRequest
	if err := decodeJSONBody(r, &req, maxRegistrationBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	registration, err := h.registrations.Register(ctx, services.RegisterKitCommand{
		BarcodeNumber: req.BarcodeNumber,
		OrderID:       req.OrderID,
		CustomerID:    req.CustomerID,
		Patient: services.Patient{
			FirstName: req.Patient.FirstName,
			LastName:  req.Patient.LastName,
			Email:     req.Patient.Email,
			Gender:    req.Patient.Gender,
			Age:       req.Patient.Age,
		},
		InformClinic: req.InformClinic,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Kit registered.", newRegistrationPayload(registration))
}

func (h *KitRegistrationHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := pageParams(r, defaultRegistrationPageSize, maxRegistrationPageSize)
	if err != nil {
		writeInvalidRequest(ctx, w, "invalid pagination parameters")
		return
	}
	page, err := h.registrations.ListRegistrations(ctx, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]registrationPayload, 0, len(page.Items))
	for _, registration := range page.Items {
		payload = append(payload, newRegistrationPayload(registration))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Kit registrations fetched.", map[string]any{
		"registrations":   payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *KitRegistrationHandlers) assignBarcodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var req assignBarcodesRequest
	if err := decodeJSONBody(r, &req, maxRegistrationBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	actorID := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		actorID = identity.StaffID
	}

	barcodes, err := h.registrations.AssignBarcodes(ctx, services.AssignBarcodesCommand{
		OrderID: orderID,
		Numbers: req.Barcodes,
		ActorID: actorID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	numbers := make([]string, 0, len(barcodes))
	for _, barcode := range barcodes {
		numbers = append(numbers, barcode.Number)
	}
	httpx.WriteSuccess(w, http.StatusOK, "Barcodes assigned.", map[string]any{"barcodes": numbers})
}

type patientPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
}

type registrationPayload struct {
	ID            string         `json:"id"`
	BarcodeNumber string         `json:"barcode_number"`
	OrderID       string         `json:"order_id"`
	CustomerID    string         `json:"customer_id"`
	Patient       patientPayload `json:"patient"`
	InformClinic  bool           `json:"inform_clinic"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newRegistrationPayload(registration domain.KitRegistration) registrationPayload {
	return registrationPayload{
		ID:            registration.ID,
		BarcodeNumber: registration.BarcodeNumber,
		OrderID:       registration.OrderID,
		CustomerID:    registration.CustomerID,
		Patient: patientPayload{
			FirstName: registration.Patient.FirstName,
			LastName:  registration.Patient.LastName,
			Email:     registration.Patient.Email,
			Gender:    registration.Patient.Gender,
			Age:       registration.Patient.Age,
		},
		InformClinic: registration.InformClinic,
		CreatedAt:    registration.CreatedAt,
	}
}
