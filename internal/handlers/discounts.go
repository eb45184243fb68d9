package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const (
	defaultTierPageSize = 50
	maxTierPageSize     = 100
	maxTierBodySize     = 4 * 1024
)

type upsertTierRequest struct {
	Quantity int     `json:"quantity"`
	Discount float64 `json:"discount"`
	Active   bool    `json:"active"`
}

// DiscountHandlers exposes the quantity discount endpoints.
type DiscountHandlers struct {
	discounts services.DiscountService
}

// NewDiscountHandlers constructs discount handlers.
func NewDiscountHandlers(discounts services.DiscountService) *DiscountHandlers {
	return &DiscountHandlers{discounts: discounts}
}

// PublicRoutes registers the read-only tier listing used by checkout clients.
func (h *DiscountHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/quantity-discounts", h.listActive)
}

// AdminRoutes registers the staff tier management endpoints.
func (h *DiscountHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/quantity-discounts", h.listAll)
	r.Post("/quantity-discounts", h.create)
	r.Put("/quantity-discounts/{tierID}", h.update)
	r.Delete("/quantity-discounts/{tierID}", h.delete)
}

func (h *DiscountHandlers) listActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tiers, err := h.discounts.ActiveTiers(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]tierPayload, 0, len(tiers))
	for _, tier := range tiers {
		payload = append(payload, newTierPayload(tier))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Quantity discounts fetched.", map[string]any{"tiers": payload})
}

func (h *DiscountHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := pageParams(r, defaultTierPageSize, maxTierPageSize)
	if err != nil {
		writeInvalidRequest(ctx, w, "invalid pagination parameters")
		return
	}
	page, err := h.discounts.ListTiers(ctx, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]tierPayload, 0, len(page.Items))
	for _, tier := range page.Items {
		payload = append(payload, newTierPayload(tier))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Quantity discounts fetched.", map[string]any{
		"tiers":           payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *DiscountHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req upsertTierRequest
	if err := decodeJSONBody(r, &req, maxTierBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	tier, err := h.discounts.CreateTier(ctx, services.UpsertDiscountTierCommand{
		Quantity: req.Quantity,
		Discount: req.Discount,
		Active:   req.Active,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Quantity discount created.", newTierPayload(tier))
}

func (h *DiscountHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tierID := strings.TrimSpace(chi.URLParam(r, "tierID"))
	var req upsertTierRequest
	if err := decodeJSONBody(r, &req, maxTierBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	tier, err := h.discounts.UpdateTier(ctx, tierID, services.UpsertDiscountTierCommand{
		Quantity: req.Quantity,
		Discount: req.Discount,
		Active:   req.Active,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Quantity discount updated.", newTierPayload(tier))
}

func (h *DiscountHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tierID := strings.TrimSpace(chi.URLParam(r, "tierID"))
	if err := h.discounts.DeleteTier(ctx, tierID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Quantity discount deleted.", nil)
}
