package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const (
	defaultKitPageSize = 50
	maxKitPageSize     = 100
	maxKitBodySize     = 4 * 1024
)

type upsertKitRequest struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Available int    `json:"available"`
	Active    bool   `json:"active"`
}

type kitPayload struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newKitPayload(kit domain.Kit) kitPayload {
	return kitPayload{
		ID:        kit.ID,
		SKU:       kit.SKU,
		Name:      kit.Name,
		Available: kit.Available,
		Reserved:  kit.Reserved,
		Active:    kit.Active,
		CreatedAt: kit.CreatedAt,
		UpdatedAt: kit.UpdatedAt,
	}
}

// KitHandlers exposes the staff kit inventory endpoints.
type KitHandlers struct {
	inventory services.InventoryService
}

// NewKitHandlers constructs admin kit handlers.
func NewKitHandlers(inventory services.InventoryService) *KitHandlers {
	return &KitHandlers{inventory: inventory}
}

// Routes registers the staff /kits endpoints.
func (h *KitHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/kits", h.list)
	r.Post("/kits", h.upsert)
	r.Patch("/kits/{kitSKU}", h.patch)
}

func (h *KitHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := pageParams(r, defaultKitPageSize, maxKitPageSize)
	if err != nil {
		writeInvalidRequest(ctx, w, "invalid pagination parameters")
		return
	}
	page, err := h.inventory.ListKits(ctx, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]kitPayload, 0, len(page.Items))
	for _, kit := range page.Items {
		payload = append(payload, newKitPayload(kit))
	}
	httpx.WriteSuccess(w, http.StatusOK, "Kits fetched.", map[string]any{
		"kits":            payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *KitHandlers) upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req upsertKitRequest
	if err := decodeJSONBody(r, &req, maxKitBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	kit, err := h.inventory.UpsertKit(ctx, services.UpsertKitCommand{
		SKU:       req.SKU,
		Name:      req.Name,
		Available: req.Available,
		Active:    req.Active,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Kit stored.", newKitPayload(kit))
}

func (h *KitHandlers) patch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req upsertKitRequest
	if err := decodeJSONBody(r, &req, maxKitBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	req.SKU = strings.TrimSpace(chi.URLParam(r, "kitSKU"))
	kit, err := h.inventory.UpsertKit(ctx, services.UpsertKitCommand{
		SKU:       req.SKU,
		Name:      req.Name,
		Available: req.Available,
		Active:    req.Active,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Kit updated.", newKitPayload(kit))
}
