package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/theranostics-labs/portal-api/internal/domain"
	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
	"github.com/theranostics-labs/portal-api/internal/services"
)

const maxProductBodySize = 16 * 1024

type encryptProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Gst         float64 `json:"gst"`
}

type verifyProductRequest struct {
	Token string `json:"token"`
}

type productPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       string `json:"price"`
	Gst         string `json:"gst"`
}

// ProductHandlers exposes the product token endpoints.
type ProductHandlers struct {
	tokens services.ProductTokenService
}

// NewProductHandlers constructs product token handlers.
func NewProductHandlers(tokens services.ProductTokenService) *ProductHandlers {
	return &ProductHandlers{tokens: tokens}
}

// Routes registers the /product endpoints on the public group.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/product/encrypt", h.encrypt)
	r.Post("/product/verify", h.verify)
}

func (h *ProductHandlers) encrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tokens == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "product token service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req encryptProductRequest
	if err := decodeJSONBody(r, &req, maxProductBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}

	token, err := h.tokens.Encrypt(ctx, domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		Gst:         req.Gst,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Product encrypted.", map[string]any{"token": token})
}

func (h *ProductHandlers) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tokens == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "product token service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req verifyProductRequest
	if err := decodeJSONBody(r, &req, maxProductBodySize); err != nil {
		writeInvalidRequest(ctx, w, "request body must be valid JSON")
		return
	}
	if req.Token == "" {
		writeInvalidRequest(ctx, w, "token is required")
		return
	}

	product, err := h.tokens.Verify(ctx, req.Token)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Product verified.", productPayload{
		Name:        product.Name,
		Description: product.Description,
		Image:       product.Image,
		Price:       domain.FormatAmount(product.Price),
		Gst:         domain.FormatAmount(product.Gst),
	})
}
