package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maximefrech68-hue/monthe/internal/gateway"
)

// AdminGateway is the slice of the persistence gateway the admin surface
// writes through.
type AdminGateway interface {
	SetStock(ctx context.Context, productID string, stock int) error
	DeleteOrder(ctx context.Context, orderRef string) error
	AddProduct(ctx context.Context, rec gateway.ProductRecord) error
	UpdateProduct(ctx context.Context, originalID string, rec gateway.ProductRecord) error
	DeleteProduct(ctx context.Context, productID string) error
}

type AdminHandler struct {
	gateway AdminGateway
	timeout time.Duration
}

func NewAdminHandler(gw AdminGateway, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		gateway: gw,
		timeout: timeout,
	}
}

type UpdateStockRequestDTO struct {
	Stock int `json:"stock"`
}

// PUT /api/v1/admin/stock/{product_id}
func (h *AdminHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "invalid_stock", "stock must not be negative")
		return
	}

	if err := h.gateway.SetStock(ctx, productID, req.Stock); err != nil {
		respondError(w, http.StatusBadGateway, "gateway_error", "failed to update stock")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"stock":      req.Stock,
	})
}

type ProductRequestDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url"`
	ShortDesc   string `json:"short_desc"`
	Description string `json:"description"`
}

func (r ProductRequestDTO) record() gateway.ProductRecord {
	return gateway.ProductRecord{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		PriceCents:  r.PriceCents,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		ShortDesc:   r.ShortDesc,
		Description: r.Description,
	}
}

func decodeProductRequest(w http.ResponseWriter, r *http.Request) (ProductRequestDTO, bool) {
	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}
	if req.ID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_product", "id and name are required")
		return req, false
	}
	if req.PriceCents <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price_cents must be positive")
		return req, false
	}
	return req, true
}

// POST /api/v1/admin/products
func (h *AdminHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := decodeProductRequest(w, r)
	if !ok {
		return
	}

	if err := h.gateway.AddProduct(ctx, req.record()); err != nil {
		respondError(w, http.StatusBadGateway, "gateway_error", "failed to add product")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"product_id": req.ID, "status": "created"})
}

// PUT /api/v1/admin/products/{product_id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The URL carries the current id; the body may rename it.
	originalID := chi.URLParam(r, "product_id")
	if originalID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	req, ok := decodeProductRequest(w, r)
	if !ok {
		return
	}

	if err := h.gateway.UpdateProduct(ctx, originalID, req.record()); err != nil {
		respondError(w, http.StatusBadGateway, "gateway_error", "failed to update product")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"product_id": req.ID, "status": "updated"})
}

// DELETE /api/v1/admin/orders/{order_id}
func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id is required")
		return
	}

	if err := h.gateway.DeleteOrder(ctx, orderID); err != nil {
		respondError(w, http.StatusBadGateway, "gateway_error", "failed to delete order")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": "deleted"})
}

// DELETE /api/v1/admin/products/{product_id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	if err := h.gateway.DeleteProduct(ctx, productID); err != nil {
		respondError(w, http.StatusBadGateway, "gateway_error", "failed to delete product")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"product_id": productID, "status": "deleted"})
}
