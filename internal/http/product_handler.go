package http

import (
	"context"
	"net/http"
	"time"

	"github.com/maximefrech68-hue/monthe/internal/catalog"
	"github.com/maximefrech68-hue/monthe/internal/domain"
)

type ProductHandler struct {
	catalog catalog.Provider
	timeout time.Duration
}

func NewProductHandler(provider catalog.Provider, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: provider,
		timeout: timeout,
	}
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Products(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "failed to load products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, http.StatusOK, products)
}
