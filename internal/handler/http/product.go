package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/httputil"
	"github.com/baignoire/fitmatch/pkg/pagination"
)

// CatalogReader is the slice of the product store the browse endpoints need.
type CatalogReader interface {
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	ListByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Product, int, error)
}

// ProductHandler serves catalog browse endpoints.
type ProductHandler struct {
	products CatalogReader
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(products CatalogReader, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// GetProduct handles GET /api/v1/products/{sku}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	sku := domain.CanonicalSKU(chi.URLParam(r, "sku"))
	if sku == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product sku is required"},
		})
		return
	}

	product, err := h.products.GetBySKU(r.Context(), sku)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ListProducts handles GET /api/v1/products?category=<name>&page=&per_page=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "category is required"},
		})
		return
	}
	if !domain.IsValidCategory(category) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "unknown category: " + category},
		})
		return
	}

	params := pagination.FromRequest(r)

	products, total, err := h.products.ListByCategory(r.Context(), category, params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, params.Page, params.PerPage))
}
