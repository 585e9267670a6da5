package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/httputil"
)

// CompatibilityResolver resolves the compatible-partner view of one SKU.
type CompatibilityResolver interface {
	Lookup(ctx context.Context, sku string) (*domain.LookupResult, error)
}

// LookupHandler serves compatibility lookups.
type LookupHandler struct {
	service CompatibilityResolver
	logger  *slog.Logger
}

// NewLookupHandler creates a new lookup HTTP handler.
func NewLookupHandler(service CompatibilityResolver, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{
		service: service,
		logger:  logger,
	}
}

// Compatible handles GET /compatible/{sku}
func (h *LookupHandler) Compatible(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Lookup(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
