package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/httputil"
)

const (
	defaultStatusLimit = 20
	maxStatusLimit     = 100
)

// SyncHistoryReader is the slice of the sync history store the status
// endpoint needs.
type SyncHistoryReader interface {
	GetByID(ctx context.Context, id string) (*domain.SyncRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.SyncRecord, error)
}

// StatusHandler serves sync run history.
type StatusHandler struct {
	records SyncHistoryReader
	logger  *slog.Logger
}

// NewStatusHandler creates a new status HTTP handler.
func NewStatusHandler(records SyncHistoryReader, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		records: records,
		logger:  logger,
	}
}

// Get handles GET /status, either ?sync_id=<id> for one record or ?limit=N
// for the most recent runs.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("sync_id"); raw != "" {
		// Sync IDs are minted as UUIDs; reject anything else before the
		// storage round trip.
		id, ok := httputil.ParseUUID(w, raw)
		if !ok {
			return
		}
		record, err := h.records.GetByID(r.Context(), id.String())
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
		return
	}

	limit := defaultStatusLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be a valid positive integer"},
			})
			return
		}
		limit = n
	}
	if limit > maxStatusLimit {
		limit = maxStatusLimit
	}

	records, err := h.records.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: records})
}
