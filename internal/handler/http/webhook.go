package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/httputil"
	"github.com/baignoire/fitmatch/pkg/validator"
)

// publicationCompleted is the only vendor publication status that triggers a
// sync. Every other status is acknowledged and dropped.
const publicationCompleted = "completed"

// Enqueuer accepts a feed notification for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, sourceURL string) (*domain.SyncRecord, error)
}

// WebhookHandler handles vendor feed publication notifications.
type WebhookHandler struct {
	intake Enqueuer
	secret string
	logger *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(intake Enqueuer, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		intake: intake,
		secret: secret,
		logger: logger,
	}
}

// webhookPayload is the vendor notification body. channel_id, channel_name,
// user_id and digital_asset_export_url are recognized but unused. Validation
// runs only for completed publications; anything else is acknowledged as-is.
type webhookPayload struct {
	PublicationStatus     string `json:"publication_status"`
	ProductFeedExportURL  string `json:"product_feed_export_url" validate:"required,url"`
	ChannelID             string `json:"channel_id"`
	ChannelName           string `json:"channel_name"`
	UserID                string `json:"user_id"`
	DigitalAssetExportURL string `json:"digital_asset_export_url"`
}

// webhookAccepted is the 202 response body.
type webhookAccepted struct {
	SyncID string `json:"sync_id"`
	Status string `json:"status"`
}

// Receive handles POST /webhook?key=<secret>
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.secret)) != 1 {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid webhook key"},
		})
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if payload.PublicationStatus != publicationCompleted {
		h.logger.InfoContext(r.Context(), "ignoring feed notification",
			"publication_status", payload.PublicationStatus,
		)
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{
			Data: map[string]string{"status": "ignored"},
		})
		return
	}

	if err := validator.Validate(payload); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	record, err := h.intake.Enqueue(r.Context(), payload.ProductFeedExportURL)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: webhookAccepted{SyncID: record.ID, Status: record.State},
	})
}
