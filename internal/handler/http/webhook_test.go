package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baignoire/fitmatch/internal/domain"
)

func webhookBody(t *testing.T, status, url string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(webhookPayload{
		PublicationStatus:    status,
		ProductFeedExportURL: url,
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func queuedRecord(url string) *domain.SyncRecord {
	return &domain.SyncRecord{
		ID:        "f4b4c1fa-9a3e-4cf5-9c47-2b0f6ab8d001",
		SourceURL: url,
		State:     domain.SyncStateQueued,
		CreatedAt: time.Now().UTC(),
	}
}

func TestWebhook_CompletedPublication_Returns202(t *testing.T) {
	router, deps := setupRouter(t)
	feedURL := "https://vendor.example.com/exports/feed.xlsx"
	deps.intake.On("Enqueue", mock.Anything, feedURL).Return(queuedRecord(feedURL), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, webhookBody(t, "completed", feedURL))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "f4b4c1fa-9a3e-4cf5-9c47-2b0f6ab8d001", dataField(t, resp, "sync_id"))
	assert.Equal(t, "queued", dataField(t, resp, "status"))
	deps.intake.AssertExpectations(t)
}

func TestWebhook_WrongKey_Returns401(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key=wrong", webhookBody(t, "completed", "https://vendor.example.com/feed.xlsx"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestWebhook_MissingKey_Returns401(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", webhookBody(t, "completed", "https://vendor.example.com/feed.xlsx"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_InvalidJSON_Returns400(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, bytes.NewReader([]byte(`{invalid`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid request body")
}

func TestWebhook_IncompletePublication_Returns200NoOp(t *testing.T) {
	// A draft publication is acknowledged but never enqueued: no Enqueue
	// expectation is registered, so a call would fail the test.
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, webhookBody(t, "draft", "https://vendor.example.com/feed.xlsx"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "ignored", dataField(t, resp, "status"))
}

func TestWebhook_MissingFeedURL_Returns400(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, webhookBody(t, "completed", ""))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "product_feed_export_url")
}

func TestWebhook_MalformedFeedURL_Returns400(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, webhookBody(t, "completed", "not a url"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestWebhook_IgnoresUnusedFields(t *testing.T) {
	router, deps := setupRouter(t)
	feedURL := "https://vendor.example.com/exports/feed.xlsx"
	deps.intake.On("Enqueue", mock.Anything, feedURL).Return(queuedRecord(feedURL), nil)

	body := []byte(`{
		"publication_status": "completed",
		"product_feed_export_url": "` + feedURL + `",
		"channel_id": "ch-42",
		"channel_name": "retail",
		"user_id": "u-7",
		"digital_asset_export_url": "https://vendor.example.com/assets.zip"
	}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	deps.intake.AssertExpectations(t)
}

func TestWebhook_EnqueueFailure_Returns500(t *testing.T) {
	router, deps := setupRouter(t)
	deps.intake.On("Enqueue", mock.Anything, "https://vendor.example.com/feed.xlsx").
		Return(nil, errors.New("disk full"))

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, webhookBody(t, "completed", "https://vendor.example.com/feed.xlsx"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestWebhook_WrongContentType_Returns415(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook?key="+testWebhookSecret, bytes.NewReader([]byte("status=completed")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
