package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/health"
	"github.com/baignoire/fitmatch/pkg/httputil"
)

const testWebhookSecret = "test-webhook-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock Enqueuer ---

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, sourceURL string) (*domain.SyncRecord, error) {
	args := m.Called(ctx, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRecord), args.Error(1)
}

// --- Mock SyncHistoryReader ---

type mockSyncHistory struct {
	mock.Mock
}

func (m *mockSyncHistory) GetByID(ctx context.Context, id string) (*domain.SyncRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRecord), args.Error(1)
}

func (m *mockSyncHistory) ListRecent(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRecord), args.Error(1)
}

// --- Mock CompatibilityResolver ---

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Lookup(ctx context.Context, sku string) (*domain.LookupResult, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LookupResult), args.Error(1)
}

// --- Mock CatalogReader ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockCatalog) ListByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Product, int, error) {
	args := m.Called(ctx, category, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

// testDeps bundles the mocked dependencies behind one production router.
type testDeps struct {
	intake   *mockEnqueuer
	records  *mockSyncHistory
	resolver *mockResolver
	catalog  *mockCatalog
}

// setupRouter builds the production route layout over fresh mocks.
func setupRouter(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		intake:   new(mockEnqueuer),
		records:  new(mockSyncHistory),
		resolver: new(mockResolver),
		catalog:  new(mockCatalog),
	}
	router := NewRouter(
		deps.intake,
		testWebhookSecret,
		deps.records,
		deps.resolver,
		deps.catalog,
		health.NewHandler(),
		testLogger(),
		nil,
	)
	return router, deps
}

// decodeResponse reads the response body into the httputil.Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// dataField digs one key out of a decoded data object.
func dataField(t *testing.T, resp httputil.Response, key string) any {
	t.Helper()
	obj, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %T", resp.Data)
	return obj[key]
}
