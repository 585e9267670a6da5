package sync

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/stretchr/testify/mock"

	"github.com/baignoire/fitmatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error) {
	args := m.Called(ctx, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Product, int, error) {
	args := m.Called(ctx, category, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListAllSKUs(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockProductRepository) UpsertBatch(ctx context.Context, products []domain.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *mockProductRepository) DeleteBatch(ctx context.Context, skus []string) error {
	args := m.Called(ctx, skus)
	return args.Error(0)
}

// --- Mock EdgeRepository ---

type mockEdgeRepository struct {
	mock.Mock
}

func (m *mockEdgeRepository) ListEdgesFrom(ctx context.Context, baseSKU string) ([]domain.CompatibilityEdge, error) {
	args := m.Called(ctx, baseSKU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CompatibilityEdge), args.Error(1)
}

func (m *mockEdgeRepository) ReplaceEdgesFrom(ctx context.Context, baseSKU string, edges []domain.CompatibilityEdge) error {
	args := m.Called(ctx, baseSKU, edges)
	return args.Error(0)
}

func (m *mockEdgeRepository) DeleteEdgesTouching(ctx context.Context, skus []string) error {
	args := m.Called(ctx, skus)
	return args.Error(0)
}

func (m *mockEdgeRepository) BulkInsertEdges(ctx context.Context, edges []domain.CompatibilityEdge) (int, error) {
	args := m.Called(ctx, edges)
	return args.Int(0), args.Error(1)
}

func (m *mockEdgeRepository) ListSKUsWithoutEdges(ctx context.Context, categories []string, exclude []string, limit int) ([]string, error) {
	args := m.Called(ctx, categories, exclude, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- In-memory EdgeRepository ---

// fakeEdgeStore keeps edges in memory with the same keying and conflict
// semantics as the edge table, so materializer tests can assert on the final
// stored graph instead of on individual calls.
type fakeEdgeStore struct {
	rows map[[2]string]domain.CompatibilityEdge
}

func newFakeEdgeStore() *fakeEdgeStore {
	return &fakeEdgeStore{rows: make(map[[2]string]domain.CompatibilityEdge)}
}

// snapshot copies the current row set for before/after comparisons.
func (f *fakeEdgeStore) snapshot() map[[2]string]domain.CompatibilityEdge {
	out := make(map[[2]string]domain.CompatibilityEdge, len(f.rows))
	for key, e := range f.rows {
		out[key] = e
	}
	return out
}

func (f *fakeEdgeStore) ListEdgesFrom(_ context.Context, baseSKU string) ([]domain.CompatibilityEdge, error) {
	out := []domain.CompatibilityEdge{}
	for key, e := range f.rows {
		if key[0] == baseSKU {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PartnerSKU < out[j].PartnerSKU
	})
	return out, nil
}

func (f *fakeEdgeStore) ReplaceEdgesFrom(_ context.Context, baseSKU string, edges []domain.CompatibilityEdge) error {
	for key := range f.rows {
		if key[0] == baseSKU {
			delete(f.rows, key)
		}
	}
	for _, e := range edges {
		f.rows[[2]string{e.BaseSKU, e.PartnerSKU}] = e
	}
	return nil
}

func (f *fakeEdgeStore) DeleteEdgesTouching(_ context.Context, skus []string) error {
	match := make(map[string]struct{}, len(skus))
	for _, s := range skus {
		match[s] = struct{}{}
	}
	for key := range f.rows {
		if _, ok := match[key[0]]; ok {
			delete(f.rows, key)
			continue
		}
		if _, ok := match[key[1]]; ok {
			delete(f.rows, key)
		}
	}
	return nil
}

func (f *fakeEdgeStore) BulkInsertEdges(_ context.Context, edges []domain.CompatibilityEdge) (int, error) {
	written := 0
	for _, e := range edges {
		key := [2]string{e.BaseSKU, e.PartnerSKU}
		if _, exists := f.rows[key]; exists {
			continue
		}
		f.rows[key] = e
		written++
	}
	return written, nil
}

func (f *fakeEdgeStore) ListSKUsWithoutEdges(context.Context, []string, []string, int) ([]string, error) {
	return []string{}, nil
}

// --- Mock SyncRepository ---

type mockSyncRepository struct {
	mock.Mock
}

func (m *mockSyncRepository) Create(ctx context.Context, record *domain.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockSyncRepository) GetByID(ctx context.Context, id string) (*domain.SyncRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRecord), args.Error(1)
}

func (m *mockSyncRepository) ListRecent(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRecord), args.Error(1)
}

func (m *mockSyncRepository) MarkProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSyncRepository) MarkCompleted(ctx context.Context, id string, counts domain.SyncCounts, details domain.ChangeDetails) error {
	args := m.Called(ctx, id, counts, details)
	return args.Error(0)
}

func (m *mockSyncRepository) MarkFailed(ctx context.Context, id string, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

func (m *mockSyncRepository) FailInterrupted(ctx context.Context, message string) (int, error) {
	args := m.Called(ctx, message)
	return args.Int(0), args.Error(1)
}

// --- Mock CacheInvalidator ---

type mockCacheInvalidator struct {
	mock.Mock
}

func (m *mockCacheInvalidator) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
