package lookup

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/overrides"
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

// --- Override fixtures ---

// writeOverrideFile writes a single-sheet workbook with a header row followed
// by the given SKU pairs.
func writeOverrideFile(t *testing.T, path string, pairs [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	rows := append([][]string{{"SKU X", "SKU Y"}}, pairs...)
	for r, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

// overridesOf builds a store backed by real workbook files.
func overridesOf(t *testing.T, whitelist, blacklist [][]string) *overrides.Store {
	t.Helper()

	dir := t.TempDir()
	wlPath := filepath.Join(dir, "compatibility_whitelist.xlsx")
	blPath := filepath.Join(dir, "compatibility_blacklist.xlsx")
	writeOverrideFile(t, wlPath, whitelist)
	writeOverrideFile(t, blPath, blacklist)
	return overrides.NewStore(testLogger(), wlPath, blPath)
}

// noOverrides builds a store whose files do not exist; both sets load empty.
func noOverrides(t *testing.T) *overrides.Store {
	t.Helper()

	dir := t.TempDir()
	return overrides.NewStore(
		testLogger(),
		filepath.Join(dir, "missing_whitelist.xlsx"),
		filepath.Join(dir, "missing_blacklist.xlsx"),
	)
}
