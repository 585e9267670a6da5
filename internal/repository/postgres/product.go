// Package postgres implements the repository interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/database"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// productColumns is the canonical column list, matching the scan order of
// productScanDests and the argument order of productInsertArgs.
const productColumns = `sku, name, category, brand, series, family,
	length, width, height, nominal_dimensions, installation,
	max_door_width, max_door_height, minimum_width, maximum_width, maximum_height,
	has_return_panel, fits_return_panel_size, return_panel_size,
	door_width, return_panel_width, fixed_panel_width,
	cut_to_size, glass_thickness, door_type, material, product_type,
	reason_doors_cant_fit, reason_walls_cant_fit, ranking,
	image_url, product_page_url, attributes, created_at, updated_at`

// numProductInsertColumns counts the columns written by UpsertBatch: every
// product column except created_at and updated_at, which the statement sets
// itself.
const numProductInsertColumns = 33

// upsertChunkSize bounds how many products one multi-row INSERT carries so the
// statement stays well under the PostgreSQL parameter limit.
const upsertChunkSize = 200

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// productScanDests returns scan destinations for one full product row, in
// productColumns order.
func productScanDests(p *domain.Product) []any {
	return []any{
		&p.SKU, &p.Name, &p.Category, &p.Brand, &p.Series, &p.Family,
		&p.Length, &p.Width, &p.Height, &p.NominalDimensions, &p.Installation,
		&p.MaxDoorWidth, &p.MaxDoorHeight, &p.MinimumWidth, &p.MaximumWidth, &p.MaximumHeight,
		&p.HasReturnPanel, &p.FitsReturnPanelSize, &p.ReturnPanelSize,
		&p.DoorWidth, &p.ReturnPanelWidth, &p.FixedPanelWidth,
		&p.CutToSize, &p.GlassThickness, &p.DoorType, &p.Material, &p.Type,
		&p.ReasonDoorsCantFit, &p.ReasonWallsCantFit, &p.Ranking,
		&p.ImageURL, &p.ProductPageURL, &p.Attributes, &p.CreatedAt, &p.UpdatedAt,
	}
}

// productInsertArgs returns the insert arguments for one product, in
// productColumns order minus the timestamp columns.
func productInsertArgs(p *domain.Product) []any {
	return []any{
		p.SKU, p.Name, p.Category, p.Brand, p.Series, p.Family,
		p.Length, p.Width, p.Height, p.NominalDimensions, p.Installation,
		p.MaxDoorWidth, p.MaxDoorHeight, p.MinimumWidth, p.MaximumWidth, p.MaximumHeight,
		p.HasReturnPanel, p.FitsReturnPanelSize, p.ReturnPanelSize,
		p.DoorWidth, p.ReturnPanelWidth, p.FixedPanelWidth,
		p.CutToSize, p.GlassThickness, p.DoorType, p.Material, p.Type,
		p.ReasonDoorsCantFit, p.ReasonWallsCantFit, p.Ranking,
		p.ImageURL, p.ProductPageURL, p.Attributes,
	}
}

// GetBySKU retrieves one product by canonical SKU.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE sku = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, sku).Scan(productScanDests(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product by sku: %w", err)
	}

	return &p, nil
}

// GetBySKUs retrieves products for the given SKUs in one query. Missing SKUs
// are simply absent from the returned map.
func (r *ProductRepository) GetBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE sku = ANY($1)`

	rows, err := r.pool.Query(ctx, query, skus)
	if err != nil {
		return nil, fmt.Errorf("get products by skus: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productScanDests(&p)...); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		result[p.SKU] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return result, nil
}

// ListByCategory returns one page of a category ordered by ranking then SKU,
// plus the category's total row count.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Product, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	// count(*) OVER() folds the total count into the page query.
	query := `
		SELECT ` + productColumns + `,
			   count(*) OVER() AS total_count
		FROM products
		WHERE category = $1
		ORDER BY COALESCE(ranking, ` + strconv.Itoa(domain.DefaultRanking) + `) ASC, sku ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products by category: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(append(productScanDests(&p), &totalCount)...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// ListAll returns the full catalog, ordered by category then SKU.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY category ASC, sku ASC`

	ctx, end := database.TraceQuery(ctx, "products.ListAll", query)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productScanDests(&p)...); err != nil {
			end(err)
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		end(err)
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	end(nil)

	return products, nil
}

// ListAllSKUs returns every stored SKU mapped to its category.
func (r *ProductRepository) ListAllSKUs(ctx context.Context) (map[string]string, error) {
	query := `SELECT sku, category FROM products`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all skus: %w", err)
	}
	defer rows.Close()

	skus := make(map[string]string)
	for rows.Next() {
		var sku, category string
		if err := rows.Scan(&sku, &category); err != nil {
			return nil, fmt.Errorf("scan sku row: %w", err)
		}
		skus[sku] = category
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sku rows: %w", err)
	}

	return skus, nil
}

// UpsertBatch inserts or updates products with multi-row INSERT ... ON
// CONFLICT statements, chunked to respect the parameter limit.
func (r *ProductRepository) UpsertBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	for start := 0; start < len(products); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(products) {
			end = len(products)
		}
		if err := r.upsertChunk(ctx, products[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (r *ProductRepository) upsertChunk(ctx context.Context, products []domain.Product) error {
	valueClauses := make([]string, 0, len(products))
	args := make([]any, 0, len(products)*numProductInsertColumns)
	for i := range products {
		base := i * numProductInsertColumns
		placeholders := make([]string, numProductInsertColumns)
		for j := range placeholders {
			placeholders[j] = "$" + strconv.Itoa(base+j+1)
		}
		valueClauses = append(valueClauses, "("+strings.Join(placeholders, ",")+")")
		args = append(args, productInsertArgs(&products[i])...)
	}

	query := `
		INSERT INTO products (sku, name, category, brand, series, family,
			length, width, height, nominal_dimensions, installation,
			max_door_width, max_door_height, minimum_width, maximum_width, maximum_height,
			has_return_panel, fits_return_panel_size, return_panel_size,
			door_width, return_panel_width, fixed_panel_width,
			cut_to_size, glass_thickness, door_type, material, product_type,
			reason_doors_cant_fit, reason_walls_cant_fit, ranking,
			image_url, product_page_url, attributes)
		VALUES ` + strings.Join(valueClauses, ", ") + `
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			series = EXCLUDED.series,
			family = EXCLUDED.family,
			length = EXCLUDED.length,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			nominal_dimensions = EXCLUDED.nominal_dimensions,
			installation = EXCLUDED.installation,
			max_door_width = EXCLUDED.max_door_width,
			max_door_height = EXCLUDED.max_door_height,
			minimum_width = EXCLUDED.minimum_width,
			maximum_width = EXCLUDED.maximum_width,
			maximum_height = EXCLUDED.maximum_height,
			has_return_panel = EXCLUDED.has_return_panel,
			fits_return_panel_size = EXCLUDED.fits_return_panel_size,
			return_panel_size = EXCLUDED.return_panel_size,
			door_width = EXCLUDED.door_width,
			return_panel_width = EXCLUDED.return_panel_width,
			fixed_panel_width = EXCLUDED.fixed_panel_width,
			cut_to_size = EXCLUDED.cut_to_size,
			glass_thickness = EXCLUDED.glass_thickness,
			door_type = EXCLUDED.door_type,
			material = EXCLUDED.material,
			product_type = EXCLUDED.product_type,
			reason_doors_cant_fit = EXCLUDED.reason_doors_cant_fit,
			reason_walls_cant_fit = EXCLUDED.reason_walls_cant_fit,
			ranking = EXCLUDED.ranking,
			image_url = EXCLUDED.image_url,
			product_page_url = EXCLUDED.product_page_url,
			attributes = EXCLUDED.attributes,
			updated_at = now()`

	ctx, end := database.TraceQuery(ctx, "products.UpsertBatch", "INSERT INTO products ... ON CONFLICT (sku) DO UPDATE")
	_, err := r.pool.Exec(ctx, query, args...)
	end(err)
	if err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}

	return nil
}

// DeleteBatch removes products and every compatibility edge touching them in
// one transaction, so a deleted SKU never lingers in the graph.
func (r *ProductRepository) DeleteBatch(ctx context.Context, skus []string) error {
	if len(skus) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	edgeQuery := `
		DELETE FROM compatibility_edges
		WHERE base_sku = ANY($1)
		   OR partner_sku = ANY($1)
		   OR string_to_array(base_sku, '|') && $1
		   OR string_to_array(partner_sku, '|') && $1`

	if _, err := tx.Exec(ctx, edgeQuery, skus); err != nil {
		return fmt.Errorf("delete edges for removed products: %w", err)
	}

	productQuery := `DELETE FROM products WHERE sku = ANY($1)`

	if _, err := tx.Exec(ctx, productQuery, skus); err != nil {
		return fmt.Errorf("delete products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
