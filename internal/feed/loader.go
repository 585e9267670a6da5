package feed

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/baignoire/fitmatch/internal/domain"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// criticalSheet must be present in every feed; its absence makes the workbook
// invalid. Every other recognized sheet is optional and its absence only
// skips that category.
const criticalSheet = domain.CategoryShowerBases

// Column headers required on every recognized sheet, matched after trimming
// and lowercasing.
const (
	colUniqueID    = "unique id"
	colProductName = "product name"
)

// Loader parses vendor product workbooks into catalog snapshots.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a workbook loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadFile parses the workbook at the given path.
func (l *Loader) LoadFile(path string) (*Snapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.InvalidFeed(fmt.Sprintf("open workbook %s: %v", path, err))
	}
	defer f.Close()

	return l.load(f)
}

// LoadReader parses a workbook from a byte stream.
func (l *Loader) LoadReader(r io.Reader) (*Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.InvalidFeed(fmt.Sprintf("read workbook: %v", err))
	}
	defer f.Close()

	return l.load(f)
}

func (l *Loader) load(f *excelize.File) (*Snapshot, error) {
	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		trimmed := strings.TrimSpace(name)
		present[trimmed] = true
		if !domain.IsValidCategory(trimmed) {
			l.logger.Debug("ignoring unrecognized feed sheet", slog.String("sheet", name))
		}
	}

	if !present[criticalSheet] {
		return nil, apperrors.InvalidFeed(fmt.Sprintf("critical sheet %q missing", criticalSheet))
	}

	snap := &Snapshot{
		Categories: make(map[string][]domain.Product, len(domain.ValidCategories())),
		LoadedAt:   time.Now().UTC(),
	}
	for _, category := range domain.ValidCategories() {
		if !present[category] {
			l.logger.Warn("feed sheet absent, category skipped", slog.String("sheet", category))
			continue
		}
		products, err := l.loadSheet(f, category)
		if err != nil {
			return nil, err
		}
		snap.Categories[category] = products
	}

	l.logger.Info("feed loaded",
		slog.Int("categories", len(snap.Categories)),
		slog.Int("products", snap.Len()),
	)
	return snap, nil
}

func (l *Loader) loadSheet(f *excelize.File, category string) ([]domain.Product, error) {
	rows, err := f.GetRows(category)
	if err != nil {
		return nil, apperrors.InvalidFeed(fmt.Sprintf("read sheet %q: %v", category, err))
	}
	if len(rows) == 0 {
		return nil, apperrors.InvalidFeed(fmt.Sprintf("sheet %q has no header row", category))
	}

	headerRow := rows[0]
	header := headerIndex(headerRow)
	for _, required := range []string{colUniqueID, colProductName} {
		if _, ok := header[required]; !ok {
			return nil, apperrors.InvalidFeed(fmt.Sprintf("sheet %q missing column %q", category, required))
		}
	}
	if domain.IsAnchorCategory(category) {
		if _, ok := header["nominal dimensions"]; !ok {
			l.logger.Warn("anchor sheet missing nominal dimensions column", slog.String("sheet", category))
		}
	}

	products := make([]domain.Product, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		p, ok := rowProduct(headerRow, header, row, category)
		if !ok {
			skipped++
			continue
		}
		products = append(products, p)
	}
	if skipped > 0 {
		l.logger.Warn("rows without a unique id skipped",
			slog.String("sheet", category),
			slog.Int("rows", skipped),
		)
	}
	return products, nil
}

// rowProduct maps one sheet row onto a product. Rows without a unique ID
// cannot be keyed and are reported as skipped.
func rowProduct(headerRow []string, header map[string]int, row []string, category string) (domain.Product, bool) {
	sku := domain.CanonicalSKU(cell(row, header[colUniqueID]))
	if sku == "" {
		return domain.Product{}, false
	}

	p := domain.Product{
		SKU:      sku,
		Category: category,
		Name:     strings.TrimSpace(cell(row, header[colProductName])),
	}
	for i, name := range headerRow {
		raw := strings.TrimSpace(cell(row, i))
		if raw == "" {
			continue
		}
		if applyColumn(&p, normalizeHeader(name), raw) {
			continue
		}
		if p.Attributes == nil {
			p.Attributes = make(map[string]string)
		}
		p.Attributes[strings.TrimSpace(name)] = raw
	}
	return p, true
}

// applyColumn assigns a recognized column to its typed field and reports
// whether the column was recognized. Unrecognized columns go to the
// attribute bag verbatim.
func applyColumn(p *domain.Product, name, raw string) bool {
	switch name {
	case colUniqueID, colProductName:
		// Applied before the column loop.
	case "brand":
		p.Brand = &raw
	case "series":
		p.Series = &raw
	case "family":
		p.Family = &raw
	case "nominal dimensions":
		p.NominalDimensions = &raw
	case "installation":
		p.Installation = &raw
	case "type":
		p.Type = &raw
	case "material":
		p.Material = &raw
	case "door type":
		p.DoorType = &raw
	case "glass thickness":
		p.GlassThickness = &raw
	case "has return panel":
		p.HasReturnPanel = &raw
	case "fits return panel size":
		p.FitsReturnPanelSize = &raw
	case "return panel size":
		p.ReturnPanelSize = &raw
	case "cut to size":
		p.CutToSize = &raw
	case "reason doors can't fit":
		p.ReasonDoorsCantFit = &raw
	case "reason walls can't fit":
		p.ReasonWallsCantFit = &raw
	case "image url":
		p.ImageURL = &raw
	case "product page url":
		p.ProductPageURL = &raw
	case "length":
		p.Length = parseDecimal(raw)
	case "width":
		p.Width = parseDecimal(raw)
	case "height":
		p.Height = parseDecimal(raw)
	case "max door width":
		p.MaxDoorWidth = parseDecimal(raw)
	case "max door height":
		p.MaxDoorHeight = parseDecimal(raw)
	case "minimum width":
		p.MinimumWidth = parseDecimal(raw)
	case "maximum width":
		p.MaximumWidth = parseDecimal(raw)
	case "maximum height":
		p.MaximumHeight = parseDecimal(raw)
	case "door width":
		p.DoorWidth = parseDecimal(raw)
	case "return panel width":
		p.ReturnPanelWidth = parseDecimal(raw)
	case "fixed panel width":
		p.FixedPanelWidth = parseDecimal(raw)
	case "ranking":
		p.Ranking = parseRanking(raw)
	default:
		return false
	}
	return true
}

// headerIndex maps normalized header names to their column index. The first
// occurrence of a duplicated header wins.
func headerIndex(headerRow []string) map[string]int {
	idx := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		key := normalizeHeader(name)
		if key == "" {
			continue
		}
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// cell returns the row's value at the column. GetRows trims trailing empty
// cells, so rows are often shorter than the header.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseDecimal coerces a cell to a decimal. Values that do not parse are
// treated as absent, never as zero.
func parseDecimal(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseRanking coerces a ranking cell. Spreadsheet number formatting can
// render integers as "2.0", so it parses as a decimal and truncates.
func parseRanking(raw string) *int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	n := int(v)
	return &n
}
