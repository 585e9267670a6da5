// Package main implements a standalone generator that writes a demo vendor
// feed workbook plus matching override spreadsheets into the fitmatch data
// directory. The catalog it emits is small but covers every matcher in the
// rule engine, so syncing it produces real compatibility edges: an alcove
// base with a pivot door and a wall set, a corner base completed by a door
// and return panel pair plus an enclosure, a bathtub with a tub door, a tub
// screen and a cut-to-size wall, and an alcove shower and tub shower sharing
// those doors.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/baignoire/fitmatch/internal/config"
	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/slug"
)

// --------------------------------------------------------------------------
// Catalog definition
// --------------------------------------------------------------------------

// sheetDef is one workbook sheet: the category name, its header row, and the
// product rows beneath it. All cells are written as strings; the feed loader
// parses decimals and rankings on its side.
type sheetDef struct {
	name   string
	header []string
	rows   [][]string
}

// productURL derives a plausible storefront URL from the product name.
func productURL(name string) string {
	return "https://www.example.com/en/p/" + slug.Generate(name)
}

// demoSheets returns the feed content, one sheet per recognized category in
// feed sheet order. SKU values match the pairs referenced by the override
// spreadsheets below.
func demoSheets() []sheetDef {
	return []sheetDef{
		{
			name: domain.CategoryShowerBases,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Family",
				"Nominal Dimensions", "Installation", "Length", "Width",
				"Max Door Width", "Fits Return Panel Size",
				"Reason Doors Can't Fit", "Ranking", "Image URL", "Product Page URL",
			},
			rows: [][]string{
				{
					"FB-1001", "B3 Round Front Shower Base 48 x 32", "Maax", "MAAX", "B3",
					"48 x 32", "Alcove", "48", "32",
					"45.75", "",
					"", "1", "https://cdn.example.com/img/fb-1001.jpg", productURL("B3 Round Front Shower Base 48 x 32"),
				},
				{
					"FB-2001", "Olympia Corner Shower Base 36 x 36", "Maax", "Collection", "Olympia",
					"36 x 36", "Corner", "36", "36",
					"33.5", "36",
					"", "2", "https://cdn.example.com/img/fb-2001.jpg", productURL("Olympia Corner Shower Base 36 x 36"),
				},
				{
					"FB-1002", "Distinct Tile-Ready Shower Base 60 x 32", "Maax", "MAAX", "Distinct",
					"60 x 32", "Alcove", "60", "32",
					"57.5", "",
					"Tile-ready flange takes site-built glass only.", "3", "", productURL("Distinct Tile-Ready Shower Base 60 x 32"),
				},
			},
		},
		{
			name: domain.CategoryBathtubs,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Family",
				"Nominal Dimensions", "Installation", "Length", "Width",
				"Max Door Width", "Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"BT-3001", "Bosca Alcove Bathtub 60 x 30", "Maax", "MAAX", "Bosca",
					"60 x 30", "Alcove", "60", "30",
					"57.5", "1", productURL("Bosca Alcove Bathtub 60 x 30"),
				},
			},
		},
		{
			name: domain.CategoryShowers,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series",
				"Nominal Dimensions", "Installation",
				"Max Door Width", "Max Door Height", "Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"SH-4001", "Camellia Alcove Shower 48 x 34", "Maax", "MAAX",
					"48 x 34", "Alcove",
					"45", "74", "1", productURL("Camellia Alcove Shower 48 x 34"),
				},
			},
		},
		{
			name: domain.CategoryTubShowers,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series",
				"Nominal Dimensions", "Max Door Width", "Max Door Height",
				"Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"TS-5001", "Exhibit Tub Shower 60 x 32", "Maax", "MAAX",
					"60 x 32", "57.5", "58",
					"1", productURL("Exhibit Tub Shower 60 x 32"),
				},
			},
		},
		{
			name: domain.CategoryShowerDoors,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Family",
				"Door Type", "Glass Thickness", "Installation", "Has Return Panel",
				"Minimum Width", "Maximum Width", "Maximum Height",
				"Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"SD-6001", "Halo Pivot Shower Door 44-47", "Maax", "Collection", "Halo",
					"Pivot", "8mm", "Alcove", "",
					"44", "47", "72",
					"1", productURL("Halo Pivot Shower Door 44-47"),
				},
				{
					"SD-6002", "Duel Corner Shower Door 32-35", "Maax", "MAAX", "Duel",
					"Sliding", "6mm", "Corner", "Yes",
					"32", "35", "72",
					"2", productURL("Duel Corner Shower Door 32-35"),
				},
			},
		},
		{
			name: domain.CategoryTubDoors,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Installation",
				"Minimum Width", "Maximum Width", "Maximum Height",
				"Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"TD-7001", "Aura Sliding Tub Door 56-59", "Maax", "Collection", "Alcove",
					"56", "59", "57",
					"1", productURL("Aura Sliding Tub Door 56-59"),
				},
			},
		},
		{
			name: domain.CategoryShowerScreens,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Material",
				"Fixed Panel Width", "Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"SC-7501", "Reveal Fixed Shower Screen 30", "Maax", "MAAX", "Clear Glass",
					"30", "1", productURL("Reveal Fixed Shower Screen 30"),
				},
			},
		},
		{
			name: domain.CategoryTubScreens,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Installation",
				"Fixed Panel Width", "Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"TC-8001", "Breeze Fixed Tub Screen 33", "Maax", "MAAX", "Alcove",
					"33", "1", productURL("Breeze Fixed Tub Screen 33"),
				},
			},
		},
		{
			name: domain.CategoryWalls,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Family",
				"Type", "Nominal Dimensions", "Cut To Size", "Length", "Width",
				"Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"WL-9001", "B3 Alcove Shower Wall Set 48 x 32", "Maax", "MAAX", "B3",
					"Alcove Shower Wall", "48 x 32", "", "48", "32",
					"1", productURL("B3 Alcove Shower Wall Set 48 x 32"),
				},
				{
					"WL-9002", "Utile Tub Wall Kit 61 x 31", "Maax", "MAAX", "Utile",
					"Tub Wall", "", "Yes", "61", "31",
					"2", productURL("Utile Tub Wall Kit 61 x 31"),
				},
			},
		},
		{
			name: domain.CategoryReturnPanels,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series", "Family",
				"Return Panel Size", "Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"RP-9501", "Duel Return Panel 36", "Maax", "MAAX", "Duel",
					"36", "1", productURL("Duel Return Panel 36"),
				},
			},
		},
		{
			name: domain.CategoryEnclosures,
			header: []string{
				"Unique ID", "Product Name", "Brand", "Series",
				"Nominal Dimensions", "Installation", "Door Width", "Return Panel Width",
				"Ranking", "Product Page URL",
			},
			rows: [][]string{
				{
					"EN-9901", "Radia Corner Enclosure 36 x 36", "Maax", "Collection",
					"36 x 36", "Corner", "35", "35",
					"1", productURL("Radia Corner Enclosure 36 x 36"),
				},
			},
		},
	}
}

// Override pairs referencing the demo SKUs. The whitelist forces doors onto
// the tile-ready base the rules annotate as door-incompatible; the blacklist
// suppresses one wall match the rules would otherwise produce.
var (
	whitelistPairs = [][2]string{
		{"FB-1002", "SD-6001"},
	}
	blacklistPairs = [][2]string{
		{"FB-1001", "WL-9001"},
	}
)

// --------------------------------------------------------------------------
// Workbook writers
// --------------------------------------------------------------------------

func writeFeed(path string, sheets []sheetDef) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet %q: %w", s.name, err)
			}
		} else {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("add sheet %q: %w", s.name, err)
			}
		}
		rows := append([][]string{s.header}, s.rows...)
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return fmt.Errorf("cell name for row %d: %w", r+1, err)
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("write row %d of %q: %w", r+1, s.name, err)
			}
		}
	}
	return f.SaveAs(path)
}

func writeOverrides(path string, pairs [][2]string) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]string{{"SKU A", "SKU B"}}
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", r+1, err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	return f.SaveAs(path)
}

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[feedgen] ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// ---------------------------------------------------------------
	// 1. Prepare the data directory
	// ---------------------------------------------------------------
	if err := os.MkdirAll(cfg.FeedDataDir, 0o750); err != nil {
		log.Fatalf("create data directory: %v", err)
	}

	// ---------------------------------------------------------------
	// 2. Write the vendor feed workbook
	// ---------------------------------------------------------------
	sheets := demoSheets()
	total := 0
	for _, s := range sheets {
		total += len(s.rows)
	}
	log.Printf("Writing %d products across %d sheets...", total, len(sheets))
	if err := writeFeed(cfg.FeedPath(), sheets); err != nil {
		log.Fatalf("write feed workbook: %v", err)
	}
	log.Printf("  Feed: %s", cfg.FeedPath())

	// ---------------------------------------------------------------
	// 3. Write the override spreadsheets
	// ---------------------------------------------------------------
	if err := writeOverrides(cfg.WhitelistPath(), whitelistPairs); err != nil {
		log.Fatalf("write whitelist workbook: %v", err)
	}
	log.Printf("  Whitelist: %s (%d pairs)", cfg.WhitelistPath(), len(whitelistPairs))

	if err := writeOverrides(cfg.BlacklistPath(), blacklistPairs); err != nil {
		log.Fatalf("write blacklist workbook: %v", err)
	}
	log.Printf("  Blacklist: %s (%d pairs)", cfg.BlacklistPath(), len(blacklistPairs))

	// ---------------------------------------------------------------
	// Done
	// ---------------------------------------------------------------
	log.Printf("Feed generation complete! Copy %s somewhere fetchable and POST a sync webhook to ingest it.", cfg.FeedPath())
}
