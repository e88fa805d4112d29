package artifact

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// Writer produces XLSX artifacts.
type Writer struct {
	logger *slog.Logger
}

// NewWriter builds an artifact writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteGrids saves raw extracted grids, one sheet per table, preserving the
// cell text exactly as extracted.
func (w *Writer) WriteGrids(path string, grids []bom.TableGrid) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	for i, grid := range grids {
		sheet := fmt.Sprintf("Page%d_Table%d", grid.Page, i+1)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}

		for r, row := range grid.Rows {
			for c, cell := range row {
				name, _ := excelize.CoordinatesToCellName(c+1, r+1)
				_ = f.SetCellValue(sheet, name, cell)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("artifact.extracted.ok",
		"path", path,
		"tables", len(grids),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// recordHeaders is the column order for merged and priced workbooks.
var recordHeaders = []string{
	"Part Number",
	"Description",
	"Manufacturer",
	"Reference",
	"Unit",
	"Quantity",
	"Status",
	"Review Reasons",
}

var pricedHeaders = append(append([]string{}, recordHeaders...),
	"Unit Price", "Currency", "Lookup Status", "Price Source")

// WriteRecords saves validated records to a single-sheet workbook. withPrices
// adds the pricing columns for the priced artifact.
func (w *Writer) WriteRecords(path string, records []*bom.Record, withPrices bool) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "BoM"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := recordHeaders
	if withPrices {
		headers = pricedHeaders
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, rec.PartNumber)
		write(2, rec.Description)
		write(3, rec.Manufacturer)
		write(4, rec.Reference)
		write(5, rec.Unit)
		write(6, rec.Quantity.String())
		write(7, string(rec.Status))
		write(8, strings.Join(rec.ReviewReasons, "; "))

		if withPrices && rec.Price != nil {
			if rec.Price.UnitPrice != nil {
				write(9, rec.Price.UnitPrice.Decimal().StringFixed(2))
			}
			write(10, rec.Price.Currency)
			write(11, string(rec.Price.Status))
			write(12, rec.Price.Source)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 48)
	_ = f.SetColWidth(sheet, "C", "E", 16)
	_ = f.SetColWidth(sheet, "H", "H", 40)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("artifact.records.ok",
		"path", path,
		"rows", len(records),
		"priced", withPrices,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
