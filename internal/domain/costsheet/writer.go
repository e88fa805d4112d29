package costsheet

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/profile"
)

// Writer saves rendered cost-sheet rows as an XLSX workbook. When the
// profile names a template file, data is filled into it below the header
// row, preserving the template's branding and formulas. Otherwise a plain
// workbook is built from the layout.
type Writer struct {
	logger *slog.Logger
}

// NewWriter builds a cost-sheet writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write saves the cost sheet to path.
func (w *Writer) Write(path string, rows [][]string, prof *profile.Profile) error {
	start := time.Now()

	f, sheet, err := w.open(prof)
	if err != nil {
		return err
	}
	defer f.Close()

	headerRow := prof.Layout.HeaderRow
	for i, col := range prof.Layout.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	for r, row := range rows {
		for c, value := range row {
			if value == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, headerRow+1+r)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("cost sheet write: %w", err)
	}

	w.logger.Info("costsheet.write.ok",
		"path", path,
		"profile", prof.ID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// open returns the workbook and target sheet, from the template when one is
// configured.
func (w *Writer) open(prof *profile.Profile) (*excelize.File, string, error) {
	sheet := prof.Layout.SheetName
	if sheet == "" {
		sheet = "Cost Sheet"
	}

	if tmpl := prof.Layout.TemplateFile; tmpl != "" {
		f, err := excelize.OpenFile(tmpl)
		if err != nil {
			return nil, "", fmt.Errorf("open template %s: %w", tmpl, err)
		}
		if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
			// Fall back to the template's first sheet rather than failing
			// on a renamed tab.
			sheet = f.GetSheetName(0)
			w.logger.Warn("costsheet.template.sheet.fallback",
				"template", tmpl, "sheet", sheet)
		}
		return f, sheet, nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	// Column widths sized to the widest expected content per role.
	for i, col := range prof.Layout.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := 16.0
		switch {
		case col.Role == profile.RoleReview:
			width = 40
		case col.Field == bom.FieldDescription:
			width = 48
		case strings.Contains(strings.ToUpper(col.Header), "PART"):
			width = 24
		}
		_ = f.SetColWidth(sheet, name, name, width)
	}
	return f, sheet, nil
}
