package artifact

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// PricedRow is the CSV representation of one priced record.
type PricedRow struct {
	PartNumber   string `csv:"part_number"`
	Description  string `csv:"description"`
	Manufacturer string `csv:"manufacturer"`
	Quantity     string `csv:"quantity"`
	Unit         string `csv:"unit"`
	Status       string `csv:"status"`
	UnitPrice    string `csv:"unit_price"`
	Currency     string `csv:"currency"`
	LookupStatus string `csv:"lookup_status"`
	ReviewNotes  string `csv:"review_notes"`
}

// WriteCSV exports priced records as CSV for downstream tooling.
func (w *Writer) WriteCSV(path string, records []*bom.Record) error {
	rows := make([]*PricedRow, 0, len(records))
	for _, rec := range records {
		row := &PricedRow{
			PartNumber:   rec.PartNumber,
			Description:  rec.Description,
			Manufacturer: rec.Manufacturer,
			Quantity:     rec.Quantity.String(),
			Unit:         rec.Unit,
			Status:       string(rec.Status),
			ReviewNotes:  strings.Join(rec.ReviewReasons, "; "),
		}
		if rec.Price != nil {
			row.LookupStatus = string(rec.Price.Status)
			row.Currency = rec.Price.Currency
			if rec.Price.UnitPrice != nil {
				row.UnitPrice = rec.Price.UnitPrice.Decimal().StringFixed(2)
			}
		}
		rows = append(rows, row)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}

	w.logger.Info("artifact.csv.ok", "path", path, "rows", len(rows))
	return nil
}
