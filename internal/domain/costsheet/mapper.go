// Package costsheet renders priced BoM records into a customer's cost-sheet
// layout. Mapping is pure data transformation: the profile's column list
// drives the output shape, so new customers need no new code here.
package costsheet

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/profile"
)

// Mapper turns records into cost-sheet rows for one profile.
type Mapper struct {
	logger *slog.Logger
}

// NewMapper builds a Mapper.
func NewMapper(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{logger: logger}
}

// Map renders every record into one output row following the profile's
// column order. Record order is preserved, so output is deterministic for a
// given input. Unpriced records get blank price cells, never zeros: a zero
// is a real price, a blank is an unresolved one.
func (m *Mapper) Map(records []*bom.Record, prof *profile.Profile) [][]string {
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		row := make([]string, len(prof.Layout.Columns))
		for c, col := range prof.Layout.Columns {
			row[c] = m.cell(rec, col, i+1, prof)
		}
		rows = append(rows, row)
	}

	m.logger.Info("costsheet.map.ok",
		"profile", prof.ID,
		"rows", len(rows),
		"columns", len(prof.Layout.Columns),
	)
	return rows
}

func (m *Mapper) cell(rec *bom.Record, col profile.TemplateColumn, seq int, prof *profile.Profile) string {
	switch col.Role {
	case profile.RoleItemSeq:
		return strconv.Itoa(seq)
	case profile.RoleField:
		return fieldValue(rec, col.Field)
	case profile.RoleUnitPrice:
		if price, ok := unitPrice(rec, prof); ok {
			return price.StringFixed(prof.Rounding)
		}
		return ""
	case profile.RoleExtendedTotal:
		if price, ok := unitPrice(rec, prof); ok {
			return price.Mul(rec.Quantity).Round(prof.Rounding).StringFixed(prof.Rounding)
		}
		return ""
	case profile.RoleReview:
		if rec.Status == bom.StatusNeedsReview || len(rec.ReviewReasons) > 0 {
			return strings.Join(rec.ReviewReasons, "; ")
		}
		return ""
	}
	return ""
}

// unitPrice returns the record's unit price with the profile markup applied,
// and whether a price exists at all.
func unitPrice(rec *bom.Record, prof *profile.Profile) (decimal.Decimal, bool) {
	if rec.Price == nil || rec.Price.UnitPrice == nil {
		return decimal.Zero, false
	}
	price := rec.Price.UnitPrice.Decimal()
	if !prof.MarkupPercent.IsZero() {
		factor := decimal.NewFromInt(1).Add(prof.MarkupPercent.Div(decimal.NewFromInt(100)))
		price = price.Mul(factor)
	}
	return price.Round(prof.Rounding), true
}

func fieldValue(rec *bom.Record, f bom.CanonicalField) string {
	switch f {
	case bom.FieldPartNumber:
		return rec.PartNumber
	case bom.FieldDescription:
		return rec.Description
	case bom.FieldManufacturer:
		return rec.Manufacturer
	case bom.FieldReference:
		return rec.Reference
	case bom.FieldUnit:
		return rec.Unit
	case bom.FieldQuantity:
		return rec.Quantity.String()
	}
	return ""
}
