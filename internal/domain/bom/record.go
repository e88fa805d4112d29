// Package bom holds the canonical data model shared by every pipeline stage:
// extracted table grids, column mappings, BoM records, and price lookup results.
package bom

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partstream/bomsheet/pkg/money"
)

// ExtractionMethod identifies which strategy produced a table grid.
type ExtractionMethod string

const (
	// MethodLines is structural extraction driven by ruling lines.
	MethodLines ExtractionMethod = "lines"
	// MethodText is stream extraction driven by text alignment.
	MethodText ExtractionMethod = "text"
)

// TableGrid is one candidate table region extracted from a PDF page.
// Rows are raw cell text, immutable after extraction.
type TableGrid struct {
	ID     uuid.UUID
	Page   int // 1-based page number
	Rows   [][]string
	Method ExtractionMethod
}

// NewTableGrid creates a grid with a fresh identifier.
func NewTableGrid(page int, rows [][]string, method ExtractionMethod) TableGrid {
	return TableGrid{ID: uuid.New(), Page: page, Rows: rows, Method: method}
}

// NonEmptyCells counts cells with non-blank content.
func (g TableGrid) NonEmptyCells() int {
	n := 0
	for _, row := range g.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				n++
			}
		}
	}
	return n
}

// CanonicalField is a normalized schema field every table column maps to.
type CanonicalField string

const (
	FieldPartNumber    CanonicalField = "part_number"
	FieldDescription   CanonicalField = "description"
	FieldQuantity      CanonicalField = "quantity"
	FieldUnit          CanonicalField = "unit"
	FieldManufacturer  CanonicalField = "manufacturer"
	FieldItem          CanonicalField = "item"
	FieldReference     CanonicalField = "reference"
	FieldUnitPriceHint CanonicalField = "unit_price_hint"
)

// CoreFields are the fields that drive mapping confidence.
var CoreFields = []CanonicalField{
	FieldPartNumber,
	FieldDescription,
	FieldQuantity,
	FieldUnit,
}

// ColumnMapping maps canonical fields to source column indices for one table.
type ColumnMapping struct {
	Columns    map[CanonicalField]int
	HeaderRow  int     // row index of the detected header, -1 when positional
	Confidence float64 // fraction of core fields matched
	Positional bool    // true when the best-guess fallback mapping was used
}

// Column returns the source column index for a field and whether it is mapped.
func (m ColumnMapping) Column(f CanonicalField) (int, bool) {
	idx, ok := m.Columns[f]
	return idx, ok
}

// Cell returns the trimmed cell for a mapped field, or "" when unmapped or
// the row is too short.
func (m ColumnMapping) Cell(row []string, f CanonicalField) string {
	idx, ok := m.Columns[f]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// RecordStatus is the lifecycle state of a BoM record within one run.
type RecordStatus string

const (
	StatusPending     RecordStatus = "pending"
	StatusValid       RecordStatus = "valid"
	StatusNeedsReview RecordStatus = "needs_review"
	StatusPriced      RecordStatus = "priced"
	StatusUnpriced    RecordStatus = "unpriced"
)

// LookupStatus classifies the outcome of one price lookup.
type LookupStatus string

const (
	LookupFound    LookupStatus = "found"
	LookupNotFound LookupStatus = "not_found"
	LookupError    LookupStatus = "error"
)

// PriceResult is the outcome of resolving one part number against the
// pricing source. Attached 1:1 to every non-pending record that reached
// the pricing stage.
type PriceResult struct {
	PartNumber string        `json:"part_number"`
	UnitPrice  *money.Money  `json:"unit_price,omitempty"`
	Currency   string        `json:"currency,omitempty"`
	Status     LookupStatus  `json:"lookup_status"`
	Source     string        `json:"source_identifier"`
}

// Record is the canonical unit of work flowing through the pipeline.
// Single-owner per stage; never mutated concurrently.
type Record struct {
	PartNumber    string
	Description   string
	Manufacturer  string
	Reference     string // customer part number or designator, when mapped
	Unit          string
	Quantity      decimal.Decimal
	SourceTableID uuid.UUID
	SourceRow     int // row index within the source table's data rows
	Status        RecordStatus
	ReviewReasons []string
	Price         *PriceResult
}

// FlagReview routes the record to the needs-review bucket with a reason.
// Priced/unpriced records keep their pricing status; the reason is still
// recorded for the report.
func (r *Record) FlagReview(reason string) {
	if r.Status == StatusPending || r.Status == StatusValid {
		r.Status = StatusNeedsReview
	}
	r.ReviewReasons = append(r.ReviewReasons, reason)
}

// AttachPrice records a lookup result and advances the status: found ⇒
// priced, anything else ⇒ unpriced. Records flagged for review keep the
// needs_review status so the flag stays visible in artifact status columns;
// the lookup outcome is still carried on the attached result.
func (r *Record) AttachPrice(res *PriceResult) {
	r.Price = res
	if r.Status == StatusNeedsReview {
		return
	}
	if res != nil && res.Status == LookupFound {
		r.Status = StatusPriced
	} else {
		r.Status = StatusUnpriced
	}
}

// ExtendedTotal computes quantity × unit price, or nil when no price is
// attached. The caller applies profile rounding and markup.
func (r *Record) ExtendedTotal() *decimal.Decimal {
	if r.Price == nil || r.Price.UnitPrice == nil {
		return nil
	}
	total := r.Price.UnitPrice.Decimal().Mul(r.Quantity)
	return &total
}

// StructuralError is a fatal pipeline error: the run cannot produce output.
// Stage-local data issues are never structural.
type StructuralError struct {
	Stage string
	Page  int       // 0 when not page-scoped
	Table uuid.UUID // uuid.Nil when not table-scoped
	Msg   string
	Err   error
}

func (e *StructuralError) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage)
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Page > 0 {
		fmt.Fprintf(&b, " (page %d)", e.Page)
	}
	if e.Table != uuid.Nil {
		fmt.Fprintf(&b, " (table %s)", e.Table)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StructuralError) Unwrap() error { return e.Err }

// NewStructuralError builds a fatal error scoped to a pipeline stage.
func NewStructuralError(stage, msg string, err error) *StructuralError {
	return &StructuralError{Stage: stage, Msg: msg, Err: err}
}
