// Package profile defines company profiles: the header-label synonyms,
// reject keywords, and target cost-sheet layout for one customer. New
// customers are added as data, not new control flow.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// ColumnRole describes what a template column holds.
type ColumnRole string

const (
	// RoleField copies a canonical record field.
	RoleField ColumnRole = "field"
	// RoleItemSeq writes a sequential item number when the source has none.
	RoleItemSeq ColumnRole = "item_seq"
	// RoleUnitPrice writes the resolved unit price, blank when unpriced.
	RoleUnitPrice ColumnRole = "unit_price"
	// RoleExtendedTotal writes quantity × unit price, blank when unpriced.
	RoleExtendedTotal ColumnRole = "extended_total"
	// RoleReview writes the review flag and reasons.
	RoleReview ColumnRole = "review"
)

// TemplateColumn is one column of the target cost sheet, in output order.
type TemplateColumn struct {
	Header string             `json:"header"`
	Role   ColumnRole         `json:"role"`
	Field  bom.CanonicalField `json:"field,omitempty"` // set when Role == field
}

// Layout is the target spreadsheet shape for a customer's cost sheet.
type Layout struct {
	SheetName    string           `json:"sheet_name"`
	HeaderRow    int              `json:"header_row"` // 1-based row holding the headers
	TemplateFile string           `json:"template_file,omitempty"`
	Columns      []TemplateColumn `json:"columns"`
}

// Profile is an immutable per-customer configuration, loaded once per run.
type Profile struct {
	ID             string                            `json:"id"`
	Name           string                            `json:"name"`
	HeaderSynonyms map[bom.CanonicalField][]string   `json:"header_synonyms,omitempty"`
	RejectKeywords []string                          `json:"reject_keywords,omitempty"`
	DetectKeywords []string                          `json:"detect_keywords,omitempty"`
	SplitMfgPart   bool                              `json:"split_mfg_part,omitempty"`
	Currency       string                            `json:"currency"`
	Rounding       int32                             `json:"rounding"` // decimal places for totals
	MarkupPercent  decimal.Decimal                   `json:"markup_percent"`
	Layout         Layout                            `json:"layout"`
}

// Validate checks the structural requirements a run depends on.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if len(p.Layout.Columns) == 0 {
		return fmt.Errorf("profile %s: layout has no columns", p.ID)
	}
	if p.Layout.HeaderRow <= 0 {
		return fmt.Errorf("profile %s: layout header row must be positive", p.ID)
	}
	hasPart := false
	for _, col := range p.Layout.Columns {
		if col.Role == RoleField && col.Field == bom.FieldPartNumber {
			hasPart = true
		}
	}
	if !hasPart {
		return fmt.Errorf("profile %s: layout has no part number column", p.ID)
	}
	return nil
}

// Rejects reports whether a row's joined text hits any reject keyword.
// Reject keywords mark decorative or boilerplate rows (drawing notes,
// confidentiality banners) that must be routed to review.
func (p *Profile) Rejects(cells []string) bool {
	if len(p.RejectKeywords) == 0 {
		return false
	}
	joined := strings.ToUpper(strings.Join(cells, " "))
	for _, kw := range p.RejectKeywords {
		if strings.Contains(joined, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// LoadFile reads a custom profile from a JSON file.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
