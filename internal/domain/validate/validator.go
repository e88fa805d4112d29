// Package validate turns normalized table rows into canonical BoM records,
// enforcing row-level invariants. The validator only classifies: every row
// survives as a record (valid or needs-review) except exact duplicates,
// which are counted and reported as explicit exclusions.
package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/normalize"
	"github.com/partstream/bomsheet/internal/domain/profile"
)

// decorativeRE matches identifiers that are visual separators, not parts:
// runs of dashes, asterisks, underscores, dots, pipes.
var decorativeRE = regexp.MustCompile(`^[-=*_~.|/\\\s]+$`)

// Config holds validation policy.
type Config struct {
	// DefaultQuantity enables defaulting an absent quantity to 1 without
	// flagging the row. Unparsable quantities always flag.
	DefaultQuantity bool
}

// Stats summarizes one table's validation for the run report.
type Stats struct {
	Valid       int
	NeedsReview int
	Duplicates  int // exact-duplicate rows excluded, first kept
}

// Validator classifies rows into valid / needs-review records.
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

// NewValidator builds a Validator.
func NewValidator(cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{cfg: cfg, logger: logger}
}

// Validate converts one normalized table into records. tableID ties records
// back to their source grid for traceability.
func (v *Validator) Validate(table *normalize.Table, prof *profile.Profile, tableID uuid.UUID) ([]*bom.Record, Stats) {
	var (
		records []*bom.Record
		stats   Stats
		seen    = make(map[string]bool)
	)

	for i, row := range table.Rows {
		rec := &bom.Record{
			SourceTableID: tableID,
			SourceRow:     i,
			Status:        bom.StatusPending,
			Description:   table.Mapping.Cell(row, bom.FieldDescription),
			Manufacturer:  table.Mapping.Cell(row, bom.FieldManufacturer),
			Reference:     table.Mapping.Cell(row, bom.FieldReference),
			Unit:          table.Mapping.Cell(row, bom.FieldUnit),
		}

		part := table.Mapping.Cell(row, bom.FieldPartNumber)
		if table.SplitColumn >= 0 && table.SplitColumn < len(row) {
			mfg, pn := splitMfgPart(row[table.SplitColumn])
			if pn != "" {
				part = pn
				rec.Manufacturer = mfg
			}
		}
		rec.PartNumber = strings.ToUpper(strings.TrimSpace(part))

		switch {
		case rec.PartNumber == "":
			rec.FlagReview("empty part identifier")
		case decorativeRE.MatchString(rec.PartNumber):
			rec.FlagReview("decorative separator row")
		}

		if prof != nil && prof.Rejects(row) {
			rec.FlagReview("matches profile reject keyword")
		}

		rec.Quantity = v.parseQuantity(table.Mapping.Cell(row, bom.FieldQuantity), rec)

		if table.NeedsReview {
			rec.FlagReview("low-confidence column mapping")
		}

		// Exact duplicates within one table: keep the first occurrence.
		key := rec.PartNumber + "\x00" + rec.Description + "\x00" + rec.Quantity.String()
		if rec.PartNumber != "" && seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true

		if rec.Status == bom.StatusPending {
			rec.Status = bom.StatusValid
			stats.Valid++
		} else {
			stats.NeedsReview++
		}
		records = append(records, rec)
	}

	v.logger.Info("validate.ok",
		"table", tableID.String(),
		"rows", len(table.Rows),
		"valid", stats.Valid,
		"needs_review", stats.NeedsReview,
		"duplicates", stats.Duplicates,
	)
	return records, stats
}

// parseQuantity parses the quantity cell, defaulting to 1 under policy.
// Unparsable or non-positive values flag the record for review.
func (v *Validator) parseQuantity(raw string, rec *bom.Record) decimal.Decimal {
	one := decimal.NewFromInt(1)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		if !v.cfg.DefaultQuantity {
			rec.FlagReview("missing quantity")
		}
		return one
	}

	cleaned := strings.ReplaceAll(raw, ",", "")
	// Each-unit suffixes appear in any case: "10 EA", "3 ea".
	if n := len(cleaned); n > 2 && strings.EqualFold(cleaned[n-2:], "EA") {
		cleaned = strings.TrimSpace(cleaned[:n-2])
	}
	q, err := decimal.NewFromString(cleaned)
	if err != nil {
		rec.FlagReview(fmt.Sprintf("unparsable quantity %q", raw))
		return one
	}
	if q.Sign() <= 0 {
		rec.FlagReview(fmt.Sprintf("non-positive quantity %q", raw))
		return one
	}
	return q
}

// splitMfgPart splits a combined "MFG/PART" cell into its halves.
func splitMfgPart(cell string) (mfg, part string) {
	before, after, ok := strings.Cut(cell, "/")
	if !ok {
		return "", strings.TrimSpace(cell)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
