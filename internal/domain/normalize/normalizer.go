// Package normalize identifies header rows in raw table grids and maps
// source columns onto canonical BoM fields. Garbled or headerless grids are
// flagged for review and passed through with a positional best-guess
// mapping, never silently dropped.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/profile"
)

// Config holds header-detection policy. The threshold and fallback mapping
// are configurable, not fixed constants.
type Config struct {
	ScanRows      int     // rows to scan for a header (small K)
	MinScore      int     // minimum distinct field matches to accept a header
	FuzzyMinScore int     // 0-100 similarity floor for fuzzy label matching
	MinConfidence float64 // mappings below this are flagged for review
}

// DefaultConfig mirrors the documented policy defaults.
func DefaultConfig() Config {
	return Config{ScanRows: 5, MinScore: 2, FuzzyMinScore: 80, MinConfidence: 0.5}
}

// Table is the normalized form of one grid: a column mapping plus data rows.
type Table struct {
	GridID      string
	Page        int
	Mapping     bom.ColumnMapping
	Rows        [][]string
	SplitColumn int // column holding a combined MFG/PART value, -1 when none
	NeedsReview bool
	// DroppedHeaders counts repeated header rows removed from the body.
	DroppedHeaders int
	// DroppedNoise counts non-table rows above the detected header.
	DroppedNoise int
}

// Normalizer detects headers and builds column mappings.
type Normalizer struct {
	cfg    Config
	logger *slog.Logger
}

// NewNormalizer builds a Normalizer.
func NewNormalizer(cfg Config, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScanRows <= 0 {
		cfg.ScanRows = DefaultConfig().ScanRows
	}
	return &Normalizer{cfg: cfg, logger: logger}
}

// Normalize maps one grid's columns onto canonical fields. A grid whose
// best header row scores below the threshold is passed through with a
// positional mapping and flagged for review. A detected header that lacks
// a part-number column is a structural error: no valid records can come
// from it and the caller must surface that, not skip it.
func (n *Normalizer) Normalize(grid bom.TableGrid, prof *profile.Profile) (*Table, error) {
	if len(grid.Rows) == 0 {
		return nil, bom.NewStructuralError("normalize", "empty grid", nil)
	}

	synonyms := baseSynonyms
	if prof != nil {
		synonyms = mergedSynonyms(prof.HeaderSynonyms)
	}

	headerIdx, fields, score := n.detectHeader(grid.Rows, synonyms)

	out := &Table{GridID: grid.ID.String(), Page: grid.Page, SplitColumn: -1}

	if score < n.cfg.MinScore {
		// Best-guess positional fallback: surface the table for manual
		// correction instead of dropping it.
		out.Mapping = positionalMapping(grid.Rows)
		out.Rows = grid.Rows
		out.NeedsReview = true
		n.logger.Warn("normalize.header.fallback",
			"table", out.GridID, "page", grid.Page, "best_score", score)
		return out, nil
	}

	mapping := bom.ColumnMapping{
		Columns:   make(map[bom.CanonicalField]int, len(fields)),
		HeaderRow: headerIdx,
	}
	for col, f := range fields {
		if f == "" {
			continue
		}
		if _, taken := mapping.Columns[f]; !taken {
			mapping.Columns[f] = col
		}
	}

	// Combined MFG/PART column: split later when the profile allows it.
	if prof != nil && prof.SplitMfgPart {
		if _, hasPart := mapping.Columns[bom.FieldPartNumber]; !hasPart {
			for col, cell := range grid.Rows[headerIdx] {
				if combinedMfgPartRE.MatchString(cell) {
					out.SplitColumn = col
					mapping.Columns[bom.FieldPartNumber] = col
					mapping.Columns[bom.FieldManufacturer] = col
					break
				}
			}
		}
	}

	if _, ok := mapping.Columns[bom.FieldPartNumber]; !ok {
		return nil, &bom.StructuralError{
			Stage: "normalize",
			Page:  grid.Page,
			Table: grid.ID,
			Msg:   "header detected but no part number column mapped",
		}
	}

	matched := 0
	for _, f := range bom.CoreFields {
		if _, ok := mapping.Columns[f]; ok {
			matched++
		}
	}
	mapping.Confidence = float64(matched) / float64(len(bom.CoreFields))
	out.Mapping = mapping
	out.NeedsReview = mapping.Confidence < n.cfg.MinConfidence
	out.DroppedNoise = headerIdx

	header := trimmedRow(grid.Rows[headerIdx])
	for _, row := range grid.Rows[headerIdx+1:] {
		// Repeated headers from multi-page tables are not data.
		if rowsEqual(trimmedRow(row), header) {
			out.DroppedHeaders++
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	n.logger.Info("normalize.ok",
		"table", out.GridID,
		"page", grid.Page,
		"header_row", headerIdx,
		"confidence", fmt.Sprintf("%.2f", mapping.Confidence),
		"data_rows", len(out.Rows),
		"dropped_headers", out.DroppedHeaders,
	)
	return out, nil
}

// detectHeader scans the first K rows and returns the row maximizing
// distinct canonical-field matches, the per-column field assignment of that
// row, and its score. Ties prefer the row with more distinct non-empty cells.
func (n *Normalizer) detectHeader(rows [][]string, synonyms map[bom.CanonicalField][]string) (int, []bom.CanonicalField, int) {
	limit := n.cfg.ScanRows
	if limit > len(rows) {
		limit = len(rows)
	}

	bestIdx, bestScore, bestDistinct := 0, -1, -1
	var bestFields []bom.CanonicalField

	for idx := 0; idx < limit; idx++ {
		fields := make([]bom.CanonicalField, len(rows[idx]))
		seen := make(map[bom.CanonicalField]bool)
		distinct := make(map[string]bool)

		for col, cell := range rows[idx] {
			label := normalizeLabel(cell)
			if label == "" {
				continue
			}
			distinct[label] = true
			if f, ok := n.matchField(label, synonyms); ok && !seen[f] {
				fields[col] = f
				seen[f] = true
			}
		}

		score := len(seen)
		if score > bestScore || (score == bestScore && len(distinct) > bestDistinct) {
			bestIdx, bestScore, bestDistinct = idx, score, len(distinct)
			bestFields = fields
		}
	}

	return bestIdx, bestFields, bestScore
}

// matchField resolves a normalized header label to a canonical field:
// exact dictionary hit first, then containment, then a bounded-distance
// fuzzy match to absorb OCR damage.
func (n *Normalizer) matchField(label string, synonyms map[bom.CanonicalField][]string) (bom.CanonicalField, bool) {
	for _, f := range fieldOrder {
		for _, syn := range synonyms[f] {
			if label == syn {
				return f, true
			}
		}
	}
	for _, f := range fieldOrder {
		for _, syn := range synonyms[f] {
			if len(syn) >= 3 && strings.Contains(label, syn) {
				return f, true
			}
		}
	}
	for _, f := range fieldOrder {
		for _, syn := range synonyms[f] {
			if len(syn) < 4 {
				continue
			}
			maxDist := len(syn) * (100 - n.cfg.FuzzyMinScore) / 100
			if maxDist < 1 {
				maxDist = 1
			}
			if rank := fuzzy.RankMatchNormalizedFold(syn, label); rank >= 0 && rank <= maxDist {
				return f, true
			}
		}
	}
	return "", false
}

// positionalMapping is the documented fallback: first column is the part
// number, then description, then quantity.
func positionalMapping(rows [][]string) bom.ColumnMapping {
	cols := modalWidth(rows)
	m := bom.ColumnMapping{
		Columns:    map[bom.CanonicalField]int{bom.FieldPartNumber: 0},
		HeaderRow:  -1,
		Positional: true,
	}
	if cols > 1 {
		m.Columns[bom.FieldDescription] = 1
	}
	if cols > 2 {
		m.Columns[bom.FieldQuantity] = 2
	}
	return m
}

func modalWidth(rows [][]string) int {
	counts := make(map[int]int)
	for _, row := range rows {
		counts[len(row)]++
	}
	best, bestCount := 0, 0
	for n, c := range counts {
		if c > bestCount || (c == bestCount && n > best) {
			best, bestCount = n, c
		}
	}
	return best
}

func trimmedRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func rowsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
