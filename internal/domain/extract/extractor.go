// Package extract locates candidate tabular regions in a PDF and emits raw
// grids of text cells, one TableGrid per detected region. Pages are
// independent and extracted concurrently; results are recombined in page
// order so downstream stages see a deterministic sequence.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// Mode trades recall for precision when filtering candidate regions.
// Aggressive admits more stray text blocks; conservative keeps only grids
// that already look like tables.
type Mode string

const (
	ModeConservative Mode = "conservative"
	ModeBalanced     Mode = "balanced"
	ModeAggressive   Mode = "aggressive"
)

// ParseMode validates a detection-mode selector.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeConservative:
		return ModeConservative, nil
	case ModeBalanced, "":
		return ModeBalanced, nil
	case ModeAggressive:
		return ModeAggressive, nil
	}
	return "", fmt.Errorf("unknown detection mode %q", s)
}

// minSize returns the smallest grid shape the mode accepts and whether
// column counts must be consistent across rows.
func (m Mode) minSize() (rows, cols int, consistent bool) {
	switch m {
	case ModeConservative:
		return 3, 3, true
	case ModeAggressive:
		return 1, 2, false
	default:
		return 2, 2, false
	}
}

// Preprocessor is the optional OCR collaborator for scanned documents. It
// returns the path of a text-layer PDF to extract from instead of the input.
type Preprocessor interface {
	Preprocess(ctx context.Context, pdfPath string, pages []int) (string, error)
}

// NopPreprocessor passes the input through untouched.
type NopPreprocessor struct{}

func (NopPreprocessor) Preprocess(_ context.Context, pdfPath string, _ []int) (string, error) {
	return pdfPath, nil
}

// PageWarning records a page that was skipped after an engine failure.
type PageWarning struct {
	Page int    `json:"page"`
	Msg  string `json:"message"`
}

// Result is the ordered outcome of one extraction pass.
type Result struct {
	Grids    []bom.TableGrid
	Warnings []PageWarning
	DocText  string // concatenated page text, used for profile auto-detection
}

// Extractor runs the table engine over a page set.
type Extractor struct {
	open    OpenEngine
	pre     Preprocessor
	workers int
	logger  *slog.Logger
}

// NewExtractor builds an Extractor. open is typically OpenPDF; pre may be
// nil for no OCR pre-processing.
func NewExtractor(open OpenEngine, pre Preprocessor, workers int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if pre == nil {
		pre = NopPreprocessor{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Extractor{open: open, pre: pre, workers: workers, logger: logger}
}

// Extract detects tables on the pages named by pageExpr. A page with no
// detectable table contributes nothing; a page where the engine fails is
// skipped with a warning. Only an unreadable document or an invalid page
// range is an error. When manual is non-nil, extraction is constrained to
// that region and both strategies are raced, keeping the larger
// well-formed grid.
func (x *Extractor) Extract(ctx context.Context, pdfPath, pageExpr string, mode Mode, manual *Region) (*Result, error) {
	prepared, err := x.pre.Preprocess(ctx, pdfPath, nil)
	if err != nil {
		// OCR is best-effort: fall back to the raw document.
		x.logger.Warn("extract.preprocess.failed", "pdf", pdfPath, "err", err)
		prepared = pdfPath
	}

	eng, err := x.open(prepared)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	pages, err := ParsePageRange(pageExpr, eng.PageCount())
	if err != nil {
		return nil, bom.NewStructuralError("extract", "invalid page range", err)
	}

	if manual != nil {
		return x.extractManual(ctx, eng, manual)
	}

	type pageResult struct {
		grids []Grid
		text  string
		warn  *PageWarning
	}
	results := make([]pageResult, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i, page := range pages {
		g.Go(func() error {
			grids, gerr := eng.Tables(gctx, page, StrategyLines, nil)
			if gerr == nil && len(grids) == 0 {
				// No ruled tables: fall back to the text-stream strategy.
				grids, gerr = eng.Tables(gctx, page, StrategyText, nil)
			}
			if gerr != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i].warn = &PageWarning{Page: page, Msg: gerr.Error()}
				return nil
			}
			results[i].grids = grids
			if text, terr := eng.PageText(gctx, page); terr == nil {
				results[i].text = text
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Recombine in page order regardless of completion order.
	res := &Result{}
	var docText strings.Builder
	for i, page := range pages {
		if results[i].warn != nil {
			x.logger.Warn("extract.page.skipped", "page", page, "err", results[i].warn.Msg)
			res.Warnings = append(res.Warnings, *results[i].warn)
			continue
		}
		docText.WriteString(results[i].text)
		docText.WriteByte('\n')
		for _, grid := range results[i].grids {
			if !x.keep(grid, mode) {
				continue
			}
			res.Grids = append(res.Grids, bom.NewTableGrid(page, grid.Rows, grid.Method))
		}
	}
	res.DocText = docText.String()

	x.logger.Info("extract.ok",
		"pdf", pdfPath,
		"pages", len(pages),
		"tables", len(res.Grids),
		"skipped_pages", len(res.Warnings),
	)
	return res, nil
}

// extractManual runs both strategies on the picked region and keeps the
// larger well-formed grid.
func (x *Extractor) extractManual(ctx context.Context, eng Engine, region *Region) (*Result, error) {
	var candidates []Grid
	for _, strategy := range []Strategy{StrategyLines, StrategyText} {
		grids, err := eng.Tables(ctx, region.Page, strategy, region)
		if err != nil {
			x.logger.Warn("extract.manual.strategy_failed", "page", region.Page, "strategy", strategy, "err", err)
			continue
		}
		candidates = append(candidates, grids...)
	}
	if len(candidates) == 0 {
		return nil, bom.NewStructuralError("extract",
			fmt.Sprintf("no table found in manual region on page %d", region.Page), nil)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return gridScore(candidates[i]) > gridScore(candidates[j])
	})
	best := candidates[0]

	res := &Result{Grids: []bom.TableGrid{bom.NewTableGrid(region.Page, best.Rows, best.Method)}}
	if text, err := eng.PageText(ctx, region.Page); err == nil {
		res.DocText = text
	}
	x.logger.Info("extract.manual.ok", "page", region.Page, "method", best.Method, "rows", len(best.Rows))
	return res, nil
}

// keep filters a candidate grid against the detection mode.
func (x *Extractor) keep(g Grid, mode Mode) bool {
	minRows, minCols, consistent := mode.minSize()
	if len(g.Rows) < minRows {
		return false
	}
	modal := modalColumns(g.Rows)
	if modal < minCols {
		return false
	}
	if consistent {
		matching := 0
		for _, row := range g.Rows {
			if len(row) == modal {
				matching++
			}
		}
		// Most rows must agree on the column count.
		if matching*2 < len(g.Rows) {
			return false
		}
	}
	return true
}

// gridScore ranks manual-region candidates: non-empty cells first, then
// rows matching the modal column count.
func gridScore(g Grid) int {
	nonEmpty := 0
	for _, row := range g.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
		}
	}
	modal := modalColumns(g.Rows)
	consistentRows := 0
	for _, row := range g.Rows {
		if len(row) == modal {
			consistentRows++
		}
	}
	return nonEmpty*10 + consistentRows
}

// modalColumns returns the most common row length.
func modalColumns(rows [][]string) int {
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
