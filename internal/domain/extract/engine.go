package extract

import (
	"context"
	"fmt"

	pdfplumber "github.com/pyhub-apps/pdfplumber-golang"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// Strategy selects how the engine finds table structure on a page.
type Strategy string

const (
	// StrategyLines uses ruling lines (structural extraction).
	StrategyLines Strategy = "lines"
	// StrategyText infers columns from text alignment (stream extraction).
	StrategyText Strategy = "text"
)

// Method maps an engine strategy to the grid's extraction method.
func (s Strategy) Method() bom.ExtractionMethod {
	if s == StrategyText {
		return bom.MethodText
	}
	return bom.MethodLines
}

// Region constrains extraction to an explicit area of one page, as drawn by
// the external region-picker.
type Region struct {
	Page   int
	X0, Y0 float64
	X1, Y1 float64
}

// Grid is one raw table found by the engine on a single page.
type Grid struct {
	Rows   [][]string
	Method bom.ExtractionMethod
}

// Engine is the PDF table-extraction collaborator. One Engine instance is
// scoped to one open document.
type Engine interface {
	// PageCount reports the number of pages in the document.
	PageCount() int
	// Tables extracts candidate tables from one page using the given
	// strategy, optionally constrained to a region on that page.
	Tables(ctx context.Context, page int, strategy Strategy, region *Region) ([]Grid, error)
	// PageText returns the plain text of a page, used for profile detection.
	PageText(ctx context.Context, page int) (string, error)
	// Close releases document resources.
	Close() error
}

// OpenEngine is the production factory: it opens a PDF with the pdfplumber
// engine. Returns a structural error when the document is unreadable.
type OpenEngine func(path string) (Engine, error)

// plumberEngine adapts pdfplumber-golang to the Engine interface.
type plumberEngine struct {
	doc pdfplumber.Document
}

// OpenPDF opens a PDF document for table extraction.
func OpenPDF(path string) (Engine, error) {
	doc, err := pdfplumber.Open(path)
	if err != nil {
		return nil, bom.NewStructuralError("extract", fmt.Sprintf("unreadable PDF %s", path), err)
	}
	return &plumberEngine{doc: doc}, nil
}

func (e *plumberEngine) PageCount() int { return e.doc.PageCount() }

func (e *plumberEngine) Tables(ctx context.Context, page int, strategy Strategy, region *Region) ([]Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := e.doc.GetPage(page - 1)
	if err != nil {
		return nil, fmt.Errorf("get page %d: %w", page, err)
	}

	if region != nil && region.Page == page {
		p = p.Crop(pdfplumber.BoundingBox{X0: region.X0, Y0: region.Y0, X1: region.X1, Y1: region.Y1})
	}

	tables := p.ExtractTables(pdfplumber.WithTableStrategy(string(strategy), string(strategy)))

	grids := make([]Grid, 0, len(tables))
	for _, t := range tables {
		if len(t.Rows) == 0 {
			continue
		}
		grids = append(grids, Grid{Rows: t.Rows, Method: strategy.Method()})
	}
	return grids, nil
}

func (e *plumberEngine) PageText(ctx context.Context, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := e.doc.GetPage(page - 1)
	if err != nil {
		return "", fmt.Errorf("get page %d: %w", page, err)
	}
	return p.ExtractText(), nil
}

func (e *plumberEngine) Close() error { return e.doc.Close() }
