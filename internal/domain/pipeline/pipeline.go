// Package pipeline orchestrates a full reconciliation run: extract tables
// from a PDF, normalize and validate them into records, resolve prices, and
// render the customer cost sheet. Stages advance through an explicit state
// machine; only a structural failure aborts a run, data-quality problems
// surface as warnings and review flags.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/costsheet"
	"github.com/partstream/bomsheet/internal/domain/extract"
	"github.com/partstream/bomsheet/internal/domain/normalize"
	"github.com/partstream/bomsheet/internal/domain/pricing"
	"github.com/partstream/bomsheet/internal/domain/profile"
	"github.com/partstream/bomsheet/internal/domain/validate"
	"github.com/partstream/bomsheet/pkg/artifact"
	"github.com/partstream/bomsheet/pkg/storage"
)

// State is one phase of a run.
type State string

const (
	StateIdle        State = "idle"
	StateExtracting  State = "extracting"
	StateNormalizing State = "normalizing"
	StateValidating  State = "validating"
	StatePricing     State = "pricing"
	StateMapping     State = "mapping"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// EventSink receives run progress. Implementations must be fast; they are
// called synchronously between stages.
type EventSink interface {
	StateChanged(old, new State)
	Warning(msg string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) StateChanged(_, _ State) {}
func (NopSink) Warning(string)          {}

// Selector lets an operator confirm or narrow the extracted tables before
// normalization. The default keeps everything.
type Selector interface {
	SelectTables(grids []bom.TableGrid) []bom.TableGrid
}

// KeepAll is the non-interactive selector.
type KeepAll struct{}

func (KeepAll) SelectTables(grids []bom.TableGrid) []bom.TableGrid { return grids }

// Request describes one reconciliation run.
type Request struct {
	PDFPath     string
	Pages       string // page-range expression, e.g. "2-4" or "all"
	Mode        extract.Mode
	ProfileID   string          // builtin profile; empty enables auto-detection
	ProfilePath string          // custom profile JSON, overrides ProfileID
	Manual      *extract.Region // manual table region, skips detection
	OutputDir   string          // empty: write beside the input PDF
	SkipPricing bool
}

// Report is the machine-readable outcome of one run. The row counters form
// an accounting identity: rows_extracted = rows_valid + rows_needs_review +
// duplicates_removed + header_rows + noise_rows_removed +
// repeated_headers_removed + dropped_table_rows. No extracted row ever
// leaves the run without an entry here.
type Report struct {
	Profile                string                `json:"profile"`
	TablesFound            int                   `json:"tables_found"`
	RowsExtracted          int                   `json:"rows_extracted"`
	RowsValid              int                   `json:"rows_valid"`
	RowsNeedsReview        int                   `json:"rows_needs_review"`
	DuplicatesRemoved      int                   `json:"duplicates_removed"`
	HeaderRows             int                   `json:"header_rows"`
	NoiseRowsRemoved       int                   `json:"noise_rows_removed"`
	RepeatedHeadersRemoved int                   `json:"repeated_headers_removed"`
	DroppedTableRows       int                   `json:"dropped_table_rows"`
	PartsPriced            int                   `json:"parts_priced"`
	PartsUnpriced          int                   `json:"parts_unpriced"`
	PartsError             int                   `json:"parts_error"`
	OutputPath             string                `json:"output_path"`
	Artifacts              []string              `json:"artifacts"`
	Warnings               []string              `json:"warnings,omitempty"`
	SkippedPages           []extract.PageWarning `json:"skipped_pages,omitempty"`
	ElapsedMS              int64                 `json:"elapsed_ms"`
}

// Runner wires the pipeline stages together.
type Runner struct {
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	validator  *validate.Validator
	resolver   *pricing.Resolver // nil disables the pricing stage
	mapper     *costsheet.Mapper
	sheets     *costsheet.Writer
	artifacts  *artifact.Writer
	detector   *profile.Detector
	archive    *storage.Archive // nil disables run archiving
	sink       EventSink
	selector   Selector
	logger     *slog.Logger

	state State
}

// WithArchive enables copying each completed run's artifacts into the
// archive. Archiving is best-effort: a failure warns, it never fails a run
// whose outputs are already on disk.
func (r *Runner) WithArchive(a *storage.Archive) *Runner {
	r.archive = a
	return r
}

// NewRunner builds a Runner. resolver may be nil when no pricing source is
// configured; sink and selector may be nil for non-interactive runs.
func NewRunner(
	extractor *extract.Extractor,
	normalizer *normalize.Normalizer,
	validator *validate.Validator,
	resolver *pricing.Resolver,
	mapper *costsheet.Mapper,
	sheets *costsheet.Writer,
	artifacts *artifact.Writer,
	detector *profile.Detector,
	sink EventSink,
	selector Selector,
	logger *slog.Logger,
) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	if selector == nil {
		selector = KeepAll{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		extractor:  extractor,
		normalizer: normalizer,
		validator:  validator,
		resolver:   resolver,
		mapper:     mapper,
		sheets:     sheets,
		artifacts:  artifacts,
		detector:   detector,
		sink:       sink,
		selector:   selector,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the current run phase.
func (r *Runner) State() State { return r.state }

func (r *Runner) transition(to State) {
	old := r.state
	r.state = to
	r.sink.StateChanged(old, to)
	r.logger.Info("pipeline.state", "from", string(old), "to", string(to))
}

func (r *Runner) warn(report *Report, msg string) {
	report.Warnings = append(report.Warnings, msg)
	r.sink.Warning(msg)
}

// Run executes a full reconciliation. The returned report is non-nil even on
// failure so callers can surface partial progress.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report := &Report{}

	err := r.run(ctx, req, report)
	report.ElapsedMS = time.Since(start).Milliseconds()
	if err != nil {
		r.transition(StateFailed)
		return report, err
	}
	r.transition(StateComplete)
	return report, nil
}

func (r *Runner) run(ctx context.Context, req Request, report *Report) error {
	// Extract.
	r.transition(StateExtracting)
	res, err := r.extractor.Extract(ctx, req.PDFPath, req.Pages, req.Mode, req.Manual)
	if err != nil {
		return err
	}
	report.SkippedPages = res.Warnings
	for _, w := range res.Warnings {
		r.warn(report, fmt.Sprintf("page %d skipped: %s", w.Page, w.Msg))
	}

	grids := r.selector.SelectTables(res.Grids)
	report.TablesFound = len(grids)
	if len(grids) == 0 {
		return bom.NewStructuralError("extract", "no tables detected", nil)
	}
	for _, g := range grids {
		report.RowsExtracted += len(g.Rows)
	}

	prof, err := r.pickProfile(req, res.DocText, report)
	if err != nil {
		return err
	}
	report.Profile = prof.ID

	path, aerr := r.saveArtifact(req, artifact.SuffixExtracted, func(p string) error {
		return r.artifacts.WriteGrids(p, grids)
	})
	if aerr != nil {
		return aerr
	}
	report.Artifacts = append(report.Artifacts, path)

	// Normalize.
	r.transition(StateNormalizing)
	gridByTable := make(map[string]bom.TableGrid, len(grids))
	var tables []*normalize.Table
	for _, grid := range grids {
		table, nerr := r.normalizer.Normalize(grid, prof)
		if nerr != nil {
			// A single malformed table degrades the run, it does not end it.
			// Its rows are counted as explicit exclusions.
			report.DroppedTableRows += len(grid.Rows)
			r.warn(report, fmt.Sprintf("table on page %d dropped: %v", grid.Page, nerr))
			continue
		}
		if table.Mapping.HeaderRow >= 0 {
			report.HeaderRows++
		}
		report.NoiseRowsRemoved += table.DroppedNoise
		report.RepeatedHeadersRemoved += table.DroppedHeaders
		gridByTable[table.GridID] = grid
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return bom.NewStructuralError("normalize", "no table produced a usable column mapping", nil)
	}

	// Validate.
	r.transition(StateValidating)
	var records []*bom.Record
	for _, table := range tables {
		id := gridByTable[table.GridID].ID
		recs, stats := r.validator.Validate(table, prof, id)
		records = append(records, recs...)
		report.RowsValid += stats.Valid
		report.RowsNeedsReview += stats.NeedsReview
		report.DuplicatesRemoved += stats.Duplicates
	}

	path, aerr = r.saveArtifact(req, artifact.SuffixMerged, func(p string) error {
		return r.artifacts.WriteRecords(p, records, false)
	})
	if aerr != nil {
		return aerr
	}
	report.Artifacts = append(report.Artifacts, path)

	// Price.
	if r.resolver != nil && !req.SkipPricing {
		r.transition(StatePricing)
		outcome := r.resolver.Resolve(ctx, records)
		report.PartsPriced = outcome.PartsFound
		report.PartsUnpriced = outcome.PartsAbsent
		report.PartsError = outcome.PartsFailed
		for _, w := range outcome.Warnings {
			r.warn(report, w)
		}

		path, aerr = r.saveArtifact(req, artifact.SuffixPriced, func(p string) error {
			return r.artifacts.WriteRecords(p, records, true)
		})
		if aerr != nil {
			return aerr
		}
		report.Artifacts = append(report.Artifacts, path)

		path, aerr = r.saveArtifact(req, artifact.SuffixPricedCSV, func(p string) error {
			return r.artifacts.WriteCSV(p, records)
		})
		if aerr != nil {
			return aerr
		}
		report.Artifacts = append(report.Artifacts, path)
	} else if !req.SkipPricing {
		r.warn(report, "no pricing source configured; records left unpriced")
	}

	// Map.
	r.transition(StateMapping)
	rows := r.mapper.Map(records, prof)
	outPath := artifact.Path(req.PDFPath, artifact.SuffixCostSheet, req.OutputDir)
	if err := r.sheets.Write(outPath, rows, prof); err != nil {
		return bom.NewStructuralError("map", "cost sheet write failed", err)
	}
	report.OutputPath = outPath
	report.Artifacts = append(report.Artifacts, outPath)

	if r.archive != nil {
		if info, aerr := r.archive.Save(req.PDFPath, prof.ID, report.Artifacts); aerr != nil {
			r.warn(report, fmt.Sprintf("archiving failed: %v", aerr))
		} else {
			r.logger.Info("pipeline.archive.ok", "run", info.ID.String(), "artifacts", len(info.Artifacts))
		}
	}

	return ctx.Err()
}

// pickProfile resolves the run's company profile: explicit file, explicit
// builtin ID, keyword auto-detection, then the generic fallback.
func (r *Runner) pickProfile(req Request, docText string, report *Report) (*profile.Profile, error) {
	if req.ProfilePath != "" {
		return profile.LoadFile(req.ProfilePath)
	}
	if req.ProfileID != "" {
		p, ok := profile.Builtin(req.ProfileID)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", req.ProfileID)
		}
		return p, nil
	}
	if r.detector != nil {
		if p := r.detector.Detect(docText); p != nil {
			r.logger.Info("pipeline.profile.detected", "profile", p.ID)
			return p, nil
		}
		r.warn(report, "no company profile detected; using generic")
	}
	p, ok := profile.Builtin(profile.IDGeneric)
	if !ok {
		return nil, errors.New("generic profile missing")
	}
	return p, nil
}

// saveArtifact writes one artifact and returns its path. Artifact failures
// are structural: a run that cannot persist its output has not completed.
func (r *Runner) saveArtifact(req Request, suffix string, write func(path string) error) (string, error) {
	path := artifact.Path(req.PDFPath, suffix, req.OutputDir)
	if err := write(path); err != nil {
		return "", bom.NewStructuralError("artifact", fmt.Sprintf("write %s failed", suffix), err)
	}
	return path, nil
}
