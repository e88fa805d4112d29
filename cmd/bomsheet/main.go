// Command bomsheet reconciles a vendor BoM PDF into a customer cost sheet.
//
// Usage:
//
//	bomsheet -pdf quote.pdf -pages 2-4 -profile farrell
//
// The run report is printed to stdout as JSON; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/internal/domain/costsheet"
	"github.com/partstream/bomsheet/internal/domain/extract"
	"github.com/partstream/bomsheet/internal/domain/normalize"
	"github.com/partstream/bomsheet/internal/domain/pipeline"
	"github.com/partstream/bomsheet/internal/domain/pricing"
	"github.com/partstream/bomsheet/internal/domain/profile"
	"github.com/partstream/bomsheet/internal/domain/validate"
	"github.com/partstream/bomsheet/pkg/artifact"
	"github.com/partstream/bomsheet/pkg/config"
	"github.com/partstream/bomsheet/pkg/storage"
)

func main() {
	var (
		pdfPath     = flag.String("pdf", "", "input BoM PDF (required)")
		pages       = flag.String("pages", "all", "page range, e.g. 2, 1-3, 2,4-6, or all")
		mode        = flag.String("mode", "", "table detection mode: conservative, balanced, aggressive")
		profileID   = flag.String("profile", "", "builtin company profile; empty auto-detects")
		profileFile = flag.String("profile-file", "", "custom company profile JSON")
		region      = flag.String("region", "", "manual table region as page:x0,y0,x1,y1")
		outDir      = flag.String("out", "", "output directory; default is beside the input PDF")
		skipPricing = flag.Bool("skip-pricing", false, "skip the price lookup stage")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "bomsheet: -pdf is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config.load.failed", "err", err)
		os.Exit(1)
	}
	if *mode == "" {
		*mode = cfg.Extract.Mode
	}
	if *profileID == "" && *profileFile == "" && cfg.Output.DefaultProfile != "" {
		// The configured default applies only when auto-detection finds
		// nothing; pass it through as-is unless it is the generic fallback.
		if cfg.Output.DefaultProfile != profile.IDGeneric {
			*profileID = cfg.Output.DefaultProfile
		}
	}

	detectionMode, err := extract.ParseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bomsheet: %v\n", err)
		os.Exit(2)
	}

	manual, err := parseRegion(*region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bomsheet: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := buildRunner(cfg, logger)

	report, err := runner.Run(ctx, pipeline.Request{
		PDFPath:     *pdfPath,
		Pages:       *pages,
		Mode:        detectionMode,
		ProfileID:   *profileID,
		ProfilePath: *profileFile,
		Manual:      manual,
		OutputDir:   firstNonEmpty(*outDir, cfg.Output.Dir),
		SkipPricing: *skipPricing,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if err != nil {
		var serr *bom.StructuralError
		if errors.As(err, &serr) {
			logger.Error("run.failed", "stage", serr.Stage, "err", err)
		} else {
			logger.Error("run.failed", "err", err)
		}
		os.Exit(1)
	}
}

func buildRunner(cfg *config.Config, logger *slog.Logger) *pipeline.Runner {
	extractor := extract.NewExtractor(extract.OpenPDF, nil, cfg.Extract.PageWorkers, logger)

	normalizer := normalize.NewNormalizer(normalize.Config{
		ScanRows:      cfg.Normalize.HeaderScanRows,
		MinScore:      cfg.Normalize.MinHeaderScore,
		FuzzyMinScore: cfg.Normalize.FuzzyMinScore,
		MinConfidence: cfg.Normalize.MinConfidence,
	}, logger)

	validator := validate.NewValidator(validate.Config{
		DefaultQuantity: cfg.Normalize.DefaultQuantity,
	}, logger)

	var resolver *pricing.Resolver
	if cfg.Pricing.BaseURL != "" {
		source := pricing.NewHTTPSource(pricing.HTTPConfig{
			BaseURL:       cfg.Pricing.BaseURL,
			APIKey:        cfg.Pricing.APIKey,
			Currency:      cfg.Pricing.Currency,
			Timeout:       cfg.Pricing.LookupTimeout,
			RatePerSecond: cfg.Pricing.RatePerSecond,
			RateBurst:     cfg.Pricing.RateBurst,
		})
		resolver = pricing.NewResolver(source, pricing.ResolverConfig{
			Workers:        cfg.Pricing.Workers,
			MaxAttempts:    cfg.Pricing.MaxAttempts,
			InitialBackoff: cfg.Pricing.InitialBackoff,
			LookupTimeout:  cfg.Pricing.LookupTimeout,
			DrainTimeout:   cfg.Pricing.DrainTimeout,
		}, logger)
	}

	runner := pipeline.NewRunner(
		extractor,
		normalizer,
		validator,
		resolver,
		costsheet.NewMapper(logger),
		costsheet.NewWriter(logger),
		artifact.NewWriter(logger),
		profile.NewDetector(profile.All()),
		nil,
		nil,
		logger,
	)

	if cfg.Output.ArchiveDir != "" {
		archive, err := storage.NewArchive(cfg.Output.ArchiveDir)
		if err != nil {
			logger.Warn("archive.disabled", "dir", cfg.Output.ArchiveDir, "err", err)
		} else {
			runner.WithArchive(archive)
		}
	}
	return runner
}

// parseRegion parses "page:x0,y0,x1,y1" in PDF points.
func parseRegion(s string) (*extract.Region, error) {
	if s == "" {
		return nil, nil
	}
	pageStr, coords, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid region %q, want page:x0,y0,x1,y1", s)
	}
	page, err := strconv.Atoi(strings.TrimSpace(pageStr))
	if err != nil || page <= 0 {
		return nil, fmt.Errorf("invalid region page %q", pageStr)
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid region %q, want four coordinates", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid region coordinate %q", p)
		}
		vals[i] = v
	}
	return &extract.Region{Page: page, X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
