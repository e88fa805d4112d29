// Package pricing resolves unit prices for BoM records against an external
// part-pricing source, with bounded concurrency, retry with backoff, and a
// per-run cache covering negative results.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/partstream/bomsheet/internal/domain/bom"
)

// ResolverConfig holds pricing-stage policy.
type ResolverConfig struct {
	Workers        int
	MaxAttempts    int
	InitialBackoff time.Duration
	LookupTimeout  time.Duration
	// DrainTimeout bounds how long in-flight lookups may keep running
	// after the source is declared unavailable or the run is cancelled.
	DrainTimeout time.Duration
}

// DefaultResolverConfig mirrors the documented defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Workers:        4,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		LookupTimeout:  15 * time.Second,
		DrainTimeout:   10 * time.Second,
	}
}

// Outcome summarizes one pricing run for the report.
type Outcome struct {
	PartsLooked int // distinct part numbers sent to the source
	PartsFound  int
	PartsAbsent int
	PartsFailed int
	Warnings    []string
}

// Resolver prices a batch of records. Lookups are deduplicated per part
// number and the result is attached to every record sharing that part.
type Resolver struct {
	source Source
	cfg    ResolverConfig
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*bom.PriceResult // per-run, includes not_found
}

// NewResolver builds a Resolver over a pricing source.
func NewResolver(source Source, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultResolverConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	return &Resolver{
		source: source,
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]*bom.PriceResult),
	}
}

// Resolve prices every valid and needs-review record in place. Lookup
// failures never fail the run: unresolved parts get an error result and the
// records become unpriced. The first availability failure or run
// cancellation stops dispatching new lookups immediately; lookups already
// in flight get a bounded drain window before they too are cancelled.
func (r *Resolver) Resolve(ctx context.Context, records []*bom.Record) Outcome {
	parts := distinctParts(records)

	var out Outcome
	out.PartsLooked = len(parts)
	if len(parts) == 0 {
		return out
	}

	// In-flight lookups outlive run cancellation for the drain window, so
	// their context detaches from the caller's.
	lookupCtx, cancelLookups := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLookups()

	var (
		halted      atomic.Bool
		haltOnce    sync.Once
		unavailable bool
	)
	halt := func() {
		halted.Store(true)
		time.AfterFunc(r.cfg.DrainTimeout, cancelLookups)
	}
	stopWatch := context.AfterFunc(ctx, func() { haltOnce.Do(halt) })
	defer stopWatch()

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for _, part := range parts {
		g.Go(func() error {
			if halted.Load() || ctx.Err() != nil {
				// Never dispatched: the source is down or the run was
				// cancelled before this part's turn.
				r.store(part, &bom.PriceResult{
					PartNumber: part,
					Status:     bom.LookupError,
					Source:     r.source.Name(),
				})
				return nil
			}
			res := r.lookupWithRetry(lookupCtx, part)
			if res.Status == bom.LookupError && IsUnavailable(res.err) {
				haltOnce.Do(func() {
					unavailable = true
					r.logger.Warn("pricing.source.unavailable",
						"source", r.source.Name(), "error", res.err)
					halt()
				})
			}
			r.store(part, res.PriceResult)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	for _, part := range parts {
		switch r.lookup(part).Status {
		case bom.LookupFound:
			out.PartsFound++
		case bom.LookupNotFound:
			out.PartsAbsent++
		default:
			out.PartsFailed++
		}
	}

	for _, rec := range records {
		if !priceable(rec) {
			continue
		}
		rec.AttachPrice(r.lookup(rec.PartNumber))
	}

	if unavailable {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("pricing source %s unavailable; remaining parts left unpriced", r.source.Name()))
	}

	r.logger.Info("pricing.ok",
		"parts", out.PartsLooked,
		"found", out.PartsFound,
		"not_found", out.PartsAbsent,
		"failed", out.PartsFailed,
	)
	return out
}

// lookupResult pairs the stored result with the terminal error for
// availability classification.
type lookupResult struct {
	*bom.PriceResult
	err error
}

// lookupWithRetry performs one part lookup with exponential backoff on
// transient failures. Non-transient errors stop retrying immediately.
func (r *Resolver) lookupWithRetry(ctx context.Context, part string) lookupResult {
	var res *bom.PriceResult

	backoff := retry.WithMaxRetries(uint64(r.cfg.MaxAttempts-1),
		retry.NewExponential(r.cfg.InitialBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		lctx, lcancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
		defer lcancel()

		got, err := r.source.Lookup(lctx, part)
		if err != nil {
			if IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		res = got
		return nil
	})
	if err != nil {
		r.logger.Warn("pricing.lookup.failed", "part", part, "error", err)
		return lookupResult{
			PriceResult: &bom.PriceResult{
				PartNumber: part,
				Status:     bom.LookupError,
				Source:     r.source.Name(),
			},
			err: err,
		}
	}
	return lookupResult{PriceResult: res}
}

func (r *Resolver) store(part string, res *bom.PriceResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[part]; !ok {
		r.cache[part] = res
	}
}

func (r *Resolver) lookup(part string) *bom.PriceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache[part]
}

// priceable reports whether a record participates in price resolution.
// Pending records never reach this stage; needs-review records are still
// priced so reviewers see cost context.
func priceable(rec *bom.Record) bool {
	if rec.PartNumber == "" {
		return false
	}
	return rec.Status == bom.StatusValid || rec.Status == bom.StatusNeedsReview
}

// distinctParts returns the unique priceable part numbers in input order.
func distinctParts(records []*bom.Record) []string {
	seen := make(map[string]bool)
	var parts []string
	for _, rec := range records {
		if !priceable(rec) || seen[rec.PartNumber] {
			continue
		}
		seen[rec.PartNumber] = true
		parts = append(parts, rec.PartNumber)
	}
	return parts
}
