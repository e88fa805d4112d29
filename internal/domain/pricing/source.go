package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/partstream/bomsheet/internal/domain/bom"
	"github.com/partstream/bomsheet/pkg/money"
)

// Source is the external pricing collaborator: one lookup per part number.
// A completed lookup with no match returns a result with status not_found
// and a nil error; errors are reserved for lookup failures.
type Source interface {
	Lookup(ctx context.Context, partNumber string) (*bom.PriceResult, error)
	Name() string
}

// TransientError marks a failure worth retrying: timeouts, resets, 5xx.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient lookup failure: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// UnavailableError marks the pricing source as unusable for the whole run
// (authentication or availability failure). The resolver short-circuits on it.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return "pricing source unavailable: " + e.Err.Error() }
func (e *UnavailableError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsUnavailable reports whether err disables the source for the run.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// HTTPConfig configures the HTTP pricing client.
type HTTPConfig struct {
	BaseURL       string
	APIKey        string
	Currency      string // fallback when the response omits one
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
}

// HTTPSource queries a JSON part-pricing API. Requests are rate-limited to
// respect the source's published limits.
type HTTPSource struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource builds the production pricing client.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.Currency == "" {
		cfg.Currency = money.USD
	}
	return &HTTPSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

func (s *HTTPSource) Name() string { return s.cfg.BaseURL }

// priceResponse is the source's wire format.
type priceResponse struct {
	PartNumber string `json:"part_number"`
	UnitPrice  string `json:"unit_price"`
	Currency   string `json:"currency"`
	Matches    int    `json:"matches"`
}

// Lookup fetches the current unit price for one part number.
func (s *HTTPSource) Lookup(ctx context.Context, partNumber string) (*bom.PriceResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v1/prices?part=%s", s.cfg.BaseURL, url.QueryEscape(partNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &bom.PriceResult{
			PartNumber: partNumber,
			Status:     bom.LookupNotFound,
			Source:     s.Name(),
		}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &UnavailableError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decode response: %w", err)}
	}

	if body.Matches == 0 || body.UnitPrice == "" {
		return &bom.PriceResult{
			PartNumber: partNumber,
			Status:     bom.LookupNotFound,
			Source:     s.Name(),
		}, nil
	}

	currency := body.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	price, err := money.NewFromString(body.UnitPrice, currency, false)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", body.UnitPrice, err)
	}

	return &bom.PriceResult{
		PartNumber: partNumber,
		UnitPrice:  price,
		Currency:   currency,
		Status:     bom.LookupFound,
		Source:     s.Name(),
	}, nil
}
