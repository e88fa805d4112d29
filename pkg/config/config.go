// Package config reads pipeline configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration.
type Config struct {
	Extract   ExtractConfig
	Normalize NormalizeConfig
	Pricing   PricingConfig
	Output    OutputConfig
}

// ExtractConfig tunes table detection and page parallelism.
type ExtractConfig struct {
	Mode        string // conservative | balanced | aggressive
	PageWorkers int
}

// NormalizeConfig tunes header-row detection. The score threshold and scan
// depth are policy, not constants: garbled scans need looser settings.
type NormalizeConfig struct {
	HeaderScanRows  int
	MinHeaderScore  int     // minimum canonical-field matches for a header row
	FuzzyMinScore   int     // 0-100 similarity floor for fuzzy label matches
	DefaultQuantity bool    // default quantity to 1 when absent/unparsable
	MinConfidence   float64 // below this the mapping is flagged for review
}

// PricingConfig configures the external pricing source client.
type PricingConfig struct {
	BaseURL        string
	APIKey         string
	Currency       string
	Workers        int
	MaxAttempts    int
	InitialBackoff time.Duration
	LookupTimeout  time.Duration
	DrainTimeout   time.Duration
	RatePerSecond  float64
	RateBurst      int
}

// OutputConfig controls artifact placement.
type OutputConfig struct {
	Dir            string // empty: write beside the input PDF
	ArchiveDir     string // empty: run archiving disabled
	DefaultProfile string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Extract: ExtractConfig{
			Mode:        getEnv("BOMSHEET_DETECTION_MODE", "balanced"),
			PageWorkers: getEnvAsInt("BOMSHEET_PAGE_WORKERS", 4),
		},
		Normalize: NormalizeConfig{
			HeaderScanRows:  getEnvAsInt("BOMSHEET_HEADER_SCAN_ROWS", 5),
			MinHeaderScore:  getEnvAsInt("BOMSHEET_MIN_HEADER_SCORE", 2),
			FuzzyMinScore:   getEnvAsInt("BOMSHEET_FUZZY_MIN_SCORE", 80),
			DefaultQuantity: getEnvAsBool("BOMSHEET_DEFAULT_QUANTITY", true),
			MinConfidence:   getEnvAsFloat("BOMSHEET_MIN_CONFIDENCE", 0.5),
		},
		Pricing: PricingConfig{
			BaseURL:        getEnv("BOMSHEET_PRICING_URL", ""),
			APIKey:         getEnv("BOMSHEET_PRICING_API_KEY", ""),
			Currency:       getEnv("BOMSHEET_PRICING_CURRENCY", "USD"),
			Workers:        getEnvAsInt("BOMSHEET_PRICING_WORKERS", 4),
			MaxAttempts:    getEnvAsInt("BOMSHEET_PRICING_ATTEMPTS", 3),
			InitialBackoff: getEnvAsDuration("BOMSHEET_PRICING_BACKOFF", 500*time.Millisecond),
			LookupTimeout:  getEnvAsDuration("BOMSHEET_PRICING_TIMEOUT", 15*time.Second),
			DrainTimeout:   getEnvAsDuration("BOMSHEET_PRICING_DRAIN_TIMEOUT", 10*time.Second),
			RatePerSecond:  getEnvAsFloat("BOMSHEET_PRICING_RATE", 2),
			RateBurst:      getEnvAsInt("BOMSHEET_PRICING_RATE_BURST", 4),
		},
		Output: OutputConfig{
			Dir:            getEnv("BOMSHEET_OUTPUT_DIR", ""),
			ArchiveDir:     getEnv("BOMSHEET_ARCHIVE_DIR", ""),
			DefaultProfile: getEnv("BOMSHEET_PROFILE", "generic"),
		},
	}

	if cfg.Normalize.HeaderScanRows <= 0 {
		return nil, errors.New("BOMSHEET_HEADER_SCAN_ROWS must be positive")
	}
	if cfg.Pricing.Workers <= 0 || cfg.Extract.PageWorkers <= 0 {
		return nil, errors.New("worker counts must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
