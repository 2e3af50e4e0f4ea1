// Package config provides the unified configuration system for popprep.
// It defines a single Config structure covering both utilities,
// organized into logical sections:
//   - Fetch: export endpoint, query parameters, timeout, output path
//   - Clean: input/output paths, required columns, encoding detection
//   - Log: logging verbosity and encoding
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Clean.InputPath = "events.csv"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Config is the single configuration structure both subcommands use.
type Config struct {
	// Fetch settings for the export download utility
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Clean settings for the CSV cleaning pipeline
	Clean CleanConfig `yaml:"clean" json:"clean"`

	// Log settings for structured logging
	Log LogConfig `yaml:"log" json:"log"`
}

// FetchConfig contains settings for the bulk export download.
type FetchConfig struct {
	// Endpoint is the export URL queried with a single GET
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Select lists the exported fields
	Select string `yaml:"select" json:"select"`
	// Where filters the exported rows
	Where string `yaml:"where" json:"where"`
	// OrderBy fixes the export row order
	OrderBy string `yaml:"order_by" json:"order_by"`
	// Delimiter is the field delimiter requested from the export
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// WithBOM requests a UTF-8 byte-order signature for Excel friendliness
	WithBOM bool `yaml:"with_bom" json:"with_bom"`
	// Timeout bounds the request; there are no retries
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// OutputPath receives the raw response body
	OutputPath string `yaml:"output_path" json:"output_path"`
}

// CleanConfig contains settings for the cleaning pipeline.
type CleanConfig struct {
	// InputPath is the CSV to clean; a .gz suffix enables transparent gzip
	InputPath string `yaml:"input_path" json:"input_path"`
	// OutputPath receives the cleaned CSV (UTF-8 with signature)
	OutputPath string `yaml:"output_path" json:"output_path"`
	// KeyColumn identifies rows in diagnostics
	KeyColumn string `yaml:"key_column" json:"key_column"`
	// DateColumns are the required free-form date columns to standardize
	DateColumns []string `yaml:"date_columns" json:"date_columns"`
	// SampleSize bounds the bytes read for charset detection
	SampleSize int `yaml:"sample_size" json:"sample_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding selects the log output format (console, json)
	Encoding string `yaml:"encoding" json:"encoding"`
	// Development enables colored human-oriented output
	Development bool `yaml:"development" json:"development"`
}

// Default returns a Config with the fixed defaults both utilities
// were designed around. Running with no flags uses these as-is.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			Endpoint:   "https://public.opendatasoft.com/api/explore/v2.1/catalog/datasets/geonames-all-cities-with-a-population-1000/exports/csv",
			Select:     "geoname_id,name,country_code,population",
			Where:      "population > 1000",
			OrderBy:    "name ASC",
			Delimiter:  ",",
			WithBOM:    true,
			Timeout:    120 * time.Second,
			OutputPath: "geonames_cities_population.csv",
		},
		Clean: CleanConfig{
			InputPath:   "luxury_cosmetics_popups.csv",
			OutputPath:  "luxury_cosmetics_popups_cleaned.csv",
			KeyColumn:   "event_id",
			DateColumns: []string{"start_date", "end_date"},
			SampleSize:  100000,
		},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "console",
			Development: false,
		},
	}
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable
// ranges. Callers should run this after loading configuration to catch
// errors early.
func (c *Config) Validate() error {
	if c.Fetch.Endpoint == "" {
		return fmt.Errorf("fetch.endpoint is required")
	}
	if c.Fetch.OutputPath == "" {
		return fmt.Errorf("fetch.output_path is required")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Clean.InputPath == "" {
		return fmt.Errorf("clean.input_path is required")
	}
	if c.Clean.OutputPath == "" {
		return fmt.Errorf("clean.output_path is required")
	}
	if len(c.Clean.DateColumns) == 0 {
		return fmt.Errorf("clean.date_columns must not be empty")
	}
	if c.Clean.SampleSize <= 0 {
		return fmt.Errorf("clean.sample_size must be positive")
	}
	return nil
}
