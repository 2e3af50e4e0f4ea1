package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"popprep/internal/fetch"
	"popprep/internal/pipeline"
	"popprep/pkg/config"
	"popprep/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "popprep",
		Short: "popprep - pop-up event data preparation utilities",
		Long: `popprep bundles two single-run data-preparation utilities:
a bulk download of a public city/population export, and a cleaning pass
over a pop-up event CSV that strips diacritics and standardizes its date
columns to ISO-8601. Both run with sensible defaults and no flags.`,
	}

	var configFile, logLevel string
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file (optional)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("popprep v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Fetch command
	var fetchOutput string
	var fetchTimeout time.Duration
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the city/population export to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configFile, logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cmd.Flags().Changed("output") {
				cfg.Fetch.OutputPath = fetchOutput
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Fetch.Timeout = fetchTimeout
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.Timeout)
			defer cancel()

			return fetch.NewFetcher(cfg.Fetch, nil, log).Run(ctx)
		},
	}
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Output CSV path")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "Request timeout")
	root.AddCommand(fetchCmd)

	// Clean command
	var cleanInput, cleanOutput string
	var sampleSize int
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the pop-up event CSV and standardize its date columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configFile, logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cmd.Flags().Changed("input") {
				cfg.Clean.InputPath = cleanInput
			}
			if cmd.Flags().Changed("output") {
				cfg.Clean.OutputPath = cleanOutput
			}
			if cmd.Flags().Changed("sample-size") {
				cfg.Clean.SampleSize = sampleSize
			}

			_, err = pipeline.NewCleaner(cfg.Clean, log).Run(context.Background())
			return err
		},
	}
	cleanCmd.Flags().StringVarP(&cleanInput, "input", "i", "", "Input CSV path (.gz accepted)")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "Output CSV path")
	cleanCmd.Flags().IntVar(&sampleSize, "sample-size", 0, "Bytes sampled for encoding detection")
	root.AddCommand(cleanCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration (file plus overrides) and initializes the
// global logger.
func setup(configFile, logLevel string) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if configFile != "" {
		if err := config.Load(configFile, cfg); err != nil {
			return nil, nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Encoding:    cfg.Log.Encoding,
	}); err != nil {
		return nil, nil, err
	}

	return cfg, logger.Get().With(zap.String("component", "popprep-cli")), nil
}
