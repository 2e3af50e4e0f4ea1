// Package pipeline orchestrates the cleaning run: encoding resolution,
// tabular load, text normalization, date standardization, validation,
// and export. One pass, single-threaded; every stage failure is fatal
// and nothing is exported after a failed validation.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"popprep/internal/dates"
	"popprep/internal/encoding"
	"popprep/internal/textnorm"
	"popprep/internal/validate"
	"popprep/pkg/config"
	"popprep/pkg/errors"
)

// Cleaner runs the cleaning pipeline over one input file.
type Cleaner struct {
	cfg    config.CleanConfig
	logger *zap.Logger
}

// NewCleaner creates a Cleaner for the given configuration.
func NewCleaner(cfg config.CleanConfig, logger *zap.Logger) *Cleaner {
	return &Cleaner{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "cleaner")),
	}
}

// Run executes the pipeline and returns the validation report of a
// successful run.
func (c *Cleaner) Run(ctx context.Context) (*validate.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absIn, err := filepath.Abs(c.cfg.InputPath)
	if err != nil {
		absIn = c.cfg.InputPath
	}
	if _, err := os.Stat(c.cfg.InputPath); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMissingInput,
			"input file not found: "+absIn)
	}

	resolver := encoding.NewResolver(c.cfg.SampleSize, c.logger)
	ds, encName, err := resolver.Load(c.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info("dataset loaded",
		zap.String("input", absIn),
		zap.String("encoding", encName),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", len(ds.Headers())))

	textColumns := ds.TextColumns()
	c.logger.Info("normalizing diacritics",
		zap.Int("text_columns", len(textColumns)))
	for _, name := range textColumns {
		if err := ds.ApplyToColumn(name, textnorm.Normalize); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData,
				"failed to normalize column "+name)
		}
	}

	if err := dates.Normalize(ds, c.cfg.DateColumns); err != nil {
		return nil, err
	}

	report, err := validate.Check(ds, c.cfg.KeyColumn, c.cfg.DateColumns, c.logger)
	if err != nil {
		return nil, err
	}

	if err := ds.WriteFile(c.cfg.OutputPath); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData,
			"failed to write output "+c.cfg.OutputPath)
	}

	absOut, err := filepath.Abs(c.cfg.OutputPath)
	if err != nil {
		absOut = c.cfg.OutputPath
	}
	c.logger.Info("wrote cleaned dataset",
		zap.String("output", absOut),
		zap.Int("rows", report.Rows))

	return report, nil
}
