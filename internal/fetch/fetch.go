// Package fetch downloads the city/population export in one HTTP GET
// and persists the raw response body verbatim. A non-2xx status or
// timeout aborts the run with nothing written; there are no retries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"popprep/pkg/clients"
	"popprep/pkg/config"
	"popprep/pkg/errors"
)

// Fetcher issues the export request and writes the response to disk.
type Fetcher struct {
	cfg    config.FetchConfig
	client *clients.HTTPClient
	logger *zap.Logger
}

// NewFetcher creates a Fetcher using the given HTTP client. A nil
// client gets defaults bounded by the configured timeout.
func NewFetcher(cfg config.FetchConfig, client *clients.HTTPClient, logger *zap.Logger) *Fetcher {
	if client == nil {
		httpCfg := clients.DefaultHTTPConfig()
		httpCfg.RequestTimeout = cfg.Timeout
		client = clients.NewHTTPClient(httpCfg, logger)
	}
	return &Fetcher{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("component", "fetcher")),
	}
}

// ExportURL builds the export URL with its query parameters.
func (f *Fetcher) ExportURL() (string, error) {
	u, err := url.Parse(f.cfg.Endpoint)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid export endpoint")
	}

	q := u.Query()
	q.Set("select", f.cfg.Select)
	q.Set("where", f.cfg.Where)
	q.Set("order_by", f.cfg.OrderBy)
	q.Set("delimiter", f.cfg.Delimiter)
	q.Set("with_bom", fmt.Sprintf("%t", f.cfg.WithBOM))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Run performs the download. The output file is only created after a
// successful status check, so a failed run leaves no artifact behind.
func (f *Fetcher) Run(ctx context.Context) error {
	exportURL, err := f.ExportURL()
	if err != nil {
		return err
	}

	f.logger.Info("fetching export", zap.String("url", exportURL))

	resp, err := f.client.Get(ctx, exportURL, nil)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "export request timed out")
		}
		return errors.Wrap(err, errors.ErrorTypeTransport, "export request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.ErrorTypeTransport,
			fmt.Sprintf("export returned status %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode).
			WithDetail("url", exportURL)
	}

	out, err := os.Create(f.cfg.OutputPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData,
			"failed to create output "+f.cfg.OutputPath)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(f.cfg.OutputPath)
		return errors.Wrap(err, errors.ErrorTypeTransport, "failed to read export body")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData,
			"failed to close output "+f.cfg.OutputPath)
	}

	absOut, err := filepath.Abs(f.cfg.OutputPath)
	if err != nil {
		absOut = f.cfg.OutputPath
	}
	f.logger.Info("saved export",
		zap.String("output", absOut),
		zap.Int64("bytes", written))

	return nil
}
