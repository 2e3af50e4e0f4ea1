package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popprep/pkg/config"
	"popprep/pkg/errors"
	"popprep/pkg/testutil"
)

func fetchConfig(endpoint, output string) config.FetchConfig {
	cfg := config.Default().Fetch
	cfg.Endpoint = endpoint
	cfg.OutputPath = output
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestExportURL(t *testing.T) {
	cfg := config.Default().Fetch
	f := NewFetcher(cfg, nil, testutil.TestLogger(t))

	raw, err := f.ExportURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "geoname_id,name,country_code,population", q.Get("select"))
	assert.Equal(t, "population > 1000", q.Get("where"))
	assert.Equal(t, "name ASC", q.Get("order_by"))
	assert.Equal(t, ",", q.Get("delimiter"))
	assert.Equal(t, "true", q.Get("with_bom"))
}

func TestRunWritesBodyVerbatim(t *testing.T) {
	body := "\uFEFFgeoname_id,name,country_code,population\n1,Aachen,DE,249070\n"

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	output := filepath.Join(t.TempDir(), "cities.csv")
	f := NewFetcher(fetchConfig(server.URL, output), nil, testutil.TestLogger(t))

	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, "population > 1000", gotQuery.Get("where"))
	assert.Equal(t, "true", gotQuery.Get("with_bom"))

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, body, string(raw))
}

func TestRunNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	output := filepath.Join(t.TempDir(), "cities.csv")
	f := NewFetcher(fetchConfig(server.URL, output), nil, testutil.TestLogger(t))

	err := f.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no file may be written on a failed fetch")
}

func TestRunTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	output := filepath.Join(t.TempDir(), "cities.csv")
	f := NewFetcher(fetchConfig(server.URL, output), nil, testutil.TestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}
