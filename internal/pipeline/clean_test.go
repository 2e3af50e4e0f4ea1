package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popprep/pkg/config"
	"popprep/pkg/errors"
	"popprep/pkg/testutil"
)

func cleanConfig(input, output string) config.CleanConfig {
	cfg := config.Default().Clean
	cfg.InputPath = input
	cfg.OutputPath = output
	return cfg
}

func TestCleanerRun(t *testing.T) {
	input := testutil.WriteFile(t, "popups.csv", []byte(
		"event_id,store_name,city,start_date,end_date,visitors\n"+
			"E1,Éclat   Beauty,Paris,05/03/24,07/03/24,1200\n"+
			"E2,Crème Brûlée Bar,São Paulo,05/03/2024,,980\n"+
			"E3,Plain Store,Tokyo,NaN,garbage,500\n"))
	output := filepath.Join(t.TempDir(), "cleaned.csv")

	cleaner := NewCleaner(cleanConfig(input, output), testutil.TestLogger(t))
	report, err := cleaner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.Unparsable["start_date"]) // the literal "NaN"
	assert.Equal(t, 1, report.Unparsable["end_date"])   // "garbage"

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "row count must be preserved")

	header := records[0]
	assert.Equal(t,
		[]string{"event_id", "store_name", "city", "start_date", "end_date", "start_date_iso", "end_date_iso"},
		header)

	// Diacritics stripped, whitespace collapsed, dates standardized.
	assert.Equal(t, "Eclat Beauty", records[1][1])
	assert.Equal(t, "Creme Brulee Bar", records[2][1])
	assert.Equal(t, "Sao Paulo", records[2][2])
	assert.Equal(t, "2024-03-05", records[1][5])
	assert.Equal(t, "2024-03-07", records[1][6])
	assert.Equal(t, "2024-03-05", records[2][5])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "", records[3][5])
	assert.Equal(t, "", records[3][6])
}

func TestCleanerRunLatin1Input(t *testing.T) {
	input := testutil.WriteFile(t, "latin1.csv", []byte(
		"event_id,store_name,start_date,end_date\n"+
			"E1,Caf\xE9 Royal,05/03/24,07/03/24\n"))
	output := filepath.Join(t.TempDir(), "cleaned.csv")

	cleaner := NewCleaner(cleanConfig(input, output), testutil.TestLogger(t))
	_, err := cleaner.Run(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Cafe Royal", records[1][1])
}

func TestCleanerMissingInput(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.csv")
	output := filepath.Join(t.TempDir(), "cleaned.csv")

	cleaner := NewCleaner(cleanConfig(missing, output), testutil.TestLogger(t))
	_, err := cleaner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingInput))
	assert.Contains(t, err.Error(), missing)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output may be written")
}

func TestCleanerMissingDateColumn(t *testing.T) {
	input := testutil.WriteFile(t, "noend.csv", []byte(
		"event_id,store_name,start_date\nE1,Ginza,05/03/24\n"))
	output := filepath.Join(t.TempDir(), "cleaned.csv")

	cleaner := NewCleaner(cleanConfig(input, output), testutil.TestLogger(t))
	_, err := cleaner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), "end_date")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output may be written")
}
