package dataset

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "event_id,name,visitors,vip\n" +
	"E1,Ginza Store,1200,true\n" +
	"E2,Éclat Café,980,false\n" +
	"E3,Harbour City,,true\n"

func TestLoad(t *testing.T) {
	ds, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"event_id", "name", "visitors", "vip"}, ds.Headers())
	assert.True(t, ds.HasColumn("visitors"))
	assert.False(t, ds.HasColumn("city"))

	v, err := ds.Value("name", 1)
	require.NoError(t, err)
	assert.Equal(t, "Éclat Café", v)
}

func TestLoadStructuralError(t *testing.T) {
	_, err := Load(strings.NewReader("a,b\n1\n2,3,4\n"))
	assert.Error(t, err)
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestTypeInference(t *testing.T) {
	ds, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	tests := []struct {
		column   string
		expected FieldType
	}{
		{"event_id", FieldTypeString},
		{"name", FieldTypeString},
		{"visitors", FieldTypeInt},
		{"vip", FieldTypeBool},
	}
	for _, test := range tests {
		ft, err := ds.Type(test.column)
		require.NoError(t, err)
		assert.Equal(t, test.expected, ft, "column %s", test.column)
	}

	assert.Equal(t, []string{"event_id", "name"}, ds.TextColumns())
}

func TestTypeInferenceFloat(t *testing.T) {
	ds, err := Load(strings.NewReader("price\n10.5\n3\n"))
	require.NoError(t, err)

	ft, err := ds.Type("price")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeFloat, ft)
}

func TestApplyToColumn(t *testing.T) {
	ds, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.NoError(t, ds.ApplyToColumn("name", strings.ToUpper))

	names, err := ds.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "GINZA STORE", names[0])
}

func TestAppendColumn(t *testing.T) {
	ds, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.NoError(t, ds.AppendColumn("city", []string{"Tokyo", "Paris", "Hong Kong"}))
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"event_id", "name", "visitors", "vip", "city"}, ds.Headers())

	// Name collisions and row mismatches are rejected.
	assert.Error(t, ds.AppendColumn("city", []string{"a", "b", "c"}))
	assert.Error(t, ds.AppendColumn("region", []string{"only-one"}))
}

func TestWriteCSV(t *testing.T) {
	ds, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("city", []string{"Tokyo", "Paris", "Hong Kong"}))

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}), "output must start with the UTF-8 signature")

	records, err := csv.NewReader(bytes.NewReader(out[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus original row count")
	assert.Equal(t, []string{"event_id", "name", "visitors", "vip", "city"}, records[0])
	assert.Equal(t, "Éclat Café", records[2][1])
}

func TestOpenRawGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	rc, err := OpenRaw(path)
	require.NoError(t, err)
	defer rc.Close()

	ds, err := Load(rc)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
}
