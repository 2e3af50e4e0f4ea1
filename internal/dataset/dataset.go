// Package dataset provides the in-memory tabular model shared by the
// cleaning pipeline stages. A Dataset is an ordered set of named
// columns with cells aligned by row index. The column set is fixed
// after load; stages may rewrite cells in place or append derived
// columns, but the row count never changes.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// FieldType identifies the inferred type of a column
type FieldType string

const (
	// FieldTypeString marks text columns
	FieldTypeString FieldType = "string"
	// FieldTypeInt marks integer columns
	FieldTypeInt FieldType = "int"
	// FieldTypeFloat marks floating point columns
	FieldTypeFloat FieldType = "float"
	// FieldTypeBool marks boolean columns
	FieldTypeBool FieldType = "bool"
)

// utf8BOM is the UTF-8 byte-order signature written on export
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Dataset holds a header row plus data rows, cell-aligned by index.
type Dataset struct {
	headers []string
	rows    [][]string
	types   []FieldType
	index   map[string]int
}

// Load reads a header + rows tabular structure from r. Rows with a
// field count differing from the header are a structural error.
func Load(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse tabular data: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row found")
	}

	ds := &Dataset{
		headers: records[0],
		rows:    records[1:],
		index:   make(map[string]int, len(records[0])),
	}
	for i, h := range ds.headers {
		ds.index[h] = i
	}
	ds.types = inferTypes(ds.headers, ds.rows)

	return ds, nil
}

// OpenRaw opens the file at path for byte-level reading, transparently
// decompressing gzip input when the path carries a .gz suffix.
func OpenRaw(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open gzip input %s: %w", path, err)
		}
		return &gzipReadCloser{zr: zr, f: f}, nil
	}

	return f, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// Headers returns the column names in order.
func (d *Dataset) Headers() []string {
	return d.headers
}

// Rows returns the data row count.
func (d *Dataset) Rows() int {
	return len(d.rows)
}

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Type returns the inferred type of the named column.
func (d *Dataset) Type(name string) (FieldType, error) {
	i, ok := d.index[name]
	if !ok {
		return "", fmt.Errorf("no such column: %s", name)
	}
	return d.types[i], nil
}

// Value returns the cell at the named column and row.
func (d *Dataset) Value(name string, row int) (string, error) {
	i, ok := d.index[name]
	if !ok {
		return "", fmt.Errorf("no such column: %s", name)
	}
	if row < 0 || row >= len(d.rows) {
		return "", fmt.Errorf("row %d out of range", row)
	}
	return d.rows[row][i], nil
}

// Column returns a copy of all cells of the named column in row order.
func (d *Dataset) Column(name string) ([]string, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("no such column: %s", name)
	}
	values := make([]string, len(d.rows))
	for r, row := range d.rows {
		values[r] = row[i]
	}
	return values, nil
}

// TextColumns returns the names of string-typed columns in order.
func (d *Dataset) TextColumns() []string {
	var names []string
	for i, h := range d.headers {
		if d.types[i] == FieldTypeString {
			names = append(names, h)
		}
	}
	return names
}

// ApplyToColumn rewrites every cell of the named column through fn.
func (d *Dataset) ApplyToColumn(name string, fn func(string) string) error {
	i, ok := d.index[name]
	if !ok {
		return fmt.Errorf("no such column: %s", name)
	}
	for _, row := range d.rows {
		row[i] = fn(row[i])
	}
	return nil
}

// AppendColumn appends a derived column. The value count must match
// the row count and the name must not collide with an existing column.
func (d *Dataset) AppendColumn(name string, values []string) error {
	if _, ok := d.index[name]; ok {
		return fmt.Errorf("column already exists: %s", name)
	}
	if len(values) != len(d.rows) {
		return fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(d.rows))
	}

	for r := range d.rows {
		d.rows[r] = append(d.rows[r], values[r])
	}
	d.index[name] = len(d.headers)
	d.headers = append(d.headers, name)
	d.types = append(d.types, FieldTypeString)

	return nil
}

// WriteCSV writes the dataset as CSV preceded by the UTF-8 signature,
// header row included, no index column.
func (d *Dataset) WriteCSV(w io.Writer) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(d.headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range d.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()

	return cw.Error()
}

// WriteFile writes the dataset to the file at path via WriteCSV.
func (d *Dataset) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// inferTypes infers one FieldType per column. A column is numeric or
// boolean only when every non-empty cell parses as that type; anything
// else stays text, matching how pandas assigns the object dtype.
func inferTypes(headers []string, rows [][]string) []FieldType {
	types := make([]FieldType, len(headers))
	for i := range headers {
		types[i] = inferColumnType(i, rows)
	}
	return types
}

func inferColumnType(col int, rows [][]string) FieldType {
	canInt, canFloat, canBool := true, true, true
	seen := false

	for _, row := range rows {
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		seen = true

		if canInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canInt = false
			}
		}
		if canFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canFloat = false
			}
		}
		if canBool {
			if value != "true" && value != "false" && value != "TRUE" && value != "FALSE" {
				canBool = false
			}
		}
		if !canInt && !canFloat && !canBool {
			return FieldTypeString
		}
	}

	if !seen {
		return FieldTypeString
	}

	switch {
	case canInt:
		return FieldTypeInt
	case canFloat:
		return FieldTypeFloat
	case canBool:
		return FieldTypeBool
	default:
		return FieldTypeString
	}
}
