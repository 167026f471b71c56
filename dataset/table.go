// Package dataset loads tabular sensor data from CSV into a small
// column-oriented frame, with the selection, cleaning and matrix-extraction
// operations the training pipelines need.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/coldchain-ml/coldchain/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Table is a column-oriented frame over a CSV file. Columns whose
// non-missing cells all parse as numbers become numeric columns with NaN
// marking missing cells; all other columns are kept as string columns with
// "" marking missing cells.
type Table struct {
	columns []string
	numeric map[string][]float64
	strings map[string][]string
	nRows   int
}

// missingTokens are the cell values treated as missing on load.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"NaN":  true,
	"nan":  true,
	"null": true,
}

// LoadCSV reads a table from a CSV file. The first row must be a header.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads a table from CSV data. The first row must be a header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse CSV")
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("dataset.ReadCSV", "missing header row")
	}

	header := records[0]
	rows := records[1:]

	t := &Table{
		columns: make([]string, len(header)),
		numeric: map[string][]float64{},
		strings: map[string][]string{},
		nRows:   len(rows),
	}

	for j, name := range header {
		name = strings.TrimSpace(name)
		t.columns[j] = name

		raw := make([]string, len(rows))
		isNumeric := true
		for i, rec := range rows {
			if j >= len(rec) {
				return nil, errors.NewValueError("dataset.ReadCSV",
					fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(rec), len(header)))
			}
			cell := strings.TrimSpace(rec[j])
			raw[i] = cell
			if missingTokens[cell] {
				continue
			}
			if _, perr := strconv.ParseFloat(cell, 64); perr != nil {
				isNumeric = false
			}
		}

		if isNumeric {
			vals := make([]float64, len(rows))
			for i, cell := range raw {
				if missingTokens[cell] {
					vals[i] = math.NaN()
					continue
				}
				vals[i], _ = strconv.ParseFloat(cell, 64)
			}
			t.numeric[name] = vals
		} else {
			for i, cell := range raw {
				if missingTokens[cell] {
					raw[i] = ""
				}
			}
			t.strings[name] = raw
		}
	}

	return t, nil
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return t.nRows
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, num := t.numeric[name]
	_, str := t.strings[name]
	return num || str
}

// Select returns a table restricted to the given columns, in the given
// order. Every missing column is named in the error.
func (t *Table) Select(names ...string) (*Table, error) {
	var missing []string
	for _, name := range names {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewValueError("dataset.Select",
			fmt.Sprintf("missing columns in dataset: %v", missing))
	}

	out := &Table{
		columns: append([]string(nil), names...),
		numeric: map[string][]float64{},
		strings: map[string][]string{},
		nRows:   t.nRows,
	}
	for _, name := range names {
		if vals, ok := t.numeric[name]; ok {
			out.numeric[name] = append([]float64(nil), vals...)
		} else {
			out.strings[name] = append([]string(nil), t.strings[name]...)
		}
	}
	return out, nil
}

// Drop returns a table without the given columns. Columns that do not
// exist are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := map[string]bool{}
	for _, name := range names {
		drop[name] = true
	}

	var keep []string
	for _, name := range t.columns {
		if !drop[name] {
			keep = append(keep, name)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Column returns a numeric column by name.
func (t *Table) Column(name string) ([]float64, error) {
	vals, ok := t.numeric[name]
	if !ok {
		if _, isStr := t.strings[name]; isStr {
			return nil, errors.NewValueError("dataset.Column",
				fmt.Sprintf("column %q is not numeric", name))
		}
		return nil, errors.NewValueError("dataset.Column",
			fmt.Sprintf("missing columns in dataset: [%s]", name))
	}
	return append([]float64(nil), vals...), nil
}

// StringColumn returns a string column by name.
func (t *Table) StringColumn(name string) ([]string, error) {
	vals, ok := t.strings[name]
	if !ok {
		if _, isNum := t.numeric[name]; isNum {
			return nil, errors.NewValueError("dataset.StringColumn",
				fmt.Sprintf("column %q is numeric", name))
		}
		return nil, errors.NewValueError("dataset.StringColumn",
			fmt.Sprintf("missing columns in dataset: [%s]", name))
	}
	return append([]string(nil), vals...), nil
}

// SetColumn replaces or appends a numeric column. Replacing a string
// column with numeric values (e.g. encoded labels) removes the string
// version.
func (t *Table) SetColumn(name string, vals []float64) error {
	if t.nRows > 0 && len(vals) != t.nRows {
		return errors.NewDimensionError("dataset.SetColumn", t.nRows, len(vals), 0)
	}
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
	delete(t.strings, name)
	t.numeric[name] = append([]float64(nil), vals...)
	return nil
}

// ForwardFill fills missing cells column-wise with the last observed
// value, matching pandas ffill. Numeric columns go through
// preprocessing.ForwardFillImputer; string columns are filled in place.
func (t *Table) ForwardFill() error {
	for _, name := range t.columns {
		if vals, ok := t.numeric[name]; ok {
			imputer := preprocessing.NewForwardFillImputer()
			filled, err := imputer.FitTransform(mat.NewDense(len(vals), 1, append([]float64(nil), vals...)))
			if err != nil {
				return errors.Wrapf(err, "forward fill of column %q", name)
			}
			for i := range vals {
				vals[i] = filled.At(i, 0)
			}
			continue
		}

		vals := t.strings[name]
		first := ""
		for _, v := range vals {
			if v != "" {
				first = v
				break
			}
		}
		if first == "" {
			return errors.NewValueError("dataset.ForwardFill",
				fmt.Sprintf("column %q contains no observed values", name))
		}
		last := first
		for i, v := range vals {
			if v == "" {
				vals[i] = last
			} else {
				last = v
			}
		}
	}
	return nil
}

// Matrix extracts the named numeric columns as an n x len(names) matrix.
func (t *Table) Matrix(names ...string) (*mat.Dense, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		vals, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[j] = vals
	}

	out := mat.NewDense(t.nRows, len(names), nil)
	for j, vals := range cols {
		for i, v := range vals {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// Vector extracts a numeric column as an n x 1 column vector.
func (t *Table) Vector(name string) (*mat.VecDense, error) {
	vals, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(vals), vals), nil
}

// WriteCSV writes the table back out with a header row. Numeric cells are
// formatted with strconv.FormatFloat 'g'.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.columns); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}

	rec := make([]string, len(t.columns))
	for i := 0; i < t.nRows; i++ {
		for j, name := range t.columns {
			if vals, ok := t.numeric[name]; ok {
				if math.IsNaN(vals[i]) {
					rec[j] = ""
				} else {
					rec[j] = strconv.FormatFloat(vals[i], 'g', -1, 64)
				}
			} else {
				rec[j] = t.strings[name][i]
			}
		}
		if err := writer.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write CSV row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "failed to flush CSV output")
	}
	return nil
}

// SaveCSV writes the table to a file.
func (t *Table) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()
	return t.WriteCSV(f)
}
