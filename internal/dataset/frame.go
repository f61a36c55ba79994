package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/datapilot/datapilot/internal/domain"
)

// Frame is an in-memory CSV-backed table: a header row plus data rows of
// raw string cells. Numeric interpretation happens on demand.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// Read parses CSV content into a Frame. The source name is only used for
// error messages.
func Read(r io.Reader, source string) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV from %s: %w", source, err)
	}
	if len(records) < 2 || len(records[0]) == 0 {
		return nil, &domain.EmptyDatasetError{Source: source}
	}

	f := &Frame{Columns: records[0], Rows: records[1:]}
	return f, nil
}

// Load reads a CSV file from disk into a Frame.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return Read(file, path)
}

// WriteCSV serializes the frame back to CSV.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range f.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int { return len(f.Rows) }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.Columns) }

// ColumnIndex returns the position of a column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool { return f.ColumnIndex(name) >= 0 }

// Cell returns the raw cell value, or "" when the row is ragged.
func (f *Frame) Cell(row, col int) string {
	if col >= len(f.Rows[row]) {
		return ""
	}
	return f.Rows[row][col]
}

// IsMissing reports whether a raw cell value counts as a missing value.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "null", "NULL", "None", "NaN", "nan", "NA", "N/A":
		return true
	}
	return false
}

// Column returns the raw values of a column.
func (f *Frame) Column(name string) ([]string, bool) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	values := make([]string, len(f.Rows))
	for i := range f.Rows {
		values[i] = f.Cell(i, idx)
	}
	return values, true
}

// Float64Column parses a column as float64, substituting NaN for missing or
// unparseable cells.
func (f *Frame) Float64Column(name string) ([]float64, bool) {
	raw, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = parseCell(v)
	}
	return values, true
}

func parseCell(v string) float64 {
	if IsMissing(v) {
		return math.NaN()
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return math.NaN()
	}
	return x
}

// IsNumeric reports whether at least 80% of the non-missing cells in a
// column parse as numbers.
func (f *Frame) IsNumeric(name string) bool {
	raw, ok := f.Column(name)
	if !ok {
		return false
	}
	parsed, present := 0, 0
	for _, v := range raw {
		if IsMissing(v) {
			continue
		}
		present++
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			parsed++
		}
	}
	return present > 0 && float64(parsed)/float64(present) >= 0.8
}

// NumericColumns lists columns that parse as numeric.
func (f *Frame) NumericColumns() []string {
	var cols []string
	for _, c := range f.Columns {
		if f.IsNumeric(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "01/02/2006", "02-01-2006",
	time.RFC3339, "2006-01-02 15:04:05",
}

// IsDateColumn applies a name and value heuristic to flag date-like columns
// so EDA can exclude them from numeric analysis.
func (f *Frame) IsDateColumn(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "date") || strings.Contains(lower, "time") || strings.HasSuffix(lower, "_at") {
		return true
	}
	raw, ok := f.Column(name)
	if !ok {
		return false
	}
	checked, matched := 0, 0
	for _, v := range raw {
		if IsMissing(v) {
			continue
		}
		checked++
		if checked > 20 {
			break
		}
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				matched++
				break
			}
		}
	}
	return checked > 0 && float64(matched)/float64(min(checked, 20)) >= 0.8
}

// ParseDateColumn parses a column with the known layouts; unparseable cells
// come back as zero times.
func (f *Frame) ParseDateColumn(name string) ([]time.Time, bool) {
	raw, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]time.Time, len(raw))
	for i, v := range raw {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				out[i] = t
				break
			}
		}
	}
	return out, true
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cols := make([]string, len(f.Columns))
	copy(cols, f.Columns)
	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		rows[i] = make([]string, len(row))
		copy(rows[i], row)
	}
	return &Frame{Columns: cols, Rows: rows}
}

// Select returns a new frame restricted to the given columns, in order.
func (f *Frame) Select(cols []string) (*Frame, error) {
	indices := make([]int, len(cols))
	for i, c := range cols {
		idx := f.ColumnIndex(c)
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
		indices[i] = idx
	}
	rows := make([][]string, len(f.Rows))
	for i := range f.Rows {
		row := make([]string, len(indices))
		for j, idx := range indices {
			row[j] = f.Cell(i, idx)
		}
		rows[i] = row
	}
	return &Frame{Columns: append([]string(nil), cols...), Rows: rows}, nil
}

// Drop returns a new frame without the given columns.
func (f *Frame) Drop(cols []string) *Frame {
	dropped := make(map[string]bool, len(cols))
	for _, c := range cols {
		dropped[c] = true
	}
	var keep []string
	for _, c := range f.Columns {
		if !dropped[c] {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep)
	return out
}

// Sample returns a frame of at most n rows drawn without replacement using
// a seeded shuffle, so bounded analysis stays reproducible.
func (f *Frame) Sample(n int, seed int64) *Frame {
	if n <= 0 || n >= len(f.Rows) {
		return f
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(f.Rows))
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = f.Rows[perm[i]]
	}
	return &Frame{Columns: f.Columns, Rows: rows}
}

// Matrix extracts the given columns as a float64 design matrix. Rows with
// missing or unparseable cells in any requested column are skipped; the
// second return value maps matrix rows back to frame rows.
func (f *Frame) Matrix(cols []string) ([][]float64, []int, error) {
	indices := make([]int, len(cols))
	for i, c := range cols {
		idx := f.ColumnIndex(c)
		if idx < 0 {
			return nil, nil, fmt.Errorf("column %q not found", c)
		}
		indices[i] = idx
	}
	var matrix [][]float64
	var kept []int
	for r := range f.Rows {
		row := make([]float64, len(indices))
		valid := true
		for j, idx := range indices {
			v := parseCell(f.Cell(r, idx))
			if math.IsNaN(v) {
				valid = false
				break
			}
			row[j] = v
		}
		if valid {
			matrix = append(matrix, row)
			kept = append(kept, r)
		}
	}
	return matrix, kept, nil
}
