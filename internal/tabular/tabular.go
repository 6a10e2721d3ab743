// Package tabular loads CSV and XLSX tables and turns their columns into the
// literal and count vectors the consistency checks take.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrColumnNotFound is returned when a column spec matches no column.
	ErrColumnNotFound = errors.New("column not found")

	// ErrEmptyColumn is returned when a table has no data rows to read.
	ErrEmptyColumn = errors.New("empty column")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// Format is the encoding of a table file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the table format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// ParseFormat converts a format name such as "csv" into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedFormat)
}

// Table is a header row plus data rows, all kept as text.
type Table struct {
	Headers []string
	Rows    [][]string

	// numeric marks columns whose cells were stored as numbers rather than text.
	numeric []bool
}

// Load reads the table at path, choosing the reader by extension.
func Load(path string) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer file.Close()

	return Read(file, format)
}

// Read parses a table from r. XLSX tables are read from their first sheet.
func Read(r io.Reader, format Format) (*Table, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatXLSX:
		return readXLSX(r)
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV table: %w", err)
	}
	return newTable(rows, nil)
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX table: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrEmptyColumn)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return newTable(rows, nil)
	}

	numeric := make([]bool, len(rows[0]))
	for col := range numeric {
		numeric[col] = numericColumn(f, sheet, col, len(rows))
	}
	return newTable(rows, numeric)
}

// numericColumn reports whether every non-empty data cell in col is stored
// as a number.
func numericColumn(f *excelize.File, sheet string, col, rowCount int) bool {
	seen := false
	for row := 2; row <= rowCount; row++ {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return false
		}
		value, err := f.GetCellValue(sheet, cell)
		if err != nil || strings.TrimSpace(value) == "" {
			continue
		}
		cellType, err := f.GetCellType(sheet, cell)
		if err != nil {
			return false
		}
		if cellType != excelize.CellTypeNumber && cellType != excelize.CellTypeUnset {
			return false
		}
		seen = true
	}
	return seen
}

func newTable(rows [][]string, numeric []bool) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table has no header row: %w", ErrEmptyColumn)
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		for j := range cells {
			if j < len(row) {
				cells[j] = strings.TrimSpace(row[j])
			}
		}
		data = append(data, cells)
	}

	if len(numeric) != len(headers) {
		numeric = make([]bool, len(headers))
	}
	return &Table{Headers: headers, Rows: data, numeric: numeric}, nil
}

// ColumnSpec selects a column by header name or by zero-based index.
type ColumnSpec struct {
	Name  string
	Index int
	ByIdx bool
}

// ParseColumnSpec reads a column selector. A non-negative integer selects by
// position, anything else by header name.
func ParseColumnSpec(s string) (ColumnSpec, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ColumnSpec{}, fmt.Errorf("empty column spec: %w", ErrColumnNotFound)
	}
	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx < 0 {
			return ColumnSpec{}, fmt.Errorf("column index %d: %w", idx, ErrColumnNotFound)
		}
		return ColumnSpec{Index: idx, ByIdx: true}, nil
	}
	return ColumnSpec{Name: trimmed}, nil
}

// IsZero reports whether the spec selects nothing.
func (c ColumnSpec) IsZero() bool {
	return !c.ByIdx && c.Name == ""
}

func (c ColumnSpec) String() string {
	if c.ByIdx {
		return strconv.Itoa(c.Index)
	}
	return c.Name
}

// Column returns the position of the column that spec selects.
func (t *Table) Column(spec ColumnSpec) (int, error) {
	if spec.ByIdx {
		if spec.Index >= len(t.Headers) {
			return 0, fmt.Errorf("column %d of %d: %w", spec.Index, len(t.Headers), ErrColumnNotFound)
		}
		return spec.Index, nil
	}
	for i, header := range t.Headers {
		if header == spec.Name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q: %w", spec.Name, ErrColumnNotFound)
}

// Strings returns the cells of a column as literals.
func (t *Table) Strings(spec ColumnSpec) ([]string, error) {
	col, err := t.Column(spec)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("column %s: %w", spec, ErrEmptyColumn)
	}

	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[col]
	}
	return out, nil
}

// Counts coerces a column to non-negative integers. Cells that are not whole
// numbers get zero and their row index is returned in failed.
func (t *Table) Counts(spec ColumnSpec) (values []uint, failed []int, err error) {
	cells, err := t.Strings(spec)
	if err != nil {
		return nil, nil, err
	}

	values = make([]uint, len(cells))
	for i, cell := range cells {
		v, ok := parseCount(cell)
		if !ok {
			failed = append(failed, i)
			continue
		}
		values[i] = v
	}
	return values, failed, nil
}

func parseCount(cell string) (uint, bool) {
	if v, err := strconv.ParseUint(cell, 10, 32); err == nil {
		return uint(v), true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
		return 0, false
	}
	return uint(f), true
}

// LooksNumeric reports whether a column was stored as numbers, in which case
// trailing zeros of the reported values are already gone.
func (t *Table) LooksNumeric(spec ColumnSpec) bool {
	col, err := t.Column(spec)
	if err != nil {
		return false
	}
	return t.numeric[col]
}
