// Package tabular parses uploaded tables into ordered rows keyed by
// normalized header names.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row maps a normalized header name to the raw cell value.
type Row map[string]string

// Has reports whether the row contains a non-empty value for the column.
func (r Row) Has(column string) bool {
	v, ok := r[column]
	return ok && strings.TrimSpace(v) != ""
}

// Get returns the trimmed cell value for the column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Table is a parsed upload.
type Table struct {
	Columns []string
	Rows    []Row
}

// ErrEmptyTable is returned when the input has no header row.
var ErrEmptyTable = errors.New("table has no header row")

// Parse reads CSV content into a Table. Header names are lowercased and
// trimmed; duplicate headers keep the last value. Short records are
// padded with empty cells.
func Parse(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, ErrEmptyTable
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeColumn(h)
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return Table{Columns: columns, Rows: rows}, nil
}

// NormalizeColumn lowercases and trims a header name.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
