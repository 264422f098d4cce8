package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingColumn is returned when a column name is not in the table header
var ErrMissingColumn = errors.New("column not found")

// Table is a day of sensor rows addressable by column name. Values keep
// their raw text; only the date column is parsed into Times.
type Table struct {
	columns    []string
	index      map[string]int
	rows       [][]string
	times      []time.Time
	dateColumn string
}

// NewTable builds a table from a header, rows of the same width and the
// parsed timestamps of each row.
func NewTable(columns []string, rows [][]string, dateColumn string, times []time.Time) (*Table, error) {
	if len(rows) != len(times) {
		return nil, fmt.Errorf("table has %d rows but %d timestamps", len(rows), len(times))
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(columns))
		}
	}
	return &Table{
		columns:    columns,
		index:      index,
		rows:       rows,
		times:      times,
		dateColumn: dateColumn,
	}, nil
}

// Columns returns the column names in header order
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// DateColumn returns the name of the parsed timestamp column
func (t *Table) DateColumn() string {
	return t.dateColumn
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Times returns the timestamp of every row
func (t *Table) Times() []time.Time {
	return t.times
}

// HasColumn reports whether name is a header column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the raw values of a column
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	values := make([]string, len(t.rows))
	for r, row := range t.rows {
		values[r] = row[i]
	}
	return values, nil
}

// Float returns a column as numbers. Values that are not numeric become NaN.
func (t *Table) Float(name string) ([]float64, error) {
	raw, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = ParseMeasurement(v)
	}
	return values, nil
}

// ParseMeasurement parses a logged value, accepting a decimal comma. Empty or
// textual values yield NaN.
func ParseMeasurement(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return math.NaN()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return v
		}
	}
	return math.NaN()
}
