package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/model"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

const (
	// DefaultDateColumn is the header name of the timestamp column
	DefaultDateColumn = "Date"
	// DateLayout is day/month/two-digit year, hour:minute
	DateLayout = "02/01/06 15:04"
)

var (
	// ErrMissingHeader is returned for a cleaned file without any line
	ErrMissingHeader = errors.New("missing header row")
	// ErrNoRows is returned when the header is not followed by data
	ErrNoRows = errors.New("table has no data rows")
)

// Parser loads cleaned logs into tables
type Parser struct {
	dateColumn string
	location   *time.Location

	mu    sync.Mutex
	cache map[string]cachedTable
}

type cachedTable struct {
	fingerprint string
	table       *model.Table
}

// NewParser creates a parser for the given date column. Timestamps are
// interpreted in loc; nil means the configured time provider location.
func NewParser(dateColumn string, loc *time.Location) *Parser {
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}
	if loc == nil {
		loc = util.GetTimeProvider().Location()
	}
	return &Parser{
		dateColumn: dateColumn,
		location:   loc,
		cache:      make(map[string]cachedTable),
	}
}

// ParseFile parses the cleaned log at path. An unchanged file is served from cache.
func (p *Parser) ParseFile(path string) (*model.Table, error) {
	fingerprint, err := util.FileFingerprint(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cleaned log: %w", err)
	}

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && cached.fingerprint == fingerprint {
		p.mu.Unlock()
		util.LogDebugf("Using cached table for %s", path)
		return cached.table, nil
	}
	p.mu.Unlock()

	util.LogDebug(fmt.Sprintf("Start parsing file: %s", path))
	start := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cleaned log: %w", err)
	}
	defer file.Close()

	table, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p.mu.Lock()
	p.cache[path] = cachedTable{fingerprint: fingerprint, table: table}
	p.mu.Unlock()

	util.LogDebug(fmt.Sprintf("Parsed %s in %v", path, time.Since(start)),
		util.F("rows", table.Len()), util.F("columns", len(table.Columns())))
	return table, nil
}

// Parse reads a semicolon-delimited table whose first record is the header.
// Every row must have the header's width and a valid timestamp.
func (p *Parser) Parse(r io.Reader) (*model.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}
	header = normalizeHeader(header)

	dateIndex := dateColumnIndex(header, p.dateColumn)
	if dateIndex < 0 {
		return nil, fmt.Errorf("%w: %q in header %v", model.ErrMissingColumn, p.dateColumn, header)
	}
	dateColumn := header[dateIndex]

	var rows [][]string
	var times []time.Time
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		raw := strings.TrimSpace(record[dateIndex])
		ts, err := time.ParseInLocation(DateLayout, raw, p.location)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s value %q: %w", line, dateColumn, raw, err)
		}

		rows = append(rows, record)
		times = append(times, ts)
	}

	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return model.NewTable(header, rows, dateColumn, times)
}

// dateColumnIndex finds the date column by exact name, else the first column
// whose name contains it, matching how header lines are recognised.
func dateColumnIndex(header []string, name string) int {
	for i, column := range header {
		if column == name {
			return i
		}
	}
	for i, column := range header {
		if strings.Contains(column, name) {
			return i
		}
	}
	return -1
}

// normalizeHeader strips a UTF-8 byte order mark and surrounding blanks
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}
