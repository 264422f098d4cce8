package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/util"
)

const (
	// DefaultDateMarker identifies the header line by the name of its date column
	DefaultDateMarker = "Date"
	// DefaultExcludeMarker tags lines written by the inverter vendor's own device namespace
	DefaultExcludeMarker = "Solis"

	fieldSeparator = ";"
	lineEnding     = "\r\n"
)

// Options controls how lines are classified
type Options struct {
	DateMarker    string
	ExcludeMarker string
}

// DefaultOptions returns the markers used by Solis data loggers
func DefaultOptions() Options {
	return Options{
		DateMarker:    DefaultDateMarker,
		ExcludeMarker: DefaultExcludeMarker,
	}
}

func (o Options) withDefaults() Options {
	if o.DateMarker == "" {
		o.DateMarker = DefaultDateMarker
	}
	return o
}

// Stats summarises a filter pass
type Stats struct {
	LinesRead        int
	Kept             int
	Excluded         int
	DuplicateHeaders int
	OtherDays        int
	HeaderFound      bool
}

// LogFilter keeps the header and the rows of one day from a sensor log
type LogFilter struct {
	day     string
	options Options
}

// NewLogFilter creates a filter for day. The day is compared verbatim with the
// leading slash-delimited segment of each row's date field.
func NewLogFilter(day string, options Options) *LogFilter {
	return &LogFilter{
		day:     day,
		options: options.withDefaults(),
	}
}

// CleanPath derives the cleaned-file path: "log.csv" becomes "log.clean.csv"
func CleanPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + ".clean" + ext
}

// Filter copies the retained lines of r to w, each terminated by CRLF
func (f *LogFilter) Filter(r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	out := bufio.NewWriter(w)
	dateIndex := 0

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		stats.LinesRead++

		if line == "" {
			continue
		}

		if f.options.ExcludeMarker != "" && strings.Contains(line, f.options.ExcludeMarker) {
			stats.Excluded++
			continue
		}

		if strings.Contains(line, f.options.DateMarker) {
			if stats.HeaderFound {
				stats.DuplicateHeaders++
				continue
			}
			stats.HeaderFound = true
			dateIndex = columnIndex(line, f.options.DateMarker)
			if err := writeLine(out, line); err != nil {
				return stats, err
			}
			continue
		}

		if daySegment(line, dateIndex) != f.day {
			stats.OtherDays++
			continue
		}

		stats.Kept++
		if err := writeLine(out, line); err != nil {
			return stats, err
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read log: %w", err)
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("failed to write cleaned log: %w", err)
	}
	return stats, nil
}

// FilterFile filters src into CleanPath(src), overwriting any previous
// cleaned file, and returns the cleaned path.
func (f *LogFilter) FilterFile(src string) (string, Stats, error) {
	start := time.Now()

	in, err := os.Open(src)
	if err != nil {
		return "", Stats{}, fmt.Errorf("failed to open source log: %w", err)
	}
	defer in.Close()

	dst := CleanPath(src)
	out, err := os.Create(dst)
	if err != nil {
		return "", Stats{}, fmt.Errorf("failed to create cleaned log: %w", err)
	}

	stats, err := f.Filter(in, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close cleaned log: %w", closeErr)
	}
	if err != nil {
		return "", stats, err
	}

	util.LogDebug(fmt.Sprintf("Filtered %s for day %q in %v", src, f.day, time.Since(start)),
		util.F("read", stats.LinesRead),
		util.F("kept", stats.Kept),
		util.F("excluded", stats.Excluded),
		util.F("duplicate_headers", stats.DuplicateHeaders))
	if !stats.HeaderFound {
		util.LogWarnf("No header line containing %q found in %s", f.options.DateMarker, src)
	}
	if stats.Kept == 0 {
		util.LogWarnf("No rows for day %q in %s", f.day, src)
	}

	return dst, stats, nil
}

// columnIndex finds the field of header that contains marker
func columnIndex(header, marker string) int {
	for i, field := range strings.Split(header, fieldSeparator) {
		if strings.Contains(field, marker) {
			return i
		}
	}
	return 0
}

// daySegment returns the text before the first slash of the date field.
// With the date in the first column this is the text before the line's
// first slash.
func daySegment(line string, dateIndex int) string {
	field := line
	if dateIndex > 0 {
		fields := strings.Split(line, fieldSeparator)
		if dateIndex >= len(fields) {
			return ""
		}
		field = fields[dateIndex]
	}
	if i := strings.Index(field, "/"); i >= 0 {
		return field[:i]
	}
	return field
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	_, err := w.WriteString(lineEnding)
	return err
}
