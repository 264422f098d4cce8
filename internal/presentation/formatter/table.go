package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-solis-viewer/internal/util"
)

const lastColumn = 5

type TableFormatter struct {
	headers  []string
	maxWidth int
}

// NewTableFormatter creates a formatter fitting tables into maxWidth
// terminal columns; zero means the current terminal width.
func NewTableFormatter(maxWidth int) *TableFormatter {
	if maxWidth <= 0 {
		maxWidth = util.TerminalWidth()
	}
	return &TableFormatter{
		headers:  []string{"Column", "Numeric", "Missing", "Min", "Max", "Last"},
		maxWidth: maxWidth,
	}
}

func (f *TableFormatter) Format(w io.Writer, report Report) error {
	title := fmt.Sprintf("%s - day %s (%s rows)", report.Source, report.Day, util.FormatNumber(report.Rows))
	if _, err := fmt.Fprintln(w, util.FormatHeaderTitle(title)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(report.Columns))
	for _, c := range report.Columns {
		rows = append(rows, []string{
			c.Name,
			util.FormatNumber(c.Numeric),
			util.FormatNumber(c.Missing),
			formatBound(c.Min),
			formatBound(c.Max),
			c.Last,
		})
	}

	widths := f.calculateColumnWidths(rows)
	for _, row := range rows {
		row[lastColumn] = util.TruncateToWidth(row[lastColumn], widths[lastColumn])
	}

	f.printBorder(w, widths, "top")
	f.printRow(w, f.headers, widths)
	f.printBorder(w, widths, "middle")
	for _, row := range rows {
		f.printRow(w, row, widths)
	}
	f.printBorder(w, widths, "bottom")
	return nil
}

// calculateColumnWidths sizes every column to its content. The free-text
// Last column shrinks when the table would exceed the terminal.
func (f *TableFormatter) calculateColumnWidths(rows [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, header := range f.headers {
		widths[i] = util.GetDisplayWidth(header)
	}
	for _, row := range rows {
		for i, value := range row {
			if w := util.GetDisplayWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}

	// each column adds two spaces of padding and one border
	total := 1
	for _, w := range widths {
		total += w + 3
	}
	if over := total - f.maxWidth; over > 0 {
		minLast := util.GetDisplayWidth(f.headers[lastColumn])
		widths[lastColumn] = max(minLast, widths[lastColumn]-over)
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(w io.Writer, widths []int, borderType string) {
	var left, middle, right, separator string

	switch borderType {
	case "top":
		left, middle, right, separator = "┌", "┬", "┐", "─"
	case "middle":
		left, middle, right, separator = "├", "┼", "┤", "─"
	case "bottom":
		left, middle, right, separator = "└", "┴", "┘", "─"
	}

	fmt.Fprint(w, left)
	for i, width := range widths {
		fmt.Fprint(w, strings.Repeat(separator, width+2)) // +2 for padding spaces
		if i < len(widths)-1 {
			fmt.Fprint(w, middle)
		}
	}
	fmt.Fprintln(w, right)
}

// printRow prints a row; name and last value are left-aligned, counts and bounds right-aligned
func (f *TableFormatter) printRow(w io.Writer, values []string, widths []int) {
	fmt.Fprint(w, "│")
	for i, value := range values {
		leftAlign := i == 0 || i == lastColumn
		fmt.Fprintf(w, " %s │", util.PadString(value, widths[i], leftAlign))
	}
	fmt.Fprintln(w)
}

func formatBound(v *float64) string {
	if v == nil {
		return "-"
	}
	return util.FormatScalar(*v)
}
