package formatter

import (
	"fmt"
	"io"
)

// Formatter writes a column report
type Formatter interface {
	Format(w io.Writer, report Report) error
}

// New returns the formatter for an output name: "table" or "json"
func New(output string) (Formatter, error) {
	switch output {
	case "", "table":
		return NewTableFormatter(0), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use table or json)", output)
	}
}
