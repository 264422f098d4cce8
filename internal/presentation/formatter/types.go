package formatter

import (
	"math"

	"github.com/penwyp/go-solis-viewer/internal/core/model"
)

// ColumnSummary describes the values of one table column
type ColumnSummary struct {
	Name    string   `json:"name"`
	Numeric int      `json:"numeric"`
	Missing int      `json:"missing"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Last    string   `json:"last"`
}

// Report is the column listing of one filtered day
type Report struct {
	Source  string          `json:"source"`
	Day     string          `json:"day"`
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
}

// Summarize computes a summary for every column in header order
func Summarize(table *model.Table) []ColumnSummary {
	summaries := make([]ColumnSummary, 0, len(table.Columns()))
	for _, name := range table.Columns() {
		raw, err := table.Column(name)
		if err != nil {
			continue
		}

		s := ColumnSummary{Name: name}
		if len(raw) > 0 {
			s.Last = raw[len(raw)-1]
		}

		if name == table.DateColumn() {
			summaries = append(summaries, s)
			continue
		}

		min, max := math.Inf(1), math.Inf(-1)
		for _, v := range raw {
			f := model.ParseMeasurement(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				s.Missing++
				continue
			}
			s.Numeric++
			min = math.Min(min, f)
			max = math.Max(max, f)
		}
		if s.Numeric > 0 {
			s.Min, s.Max = &min, &max
		}
		summaries = append(summaries, s)
	}
	return summaries
}
