// Package chart holds a backend-independent description of a multi-panel
// time-series figure. Renderers translate a Figure into a concrete artifact.
package chart

import (
	"io"
	"math"
	"time"
)

// Formatting applied to every panel regardless of its data
const (
	TimeLabelFormat = "02/01@15:04:05" // day/month@hour:minute:second
	MaxTimeTicks    = 8
	MaxValueTicks   = 6
	TimeLabelRotate = 45 // degrees
	LegendInsideMax = 4  // more series than this moves the legend outside
	DefaultWidthPx  = 1000
	DefaultPanelPx  = 250
)

// LegendPlacement positions a panel legend relative to its plot area
type LegendPlacement int

const (
	LegendInside LegendPlacement = iota
	LegendOutside
)

func (p LegendPlacement) String() string {
	if p == LegendOutside {
		return "outside"
	}
	return "inside"
}

// PlacementFor returns the legend placement for a panel with n series
func PlacementFor(n int) LegendPlacement {
	if n > LegendInsideMax {
		return LegendOutside
	}
	return LegendInside
}

// Limits is a closed value range
type Limits struct {
	Min float64
	Max float64
}

// Series is one labelled line of a panel
type Series struct {
	Label string
	X     []time.Time
	Y     []float64 // NaN marks a missing value
}

// Panel is the capability a renderer needs from a chart panel
type Panel interface {
	AddSeries(label string, x []time.Time, y []float64)
	SetTitle(title string)
	SetYLabel(label string)
	SetYLimits(min, max float64)
	SetLegendPlacement(p LegendPlacement)
}

// PanelModel is the in-memory Panel implementation consumed by renderers
type PanelModel struct {
	Title   string
	YLabel  string
	Series  []Series
	YLimits *Limits
	Legend  LegendPlacement
}

var _ Panel = (*PanelModel)(nil)

func (p *PanelModel) AddSeries(label string, x []time.Time, y []float64) {
	p.Series = append(p.Series, Series{Label: label, X: x, Y: y})
}

func (p *PanelModel) SetTitle(title string) { p.Title = title }

func (p *PanelModel) SetYLabel(label string) { p.YLabel = label }

func (p *PanelModel) SetYLimits(min, max float64) {
	p.YLimits = &Limits{Min: min, Max: max}
}

func (p *PanelModel) SetLegendPlacement(placement LegendPlacement) { p.Legend = placement }

// YRange returns the fixed limits when set, otherwise the finite data range.
// ok is false when the panel has no finite values and no limits.
func (p *PanelModel) YRange() (r Limits, ok bool) {
	if p.YLimits != nil {
		return *p.YLimits, true
	}
	r = Limits{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, s := range p.Series {
		for _, v := range s.Y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			r.Min = math.Min(r.Min, v)
			r.Max = math.Max(r.Max, v)
		}
	}
	return r, r.Min <= r.Max
}

// Figure is a vertical stack of panels sharing one time axis
type Figure struct {
	Title  string
	Panels []*PanelModel
}

// NewFigure creates an empty figure
func NewFigure(title string) *Figure {
	return &Figure{Title: title}
}

// AddPanel appends a panel below the existing ones
func (f *Figure) AddPanel() Panel {
	p := &PanelModel{}
	f.Panels = append(f.Panels, p)
	return p
}

// TimeRange returns the earliest and latest timestamp over all panels
func (f *Figure) TimeRange() (start, end time.Time, ok bool) {
	for _, p := range f.Panels {
		for _, s := range p.Series {
			for _, t := range s.X {
				if !ok || t.Before(start) {
					start = t
				}
				if !ok || t.After(end) {
					end = t
				}
				ok = true
			}
		}
	}
	return start, end, ok
}

// Renderer writes a figure as a concrete artifact
type Renderer interface {
	Render(fig *Figure, w io.Writer) error
	ContentType() string
}
