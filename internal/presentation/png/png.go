// Package png renders a chart.Figure as a static PNG image with gonum/plot.
package png

import (
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

const (
	pixelsPerInch = 96
	titleBand     = 28 // points reserved above the panels
	legendGutter  = 0.18
	panelGap      = 12
)

// Options sizes the image in pixels
type Options struct {
	WidthPx int
	PanelPx int
}

// Renderer draws figures into PNG images
type Renderer struct {
	width vg.Length
	panel vg.Length
}

// NewRenderer creates a PNG renderer
func NewRenderer(options Options) *Renderer {
	if options.WidthPx <= 0 {
		options.WidthPx = chart.DefaultWidthPx
	}
	if options.PanelPx <= 0 {
		options.PanelPx = chart.DefaultPanelPx
	}
	return &Renderer{
		width: pixels(options.WidthPx),
		panel: pixels(options.PanelPx),
	}
}

var _ chart.Renderer = (*Renderer)(nil)

func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / pixelsPerInch
}

// ContentType reports the MIME type of the rendered image
func (r *Renderer) ContentType() string {
	return "image/png"
}

// Render draws fig and writes the encoded PNG to w
func (r *Renderer) Render(fig *chart.Figure, w io.Writer) error {
	n := len(fig.Panels)
	height := vg.Length(titleBand) + r.panel*vg.Length(max(n, 1))

	img := vgimg.NewWith(vgimg.UseWH(r.width, height), vgimg.UseDPI(pixelsPerInch))
	dc := draw.New(img)

	titleStyle := plot.New().Title.TextStyle
	titleStyle.Font.Size = vg.Points(14)
	dc.FillText(titleStyle, vg.Point{X: dc.Center().X, Y: dc.Max.Y - 4}, fig.Title)

	if n > 0 {
		if err := r.drawPanels(fig, draw.Crop(dc, 0, 0, 0, -titleBand)); err != nil {
			return err
		}
	}

	written, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	if err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	util.LogDebugf("Rendered PNG figure %q with %d panels (%s)", fig.Title, n, util.FormatBytes(written))
	return nil
}

func (r *Renderer) drawPanels(fig *chart.Figure, dc draw.Canvas) error {
	start, end, hasTime := fig.TimeRange()
	loc := time.Local
	if hasTime {
		loc = start.Location()
	}

	gutter := vg.Length(0)
	for _, p := range fig.Panels {
		if p.Legend == chart.LegendOutside {
			gutter = dc.Size().X * legendGutter
			break
		}
	}

	plots := make([][]*plot.Plot, len(fig.Panels))
	legends := make([]*plot.Legend, len(fig.Panels))
	for i, panel := range fig.Panels {
		p, legend, err := buildPlot(panel, loc)
		if err != nil {
			return fmt.Errorf("panel %q: %w", panel.Title, err)
		}
		if hasTime {
			p.X.Min = float64(start.Unix())
			p.X.Max = float64(end.Unix())
		}
		plots[i] = []*plot.Plot{p}
		legends[i] = legend
	}

	tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadY: panelGap, PadRight: 8, PadLeft: 4}
	canvases := plot.Align(plots, tiles, draw.Crop(dc, 0, -gutter, 0, 0))

	for i, row := range plots {
		tile := canvases[i][0]
		row[0].Draw(tile)

		if legends[i] != nil {
			area := draw.Canvas{
				Canvas: dc.Canvas,
				Rectangle: vg.Rectangle{
					Min: vg.Point{X: tile.Max.X + 8, Y: tile.Min.Y},
					Max: vg.Point{X: dc.Max.X, Y: tile.Max.Y - 18},
				},
			}
			legends[i].Draw(area)
		}
	}
	return nil
}

// buildPlot converts one panel. The returned legend is non-nil when it must
// be drawn outside the plot area.
func buildPlot(panel *chart.PanelModel, loc *time.Location) (*plot.Plot, *plot.Legend, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.Y.Label.Text = panel.YLabel

	p.X.Tick.Marker = plot.TimeTicks{
		Ticker: cappedTicks{max: chart.MaxTimeTicks},
		Format: chart.TimeLabelFormat,
		Time:   plot.UnixTimeIn(loc),
	}
	p.X.Tick.Label.Rotation = chart.TimeLabelRotate * math.Pi / 180
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Tick.Marker = cappedTicks{max: chart.MaxValueTicks, plain: true}

	var outside *plot.Legend
	if panel.Legend == chart.LegendOutside {
		l := plot.NewLegend()
		l.Top = true
		l.Left = true
		outside = &l
	} else {
		p.Legend.Top = true
	}

	for i, s := range panel.Series {
		segments := finiteSegments(s)
		if len(segments) == 0 {
			continue
		}
		color := plotutil.Color(i)
		var first *plotter.Line
		for _, xys := range segments {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, nil, fmt.Errorf("series %q: %w", s.Label, err)
			}
			line.LineStyle.Color = color
			line.LineStyle.Width = vg.Points(1.2)
			p.Add(line)
			if first == nil {
				first = line
			}
		}
		if outside != nil {
			outside.Add(s.Label, first)
		} else {
			p.Legend.Add(s.Label, first)
		}
	}

	if panel.YLimits != nil {
		p.Y.Min = panel.YLimits.Min
		p.Y.Max = panel.YLimits.Max
	}
	return p, outside, nil
}

// finiteSegments splits a series at missing values so gaps stay visible
func finiteSegments(s chart.Series) []plotter.XYs {
	var (
		segments []plotter.XYs
		current  plotter.XYs
	)
	for i, t := range s.X {
		if i >= len(s.Y) {
			break
		}
		v := s.Y[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			continue
		}
		current = append(current, plotter.XY{X: float64(t.Unix()), Y: v})
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

// cappedTicks limits the number of labelled ticks produced by the default
// ticker. Dropped labels become minor ticks.
type cappedTicks struct {
	max   int
	plain bool
}

func (c cappedTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)

	major := 0
	for _, t := range ticks {
		if !t.IsMinor() {
			major++
		}
	}
	step := 1
	if c.max > 0 && major > c.max {
		step = (major + c.max - 1) / c.max
	}

	k := 0
	for i := range ticks {
		if ticks[i].IsMinor() {
			continue
		}
		if k%step != 0 {
			ticks[i].Label = ""
		} else if c.plain {
			ticks[i].Label = util.FormatScalar(ticks[i].Value)
		}
		k++
	}
	return ticks
}
