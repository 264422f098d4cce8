// Package echarts renders a chart.Figure as an interactive HTML page. All
// panels join one ECharts connect group so the cross-hair and zoom follow
// the same instant on every panel.
package echarts

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

const (
	connectGroup    = "solis-figure"
	// timeValueLayout is parsed by the browser as local wall-clock time
	timeValueLayout = "2006-01-02 15:04:05"
	// axisTimeFormat mirrors chart.TimeLabelFormat in ECharts template syntax
	axisTimeFormat  = "{dd}/{MM}@{HH}:{mm}:{ss}"
)

// Options tunes the generated page
type Options struct {
	Width         string // CSS width of each panel
	PanelHeight   int    // pixels
	LiveReloadURL string // websocket path; empty disables live reload
}

// Renderer produces the HTML page of a figure
type Renderer struct {
	options Options
}

// NewRenderer creates an HTML renderer
func NewRenderer(options Options) *Renderer {
	if options.Width == "" {
		options.Width = "100%"
	}
	if options.PanelHeight <= 0 {
		options.PanelHeight = chart.DefaultPanelPx + 60
	}
	return &Renderer{options: options}
}

var _ chart.Renderer = (*Renderer)(nil)

// ContentType reports the MIME type of the rendered page
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the page for fig to w
func (r *Renderer) Render(fig *chart.Figure, w io.Writer) error {
	page := components.NewPage()
	page.SetPageTitle(fig.Title)

	start, end, hasTime := fig.TimeRange()
	ids := make([]string, 0, len(fig.Panels))
	for i, panel := range fig.Panels {
		id := panelID(i)
		ids = append(ids, id)
		page.AddCharts(r.lineChart(id, panel, start, end, hasTime))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}

	html := buf.String()
	html = strings.Replace(html, "<body>", "<body>\n"+headerHTML(fig), 1)
	html = strings.Replace(html, "</body>", r.scripts(ids)+"</body>", 1)

	if _, err := io.WriteString(w, html); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	util.LogDebugf("Rendered HTML figure %q with %d panels (%s)", fig.Title, len(fig.Panels), util.FormatBytes(int64(len(html))))
	return nil
}

func panelID(i int) string {
	return fmt.Sprintf("panel_%d", i)
}

// layout holds the placement of a panel's grid and legend
type layout struct {
	GridRight    string
	LegendOrient string
	LegendRight  string
	LegendTop    string
	LegendType   string
}

func layoutFor(placement chart.LegendPlacement) layout {
	if placement == chart.LegendOutside {
		return layout{
			GridRight:    "20%",
			LegendOrient: "vertical",
			LegendRight:  "1%",
			LegendTop:    "middle",
			LegendType:   "scroll",
		}
	}
	return layout{
		GridRight:    "4%",
		LegendOrient: "horizontal",
		LegendRight:  "5%",
		LegendTop:    "40",
		LegendType:   "plain",
	}
}

func (r *Renderer) lineChart(id string, panel *chart.PanelModel, start, end time.Time, hasTime bool) *charts.Line {
	l := layoutFor(panel.Legend)

	xAxis := opts.XAxis{
		Type:        "time",
		SplitNumber: chart.MaxTimeTicks,
		AxisLabel: &opts.AxisLabel{
			Rotate:    chart.TimeLabelRotate,
			Formatter: axisTimeFormat,
		},
	}
	if hasTime {
		xAxis.Min = start.Format(timeValueLayout)
		xAxis.Max = end.Format(timeValueLayout)
	}

	yAxis := opts.YAxis{
		Name:         panel.YLabel,
		Type:         "value",
		NameLocation: "middle",
		NameGap:      55,
		SplitNumber:  chart.MaxValueTicks,
	}
	if panel.YLimits != nil {
		yAxis.Min = panel.YLimits.Min
		yAxis.Max = panel.YLimits.Max
	} else {
		yAxis.Scale = opts.Bool(true)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: id,
			Width:   r.options.Width,
			Height:  fmt.Sprintf("%dpx", r.options.PanelHeight),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: panel.Title,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:        opts.Bool(true),
			Trigger:     "axis",
			AxisPointer: &opts.AxisPointer{Type: "cross"},
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:   opts.Bool(true),
			Type:   l.LegendType,
			Orient: l.LegendOrient,
			Right:  l.LegendRight,
			Top:    l.LegendTop,
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "8%",
			Right:  l.GridRight,
			Top:    "70",
			Bottom: "75",
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type: "inside",
		}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
	)

	for _, s := range panel.Series {
		line.AddSeries(s.Label, seriesData(s),
			charts.WithLineChartOpts(opts.LineChart{
				ShowSymbol: opts.Bool(false),
			}),
		)
	}
	return line
}

func seriesData(s chart.Series) []opts.LineData {
	data := make([]opts.LineData, len(s.X))
	for i, t := range s.X {
		var value interface{}
		if i < len(s.Y) && !math.IsNaN(s.Y[i]) && !math.IsInf(s.Y[i], 0) {
			value = s.Y[i]
		}
		data[i] = opts.LineData{Value: []interface{}{t.Format(timeValueLayout), value}}
	}
	return data
}

func headerHTML(fig *chart.Figure) string {
	return fmt.Sprintf(`<div class="figure-title" style="font-family: sans-serif; margin: 8px 16px;"><h2>%s</h2></div>`,
		escape(fig.Title))
}

func (r *Renderer) scripts(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}

	var b strings.Builder
	b.WriteString(`<script type="text/javascript">
(function () {
    var ids = [` + strings.Join(quoted, ", ") + `];
    ids.forEach(function (id) {
        var el = document.getElementById(id);
        var chart = el ? echarts.getInstanceByDom(el) : null;
        if (chart) {
            chart.group = "` + connectGroup + `";
        }
    });
    echarts.connect("` + connectGroup + `");
})();
</script>
`)
	if r.options.LiveReloadURL != "" {
		b.WriteString(LiveReloadScript(r.options.LiveReloadURL))
	}
	return b.String()
}

// LiveReloadScript reloads the page when the websocket at path announces a new figure
func LiveReloadScript(path string) string {
	return `<script type="text/javascript">
(function () {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "` + path + `");
    ws.onmessage = function (event) {
        try {
            var msg = JSON.parse(event.data);
            if (msg.type === "reload") {
                location.reload();
            }
        } catch (e) {}
    };
})();
</script>
`
}

// ImagePage wraps a static figure image in a page. A non-empty liveReloadURL
// connects the page to the viewer so closing it ends the session.
func ImagePage(title, src, liveReloadURL string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(escape(title))
	b.WriteString("</title>\n</head>\n<body>\n")
	b.WriteString(fmt.Sprintf(`<div class="figure-title" style="font-family: sans-serif; margin: 8px 16px;"><h2>%s</h2></div>`, escape(title)))
	b.WriteString(fmt.Sprintf("\n<img src=\"%s\" alt=\"%s\" style=\"max-width: 100%%;\">\n", escape(src), escape(title)))
	if liveReloadURL != "" {
		b.WriteString(LiveReloadScript(liveReloadURL))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return htmlEscaper.Replace(s)
}
