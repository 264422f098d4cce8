package echarts

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFigure(t *testing.T, seriesInFirstPanel int) *chart.Figure {
	t.Helper()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	x := make([]time.Time, 6)
	for i := range x {
		x[i] = start.Add(time.Duration(i) * 10 * time.Minute)
	}

	fig := chart.NewFigure("inverter.csv - day 01")

	p1 := fig.AddPanel()
	p1.SetTitle("Inverter")
	p1.SetYLabel("W")
	for i := 0; i < seriesInFirstPanel; i++ {
		p1.AddSeries("S"+string(rune('A'+i)), x, []float64{0, 1, math.NaN(), 3, 4, 5})
	}
	p1.SetLegendPlacement(chart.PlacementFor(seriesInFirstPanel))

	p2 := fig.AddPanel()
	p2.SetTitle("Temperature")
	p2.SetYLabel("C")
	p2.AddSeries("Temp", x, []float64{20, 21, 22, 23, 24, 25})
	p2.SetYLimits(0, 80)
	p2.SetLegendPlacement(chart.LegendInside)
	return fig
}

func render(t *testing.T, r *Renderer, fig *chart.Figure) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(fig, &buf))
	return buf.String()
}

func TestRenderPage(t *testing.T) {
	html := render(t, NewRenderer(Options{}), sampleFigure(t, 2))

	assert.Contains(t, html, "<title>inverter.csv - day 01</title>")
	assert.Contains(t, html, `id="panel_0"`)
	assert.Contains(t, html, `id="panel_1"`)
	assert.Contains(t, html, `echarts.connect("solis-figure")`)
	assert.Contains(t, html, `var ids = ["panel_0", "panel_1"];`)
	assert.Contains(t, html, `"Inverter"`)
	assert.Contains(t, html, `"Temperature"`)
	assert.Contains(t, html, `"cross"`)
	assert.Contains(t, html, axisTimeFormat)
	assert.NotContains(t, html, "new WebSocket")

	// connect script runs after the chart instances exist
	assert.Greater(t, strings.Index(html, "echarts.connect"), strings.LastIndex(html, "echarts.init"))
}

func TestRenderAxes(t *testing.T) {
	html := render(t, NewRenderer(Options{}), sampleFigure(t, 1))

	assert.Contains(t, html, `"max":80`)
	assert.Contains(t, html, `"scale":true`)
	assert.Contains(t, html, `"min":"2025-03-01 00:00:00"`)
	assert.Contains(t, html, `"max":"2025-03-01 00:50:00"`)
	assert.Contains(t, html, `["2025-03-01 00:20:00",null]`)
}

func TestRenderLegendPlacement(t *testing.T) {
	assert.NotContains(t, render(t, NewRenderer(Options{}), sampleFigure(t, 4)), `"orient":"vertical"`)
	assert.Contains(t, render(t, NewRenderer(Options{}), sampleFigure(t, 5)), `"orient":"vertical"`)
}

func TestLayoutFor(t *testing.T) {
	inside := layoutFor(chart.LegendInside)
	outside := layoutFor(chart.LegendOutside)

	assert.Equal(t, "horizontal", inside.LegendOrient)
	assert.Equal(t, "vertical", outside.LegendOrient)
	assert.Equal(t, "20%", outside.GridRight)
	assert.Equal(t, "4%", inside.GridRight)
}

func TestRenderLiveReload(t *testing.T) {
	html := render(t, NewRenderer(Options{LiveReloadURL: "/ws"}), sampleFigure(t, 1))

	assert.Contains(t, html, `new WebSocket(scheme + location.host + "/ws")`)
	assert.Contains(t, html, `msg.type === "reload"`)
}

func TestRenderEmptyFigure(t *testing.T) {
	html := render(t, NewRenderer(Options{}), chart.NewFigure("empty.csv - day 01"))

	assert.Contains(t, html, "<title>empty.csv - day 01</title>")
	assert.Contains(t, html, "var ids = [];")
}

func TestRenderEscapesTitle(t *testing.T) {
	html := render(t, NewRenderer(Options{}), chart.NewFigure("a<b>.csv - day 01"))
	assert.Contains(t, html, "<h2>a&lt;b&gt;.csv - day 01</h2>")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", NewRenderer(Options{}).ContentType())
}

func TestImagePage(t *testing.T) {
	tests := []struct {
		name       string
		liveReload string
		wantSocket bool
	}{
		{"served", "/ws", true},
		{"standalone", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := ImagePage("a<b>.csv - day 01", "/figure.png?v=3", tt.liveReload)

			assert.Contains(t, page, "<title>a&lt;b&gt;.csv - day 01</title>")
			assert.Contains(t, page, `<img src="/figure.png?v=3"`)
			assert.Equal(t, tt.wantSocket, strings.Contains(page, "new WebSocket"))
		})
	}
}
