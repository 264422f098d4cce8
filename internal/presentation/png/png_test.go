package png

import (
	"bytes"
	stdpng "image/png"
	"math"
	"testing"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeline(n int) []time.Time {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	x := make([]time.Time, n)
	for i := range x {
		x[i] = start.Add(time.Duration(i) * 10 * time.Minute)
	}
	return x
}

func TestRenderDecodes(t *testing.T) {
	x := timeline(144)
	y := make([]float64, len(x))
	for i := range y {
		y[i] = 3000 * math.Max(0, math.Sin(float64(i)/143*math.Pi))
	}
	y[40] = math.NaN()

	fig := chart.NewFigure("inverter.csv - day 01")
	p1 := fig.AddPanel()
	p1.SetTitle("Inverter")
	p1.SetYLabel("W")
	for i := 0; i < 5; i++ {
		p1.AddSeries(string(rune('A'+i)), x, y)
	}
	p1.SetLegendPlacement(chart.LegendOutside)

	p2 := fig.AddPanel()
	p2.SetTitle("Temperature")
	p2.AddSeries("Temp", x, y)
	p2.SetYLimits(0, 80)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(Options{}).Render(fig, &buf))

	img, err := stdpng.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart.DefaultWidthPx, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 2*chart.DefaultPanelPx)
}

func TestRenderEmptyFigure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(Options{WidthPx: 400, PanelPx: 100}).Render(chart.NewFigure("empty"), &buf))

	img, err := stdpng.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
}

func TestRenderPanelWithoutData(t *testing.T) {
	fig := chart.NewFigure("blank")
	p := fig.AddPanel()
	p.AddSeries("Status", timeline(3), []float64{math.NaN(), math.NaN(), math.NaN()})

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(Options{}).Render(fig, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestFiniteSegments(t *testing.T) {
	x := timeline(6)
	s := chart.Series{Label: "PAC", X: x, Y: []float64{1, 2, math.NaN(), 4, math.Inf(1), 6}}

	segments := finiteSegments(s)
	require.Len(t, segments, 3)
	assert.Len(t, segments[0], 2)
	assert.Len(t, segments[1], 1)
	assert.Len(t, segments[2], 1)
	assert.Equal(t, float64(x[3].Unix()), segments[1][0].X)
	assert.Equal(t, 6.0, segments[2][0].Y)
}

func TestCappedTicks(t *testing.T) {
	for _, limit := range []int{2, 3, 6} {
		ticks := cappedTicks{max: limit, plain: true}.Ticks(0, 1000)
		labelled := 0
		for _, tick := range ticks {
			if !tick.IsMinor() {
				labelled++
				assert.NotContains(t, tick.Label, "e+")
			}
		}
		assert.LessOrEqual(t, labelled, limit)
		assert.Greater(t, labelled, 0)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", NewRenderer(Options{}).ContentType())
}
