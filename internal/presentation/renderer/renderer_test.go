package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/core/figure"
	"github.com/penwyp/go-solis-viewer/internal/core/model"
	"github.com/penwyp/go-solis-viewer/internal/data/parser"
	"github.com/penwyp/go-solis-viewer/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayTable(t *testing.T) *model.Table {
	t.Helper()
	spec := fixtures.LogSpec{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 23, 50, 0, 0, time.UTC),
	}
	input := strings.Join(fixtures.Lines(spec), "\r\n")
	table, err := parser.NewParser("Date", time.UTC).Parse(strings.NewReader(input))
	require.NoError(t, err)
	return table
}

func mustSpec(t *testing.T, doc string) figure.Spec {
	t.Helper()
	spec, err := figure.Parse([]byte(doc))
	require.NoError(t, err)
	return spec
}

func TestRenderTwoPanelFigure(t *testing.T) {
	table := dayTable(t)
	spec := mustSpec(t, fixtures.TwoPanelConfig)

	fig, err := NewPanelRenderer(spec).Render(table, WindowTitle("/data/inverter.csv", "01"))
	require.NoError(t, err)

	assert.Equal(t, "inverter.csv - day 01", fig.Title)
	require.Len(t, fig.Panels, 2)

	first := fig.Panels[0]
	assert.Equal(t, "Inverter", first.Title)
	assert.Equal(t, "W / V", first.YLabel)
	require.Len(t, first.Series, 2)
	assert.Equal(t, "Power", first.Series[0].Label)
	assert.Equal(t, "Voltage", first.Series[1].Label)
	assert.Len(t, first.Series[0].X, 144)
	assert.Len(t, first.Series[0].Y, 144)
	assert.Nil(t, first.YLimits)
	assert.Equal(t, chart.LegendInside, first.Legend)

	second := fig.Panels[1]
	require.NotNil(t, second.YLimits)
	assert.Equal(t, chart.Limits{Min: 0, Max: 80}, *second.YLimits)
	r, ok := second.YRange()
	assert.True(t, ok)
	assert.Equal(t, chart.Limits{Min: 0, Max: 80}, r)
}

func TestRenderAutoScaleWithoutLimit(t *testing.T) {
	table := dayTable(t)
	fig, err := NewPanelRenderer(mustSpec(t, `[{"name": "P", "y_label": "W", "data": {"PAC": "Power"}}]`)).
		Render(table, "t")
	require.NoError(t, err)

	r, ok := fig.Panels[0].YRange()
	require.True(t, ok)
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 3000.0, r.Max)
}

func TestRenderLegendPlacement(t *testing.T) {
	table := dayTable(t)
	spec := mustSpec(t, `[
	  {"name": "four", "y_label": "°C", "data": {"T1": "1", "T2": "2", "T3": "3", "T4": "4"}},
	  {"name": "five", "y_label": "°C", "data": {"T1": "1", "T2": "2", "T3": "3", "T4": "4", "T5": "5"}}
	]`)

	fig, err := NewPanelRenderer(spec).Render(table, "t")
	require.NoError(t, err)

	assert.Equal(t, chart.LegendInside, fig.Panels[0].Legend)
	assert.Equal(t, chart.LegendOutside, fig.Panels[1].Legend)
	labels := make([]string, 0, 5)
	for _, s := range fig.Panels[1].Series {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, labels)
}

func TestRenderMissingColumnFailsBeforeAnyPanel(t *testing.T) {
	table := dayTable(t)
	spec := mustSpec(t, `[
	  {"name": "ok", "y_label": "", "data": {"PAC": "Power"}},
	  {"name": "broken", "y_label": "", "data": {"Nope": "Missing"}}
	]`)

	fig, err := NewPanelRenderer(spec).Render(table, "t")
	require.Error(t, err)
	assert.Nil(t, fig)
	assert.ErrorIs(t, err, model.ErrMissingColumn)
	assert.Contains(t, err.Error(), `panel 2 ("broken")`)
	assert.Contains(t, err.Error(), `"Nope"`)
}

func TestRenderEmptySpec(t *testing.T) {
	fig, err := NewPanelRenderer(figure.Spec{}).Render(dayTable(t), "t")
	require.NoError(t, err)
	assert.Empty(t, fig.Panels)
}

func TestRenderTextColumnBecomesGaps(t *testing.T) {
	fig, err := NewPanelRenderer(mustSpec(t, `[{"name": "s", "y_label": "", "data": {"Status": "State"}}]`)).
		Render(dayTable(t), "t")
	require.NoError(t, err)

	_, ok := fig.Panels[0].YRange()
	assert.False(t, ok)
}
