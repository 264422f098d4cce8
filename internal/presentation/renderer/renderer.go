package renderer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/core/figure"
	"github.com/penwyp/go-solis-viewer/internal/core/model"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

// PanelRenderer maps a figure configuration onto chart panels
type PanelRenderer struct {
	spec figure.Spec
}

// NewPanelRenderer creates a renderer for spec
func NewPanelRenderer(spec figure.Spec) *PanelRenderer {
	return &PanelRenderer{spec: spec}
}

// WindowTitle names a figure after the source log and the day shown
func WindowTitle(source, day string) string {
	return fmt.Sprintf("%s - day %s", filepath.Base(source), day)
}

// Validate checks that every configured column exists in table
func (r *PanelRenderer) Validate(table *model.Table) error {
	for i, panel := range r.spec {
		for _, ref := range panel.Data {
			if !table.HasColumn(ref.Column) {
				return fmt.Errorf("panel %d (%q): %w: %q", i+1, panel.Name, model.ErrMissingColumn, ref.Column)
			}
		}
	}
	return nil
}

// Render draws every panel into a new figure. Columns are validated first so
// a bad reference fails before any panel exists.
func (r *PanelRenderer) Render(table *model.Table, title string) (*chart.Figure, error) {
	if err := r.Validate(table); err != nil {
		return nil, err
	}

	fig := chart.NewFigure(title)
	times := table.Times()

	for _, spec := range r.spec {
		panel := fig.AddPanel()
		if err := r.renderPanel(panel, spec, table, times); err != nil {
			return nil, err
		}
	}

	util.LogDebugf("Rendered %d panels over %d rows", len(fig.Panels), table.Len())
	return fig, nil
}

func (r *PanelRenderer) renderPanel(panel chart.Panel, spec figure.PanelSpec, table *model.Table, times []time.Time) error {
	for _, ref := range spec.Data {
		values, err := table.Float(ref.Column)
		if err != nil {
			return fmt.Errorf("panel %q: %w", spec.Name, err)
		}
		panel.AddSeries(ref.Label, times, values)
	}

	panel.SetTitle(spec.Name)
	panel.SetYLabel(spec.YLabel)
	if spec.YLimit != nil {
		panel.SetYLimits(spec.YLimit.Min, spec.YLimit.Max)
	}
	panel.SetLegendPlacement(chart.PlacementFor(len(spec.Data)))
	return nil
}
