package viewer

import (
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/core/figure"
	"github.com/penwyp/go-solis-viewer/internal/core/model"
	"github.com/penwyp/go-solis-viewer/internal/data/filter"
	"github.com/penwyp/go-solis-viewer/internal/data/parser"
	"github.com/penwyp/go-solis-viewer/internal/presentation/renderer"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

// Result is the outcome of one pipeline run
type Result struct {
	Figure    *chart.Figure
	Table     *model.Table
	Stats     filter.Stats
	CleanPath string
	Duration  time.Duration
}

// Pipeline runs filter, load and render for one source and day
type Pipeline struct {
	config *Config
	filter *filter.LogFilter
	parser *parser.Parser

	mu   sync.RWMutex
	spec figure.Spec
}

// NewPipeline creates a pipeline. config must be validated.
func NewPipeline(config *Config, spec figure.Spec) (*Pipeline, error) {
	if err := util.InitializeTimeProvider(config.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize timezone: %w", err)
	}
	loc := util.GetTimeProvider().Location()

	return &Pipeline{
		config: config,
		filter: filter.NewLogFilter(config.Day, filter.Options{
			DateMarker:    config.DateMarker,
			ExcludeMarker: config.ExcludeMarker,
		}),
		parser: parser.NewParser(config.DateMarker, loc),
		spec:   spec,
	}, nil
}

// Spec returns the figure configuration in use
func (p *Pipeline) Spec() figure.Spec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.spec
}

// ReloadSpec reads the figure configuration again. On error the previous
// configuration stays in use.
func (p *Pipeline) ReloadSpec() error {
	spec, err := figure.Load(p.config.FigureConfig)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.spec = spec
	p.mu.Unlock()
	util.LogInfof("Reloaded figure configuration %s (%d panels)", p.config.FigureConfig, len(spec))
	return nil
}

// Load filters the source to the configured day and parses the cleaned file
func (p *Pipeline) Load() (*model.Table, filter.Stats, string, error) {
	cleanPath, stats, err := p.filter.FilterFile(p.config.Source)
	if err != nil {
		return nil, stats, "", err
	}
	table, err := p.parser.ParseFile(cleanPath)
	if err != nil {
		return nil, stats, cleanPath, err
	}
	return table, stats, cleanPath, nil
}

// Run executes the whole pipeline and returns the figure
func (p *Pipeline) Run() (*Result, error) {
	start := time.Now()

	table, stats, cleanPath, err := p.Load()
	if err != nil {
		return nil, err
	}

	spec := p.Spec()
	util.LogDebug("Rendering figure", util.F("columns", spec.Columns()))

	title := renderer.WindowTitle(p.config.Source, p.config.Day)
	fig, err := renderer.NewPanelRenderer(spec).Render(table, title)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Figure:    fig,
		Table:     table,
		Stats:     stats,
		CleanPath: cleanPath,
		Duration:  time.Since(start),
	}
	util.LogInfo("Pipeline finished",
		util.F("source", p.config.Source),
		util.F("day", p.config.Day),
		util.F("rows", table.Len()),
		util.F("panels", len(fig.Panels)),
		util.F("duration", result.Duration.String()))
	return result, nil
}
