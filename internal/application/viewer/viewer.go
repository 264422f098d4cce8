package viewer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/core/figure"
	"github.com/penwyp/go-solis-viewer/internal/presentation/echarts"
	"github.com/penwyp/go-solis-viewer/internal/presentation/png"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

const shutdownTimeout = 5 * time.Second

// Viewer coordinates the pipeline with saving or serving the figure
type Viewer struct {
	config   *Config
	pipeline *Pipeline
	state    *StateManager
	hub      *Hub
	out      io.Writer

	controller *RefreshController

	openBrowser func(url string) error
}

// New creates a viewer for spec. Progress messages for the user go to out.
func New(config *Config, spec figure.Spec, out io.Writer) (*Viewer, error) {
	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pipeline, err := NewPipeline(config, spec)
	if err != nil {
		return nil, err
	}

	return &Viewer{
		config:      config,
		pipeline:    pipeline,
		state:       NewStateManager(),
		hub:         NewHub(config.IdleGrace),
		out:         out,
		openBrowser: openBrowser,
	}, nil
}

// Renderer returns the figure renderer for an output format. Live reload is
// only wired into pages that are served.
func Renderer(output string, serving bool) chart.Renderer {
	if output == OutputPNG {
		return png.NewRenderer(png.Options{})
	}
	options := echarts.Options{}
	if serving {
		options.LiveReloadURL = "/ws"
	}
	return echarts.NewRenderer(options)
}

// Run renders the figure, then saves it or serves it until ctx is cancelled
// or the last viewer closes the page.
func (v *Viewer) Run(ctx context.Context) error {
	result, err := v.pipeline.Run()
	if err != nil {
		return err
	}
	v.state.SetResult(result)
	util.LogInfo("Filtered log",
		util.F("clean", result.CleanPath),
		util.F("kept", result.Stats.Kept),
		util.F("excluded", result.Stats.Excluded),
		util.F("other_days", result.Stats.OtherDays),
		util.F("duplicate_headers", result.Stats.DuplicateHeaders))

	if v.config.SavePath != "" {
		return v.save(result)
	}
	return v.serve(ctx)
}

func (v *Viewer) save(result *Result) error {
	file, err := os.Create(v.config.SavePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", v.config.SavePath, err)
	}

	err = Renderer(v.config.Output, false).Render(result.Figure, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to save figure: %w", err)
	}

	util.LogInfof("Saved figure to %s", v.config.SavePath)
	fmt.Fprintf(v.out, "Saved %s (%d panels, %d rows)\n", v.config.SavePath, len(result.Figure.Panels), result.Table.Len())
	return nil
}

func (v *Viewer) serve(ctx context.Context) error {
	server := NewServer(v.state, v.hub, Renderer(OutputHTML, true), Renderer(OutputPNG, true))
	url, err := server.Start(v.config.Addr)
	if err != nil {
		return err
	}
	defer v.hub.Close()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			util.LogWarn("Viewer server shutdown failed", util.F("error", err.Error()))
		}
	}()

	page := url
	if v.config.Output == OutputPNG {
		page = url + "image"
	}
	fmt.Fprintf(v.out, "Showing %s at %s (close the page or press Ctrl+C to quit)\n", v.title(), page)

	if v.config.OpenBrowser {
		if err := v.openBrowser(page); err != nil {
			util.LogWarn("Failed to open browser", util.F("error", err.Error()))
			fmt.Fprintf(v.out, "Open %s in a browser to view the figure\n", page)
		}
	}

	var events <-chan []string
	if v.config.Watch {
		watched, stop, err := v.watch(ctx)
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		defer stop()
		events = watched
	}

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down viewer...")
			return nil
		case <-v.hub.Ended():
			return nil
		case changed, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			v.refresh(changed)
		}
	}
}

func (v *Viewer) title() string {
	result, _ := v.state.Current()
	if result == nil {
		return v.config.Source
	}
	return fmt.Sprintf("%q", result.Figure.Title)
}

func (v *Viewer) refresh(changed []string) {
	if err := v.controller.Refresh(changed); err != nil {
		util.LogError(err.Error())
		fmt.Fprintf(v.out, "Refresh failed: %v\n", err)
		return
	}
	fmt.Fprintf(v.out, "Figure updated at %s\n", util.GetTimeProvider().Now().Format("15:04:05"))
}

// watch starts the file watcher and returns batches of changed paths,
// debounced and filtered by content fingerprint.
func (v *Viewer) watch(ctx context.Context) (<-chan []string, func(), error) {
	files := []string{v.config.Source}
	if v.config.FigureConfig != "" {
		files = append(files, v.config.FigureConfig)
	}

	watcher, err := NewFileWatcher(files)
	if err != nil {
		return nil, nil, err
	}
	v.controller = NewRefreshController(v.pipeline, v.state, v.hub, files...)

	batches := make(chan []string)
	done := make(chan struct{})

	go func() {
		defer close(batches)

		timer := time.NewTimer(v.config.Debounce)
		if !timer.Stop() {
			<-timer.C
		}
		pending := make(map[string]struct{})

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case event, ok := <-watcher.Events():
				if !ok {
					return
				}
				util.LogDebugf("File event %s on %s", event.Operation, event.Path)
				pending[event.Path] = struct{}{}
				timer.Reset(v.config.Debounce)
			case <-timer.C:
				var changed []string
				for path := range pending {
					if v.controller.Changed(path) {
						changed = append(changed, path)
					}
				}
				pending = make(map[string]struct{})
				if len(changed) == 0 {
					continue
				}
				sort.Strings(changed)
				select {
				case batches <- changed:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	stop := func() {
		close(done)
		_ = watcher.Close()
	}
	util.LogInfof("Watching %v for changes", files)
	return batches, stop, nil
}
