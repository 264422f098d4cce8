package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/penwyp/go-solis-viewer/internal/application/viewer"
	"github.com/penwyp/go-solis-viewer/internal/core/figure"
	"github.com/penwyp/go-solis-viewer/internal/data/filter"
	"github.com/penwyp/go-solis-viewer/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Input
	csvPath      string
	day          string
	figureConfig string

	// Log layout
	timezone      string
	dateMarker    string
	excludeMarker string

	// Output related
	outputFormat string
	savePath     string

	// Serving
	addr      string
	noBrowser bool
	watch     bool

	rootCmd = &cobra.Command{
		Use:   "go-solis-viewer [flags]",
		Short: "Solis inverter log day viewer",
		Long: `go-solis-viewer plots one day of a Solis inverter sensor log.

The log is filtered to the requested day (written next to the source as
<name>.clean.<ext>), parsed, and drawn as a stack of time-series panels
described by a JSON figure configuration.

Examples:
  go-solis-viewer --csv inverter.csv --day 01                    # Show day 01 in the browser
  go-solis-viewer -c inverter.csv -d 01 -f panels.json           # Use another figure configuration
  go-solis-viewer -c inverter.csv -d 01 --save day01.png         # Save a PNG instead of showing it
  go-solis-viewer -c inverter.csv -d 01 --watch                  # Redraw while the log grows
  go-solis-viewer columns -c inverter.csv -d 01                  # List the columns of day 01`,
		RunE:          runView,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

const (
	defaultLogFile = "~/.go-solis-viewer/logs/app.log"
	defaultHome    = "~/.go-solis-viewer"
)

func init() {
	// Input data configuration
	rootCmd.PersistentFlags().StringVarP(&csvPath, "csv", "c", "",
		"Path to the sensor log (semicolon-delimited)")
	rootCmd.PersistentFlags().StringVarP(&day, "day", "d", "",
		"Day of month to keep, matched verbatim against the date (e.g. 01)")
	rootCmd.Flags().StringVarP(&figureConfig, "config", "f", figure.DefaultConfigPath(),
		"Figure configuration file")

	// Log layout
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "Local",
		"Timezone of the logged timestamps (e.g., Europe/Berlin, UTC)")
	rootCmd.PersistentFlags().StringVar(&dateMarker, "date-marker", filter.DefaultDateMarker,
		"Text identifying header lines; the first header column containing it is the date column")
	rootCmd.PersistentFlags().StringVar(&excludeMarker, "exclude", filter.DefaultExcludeMarker,
		"Lines containing this text are dropped")

	// Output configuration
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", viewer.OutputHTML,
		"Figure format (html, png)")
	rootCmd.Flags().StringVarP(&savePath, "save", "s", "",
		"Write the figure to this file instead of showing it")

	// Serving
	rootCmd.Flags().StringVar(&addr, "addr", viewer.DefaultAddr,
		"Address the figure is served on")
	rootCmd.Flags().BoolVar(&noBrowser, "no-browser", false,
		"Do not open the figure in a browser")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false,
		"Redraw when the log or the figure configuration changes")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile,
		"Log file path")
	_ = rootCmd.PersistentFlags().MarkHidden("log-file")
}

func runView(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(settings); err != nil {
		return err
	}

	// The configuration is checked before anything else about the log
	configPath := expandPath(settings.GetString("config"))
	spec, err := loadFigureSpec(configPath)
	if err != nil {
		return err
	}
	if err := requireInput(settings); err != nil {
		return err
	}

	output := settings.GetString("output")
	save := settings.GetString("save")
	if save != "" && !cmd.Flags().Changed("output") && strings.EqualFold(filepath.Ext(save), ".png") {
		output = viewer.OutputPNG
	}

	if !settings.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	config := &viewer.Config{
		Source:        expandPath(settings.GetString("csv")),
		Day:           settings.GetString("day"),
		FigureConfig:  configPath,
		DateMarker:    settings.GetString("date-marker"),
		ExcludeMarker: settings.GetString("exclude"),
		Timezone:      settings.GetString("timezone"),
		Output:        output,
		Addr:          settings.GetString("addr"),
		OpenBrowser:   !settings.GetBool("no-browser"),
		Watch:         settings.GetBool("watch"),
	}
	if save != "" {
		config.SavePath = expandPath(save)
	}

	v, err := viewer.New(config, spec, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// Set up signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return v.Run(ctx)
}

// userError carries the message shown for an error the user can fix
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }

func (e *userError) Unwrap() error { return e.err }

// loadFigureSpec loads the figure configuration, turning load failures into
// the messages printed by the command.
func loadFigureSpec(path string) (figure.Spec, error) {
	spec, err := figure.Load(path)
	switch {
	case err == nil:
		return spec, nil
	case errors.Is(err, figure.ErrConfigNotFound):
		return nil, &userError{msg: fmt.Sprintf("Configuration file not found: %s", path), err: err}
	case errors.Is(err, figure.ErrInvalidConfig):
		detail := strings.TrimPrefix(err.Error(), figure.ErrInvalidConfig.Error()+": ")
		return nil, &userError{msg: fmt.Sprintf("Invalid JSON in configuration file: %s", detail), err: err}
	default:
		return nil, err
	}
}

func requireInput(settings settingsReader) error {
	if settings.GetString("csv") == "" {
		return errors.New("--csv is required (or set SOLIS_VIEWER_CSV)")
	}
	if settings.GetString("day") == "" {
		return errors.New("--day is required (or set SOLIS_VIEWER_DAY)")
	}
	return nil
}

func initLogging(settings settingsReader) error {
	// Determine log level based on debug flag
	logLevel := "info"
	debugMode := settings.GetBool("debug")
	if debugMode {
		logLevel = "debug"
	}

	path := expandPath(settings.GetString("log-file"))
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return util.InitLogger(logLevel, path, debugMode)
}

// Execute runs the command line and prints any error
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
