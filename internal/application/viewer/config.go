package viewer

import (
	"errors"
	"fmt"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/data/filter"
)

// Output formats of a rendered figure
const (
	OutputHTML = "html"
	OutputPNG  = "png"
)

// DefaultAddr serves on a free loopback port
const DefaultAddr = "127.0.0.1:0"

// Config contains configuration for a viewing run
type Config struct {
	// Input
	Source       string
	Day          string
	FigureConfig string

	// Log layout
	DateMarker    string
	ExcludeMarker string
	Timezone      string

	// Output
	Output   string // html or png
	SavePath string // non-empty writes the figure instead of serving it

	// Serving
	Addr        string
	OpenBrowser bool
	Watch       bool
	Debounce    time.Duration
	IdleGrace   time.Duration // how long the page may be closed before the session ends
}

// Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.New("source log path is required")
	}
	if c.Day == "" {
		return errors.New("day is required")
	}
	if c.Output == "" {
		c.Output = OutputHTML
	}
	if c.Output != OutputHTML && c.Output != OutputPNG {
		return fmt.Errorf("unsupported output %q (use %s or %s)", c.Output, OutputHTML, OutputPNG)
	}
	if c.DateMarker == "" {
		c.DateMarker = filter.DefaultDateMarker
	}
	if c.ExcludeMarker == "" {
		c.ExcludeMarker = filter.DefaultExcludeMarker
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Debounce == 0 {
		c.Debounce = 300 * time.Millisecond
	}
	if c.IdleGrace == 0 {
		c.IdleGrace = 3 * time.Second
	}
	return nil
}
