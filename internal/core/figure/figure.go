package figure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

// DefaultConfigName is looked up next to the executable when no config is given
const DefaultConfigName = "figure_config.json"

var (
	// ErrConfigNotFound is returned when the figure configuration file does not exist
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrInvalidConfig is returned when the configuration is not valid JSON
	ErrInvalidConfig = errors.New("invalid JSON in configuration file")
)

// Limit fixes the y axis range of a panel
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SeriesRef maps one table column to its legend label
type SeriesRef struct {
	Column string
	Label  string
}

// Series is the ordered column-to-label mapping of a panel. It decodes from
// a JSON object and keeps the document order of its keys.
type Series []SeriesRef

// UnmarshalJSON decodes a JSON object preserving key order
func (s *Series) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("data must be an object of column to label, got %v", tok)
	}

	var out Series
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", keyTok)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("label of column %q: %w", key, err)
		}
		out = append(out, SeriesRef{Column: key, Label: label})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON encodes the mapping as a JSON object in order
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ref := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ref.Column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(ref.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PanelSpec describes one chart panel
type PanelSpec struct {
	Name   string `json:"name"`
	YLabel string `json:"y_label"`
	Data   Series `json:"data"`
	YLimit *Limit `json:"y_limit,omitempty"`
}

// Spec is the ordered list of panels of a figure
type Spec []PanelSpec

// Columns lists every referenced column once, in first-use order
func (s Spec) Columns() []string {
	seen := make(map[string]bool)
	var columns []string
	for _, panel := range s {
		for _, ref := range panel.Data {
			if !seen[ref.Column] {
				seen[ref.Column] = true
				columns = append(columns, ref.Column)
			}
		}
	}
	return columns
}

// DefaultConfigPath returns figure_config.json beside the executable
func DefaultConfigPath() string {
	return filepath.Join(util.ExecutableDir(), DefaultConfigName)
}

// Load reads a figure configuration. Only existence and JSON validity are checked.
func Load(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a figure configuration document
func Parse(data []byte) (Spec, error) {
	var spec Spec
	if err := sonic.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	util.LogDebugf("Loaded figure configuration with %d panels", len(spec))
	return spec, nil
}
