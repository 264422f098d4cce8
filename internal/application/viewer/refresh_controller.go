package viewer

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/penwyp/go-solis-viewer/internal/util"
)

// RefreshController reruns the pipeline when watched files really change
type RefreshController struct {
	pipeline   *Pipeline
	state      *StateManager
	hub        *Hub
	configPath string

	mu           sync.Mutex
	fingerprints map[string]string

	refreshMutex sync.Mutex // Prevent concurrent refreshes
}

// NewRefreshController creates a controller and records the current
// fingerprints of the watched files.
func NewRefreshController(pipeline *Pipeline, state *StateManager, hub *Hub, files ...string) *RefreshController {
	rc := &RefreshController{
		pipeline:     pipeline,
		state:        state,
		hub:          hub,
		configPath:   absPath(pipeline.config.FigureConfig),
		fingerprints: make(map[string]string, len(files)),
	}
	for _, f := range files {
		rc.Changed(f)
	}
	return rc
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Changed reports whether path differs from the last time it was seen
func (rc *RefreshController) Changed(path string) bool {
	path = absPath(path)
	fingerprint, err := util.FileFingerprint(path)
	if err != nil {
		util.LogDebugf("Cannot fingerprint %s: %v", path, err)
		return false
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.fingerprints[path] == fingerprint {
		return false
	}
	rc.fingerprints[path] = fingerprint
	return true
}

// Refresh reruns the pipeline for the changed paths. Success publishes a new
// figure and tells viewers to reload; failure keeps the current figure.
func (rc *RefreshController) Refresh(changed []string) error {
	rc.refreshMutex.Lock()
	defer rc.refreshMutex.Unlock()

	for _, path := range changed {
		if absPath(path) == rc.configPath {
			if err := rc.pipeline.ReloadSpec(); err != nil {
				rc.state.SetError(err)
				return fmt.Errorf("keeping previous figure configuration: %w", err)
			}
		}
	}

	result, err := rc.pipeline.Run()
	if err != nil {
		rc.state.SetError(err)
		return fmt.Errorf("refresh failed, keeping previous figure: %w", err)
	}

	version := rc.state.SetResult(result)
	rc.hub.Broadcast(Message{Type: MessageReload, Version: version})
	util.LogInfo("Figure refreshed", util.F("version", version), util.F("rows", result.Table.Len()))
	return nil
}
