package viewer

import (
	"sync"
	"time"
)

// StateManager holds the figure currently served, in a thread-safe manner
type StateManager struct {
	mu sync.RWMutex

	current *Result
	version int

	lastError  string
	lastUpdate time.Time
}

// Snapshot is a read-only view of the state for health reporting
type Snapshot struct {
	Version   int       `json:"version"`
	Panels    int       `json:"panels"`
	Rows      int       `json:"rows"`
	UpdatedAt time.Time `json:"updated_at"`
	LastError string    `json:"last_error,omitempty"`
}

// NewStateManager creates an empty state
func NewStateManager() *StateManager {
	return &StateManager{}
}

// SetResult publishes a new figure and returns its version
func (sm *StateManager) SetResult(result *Result) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.current = result
	sm.version++
	sm.lastError = ""
	sm.lastUpdate = time.Now()
	return sm.version
}

// SetError records a failed refresh; the current figure is kept
func (sm *StateManager) SetError(err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.lastError = err.Error()
}

// Current returns the figure being served and its version
func (sm *StateManager) Current() (*Result, int) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current, sm.version
}

// Snapshot returns the state summary
func (sm *StateManager) Snapshot() Snapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s := Snapshot{
		Version:   sm.version,
		UpdatedAt: sm.lastUpdate,
		LastError: sm.lastError,
	}
	if sm.current != nil {
		s.Panels = len(sm.current.Figure.Panels)
		s.Rows = sm.current.Table.Len()
	}
	return s
}
