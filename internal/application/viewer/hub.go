package viewer

import (
	"sync"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/util"
)

// Message is sent to connected pages
type Message struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

const (
	MessageHello  = "hello"
	MessageReload = "reload"

	clientBuffer = 8
)

type client struct {
	send chan Message
}

// Hub tracks the pages viewing the figure. The viewing session ends once
// every page has been gone for the grace period after at least one was open.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	seen    bool
	grace   time.Duration
	timer   *time.Timer
	ended   bool
	done    chan struct{}
}

// NewHub creates a hub with the given idle grace period
func NewHub(grace time.Duration) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		grace:   grace,
		done:    make(chan struct{}),
	}
}

func (h *Hub) register() *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &client{send: make(chan Message, clientBuffer)}
	h.clients[c] = struct{}{}
	h.seen = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	util.LogDebugf("Viewer connected (%d open)", len(h.clients))
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	util.LogDebugf("Viewer disconnected (%d open)", len(h.clients))

	if len(h.clients) == 0 && h.seen && !h.ended {
		if h.timer != nil {
			h.timer.Stop()
		}
		h.timer = time.AfterFunc(h.grace, h.expire)
	}
}

func (h *Hub) expire() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) > 0 || h.ended {
		return
	}
	h.ended = true
	close(h.done)
	util.LogInfo("All viewers closed, ending session")
}

// Broadcast queues msg for every page. Slow pages miss messages rather than
// blocking the sender.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			util.LogWarn("Dropping message for slow viewer", util.F("type", msg.Type))
		}
	}
}

// Count returns the number of connected pages
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Ended is closed when the viewing session is over
func (h *Hub) Ended() <-chan struct{} {
	return h.done
}

// Close stops a pending expiry timer
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
