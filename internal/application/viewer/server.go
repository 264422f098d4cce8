package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/penwyp/go-solis-viewer/internal/core/chart"
	"github.com/penwyp/go-solis-viewer/internal/presentation/echarts"
	"github.com/penwyp/go-solis-viewer/internal/util"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Only pages served from this process connect, always from loopback.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the current figure over HTTP
type Server struct {
	state     *StateManager
	hub       *Hub
	renderers map[string]chart.Renderer

	mu    sync.Mutex
	cache map[string]artifact

	httpServer *http.Server
	listener   net.Listener
}

type artifact struct {
	version int
	body    []byte
}

// NewServer creates a server for state. html and png render the two
// figure endpoints.
func NewServer(state *StateManager, hub *Hub, html, png chart.Renderer) *Server {
	return &Server{
		state: state,
		hub:   hub,
		renderers: map[string]chart.Renderer{
			OutputHTML: html,
			OutputPNG:  png,
		},
		cache: make(map[string]artifact),
	}
}

// InitRoutes builds the gin router
func (s *Server) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.index)
	router.GET("/figure.png", s.figurePNG)
	router.GET("/image", s.imagePage)
	router.GET("/health", s.health)
	router.GET("/ws", s.wsConnect)

	return router
}

// Start listens on addr and serves in the background. It returns the page URL.
func (s *Server) Start(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.InitRoutes(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogError("Viewer server stopped", util.F("error", err.Error()))
		}
	}()

	url := fmt.Sprintf("http://%s/", listener.Addr().String())
	util.LogInfof("Serving figure at %s", url)
	return url, nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) index(c *gin.Context) {
	s.serveFigure(c, OutputHTML)
}

func (s *Server) figurePNG(c *gin.Context) {
	s.serveFigure(c, OutputPNG)
}

// imagePage shows the PNG figure inside a page that joins the viewing session
func (s *Server) imagePage(c *gin.Context) {
	result, version := s.state.Current()
	if result == nil {
		c.String(http.StatusServiceUnavailable, "figure not ready")
		return
	}
	page := echarts.ImagePage(result.Figure.Title, fmt.Sprintf("/figure.png?v=%d", version), "/ws")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (s *Server) serveFigure(c *gin.Context, output string) {
	body, err := s.render(output)
	if err != nil {
		if errors.Is(err, errNoFigure) {
			c.String(http.StatusServiceUnavailable, "figure not ready")
			return
		}
		util.LogError("Failed to render figure", util.F("output", output), util.F("error", err.Error()))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, s.renderers[output].ContentType(), body)
}

var errNoFigure = errors.New("no figure rendered yet")

// render returns the artifact of the current figure, rendering it once per version
func (s *Server) render(output string) ([]byte, error) {
	result, version := s.state.Current()
	if result == nil {
		return nil, errNoFigure
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[output]; ok && cached.version == version {
		return cached.body, nil
	}

	var buf bytes.Buffer
	if err := s.renderers[output].Render(result.Figure, &buf); err != nil {
		return nil, err
	}
	s.cache[output] = artifact{version: version, body: buf.Bytes()}
	return buf.Bytes(), nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"viewers": s.hub.Count(),
		"figure":  s.state.Snapshot(),
	})
}

func (s *Server) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		util.LogWarn("ws_upgrade_failed", util.F("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	cl := s.hub.register()
	defer s.hub.unregister(cl)

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	_, version := s.state.Current()
	if err := writeMessage(conn, Message{Type: MessageHello, Version: version}); err != nil {
		util.LogDebugf("ws_write_failed_initial: %v", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				util.LogDebugf("ws_ping_failed: %v", err)
				return
			}
		case msg := <-cl.send:
			if err := writeMessage(conn, msg); err != nil {
				util.LogDebugf("ws_write_failed: %v", err)
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
