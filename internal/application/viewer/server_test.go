package viewer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *StateManager, *Hub) {
	t.Helper()
	state := NewStateManager()
	hub := NewHub(time.Minute)
	t.Cleanup(hub.Close)
	return NewServer(state, hub, Renderer(OutputHTML, true), Renderer(OutputPNG, true)), state, hub
}

func publish(t *testing.T, state *StateManager) {
	t.Helper()
	config, spec := setup(t)
	require.NoError(t, config.Validate())
	pipeline, err := NewPipeline(config, spec)
	require.NoError(t, err)
	result, err := pipeline.Run()
	require.NoError(t, err)
	state.SetResult(result)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestServerNotReady(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.InitRoutes()

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/figure.png").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/image").Code)
}

func TestServerImagePage(t *testing.T) {
	s, state, _ := newTestServer(t)
	publish(t, state)

	w := get(s.InitRoutes(), "/image")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, "<title>inverter.csv - day 01</title>")
	assert.Contains(t, body, `<img src="/figure.png?v=1"`)
	assert.Contains(t, body, `location.host + "/ws"`)
}

func TestServerFigureEndpoints(t *testing.T) {
	s, state, _ := newTestServer(t)
	publish(t, state)
	router := s.InitRoutes()

	w := get(router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "inverter.csv - day 01")
	assert.Contains(t, w.Body.String(), `"/ws"`)

	w = get(router, "/figure.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", w.Body.String()[:4])
}

func TestServerRendersOncePerVersion(t *testing.T) {
	s, state, _ := newTestServer(t)
	publish(t, state)

	first, err := s.render(OutputHTML)
	require.NoError(t, err)
	second, err := s.render(OutputHTML)
	require.NoError(t, err)
	assert.Same(t, &first[0], &second[0])

	result, _ := state.Current()
	state.SetResult(result)
	third, err := s.render(OutputHTML)
	require.NoError(t, err)
	assert.NotSame(t, &first[0], &third[0])
}

func TestServerHealth(t *testing.T) {
	s, state, _ := newTestServer(t)
	publish(t, state)

	w := get(s.InitRoutes(), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status  string   `json:"status"`
		Viewers int      `json:"viewers"`
		Figure  Snapshot `json:"figure"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Viewers)
	assert.Equal(t, 1, body.Figure.Version)
	assert.Equal(t, 2, body.Figure.Panels)
	assert.Equal(t, 144, body.Figure.Rows)
}

func TestServerWebSocketBroadcast(t *testing.T) {
	s, state, hub := newTestServer(t)
	publish(t, state)

	srv := httptest.NewServer(s.InitRoutes())
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg Message
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Type: MessageHello, Version: 1}, msg)
	assert.Equal(t, 1, hub.Count())

	hub.Broadcast(Message{Type: MessageReload, Version: 2})
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Type: MessageReload, Version: 2}, msg)
}
