package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoService struct {
	name    string
	conn    MessageWriter
	cleaned atomic.Bool
}

func (s *echoService) Register(conn MessageWriter) { s.conn = conn }
func (s *echoService) Name() string                { return s.name }
func (s *echoService) Cleanup(err error)           { s.cleaned.Store(true) }

func (s *echoService) HandleTextMessage(id, action string, data json.RawMessage) {
	s.conn.WriteJSON(&ServiceMessage{Service: s.name, Id: id, Action: action, Data: data})
}

type countingObserver struct {
	opened, closed atomic.Int32
}

func (o *countingObserver) SessionOpened() { o.opened.Add(1) }
func (o *countingObserver) SessionClosed() { o.closed.Add(1) }

// newTestHub serves every session with fresh services. The echo service of
// each session is sent on the returned channel before the upgrade.
func newTestHub(t *testing.T, timeout time.Duration) (*Hub, *countingObserver, <-chan *echoService, string) {
	observer := &countingObserver{}
	hub := NewHub(timeout, observer, zerolog.Nop())
	sessions := make(chan *echoService, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		echo := &echoService{name: "echo"}
		sessions <- echo
		hub.Serve(w, r, []Service{echo}, []Service{&echoService{name: "heartbeat"}})
	}))
	t.Cleanup(srv.Close)

	return hub, observer, sessions, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *ws.Conn {
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_RoundTrip(t *testing.T) {
	hub, observer, sessions, url := newTestHub(t, time.Minute)
	conn := dial(t, url)
	echo := <-sessions

	require.NoError(t, conn.WriteJSON(&ServiceMessage{Service: "echo", Id: "docs", Action: "list"}))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(&ServiceMessage{Service: "missing", Id: "x"}))
	require.NoError(t, conn.WriteJSON(&ServiceMessage{Service: "echo", Id: "second", Action: "list"}))

	var reply ServiceMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "echo", reply.Service)
	assert.Equal(t, "docs", reply.Id)

	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "second", reply.Id)

	assert.Equal(t, 1, hub.Len())
	assert.EqualValues(t, 1, observer.opened.Load())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, observer.closed.Load())
	assert.True(t, echo.cleaned.Load())
}

func TestHub_IdleTimeout(t *testing.T) {
	hub, _, _, url := newTestHub(t, 100*time.Millisecond)
	conn := dial(t, url)

	assert.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	// heartbeats are passive and do not keep the session alive
	for i := 0; i < 5; i++ {
		conn.WriteJSON(&ServiceMessage{Service: "heartbeat", Action: "ping"})
		time.Sleep(30 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseAll(t *testing.T) {
	hub, _, _, url := newTestHub(t, time.Minute)
	dial(t, url)
	dial(t, url)

	assert.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 5*time.Millisecond)
	hub.CloseAll()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_UpgradeFailure(t *testing.T) {
	hub := NewHub(time.Minute, nil, zerolog.Nop())
	w := httptest.NewRecorder()
	err := hub.Serve(w, httptest.NewRequest(http.MethodGet, "/api/ws", nil), nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Len())
}
