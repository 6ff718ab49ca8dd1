package websocket

import (
	"net/http"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

// Hub tracks the live sessions so they can be counted and closed on
// shutdown.
type Hub struct {
	sessions *xsync.Map[string, *Server]
	timeout  time.Duration
	observer SessionObserver
	logger   zerolog.Logger
}

func NewHub(timeout time.Duration, observer SessionObserver, logger zerolog.Logger) *Hub {
	return &Hub{
		sessions: xsync.NewMap[string, *Server](),
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}
}

// Serve upgrades the request and runs a session until it ends. Services
// must be fresh instances per call; passive ones do not reset the idle
// timer.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, active []Service, passive []Service) error {
	server, err := NewServer(w, r, h.timeout, h.logger)
	if err != nil {
		return err
	}

	for _, service := range active {
		server.Register(service)
	}
	for _, service := range passive {
		server.RegisterPassive(service)
	}

	h.sessions.Store(server.ID, server)
	if h.observer != nil {
		h.observer.SessionOpened()
	}
	server.logger.Info().Str("remote", r.RemoteAddr).Msg("session opened")

	defer func() {
		h.sessions.Delete(server.ID)
		if h.observer != nil {
			h.observer.SessionClosed()
		}
		server.logger.Info().Msg("session closed")
	}()

	server.Start()
	return nil
}

func (h *Hub) Len() int {
	return h.sessions.Size()
}

// CloseAll closes every live session. Their Serve calls return shortly
// after.
func (h *Hub) CloseAll() {
	h.sessions.Range(func(id string, server *Server) bool {
		server.Close()
		return true
	})
}
