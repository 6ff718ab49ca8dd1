package websocket

import (
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server is one websocket session. Messages are routed to the registered
// service named in the envelope.
type Server struct {
	*Conn
	ID string

	// written before Start only
	services       map[string]Service
	activeServices []string

	timeout        time.Duration
	lastActiveTime atomic.Int64
	logger         zerolog.Logger
}

func NewServer(w http.ResponseWriter, r *http.Request, timeout time.Duration, logger zerolog.Logger) (*Server, error) {
	id := uuid.NewString()
	logger = logger.With().Str("session", id).Logger()

	conn, err := NewConn(w, r, logger)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Conn:     conn,
		ID:       id,
		services: make(map[string]Service),
		timeout:  timeout,
		logger:   logger,
	}
	server.touch()

	return server, nil
}

// Register adds a service whose messages keep the session alive.
func (s *Server) Register(service Service) {
	s.RegisterPassive(service)
	s.activeServices = append(s.activeServices, service.Name())
}

// RegisterPassive adds a service whose messages (heartbeats) do not count
// as activity.
func (s *Server) RegisterPassive(service Service) {
	if _, exists := s.services[service.Name()]; exists {
		s.logger.Warn().Str("service", service.Name()).Msg("service already registered")
		return
	}

	service.Register(s.Conn)
	s.services[service.Name()] = service
}

// Start blocks until the connection is closed by either side or the idle
// timeout expires.
func (s *Server) Start() {
	done := make(chan struct{})
	defer close(done)

	if s.timeout > 0 {
		go s.checkTimeout(done)
	}

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for msg := range s.TextMessage {
			if slices.Contains(s.activeServices, msg.Service) {
				s.touch()
			}
			if service, exists := s.services[msg.Service]; exists {
				service.HandleTextMessage(msg.Id, msg.Action, msg.Data)
			} else {
				s.logger.Debug().Str("service", msg.Service).Msg("unknown service")
			}
		}
	}()

	err := s.StartDispatch()
	<-dispatched
	s.logger.Debug().Err(err).Msg("session ended")

	for _, service := range s.services {
		service.Cleanup(err)
	}
}

func (s *Server) touch() {
	s.lastActiveTime.Store(time.Now().UnixNano())
}

func (s *Server) idleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActiveTime.Load()))
}

func (s *Server) checkTimeout(done <-chan struct{}) {
	interval := s.timeout / 6
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	if interval > 10*time.Second {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if s.idleFor() > s.timeout {
				s.logger.Info().Dur("timeout", s.timeout).Msg("closing idle session")
				s.Close()
				return
			}
		}
	}
}
