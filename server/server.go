package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webdesk/config"
	"webdesk/controller"
	"webdesk/middleware"
	"webdesk/service/fs"
	"webdesk/service/sandbox"
	"webdesk/utils"
	"webdesk/websocket"
)

const readHeaderTimeout = 30 * time.Second

type Server struct {
	Engine  *gin.Engine
	FS      *fs.FSService
	Hub     *websocket.Hub
	Metrics *middleware.Metrics

	cfg      *config.Config
	http     *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// New assembles the engine for cfg and creates the root directory.
func New(cfg *config.Config) (*Server, error) {
	sb, err := sandbox.New(cfg.Root)
	if err != nil {
		return nil, err
	}

	fsService := fs.NewLocalService(sb, utils.GetLogger("fs"))
	if err := fsService.EnsureRoot(); err != nil {
		return nil, err
	}

	s := &Server{
		FS:     fsService,
		cfg:    cfg,
		logger: utils.GetLogger("server"),
	}

	var observer websocket.SessionObserver
	if cfg.Metrics {
		s.Metrics = middleware.NewMetrics("webdesk")
		observer = s.Metrics
		fsService.SetTraversalObserver(s.Metrics)
	}
	s.Hub = websocket.NewHub(cfg.ConnectionTimeout, observer, utils.GetLogger("ws"))

	s.Engine = s.newEngine()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          utils.NewLogLogger("http", slog.LevelWarn),
	}

	return s, nil
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.UploadMaxMemory

	r.Use(gin.CustomRecoveryWithWriter(utils.NewLogWriter("http", slog.LevelError), func(c *gin.Context, err any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(err)})
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(utils.GetLogger("http")))
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))
	if s.Metrics != nil {
		r.Use(s.Metrics.Prometheus())
	}

	controller.SetupRoutes(r, controller.Deps{
		FS:         s.FS,
		Hub:        s.Hub,
		Metrics:    s.Metrics,
		ViewMaxAge: s.cfg.ViewMaxAge,
		PublicDir:  s.cfg.PublicDir,
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Disposition", middleware.HeaderRequestID},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// Listen binds the listen address. Start calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Start serves in the background. The returned channel receives nil after
// a clean shutdown, or the serve error.
func (s *Server) Start() chan error {
	finishChan := make(chan error, 1)

	if err := s.Listen(); err != nil {
		finishChan <- err
		return finishChan
	}

	go func() {
		err := s.http.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		finishChan <- err
	}()

	s.logger.Info().Str("addr", s.Addr()).Str("root", s.FS.Sandbox.Root()).Msg("server started")
	return finishChan
}

// Shutdown closes the websocket sessions, which net/http does not track
// once hijacked, then waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Hub.CloseAll()
	err := s.http.Shutdown(ctx)
	s.logger.Info().Err(err).Msg("server stopped")
	return err
}
