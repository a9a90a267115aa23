package ws

import (
	"context"
	"errors"
	"net/http"

	"voicetrim-server-go/internal/platform/logging"
)

// ServerConfig holds the listen address and URL path of the websocket
// endpoint.
type ServerConfig struct {
	Addr string
	Path string
}

// Server owns the listener for the websocket transport and ties its
// lifecycle to the hub.
type Server struct {
	cfg     ServerConfig
	hub     *Hub
	router  *Router
	logger  *logging.Logger
	httpSrv *http.Server
}

func NewServer(cfg ServerConfig, router *Router, hub *Hub, logger *logging.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Server{
		cfg:    cfg,
		router: router,
		hub:    hub,
		logger: logger,
	}
}

// SetHandlerBuilder forwards the builder to the router.
func (s *Server) SetHandlerBuilder(builder HandlerBuilder) {
	s.router.SetHandlerBuilder(builder)
}

// Start serves websocket upgrades until ctx is cancelled or the listener
// fails. It blocks.
func (s *Server) Start(ctx context.Context) error {
	if s.httpSrv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.router.Handle)
	s.httpSrv = &http.Server{Addr: s.cfg.Addr, Handler: mux}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
			defer cancel()
			_ = s.httpSrv.Shutdown(shutdownCtx)
		}()
	}

	s.logger.InfoTag("WS", "listening on %s%s", s.cfg.Addr, s.cfg.Path)

	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains the listener and closes every open session.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	s.hub.CloseAll(ErrSessionShutdown)
	s.httpSrv = nil

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
