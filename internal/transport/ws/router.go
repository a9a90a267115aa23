package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voicetrim-server-go/internal/domain/session"
	"voicetrim-server-go/internal/platform/logging"
)

const defaultHandshakeTimeout = 10 * time.Second

// HandlerBuilder produces the protocol handler for a freshly upgraded
// connection. Returning an error aborts the session before it starts.
type HandlerBuilder func(conn *Connection, req *http.Request) (SessionHandler, error)

// Router upgrades HTTP requests into tracked websocket sessions.
type Router struct {
	hub    *Hub
	logger *logging.Logger

	upgrader         *websocket.Upgrader
	handshakeTimeout time.Duration
	builder          atomic.Value // HandlerBuilder
}

// RouterOptions tune the upgrade behaviour. Zero values pick sane defaults:
// a 10s handshake timeout and an origin check that accepts everything.
type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
}

func NewRouter(hub *Hub, logger *logging.Logger, opts RouterOptions) *Router {
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	return &Router{
		hub:              hub,
		logger:           logger,
		upgrader:         &websocket.Upgrader{CheckOrigin: checkOrigin},
		handshakeTimeout: timeout,
	}
}

// SetHandlerBuilder installs the builder used for subsequent upgrades. It
// may be swapped at runtime; in-flight sessions keep their old handler.
func (r *Router) SetHandlerBuilder(builder HandlerBuilder) {
	r.builder.Store(builder)
}

// Handle runs the websocket upgrade and hands the connection to a session
// goroutine. The session context is detached from the request context, which
// dies as soon as this handler returns.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	value := r.builder.Load()
	if value == nil {
		http.Error(w, "websocket handler not ready", http.StatusServiceUnavailable)
		return
	}
	builder := value.(HandlerBuilder)

	handshakeCtx, cancel := context.WithTimeoutCause(req.Context(), r.handshakeTimeout, ErrHandshakeTimeout)
	defer cancel()
	req = req.WithContext(handshakeCtx)

	socket, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.ErrorTag("WS", "handshake failed: %v", err)
		return
	}

	clientID := resolveClientID(req)
	conn := NewConnection(clientID, socket)

	handler, err := builder(conn, req)
	if err != nil || handler == nil {
		r.logger.ErrorTag("WS", "handler setup failed for client %s: %v", clientID, err)
		_ = conn.Close()
		return
	}

	sess := NewSession(context.WithoutCancel(handshakeCtx), handler, conn, r.logger)
	r.hub.Register(sess)
	r.logger.InfoTag("WS", "client %s connected, session %s", clientID, sess.ID())

	go sess.Run(func(error) {
		r.hub.Unregister(sess.ID())
		r.logger.InfoTag("WS", "session %s ended", sess.ID())
	})
}

// resolveClientID prefers an explicit client identity from the header or
// query string and falls back to a generated one.
func resolveClientID(req *http.Request) string {
	if id := req.Header.Get("Client-Id"); id != "" {
		return id
	}
	if id := req.URL.Query().Get("client-id"); id != "" {
		return id
	}
	return session.NewID()
}
