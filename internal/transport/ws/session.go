package ws

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"voicetrim-server-go/internal/platform/logging"
)

// How long Close waits for the protocol handler before giving up on a
// graceful teardown.
const defaultCloseTimeout = 5 * time.Second

var (
	// ErrHandshakeTimeout reports that the client did not complete the
	// websocket upgrade within the configured window.
	ErrHandshakeTimeout = errors.New("handshake deadline exceeded")
	// ErrSessionShutdown is the cancellation cause used when the server
	// tears a session down during shutdown.
	ErrSessionShutdown = errors.New("session closed by server shutdown")
)

// SessionHandler drives the application protocol over an upgraded
// connection. Handle blocks until the client disconnects or the handler is
// closed.
type SessionHandler interface {
	Handle()
	Close()
	GetSessionID() string
}

// Session ties a handler, its connection and a cancellable context into one
// unit the hub can track and tear down.
type Session struct {
	id      string
	handler SessionHandler
	conn    *Connection
	logger  *logging.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc
	closed atomic.Bool
}

func NewSession(parent context.Context, handler SessionHandler, conn *Connection, logger *logging.Logger) *Session {
	ctx, cancel := context.WithCancelCause(parent)
	return &Session{
		id:      handler.GetSessionID(),
		handler: handler,
		conn:    conn,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ID exposes the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run blocks on the handler's read loop, then tears the session down and
// reports the outcome through onDone.
func (s *Session) Run(onDone func(error)) {
	defer func() {
		s.Close(nil)
		if onDone != nil {
			onDone(nil)
		}
	}()

	s.handler.Handle()
}

// Close cancels the session context with the given cause, asks the handler
// to stop and closes the socket. The handler gets a bounded window to wind
// down; a stuck handler does not block shutdown.
func (s *Session) Close(reason error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if reason == nil {
		reason = ErrSessionShutdown
	}
	s.cancel(reason)

	if s.handler != nil {
		done := make(chan struct{})
		go func() {
			s.handler.Close()
			close(done)
		}()

		timer := time.NewTimer(defaultCloseTimeout)
		select {
		case <-done:
			timer.Stop()
		case <-timer.C:
			s.logger.WarnTag("WS", "session %s close timed out after %v", s.id, defaultCloseTimeout)
		}
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.WarnTag("WS", "session %s socket close: %v", s.id, err)
		}
	}
}
