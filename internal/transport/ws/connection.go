package ws

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("connection closed")

// Connection wraps a gorilla websocket with serialized writes. gorilla
// permits one concurrent reader and one concurrent writer; the mutex lets
// several goroutines push frames without stepping on each other.
type Connection struct {
	id      string
	socket  *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewConnection wraps an upgraded socket.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	return &Connection{id: id, socket: socket}
}

// WriteJSON marshals v and sends it as a single text frame.
func (c *Connection) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return errConnClosed
	}
	return c.socket.WriteJSON(v)
}

// ReadMessage blocks for the next frame from the client.
func (c *Connection) ReadMessage() (int, []byte, error) {
	return c.socket.ReadMessage()
}

// Close shuts the socket down. Safe to call more than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.socket.Close()
}
