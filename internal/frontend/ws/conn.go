// Package ws serves the JSON protocol over WebSocket and exposes a small
// read-only HTTP surface beside it.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is the transport name recorded on sessions.
const Transport = "ws"

// Conn adapts a gorilla WebSocket to session.Conn. Each text frame carries
// one JSON message.
type Conn struct {
	ws           *websocket.Conn
	mu           sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps an upgraded WebSocket.
//
// Precondition: ws must be a freshly upgraded connection.
// Postcondition: Only data frames extend the read deadline; a client that
// answers pings but sends nothing times out like an idle TCP client.
func NewConn(ws *websocket.Conn, maxBytes int64, readTimeout, writeTimeout time.Duration) *Conn {
	c := &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}
	if maxBytes > 0 {
		ws.SetReadLimit(maxBytes)
	}
	return c
}

// ReadMessage returns the payload of the next data frame. The deadline is
// set once per call, so control frames read meanwhile do not move it.
func (c *Conn) ReadMessage() ([]byte, error) {
	if c.readTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// WriteMessage sends data as a single text frame.
func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a ping control frame.
func (c *Conn) Ping() error {
	deadline := time.Now().Add(time.Second)
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
