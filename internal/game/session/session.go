// Package session tracks connected clients: one Session per connection,
// each with an outbound queue drained by its own writer and a request rate
// limiter.
package session

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/cory-johannsen/skirmish/internal/protocol"
)

// Conn is a message-framed client connection. Each transport adapts its
// socket to it.
type Conn interface {
	// ReadMessage blocks for the next complete message.
	ReadMessage() ([]byte, error)
	// WriteMessage writes one complete message.
	WriteMessage(data []byte) error
	RemoteAddr() string
	Close() error
}

// Session is one connected client.
type Session struct {
	// ID is the client id used by the registry and battles.
	ID string
	// RemoteAddr is the peer address, for logging.
	RemoteAddr string
	// Transport names the transport the client connected through.
	Transport   string
	ConnectedAt time.Time

	out     *Outbox
	limiter *rate.Limiter
}

// Allow reports whether the client may issue another request now.
func (s *Session) Allow() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

// Send encodes resp and queues it for the writer.
func (s *Session) Send(resp protocol.Response) error {
	data, err := resp.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", resp.ResponseType, err)
	}
	return s.out.Push(data)
}

// Outbox returns the session's outbound queue.
func (s *Session) Outbox() *Outbox { return s.out }

// Pump writes queued messages to conn until the outbox is closed or a write
// fails.
//
// Postcondition: Returns nil once the outbox is closed and drained.
func (s *Session) Pump(conn Conn) error {
	for data := range s.out.Events() {
		if err := conn.WriteMessage(data); err != nil {
			return fmt.Errorf("writing to %s: %w", s.ID, err)
		}
	}
	return nil
}
