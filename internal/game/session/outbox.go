package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned when pushing to a closed outbox.
	ErrClosed = errors.New("session closed")
	// ErrOutboxFull is returned when a slow client has fallen too far behind.
	ErrOutboxFull = errors.New("session outbox full")
)

// Outbox is a session's queue of encoded messages ready to be written to
// the connection.
type Outbox struct {
	client string
	events chan []byte
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for client holding up to size messages.
//
// Postcondition: Returns an Outbox with an open events channel.
func NewOutbox(client string, size int) *Outbox {
	if size <= 0 {
		size = 64
	}
	return &Outbox{
		client: client,
		events: make(chan []byte, size),
	}
}

// Push enqueues data without blocking.
//
// Postcondition: data is enqueued, or ErrClosed/ErrOutboxFull is returned.
func (o *Outbox) Push(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("client %s: %w", o.client, ErrClosed)
	}
	select {
	case o.events <- data:
		return nil
	default:
		return fmt.Errorf("client %s: %w", o.client, ErrOutboxFull)
	}
}

// Events returns the read side drained by the connection writer.
func (o *Outbox) Events() <-chan []byte {
	return o.events
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	return len(o.events)
}

// Close closes the events channel. Safe to call more than once.
//
// Postcondition: further Push calls return ErrClosed.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.events)
	}
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
