// Package tcp serves the newline-delimited JSON protocol over plain TCP.
package tcp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Transport is the transport name recorded on sessions.
const Transport = "tcp"

// ErrMessageTooLarge is returned when a line exceeds the configured maximum.
var ErrMessageTooLarge = errors.New("message exceeds maximum length")

// Conn wraps a TCP connection with newline framing. One goroutine may read
// while others write.
type Conn struct {
	raw      net.Conn
	reader   *bufio.Reader
	maxBytes int
	mu       sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw TCP connection.
//
// Precondition: raw must be a valid, open network connection; maxBytes > 0.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, maxBytes int, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		maxBytes:     maxBytes,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadMessage returns the next non-blank line without its line ending.
// A client silent for longer than the read timeout gets a timeout error.
//
// Postcondition: Returns a message, or an error (including io.EOF and
// ErrMessageTooLarge).
func (c *Conn) ReadMessage() ([]byte, error) {
	for {
		if c.readTimeout > 0 {
			_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line, nil
		}
	}
}

func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := c.reader.ReadSlice('\n')
		line = append(line, frag...)
		if len(line) > c.maxBytes {
			return nil, fmt.Errorf("%w (%d bytes)", ErrMessageTooLarge, c.maxBytes)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return line, nil
	}
}

// WriteMessage sends data followed by a newline.
//
// Precondition: data must not contain a newline.
func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	buf := make([]byte, 0, len(data)+1)
	buf = append(append(buf, data...), '\n')
	_, err := c.raw.Write(buf)
	return err
}

// Close closes the underlying TCP connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}
