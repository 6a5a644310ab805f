package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/session"
)

const (
	defaultMaxMessageBytes = 64 * 1024
	maxAcceptBackoff       = time.Second
)

// Handler serves one connected client until it disconnects or ctx ends.
type Handler interface {
	ServeConn(ctx context.Context, conn session.Conn, transport string) error
}

// Acceptor listens for TCP connections and dispatches each to a Handler.
type Acceptor struct {
	cfg     config.TransportConfig
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	running  bool
}

// NewAcceptor creates a TCP acceptor with the given configuration.
//
// Precondition: handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.TransportConfig, handler Handler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[*Conn]struct{}),
	}
}

// ListenAndServe accepts connections until Stop is called. Transient accept
// failures are retried with a capped backoff.
//
// Precondition: The acceptor must not already be running.
// Postcondition: Returns nil after Stop; the listener is closed.
func (a *Acceptor) ListenAndServe() error {
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		listener.Close()
		return nil
	}
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("tcp acceptor listening", zap.String("addr", listener.Addr().String()))

	var backoff time.Duration
	for {
		raw, err := listener.Accept()
		if err != nil {
			if a.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = min(max(2*backoff, 5*time.Millisecond), maxAcceptBackoff)
			a.logger.Warn("accepting connection", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-a.ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		conn := a.track(raw)
		if conn == nil {
			raw.Close()
			return nil
		}
		a.wg.Add(1)
		go a.serve(conn)
	}
}

// track wraps raw and registers it, or returns nil once stopping.
func (a *Acceptor) track(raw net.Conn) *Conn {
	maxBytes := a.cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxMessageBytes
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	conn := NewConn(raw, maxBytes, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	a.conns[conn] = struct{}{}
	return conn
}

func (a *Acceptor) serve(conn *Conn) {
	defer a.wg.Done()
	start := time.Now()
	addr := conn.RemoteAddr()
	a.logger.Info("client connected", zap.String("remote_addr", addr))

	defer func() {
		a.mu.Lock()
		delete(a.conns, conn)
		a.mu.Unlock()
		conn.Close()
	}()

	err := a.handler.ServeConn(a.ctx, conn, Transport)
	fields := []zap.Field{zap.String("remote_addr", addr), zap.Duration("duration", time.Since(start))}
	if err != nil {
		a.logger.Debug("session ended", append(fields, zap.Error(err))...)
		return
	}
	a.logger.Info("session ended cleanly", fields...)
}

// Active returns the number of open client connections.
func (a *Acceptor) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// Start implements server.Service.
func (a *Acceptor) Start() error { return a.ListenAndServe() }

// Stop closes the listener and every connection, then waits for all
// sessions to finish. Closing a socket unblocks its handler's pending read.
//
// Postcondition: All connections are closed and goroutines have exited.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	a.cancel()
	a.running = false
	if a.listener != nil {
		a.listener.Close()
	}
	for conn := range a.conns {
		conn.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("tcp acceptor stopped")
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning reports whether the acceptor is accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
