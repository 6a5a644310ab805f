package tcp

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/session"
)

// echoHandler echoes each message back to the client.
type echoHandler struct {
	sessions  atomic.Int32
	transport atomic.Value
}

func (h *echoHandler) ServeConn(_ context.Context, conn session.Conn, transport string) error {
	h.sessions.Add(1)
	h.transport.Store(transport)
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if string(msg) == "quit" {
			_ = conn.WriteMessage([]byte("bye"))
			return nil
		}
		_ = conn.WriteMessage(append([]byte("echo: "), msg...))
	}
}

func startAcceptor(t *testing.T, h Handler) *Acceptor {
	t.Helper()
	cfg := config.TransportConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		MaxMessageBytes: 1024,
	}
	acc := NewAcceptor(cfg, h, zaptest.NewLogger(t))

	errCh := make(chan error, 1)
	go func() { errCh <- acc.ListenAndServe() }()

	require.Eventually(t, func() bool {
		return acc.IsRunning() && acc.Addr() != ""
	}, 2*time.Second, 10*time.Millisecond, "acceptor did not start in time")

	t.Cleanup(func() {
		acc.Stop()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("acceptor did not shut down in time")
		}
	})
	return acc
}

func TestAcceptorEchoAndQuit(t *testing.T) {
	handler := &echoHandler{}
	acc := startAcceptor(t, handler)

	conn, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	_, err = conn.Write([]byte("hello\r\n\n"))
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo: hello\n", line)

	_, err = conn.Write([]byte("quit\n"))
	require.NoError(t, err)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "bye\n", line)

	assert.Equal(t, int32(1), handler.sessions.Load())
	assert.Equal(t, Transport, handler.transport.Load())
}

func TestAcceptorStopClosesActiveSessions(t *testing.T) {
	handler := &echoHandler{}
	cfg := config.TransportConfig{Host: "127.0.0.1", MaxMessageBytes: 1024}
	acc := NewAcceptor(cfg, handler, zaptest.NewLogger(t))
	go func() { _ = acc.ListenAndServe() }()
	require.Eventually(t, func() bool { return acc.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	conn, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return handler.sessions.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		acc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an idle session")
	}
	assert.False(t, acc.IsRunning())

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestAcceptorStopBeforeStart(t *testing.T) {
	acc := NewAcceptor(config.TransportConfig{}, &echoHandler{}, zaptest.NewLogger(t))
	acc.Stop()
	assert.False(t, acc.IsRunning())
	assert.Empty(t, acc.Addr())
}

func TestAcceptorActiveTracksConnections(t *testing.T) {
	acc := startAcceptor(t, &echoHandler{})

	conn, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return acc.Active() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return acc.Active() == 0 }, 2*time.Second, 10*time.Millisecond)
}
