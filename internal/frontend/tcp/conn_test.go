package tcp

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func pipeConn(t *testing.T, maxBytes int) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewConn(server, maxBytes, 0, 0), client
}

func TestConnReadMessageSkipsBlankLines(t *testing.T) {
	conn, client := pipeConn(t, 1024)
	go func() { _, _ = client.Write([]byte("\n  \r\n{\"requestType\":\"Ping\"}\r\n")) }()

	msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"requestType":"Ping"}`, string(msg))
}

func TestConnReadMessageTooLarge(t *testing.T) {
	conn, client := pipeConn(t, 16)
	go func() { _, _ = client.Write([]byte(strings.Repeat("x", 64) + "\n")) }()

	_, err := conn.ReadMessage()
	assert.True(t, errors.Is(err, ErrMessageTooLarge))
}

func TestConnReadMessageLongerThanBuffer(t *testing.T) {
	payload := strings.Repeat("a", 10000)
	conn, client := pipeConn(t, 20000)
	go func() { _, _ = client.Write([]byte(payload + "\n")) }()

	msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Len(t, msg, len(payload))
}

func TestConnReadMessageEOF(t *testing.T) {
	conn, client := pipeConn(t, 1024)
	client.Close()
	_, err := conn.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnWriteMessageAppendsNewline(t *testing.T) {
	conn, client := pipeConn(t, 1024)
	go func() { _ = conn.WriteMessage([]byte(`{"success":true}`)) }()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "{\"success\":true}\n", line)
}

func TestPropertyConnReadsEveryLineInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lines := rapid.SliceOfN(rapid.StringMatching(`[a-zA-Z0-9{}":,]{1,40}`), 1, 10).Draw(rt, "lines")

		server, client := net.Pipe()
		defer server.Close()
		defer client.Close()
		conn := NewConn(server, 128, 0, 0)
		go func() { _, _ = client.Write([]byte(strings.Join(lines, "\n") + "\n")) }()

		for i, want := range lines {
			got, err := conn.ReadMessage()
			if err != nil {
				rt.Fatalf("line %d: %v", i, err)
			}
			if string(got) != want {
				rt.Fatalf("line %d: got %q want %q", i, got, want)
			}
		}
	})
}
