package telemetry

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/flowtrader/flow"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, time.Second, 5*time.Millisecond)
}

func TestHubBroadcastsDecisions(t *testing.T) {
	t.Parallel()
	h := NewHub(zerolog.New(io.Discard))
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, h, 2)

	h.Publish(flow.Decision{Symbol: "BTCUSDT", Reason: flow.ReasonNoCandidate})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, "BTCUSDT", got["symbol"])
		assert.Equal(t, "no_candidate", got["reason"])
	}
}

func TestHubForgetsDisconnectedClients(t *testing.T) {
	t.Parallel()
	h := NewHub(zerolog.New(io.Discard))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)

	conn.Close()
	waitClients(t, h, 0)

	h.Publish(flow.Decision{Symbol: "X"})
	h.Close()
	assert.Equal(t, 0, h.Clients())
}

func TestHubDropsSlowClient(t *testing.T) {
	t.Parallel()
	h := NewHub(zerolog.New(io.Discard))
	c := &client{remote: "test", send: make(chan []byte, 1)}
	h.clients[c] = struct{}{}

	// The first message fills the buffer; the second finds it full.
	h.Broadcast([]byte("1"))
	assert.Equal(t, 1, h.Clients())
	h.Broadcast([]byte("2"))
	assert.Equal(t, 0, h.Clients())

	_, open := <-c.send
	assert.True(t, open)
	_, open = <-c.send
	assert.False(t, open)
}
