package handlers

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"rep-challenge-system/services"

	fws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves a.app on a loopback port and returns the /ws URL.
func (a *testApp) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = a.app.Listener(ln) }()
	t.Cleanup(func() { _ = a.app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws?token=" + testToken
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	a := newTestApp(t)
	url := a.listen(t)

	conn, _, err := fws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.hub.Broadcast(services.Envelope{
		Type:    services.EventChallengeUpdate,
		Payload: map[string]any{"action": services.ActionProgress, "current_reps": 3},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env services.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, services.EventChallengeUpdate, env.Type)
	assert.Equal(t, float64(3), env.Payload["current_reps"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return a.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketFloodingViewersAreDropped(t *testing.T) {
	a := newTestApp(t)
	url := a.listen(t)

	frame, err := json.Marshal(map[string]any{
		"type":    services.EventChallengeUpdate,
		"payload": map[string]any{"action": "progress"},
	})
	require.NoError(t, err)

	const clients = 8
	conns := make([]*fws.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		conn, _, err := fws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool { return a.hub.Len() == clients }, 2*time.Second, 10*time.Millisecond)

	// relay into every queue without ever reading, so buffers overflow
	for i := 0; i < 4*ChannelBuffer; i++ {
		for _, conn := range conns {
			if conn.WriteMessage(fws.TextMessage, frame) != nil {
				break
			}
		}
	}
	for _, conn := range conns {
		_ = conn.Close()
	}

	require.Eventually(t, func() bool { return a.hub.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}
