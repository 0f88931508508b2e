package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu      sync.Mutex
	msgs    [][]byte
	sendErr error
	closed  bool
}

func (c *fakeChannel) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHubBroadcastDropsFailingChannels(t *testing.T) {
	h := NewHub()
	good := &fakeChannel{}
	bad := &fakeChannel{sendErr: errors.New("broken pipe")}
	h.Register(good)
	h.Register(bad)
	require.Equal(t, 2, h.Len())

	h.Broadcast(challengeUpdate(ActionProgress, map[string]any{"challenge_id": "c1", "current_reps": 3}))

	assert.Equal(t, 1, h.Len())
	assert.True(t, bad.closed)
	require.Len(t, good.msgs, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(good.msgs[0], &env))
	assert.Equal(t, EventChallengeUpdate, env.Type)
	assert.Equal(t, ActionProgress, env.Payload["action"])
	assert.Equal(t, float64(3), env.Payload["current_reps"])

	// broadcasting to an empty or shrinking hub never panics
	h.Broadcast(challengeUpdate(ActionStatus, nil))
	assert.Len(t, good.msgs, 2)
}

func TestHubUnregister(t *testing.T) {
	h := NewHub()
	ch := &fakeChannel{}
	id := h.Register(ch)
	h.Unregister(id)
	h.Unregister(id)
	h.Unregister("unknown")
	assert.Zero(t, h.Len())
	assert.True(t, ch.closed)

	h.Broadcast(challengeUpdate(ActionCreated, nil))
	assert.Empty(t, ch.msgs)
}

func TestHubRelay(t *testing.T) {
	h := NewHub()
	ch := &fakeChannel{}
	h.Register(ch)

	assert.True(t, h.Relay([]byte(`{"type":"leaderboard_update","payload":{}}`)))
	assert.True(t, h.Relay([]byte(`{"type":"challenge_update","payload":{"action":"progress"}}`)))
	assert.False(t, h.Relay([]byte(`{"type":"chat","payload":{}}`)))
	assert.False(t, h.Relay([]byte(`not json`)))
	assert.Len(t, ch.msgs, 2)
}

func TestHubRelayRewrapsEnvelope(t *testing.T) {
	h := NewHub()
	ch := &fakeChannel{}
	h.Register(ch)

	require.True(t, h.Relay([]byte(`{"type":"challenge_update","payload":{"action":"progress"},"admin":true}`)))
	require.Len(t, ch.msgs, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(ch.msgs[0], &got))
	assert.Equal(t, map[string]any{
		"type":    "challenge_update",
		"payload": map[string]any{"action": "progress"},
	}, got)
}

func TestHubConcurrentUse(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := h.Register(NewQueueChannel(4))
			h.Unregister(id)
		}()
		go func() {
			defer wg.Done()
			h.Broadcast(challengeUpdate(ActionProgress, nil))
		}()
	}
	wg.Wait()
	assert.Zero(t, h.Len())
}

func TestQueueChannel(t *testing.T) {
	q := NewQueueChannel(1)
	require.NoError(t, q.Send([]byte("a")))
	assert.Error(t, q.Send([]byte("b")), "full buffer fails the send")
	assert.Equal(t, []byte("a"), <-q.C())

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Send([]byte("c")), ErrChannelClosed)
	select {
	case <-q.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestStreamSSE(t *testing.T) {
	q := NewQueueChannel(4)
	require.NoError(t, q.Send([]byte(`{"type":"challenge_update"}`)))

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	finished := make(chan struct{})
	go func() {
		StreamSSE(w, q)
		close(finished)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after close")
	}

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ":\n\n"))
	assert.Contains(t, out, "data: {\"type\":\"challenge_update\"}\n\n")
}
