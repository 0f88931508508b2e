package services

import (
	"encoding/json"
	"errors"
	"sync"

	"rep-challenge-system/logging"
	"rep-challenge-system/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventChallengeUpdate   = "challenge_update"
	EventLeaderboardUpdate = "leaderboard_update"
)

// Broadcast actions carried in the payload of a challenge_update envelope.
const (
	ActionCreated  = "created"
	ActionJoined   = "joined"
	ActionProgress = "progress"
	ActionStatus   = "status"
)

// Envelope is the message pushed to every connected viewer.
type Envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func challengeUpdate(action string, fields map[string]any) Envelope {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["action"] = action
	return Envelope{Type: EventChallengeUpdate, Payload: payload}
}

// Notifier fans envelopes out to viewers. Implementations never fail the caller.
type Notifier interface {
	Broadcast(env Envelope)
}

// Channel is one open push connection.
type Channel interface {
	Send(msg []byte) error
	Close() error
}

var ErrChannelClosed = errors.New("channel closed")

// Hub is the registry of open channels. Register and Unregister are the
// only mutators.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]Channel
	log      zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]Channel),
		log:      logging.WithComponent("realtime"),
	}
}

func (h *Hub) Register(ch Channel) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.channels[id] = ch
	n := len(h.channels)
	h.mu.Unlock()

	metrics.ChannelsConnected.Set(float64(n))
	h.log.Debug().Str("channel_id", id).Int("channels", n).Msg("channel registered")
	return id
}

// Unregister removes and closes the channel. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	ch, ok := h.channels[id]
	delete(h.channels, id)
	n := len(h.channels)
	h.mu.Unlock()
	if !ok {
		return
	}

	_ = ch.Close()
	metrics.ChannelsConnected.Set(float64(n))
	h.log.Debug().Str("channel_id", id).Int("channels", n).Msg("channel unregistered")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// Broadcast encodes env once and sends it to every channel. A channel
// that fails to accept the message is dropped.
func (h *Hub) Broadcast(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Str("type", env.Type).Msg("encode broadcast")
		return
	}
	action, _ := env.Payload["action"].(string)
	if action == "" {
		action = env.Type
	}
	metrics.BroadcastsTotal.WithLabelValues(action).Inc()
	h.send(msg)
}

func (h *Hub) send(msg []byte) {
	h.mu.RLock()
	targets := make(map[string]Channel, len(h.channels))
	for id, ch := range h.channels {
		targets[id] = ch
	}
	h.mu.RUnlock()

	for id, ch := range targets {
		if err := ch.Send(msg); err != nil {
			h.log.Warn().Err(err).Str("channel_id", id).Msg("dropping channel")
			metrics.ChannelsDroppedTotal.Inc()
			h.Unregister(id)
		}
	}
}

// Relay re-broadcasts an inbound viewer message as {type, payload} when
// it is a challenge_update or leaderboard_update envelope. Other fields
// are dropped and anything else is ignored.
func (h *Hub) Relay(raw []byte) bool {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}
	switch env.Type {
	case EventChallengeUpdate, EventLeaderboardUpdate:
	default:
		return false
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return false
	}
	metrics.BroadcastsTotal.WithLabelValues("relay").Inc()
	h.send(msg)
	return true
}

// QueueChannel buffers outbound messages for a transport goroutine to
// drain from C. A full buffer counts as a failed send.
type QueueChannel struct {
	mu     sync.Mutex
	out    chan []byte
	closed bool
	done   chan struct{}
}

func NewQueueChannel(size int) *QueueChannel {
	return &QueueChannel{
		out:  make(chan []byte, size),
		done: make(chan struct{}),
	}
}

func (q *QueueChannel) Send(msg []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrChannelClosed
	}
	select {
	case q.out <- msg:
		return nil
	default:
		return errors.New("channel buffer full")
	}
}

func (q *QueueChannel) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

// C yields queued messages.
func (q *QueueChannel) C() <-chan []byte { return q.out }

// Done is closed once the channel has been closed.
func (q *QueueChannel) Done() <-chan struct{} { return q.done }
