// handlers/realtime_routes.go
package handlers

import (
	"bufio"
	"sync"
	"time"

	"rep-challenge-system/logging"
	"rep-challenge-system/middleware"
	"rep-challenge-system/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// ChannelBuffer is how many envelopes a slow viewer may lag behind before
// it is dropped.
const ChannelBuffer = 64

// WriteTimeout bounds a single WebSocket write to a viewer that stopped reading.
var WriteTimeout = 10 * time.Second

// SetupRealtimeRoutes registers the WebSocket and SSE transports on hub.
// Both must be registered before the global gateway middleware since they
// authenticate with StreamAuthMiddleware.
func SetupRealtimeRoutes(app *fiber.App, hub *services.Hub, gatewayToken string) {
	streamAuth := middleware.StreamAuthMiddleware(gatewayToken)
	log := logging.WithComponent("realtime")

	app.Use("/ws", streamAuth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		q := services.NewQueueChannel(ChannelBuffer)
		id := hub.Register(q)

		// conn is recycled once this handler returns, so the writer must
		// be gone by then.
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close() // unblocks ReadMessage below
			for {
				select {
				case msg := <-q.C():
					_ = conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-q.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !hub.Relay(msg) {
				log.Debug().Str("channel_id", id).Msg("ignored inbound message")
			}
		}
		hub.Unregister(id)
		wg.Wait()
	}))

	app.Get("/challenges/stream", streamAuth, func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		q := services.NewQueueChannel(ChannelBuffer)
		id := hub.Register(q)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer hub.Unregister(id)
			services.StreamSSE(w, q)
		})
		return nil
	})
}
