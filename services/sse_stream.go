package services

import (
	"bufio"
	"fmt"
	"time"
)

// SSEKeepAlive is how often an idle stream receives a comment line.
var SSEKeepAlive = 15 * time.Second

// StreamSSE writes queued envelopes to w as unnamed data events until
// the channel closes or the client goes away. A failed flush means the
// client disconnected.
func StreamSSE(w *bufio.Writer, ch *QueueChannel) {
	ticker := time.NewTicker(SSEKeepAlive)
	defer ticker.Stop()

	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}

	for {
		select {
		case msg := <-ch.C():
			fmt.Fprintf(w, "data: %s\n\n", msg)
			if err := w.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}
		case <-ch.Done():
			return
		}
	}
}
