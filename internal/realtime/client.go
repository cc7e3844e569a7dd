package realtime

import (
	"net/http"
	"time"

	"github.com/mcoot/draftroom/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one subscription to a session's channel
type Client struct {
	hub         *Hub
	userID      model.UserID
	send        chan Message
	connectedAt time.Time
}

// NewClient creates a new client for hub
func NewClient(hub *Hub, userID model.UserID) *Client {
	return &Client{
		hub:         hub,
		userID:      userID,
		send:        make(chan Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Messages yields published messages in order. It is closed when the client is
// unsubscribed or the session's channel is closed.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// UserID returns the user the client was subscribed for
func (c *Client) UserID() model.UserID {
	return c.userID
}

// ServeSSE streams a client's messages as server-sent events until the request
// ends or the channel is closed. The caller owns unsubscribing.
func ServeSSE(w http.ResponseWriter, r *http.Request, client *Client, initial Message) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	if _, err := w.Write(initial.SSE()); err != nil {
		return
	}
	flusher.Flush()

	// Create ticker for keepalive
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(message.SSE()); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}
