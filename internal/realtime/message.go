package realtime

import (
	"encoding/json"
	"strings"

	"github.com/mcoot/draftroom/internal/model"
)

// Message is one event published to the subscribers of a session
type Message struct {
	Event     model.EventType `json:"event"`
	SessionID model.SessionID `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

// NewMessage marshals payload into a message
func NewMessage(sessionID model.SessionID, event model.EventType, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, SessionID: sessionID, Data: data}, nil
}

// Envelope returns the message as a single JSON document for websocket clients
func (m Message) Envelope() ([]byte, error) {
	return json.Marshal(m)
}

// SSE returns the message in text/event-stream framing
func (m Message) SSE() []byte {
	return formatSSEMessage(string(m.Event), string(m.Data))
}

// formatSSEMessage formats an SSE message with event name and data
// Multi-line data is properly formatted with "data: " prefix on each line
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + eventName + "\n")
	// SSE requires each line of data to be prefixed with "data: "
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling various line endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
