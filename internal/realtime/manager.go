package realtime

import (
	"log/slog"
	"sync"

	"github.com/mcoot/draftroom/internal/model"
)

// HubManager owns one hub per session and is the broadcast channel used by the session manager
type HubManager struct {
	hubs   map[model.SessionID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.SessionID]*Hub),
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// getOrCreateHub returns the hub for a session, creating one if it doesn't exist
func (m *HubManager) getOrCreateHub(sessionID model.SessionID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[sessionID]; ok {
		return hub
	}

	hub := NewHub(sessionID, m.logger)
	m.hubs[sessionID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a session, or nil if it doesn't exist
func (m *HubManager) GetHub(sessionID model.SessionID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[sessionID]
}

// Subscribe binds a new client for userID to the session's channel
func (m *HubManager) Subscribe(sessionID model.SessionID, userID model.UserID) *Client {
	for {
		hub := m.getOrCreateHub(sessionID)
		client := NewClient(hub, userID)
		if hub.Register(client) {
			return client
		}
		// Lost a race with Close; drop the stale hub and retry with a fresh one
		m.mu.Lock()
		if m.hubs[sessionID] == hub {
			delete(m.hubs, sessionID)
		}
		m.mu.Unlock()
	}
}

// Unsubscribe detaches a client; its message channel is closed
func (m *HubManager) Unsubscribe(client *Client) {
	if client == nil || client.hub == nil {
		return
	}
	client.hub.Unregister(client)
}

// Publish sends an event to every current subscriber of a session.
// Delivery is fire-and-forget and never blocks the caller.
func (m *HubManager) Publish(sessionID model.SessionID, event model.EventType, payload any) {
	hub := m.GetHub(sessionID)
	if hub == nil {
		return
	}

	message, err := NewMessage(sessionID, event, payload)
	if err != nil {
		m.logger.Error("failed to encode event",
			slog.String("session_id", string(sessionID)),
			slog.String("event", string(event)),
			slog.Any("error", err))
		return
	}
	hub.Broadcast(message)
}

// Close delivers any queued messages, disconnects all subscribers, and removes the hub
func (m *HubManager) Close(sessionID model.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[sessionID]; ok {
		hub.Close()
		delete(m.hubs, sessionID)
		m.logger.Debug("hub removed", slog.String("session_id", string(sessionID)))
	}
}

// CloseAll shuts down every hub
func (m *HubManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}

// HubCount returns the number of open hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}
