package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/draftroom/internal/model"
)

// Reap removes every live session created more than the TTL ago,
// regardless of progress or when it was last loaded. Subscribers are disconnected without an event;
// clients discover the loss through ErrUnknownSession.
func (m *Manager) Reap(now time.Time) int {
	type expired struct {
		id model.SessionID
		ls *liveSession
	}

	m.mu.Lock()
	var victims []expired
	for id, ls := range m.live {
		if now.Sub(ls.createdAt) > m.cfg.TTL {
			victims = append(victims, expired{id: id, ls: ls})
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	for _, v := range victims {
		v.ls.mu.Lock()
		v.ls.removed = true
		v.ls.mu.Unlock()
		m.channel.Close(v.id)
	}

	if len(victims) > 0 {
		m.logger.Info("reaped expired sessions", slog.Int("count", len(victims)))
	}
	return len(victims)
}

// Run sweeps the live map every ReapInterval until ctx is cancelled
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	m.logger.Info("reaper started",
		slog.Duration("ttl", m.cfg.TTL),
		slog.Duration("interval", m.cfg.ReapInterval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Reap(m.clock.Now())
		}
	}
}

// Close drops every live session and disconnects all subscribers
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.live
	m.live = make(map[model.SessionID]*liveSession)
	m.mu.Unlock()

	for id, ls := range sessions {
		ls.mu.Lock()
		ls.removed = true
		ls.mu.Unlock()
		m.channel.Close(id)
	}
	m.logger.Info("session manager closed", slog.Int("sessions", len(sessions)))
}
