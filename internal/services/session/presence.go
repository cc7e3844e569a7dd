package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/realtime"
	"github.com/mcoot/draftroom/internal/services/engine"
)

// Membership is one connection's subscription to a session
type Membership struct {
	// Snapshot is the session state at the moment of joining.
	// Every event on Client happened after it.
	Snapshot model.Snapshot
	Client   *realtime.Client

	once  sync.Once
	leave func()
}

// Leave runs the disconnect hook. Safe to call more than once.
func (mb *Membership) Leave() {
	mb.once.Do(mb.leave)
}

// JoinSession subscribes a connection for user and marks them present.
// The returned membership's Leave must be called when the connection ends.
func (m *Manager) JoinSession(ctx context.Context, id model.SessionID, user model.DraftUser) (*Membership, error) {
	ls, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	if ls.draft.IsTerminal() {
		return nil, fmt.Errorf("%w: draft %s is complete", model.ErrIllegalState, id)
	}

	// Subscribe before publishing so the joiner sees its own join
	client := m.channel.Subscribe(id, user.ID)
	result := engine.OnUserJoin(ls.draft, user)
	ls.connections[user.ID]++

	switch result {
	case engine.JoinNew:
		m.channel.Publish(id, model.EventUserJoined, model.UserJoinedPayload{User: *ls.draft.GetUser(user.ID)})
	case engine.JoinReturned:
		team, _ := ls.draft.TeamOf(user.ID)
		m.channel.Publish(id, model.EventUserPresenceChanged, model.PresencePayload{UserID: user.ID, Team: team, Present: true})
	}

	m.logger.Info("user joined session",
		slog.String("session_id", string(id)),
		slog.String("user_id", string(user.ID)),
		slog.Int("connections", ls.connections[user.ID]))

	return &Membership{
		Snapshot: engine.Snapshot(ls.draft),
		Client:   client,
		leave:    func() { m.leave(id, ls, user.ID, client) },
	}, nil
}

// leave is the disconnect hook. Once a user's last connection closes they are
// marked absent; if that user is the leader of an ad-hoc draft that has not
// started, the session is destroyed.
func (m *Manager) leave(id model.SessionID, ls *liveSession, userID model.UserID, client *realtime.Client) {
	m.channel.Unsubscribe(client)

	ls.mu.Lock()
	if ls.removed {
		ls.mu.Unlock()
		return
	}

	ls.connections[userID]--
	if ls.connections[userID] > 0 {
		ls.mu.Unlock()
		return
	}
	delete(ls.connections, userID)
	engine.MarkAbsent(ls.draft, userID)

	draft := ls.draft
	if draft.IsLeader(userID) && draft.Cursor == 0 && !draft.Configuration.ProvidedByServer {
		ls.removed = true
		m.channel.Publish(id, model.EventCreatorDisconnected, model.CreatorDisconnectedPayload{SessionID: id})
		ls.mu.Unlock()

		m.remove(id, ls)
		m.channel.Close(id)
		m.logger.Info("session destroyed - creator disconnected before first action",
			slog.String("session_id", string(id)),
			slog.String("user_id", string(userID)))
		return
	}

	team, _ := draft.TeamOf(userID)
	m.channel.Publish(id, model.EventUserDisconnected, model.PresencePayload{UserID: userID, Team: team, Present: false})
	ls.mu.Unlock()

	m.logger.Info("user disconnected",
		slog.String("session_id", string(id)),
		slog.String("user_id", string(userID)))
}

// WatchSession subscribes an observer to a session's events without joining
// it. Observers are not users of the session and never affect presence.
func (m *Manager) WatchSession(ctx context.Context, id model.SessionID) (*Membership, error) {
	ls, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	if ls.draft.IsTerminal() {
		return nil, fmt.Errorf("%w: draft %s is complete", model.ErrIllegalState, id)
	}

	client := m.channel.Subscribe(id, "")
	return &Membership{
		Snapshot: engine.Snapshot(ls.draft),
		Client:   client,
		leave:    func() { m.channel.Unsubscribe(client) },
	}, nil
}
