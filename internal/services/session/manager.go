package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/draftroom/internal/catalog"
	"github.com/mcoot/draftroom/internal/dependencies/clock"
	"github.com/mcoot/draftroom/internal/dependencies/random"
	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/realtime"
	"github.com/mcoot/draftroom/internal/services/engine"
	"github.com/mcoot/draftroom/internal/storage"
)

const (
	// SessionIDLength is the length of generated session ids
	SessionIDLength = 6
	// SessionIDAlphabet is the characters used in session ids (avoid confusing chars)
	SessionIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// DefaultTTL is how long a session may stay live, measured from creation
	DefaultTTL = 60 * time.Minute
	// DefaultReapInterval is how often the reaper sweeps the live map
	DefaultReapInterval = time.Minute

	persistTimeout = 5 * time.Second
)

// Channel is the broadcast collaborator. Publish must never block on delivery.
type Channel interface {
	Publish(id model.SessionID, event model.EventType, payload any)
	Subscribe(id model.SessionID, userID model.UserID) *realtime.Client
	Unsubscribe(client *realtime.Client)
	Close(id model.SessionID)
}

// Config controls session lifetime
type Config struct {
	TTL          time.Duration
	ReapInterval time.Duration
}

// DefaultConfig returns the standard lifetime settings
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL, ReapInterval: DefaultReapInterval}
}

// liveSession pairs a draft with its exclusion boundary.
// All fields other than createdAt are guarded by mu.
type liveSession struct {
	mu          sync.Mutex
	draft       *model.DraftSession
	createdAt   time.Time
	removed     bool
	connections map[model.UserID]int
}

func newLiveSession(draft *model.DraftSession) *liveSession {
	return &liveSession{
		draft:       draft,
		createdAt:   draft.CreatedAt,
		connections: make(map[model.UserID]int),
	}
}

// Manager owns the live sessions and is the only writer of their state
type Manager struct {
	mu   sync.RWMutex
	live map[model.SessionID]*liveSession

	loads   singleflight.Group
	storage storage.Storage
	channel Channel
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger
}

// NewManager creates a new session Manager
func NewManager(
	storage storage.Storage,
	channel Channel,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	return &Manager{
		live:    make(map[model.SessionID]*liveSession),
		storage: storage,
		channel: channel,
		clock:   clock,
		random:  random,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "session-manager")),
	}
}

// CreateSession starts an ad-hoc draft led by creator. Ad-hoc drafts are never persisted.
func (m *Manager) CreateSession(ctx context.Context, creator model.DraftUser, template string) (model.Snapshot, error) {
	tmpl, err := catalog.Get(template)
	if err != nil {
		return model.Snapshot{}, err
	}

	id, err := m.allocateID(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	now := m.clock.Now()
	draft := engine.NewSession(id, tmpl.Configuration(creator.ID, false), creator, now)
	ls := newLiveSession(draft)

	m.mu.Lock()
	m.live[id] = ls
	m.mu.Unlock()

	m.logger.Info("session created",
		slog.String("session_id", string(id)),
		slog.String("template", tmpl.Name),
		slog.String("leader_id", string(creator.ID)))

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return engine.Snapshot(ls.draft), nil
}

// ProvidedDraft describes a server-provided draft with fixed rosters
type ProvidedDraft struct {
	Template string
	TeamA    []model.DraftUser
	TeamB    []model.DraftUser
}

// CreateProvidedSession creates and persists a draft whose rosters are fixed at creation.
// Only organizers may provide drafts.
func (m *Manager) CreateProvidedSession(ctx context.Context, organizer model.Identity, req ProvidedDraft) (model.Snapshot, error) {
	if !organizer.HasRole(model.RoleOrganizer) {
		return model.Snapshot{}, model.ErrNotOrganizer
	}
	tmpl, err := catalog.Get(req.Template)
	if err != nil {
		return model.Snapshot{}, err
	}
	if len(req.TeamA) > model.MaxTeamSize || len(req.TeamB) > model.MaxTeamSize {
		return model.Snapshot{}, model.ErrCapacityExceeded
	}

	id, err := m.allocateID(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	now := m.clock.Now()
	draft := engine.NewSession(id, tmpl.Configuration(organizer.User.ID, true), organizer.User, now)
	for _, entry := range []struct {
		team  model.Team
		users []model.DraftUser
	}{{model.TeamA, req.TeamA}, {model.TeamB, req.TeamB}} {
		for _, u := range entry.users {
			if draft.GetUser(u.ID) == nil {
				u.Present = false
				draft.Users = append(draft.Users, u)
			}
			if err := engine.AssignUser(draft, u.ID, entry.team); err != nil {
				return model.Snapshot{}, fmt.Errorf("team %s: %w", entry.team, err)
			}
		}
	}

	if err := m.storage.SaveDraft(ctx, draft.Clone()); err != nil {
		return model.Snapshot{}, err
	}

	ls := newLiveSession(draft)
	m.mu.Lock()
	m.live[id] = ls
	m.mu.Unlock()

	m.logger.Info("provided session created",
		slog.String("session_id", string(id)),
		slog.String("template", tmpl.Name),
		slog.String("organizer_id", string(organizer.User.ID)))

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return engine.Snapshot(ls.draft), nil
}

// allocateID generates a session id not used by a live or persisted draft
func (m *Manager) allocateID(ctx context.Context) (model.SessionID, error) {
	for {
		id := model.SessionID(m.random.String(SessionIDLength, SessionIDAlphabet))
		m.mu.RLock()
		_, live := m.live[id]
		m.mu.RUnlock()
		if live {
			continue
		}
		exists, err := m.storage.DraftExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
}

// GetOrLoadSession returns the live session, or loads and restores a persisted one.
// Finished drafts are served from their archived copy without being cached.
func (m *Manager) GetOrLoadSession(ctx context.Context, id model.SessionID) (model.Snapshot, error) {
	ls, err := m.resolve(ctx, id)
	if err != nil {
		return model.Snapshot{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.removed && !ls.draft.IsTerminal() {
		return model.Snapshot{}, unknown(id)
	}
	return engine.Snapshot(ls.draft), nil
}

// resolve finds the live session for id, loading it from storage on first reference.
// Concurrent loads of one id share a single storage read and a single live copy.
func (m *Manager) resolve(ctx context.Context, id model.SessionID) (*liveSession, error) {
	if ls := m.lookup(id); ls != nil {
		return ls, nil
	}

	v, err, shared := m.loads.Do(string(id), func() (any, error) {
		if ls := m.lookup(id); ls != nil {
			return ls, nil
		}

		// Waiters share this load; one caller cancelling must not fail the rest
		draft, err := m.storage.LoadDraft(context.WithoutCancel(ctx), id)
		if errors.Is(err, model.ErrDraftNotFound) {
			return nil, unknown(id)
		}
		if err != nil {
			return nil, err
		}
		engine.Restore(draft)
		ls := newLiveSession(draft)

		if draft.IsTerminal() {
			ls.removed = true
			return ls, nil
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := m.live[id]; ok {
			return existing, nil
		}
		m.live[id] = ls
		m.logger.Info("session loaded from storage",
			slog.String("session_id", string(id)),
			slog.Int("cursor", draft.Cursor))
		return ls, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("session load shared", slog.String("session_id", string(id)))
	}
	return v.(*liveSession), nil
}

func (m *Manager) lookup(id model.SessionID) *liveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[id]
}

// acquire resolves and locks a session that is still live. The caller must unlock.
func (m *Manager) acquire(ctx context.Context, id model.SessionID) (*liveSession, error) {
	ls, err := m.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	if ls.removed {
		terminal := ls.draft.IsTerminal()
		ls.mu.Unlock()
		if terminal {
			return nil, fmt.Errorf("%w: draft %s is complete", model.ErrIllegalState, id)
		}
		return nil, unknown(id)
	}
	return ls, nil
}

// remove drops ls from the live map if it is still the registered session for id
func (m *Manager) remove(id model.SessionID, ls *liveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[id] == ls {
		delete(m.live, id)
	}
}

// persist saves a provided draft outside the session lock. Failures are logged;
// the in-memory session stays authoritative.
func (m *Manager) persist(ctx context.Context, draft *model.DraftSession, archive bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var err error
	if archive {
		err = m.storage.ArchiveDraft(ctx, draft)
	} else {
		err = m.storage.SaveDraft(ctx, draft)
	}
	if err != nil {
		m.logger.Error("failed to persist draft",
			slog.String("session_id", string(draft.ID)),
			slog.Bool("archive", archive),
			slog.Any("error", err))
	}
}

// LiveCount returns the number of live sessions
func (m *Manager) LiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

func unknown(id model.SessionID) error {
	return fmt.Errorf("%w: %s", model.ErrUnknownSession, id)
}
