package memory

import (
	"context"
	"sync"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	live     map[model.SessionID]*model.DraftSession
	archived map[model.SessionID]*model.DraftSession
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		live:     make(map[model.SessionID]*model.DraftSession),
		archived: make(map[model.SessionID]*model.DraftSession),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) LoadDraft(ctx context.Context, id model.SessionID) (*model.DraftSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if draft, ok := s.live[id]; ok {
		return draft.Clone(), nil
	}
	if draft, ok := s.archived[id]; ok {
		return draft.Clone(), nil
	}
	return nil, model.ErrDraftNotFound
}

func (s *Storage) SaveDraft(ctx context.Context, draft *model.DraftSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.archived[draft.ID]; done {
		return nil
	}
	if existing, ok := s.live[draft.ID]; ok && existing.Cursor > draft.Cursor {
		return nil
	}
	s.live[draft.ID] = draft.Clone()
	return nil
}

func (s *Storage) ArchiveDraft(ctx context.Context, draft *model.DraftSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived[draft.ID] = draft.Clone()
	delete(s.live, draft.ID)
	return nil
}

func (s *Storage) DraftExists(ctx context.Context, id model.SessionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, live := s.live[id]
	_, archived := s.archived[id]
	return live || archived, nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}
