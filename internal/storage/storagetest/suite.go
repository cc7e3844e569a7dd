// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/storage"
)

// Suite runs the common storage contract against the backend returned by NewStorage.
// Embed it in a backend test suite and set NewStorage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

// Draft builds a provided draft with the given number of recorded actions
func Draft(id model.SessionID, applied int) *model.DraftSession {
	actions := []model.DraftAction{
		{Type: model.ActionBan, Team: model.TeamA, LockForPickingTeam: true, LockForOpponentTeam: true},
		{Type: model.ActionBan, Team: model.TeamB, LockForPickingTeam: true, LockForOpponentTeam: true},
		{Type: model.ActionPick, Team: model.TeamB, LockForPickingTeam: true},
		{Type: model.ActionPick, Team: model.TeamA},
	}
	draft := &model.DraftSession{
		ID: id,
		Configuration: model.DraftConfiguration{
			Template:         "scenario",
			LeaderID:         "organizer",
			ProvidedByServer: true,
			Actions:          actions,
		},
		History:    []model.DraftAction{},
		Users:      []model.DraftUser{{ID: "alice", DisplayName: "Alice"}, {ID: "bob", DisplayName: "Bob"}},
		TeamA:      []model.UserID{"alice"},
		TeamB:      []model.UserID{"bob"},
		TeamAReady: true,
		TeamBReady: true,
		CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for i := 0; i < applied; i++ {
		a := actions[i]
		a.Breed = model.ClassID(i + 1)
		draft.History = append(draft.History, a)
	}
	draft.Cursor = len(draft.History)
	return draft
}

func (s *Suite) TestLoadDraftNotFound() {
	_, err := s.Storage.LoadDraft(s.Ctx, "MISSING")
	s.ErrorIs(err, model.ErrDraftNotFound)
}

func (s *Suite) TestSaveAndLoadDraft() {
	draft := Draft("ABC123", 2)
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, draft))

	loaded, err := s.Storage.LoadDraft(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(draft.ID, loaded.ID)
	s.Equal(2, loaded.Cursor)
	s.Equal(draft.History, loaded.History)
	s.Equal(draft.TeamA, loaded.TeamA)
	s.Equal(draft.TeamB, loaded.TeamB)
	s.True(loaded.Configuration.ProvidedByServer)
	s.True(draft.CreatedAt.Equal(loaded.CreatedAt))
}

func (s *Suite) TestLoadedDraftIsACopy() {
	draft := Draft("ABC123", 1)
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, draft))

	draft.History[0].Breed = 99

	loaded, err := s.Storage.LoadDraft(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.ClassID(1), loaded.History[0].Breed)
}

func (s *Suite) TestSaveDraftIgnoresStaleCursor() {
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, Draft("ABC123", 3)))
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, Draft("ABC123", 1)))

	loaded, err := s.Storage.LoadDraft(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(3, loaded.Cursor)
	s.Len(loaded.History, 3)
}

func (s *Suite) TestSaveDraftSameCursorOverwrites() {
	draft := Draft("ABC123", 0)
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, draft))

	draft.TeamAReady = false
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, draft))

	loaded, err := s.Storage.LoadDraft(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.False(loaded.TeamAReady)
}

func (s *Suite) TestArchiveDraft() {
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, Draft("ABC123", 3)))
	s.Require().NoError(s.Storage.ArchiveDraft(s.Ctx, Draft("ABC123", 4)))

	loaded, err := s.Storage.LoadDraft(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(4, loaded.Cursor)

	exists, err := s.Storage.DraftExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *Suite) TestSaveAfterArchiveIsIgnored() {
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, Draft("ABC123", 2)))
	s.Require().NoError(s.Storage.ArchiveDraft(s.Ctx, Draft("ABC123", 4)))
	// A save for an earlier turn that lands after the archive
	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, Draft("ABC123", 3)))

	loaded, err := s.Storage.LoadDraft(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(4, loaded.Cursor)
	s.Len(loaded.History, 4)
}

func (s *Suite) TestDraftExists() {
	exists, err := s.Storage.DraftExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.Storage.SaveDraft(s.Ctx, Draft("ABC123", 0)))

	exists, err = s.Storage.DraftExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)
}
