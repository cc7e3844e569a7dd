package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	memory *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.memory = New()
	s.Storage = s.memory
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestArchiveDropsLiveCopy() {
	s.Require().NoError(s.memory.SaveDraft(s.Ctx, storagetest.Draft("ABC123", 2)))
	s.Require().NoError(s.memory.ArchiveDraft(s.Ctx, storagetest.Draft("ABC123", 4)))

	s.NotContains(s.memory.live, model.SessionID("ABC123"))
	s.Contains(s.memory.archived, model.SessionID("ABC123"))
}
