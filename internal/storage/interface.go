package storage

import (
	"context"

	"github.com/mcoot/draftroom/internal/model"
)

// Storage defines the persistence collaborator for server-provided drafts.
// Ad-hoc drafts only ever live in memory and are never written here.
type Storage interface {
	// LoadDraft returns the live copy of a draft, falling back to its archived copy.
	// Returns model.ErrDraftNotFound if neither exists.
	LoadDraft(ctx context.Context, id model.SessionID) (*model.DraftSession, error)

	// SaveDraft writes the live copy. A save whose cursor is behind the stored
	// cursor is ignored so an older snapshot never replaces a newer one.
	SaveDraft(ctx context.Context, draft *model.DraftSession) error

	// ArchiveDraft stores the final copy of a terminal draft and drops the live copy
	ArchiveDraft(ctx context.Context, draft *model.DraftSession) error

	// DraftExists reports whether an id is taken by a live or archived draft
	DraftExists(ctx context.Context, id model.SessionID) (bool, error)

	Close() error
}
