package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/storage"
)

// draftRecord is one row per draft. Payload holds the serialized session;
// CursorPos mirrors its cursor so stale writes can be rejected in SQL.
type draftRecord struct {
	ID         string `gorm:"primaryKey;size:32"`
	CursorPos  int    `gorm:"not null"`
	Archived   bool   `gorm:"not null;default:false;index"`
	Payload    string `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ArchivedAt *time.Time
}

func (draftRecord) TableName() string {
	return "drafts"
}

// Storage is a Postgres-backed implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// New opens a connection and migrates the drafts table
func New(dsn string) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing connection
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&draftRecord{}); err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) LoadDraft(ctx context.Context, id model.SessionID) (*model.DraftSession, error) {
	var rec draftRecord
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrDraftNotFound
		}
		return nil, err
	}

	var draft model.DraftSession
	if err := json.Unmarshal([]byte(rec.Payload), &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *Storage) SaveDraft(ctx context.Context, draft *model.DraftSession) error {
	rec, err := toRecord(draft)
	if err != nil {
		return err
	}

	// Archived rows and rows further ahead are left alone
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor_pos", "payload", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "drafts.cursor_pos <= excluded.cursor_pos AND NOT drafts.archived"},
		}},
	}).Create(rec).Error
}

func (s *Storage) ArchiveDraft(ctx context.Context, draft *model.DraftSession) error {
	rec, err := toRecord(draft)
	if err != nil {
		return err
	}
	now := time.Now()
	rec.Archived = true
	rec.ArchivedAt = &now

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor_pos", "payload", "archived", "archived_at", "updated_at"}),
	}).Create(rec).Error
}

func (s *Storage) DraftExists(ctx context.Context, id model.SessionID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&draftRecord{}).Where("id = ?", string(id)).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func toRecord(draft *model.DraftSession) (*draftRecord, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return nil, err
	}
	return &draftRecord{
		ID:        string(draft.ID),
		CursorPos: draft.Cursor,
		Payload:   string(data),
		CreatedAt: draft.CreatedAt,
	}, nil
}
