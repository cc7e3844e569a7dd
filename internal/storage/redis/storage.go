package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/storage"
)

// saveScript writes the live hash unless the draft is archived or the stored cursor is ahead of ours.
// KEYS[1] = draft key, KEYS[2] = archive key, ARGV[1] = cursor, ARGV[2] = payload, ARGV[3] = ttl in ms (0 = none)
var saveScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
local current = redis.call("HGET", KEYS[1], "cursor")
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "cursor", ARGV[1], "data", ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) LoadDraft(ctx context.Context, id model.SessionID) (*model.DraftSession, error) {
	data, err := s.client.HGet(ctx, draftKey(id), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		data, err = s.client.Get(ctx, archiveKey(id)).Bytes()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrDraftNotFound
		}
		return nil, err
	}

	var draft model.DraftSession
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *Storage) SaveDraft(ctx context.Context, draft *model.DraftSession) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	ttl := s.cfg.DraftTTL.Milliseconds()
	return saveScript.Run(ctx, s.client, []string{draftKey(draft.ID), archiveKey(draft.ID)}, draft.Cursor, data, ttl).Err()
}

func (s *Storage) ArchiveDraft(ctx context.Context, draft *model.DraftSession) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	// Archive and drop the live hash together
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, archiveKey(draft.ID), data, 0)
	pipe.Del(ctx, draftKey(draft.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DraftExists(ctx context.Context, id model.SessionID) (bool, error) {
	exists, err := s.client.Exists(ctx, draftKey(id), archiveKey(id)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
