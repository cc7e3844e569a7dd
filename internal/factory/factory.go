package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/draftroom/internal/config"
	"github.com/mcoot/draftroom/internal/dependencies/clock"
	"github.com/mcoot/draftroom/internal/dependencies/random"
	"github.com/mcoot/draftroom/internal/realtime"
	"github.com/mcoot/draftroom/internal/services/auth"
	"github.com/mcoot/draftroom/internal/services/session"
	"github.com/mcoot/draftroom/internal/storage"
	"github.com/mcoot/draftroom/internal/storage/memory"
	pgstorage "github.com/mcoot/draftroom/internal/storage/postgres"
	redisstorage "github.com/mcoot/draftroom/internal/storage/redis"
	"github.com/mcoot/draftroom/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypePostgres = config.StoragePostgres
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	HubManager     *realtime.HubManager
	SessionManager *session.Manager
	Websocket      *ws.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If the secret is empty, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// SessionConfig controls session expiry (optional)
	SessionConfig session.Config
	// WebsocketConfig controls the realtime transport (optional)
	WebsocketConfig ws.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresDSN is the connection string (required if StorageType is "postgres")
	PostgresDSN string
}

// FromConfig maps loaded configuration onto factory settings
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.Redis.URL
	if cfg.Redis.PoolSize > 0 {
		redisCfg.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.DraftTTL > 0 {
		redisCfg.DraftTTL = cfg.Redis.DraftTTL
	}

	wsCfg := ws.DefaultConfig()
	wsCfg.OriginPatterns = cfg.Websocket.OriginPatterns
	if cfg.Websocket.PingInterval > 0 {
		wsCfg.PingInterval = cfg.Websocket.PingInterval
	}

	return Config{
		AuthConfig: auth.Config{
			Secret:        cfg.Auth.Secret,
			TokenDuration: cfg.Auth.TokenDuration,
		},
		SessionConfig: session.Config{
			TTL:          cfg.Session.TTL,
			ReapInterval: cfg.Session.ReapInterval,
		},
		WebsocketConfig: wsCfg,
		Logger:          logger,
		StorageType:     cfg.Storage.Type,
		RedisConfig:     &redisCfg,
		PostgresDSN:     cfg.Postgres.DSN,
	}
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.Secret == "" {
		authCfg = auth.DefaultConfig()
	}
	sessionCfg := cfg.SessionConfig
	if sessionCfg.TTL == 0 {
		sessionCfg = session.DefaultConfig()
	}

	return newWithDependencies(store, clk, rnd, authCfg, sessionCfg, cfg.WebsocketConfig, logger), nil
}

// newStorage creates the storage backend selected by cfg
func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return redisStore, nil
	case StorageTypePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("PostgresDSN required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pgStore, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	sessionCfg session.Config,
	wsCfg ws.Config,
	logger *slog.Logger,
) *App {
	// Create services
	hubManager := realtime.NewHubManager(logger)
	authService := auth.New(clk, authCfg)
	sessionManager := session.NewManager(store, hubManager, clk, rnd, sessionCfg, logger)
	websocket := ws.NewHandler(sessionManager, authService, wsCfg, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		HubManager:     hubManager,
		SessionManager: sessionManager,
		Websocket:      websocket,
	}
}

// Close tears the application down: connections first, then sessions and
// their channels, then storage.
func (a *App) Close() error {
	a.Websocket.Close()
	a.SessionManager.Close()
	a.HubManager.CloseAll()
	return a.Storage.Close()
}
