package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// FileName is the config file looked up in each search path, without extension
const FileName = "draftroom"

// EnvPrefix prefixes every environment override, e.g. DRAFTROOM_SERVER_PORT
const EnvPrefix = "DRAFTROOM"

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Auth      AuthConfig
	Session   SessionConfig
	Websocket WebsocketConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	PoolSize int           `mapstructure:"pool_size"`
	DraftTTL time.Duration `mapstructure:"draft_ttl"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	Secret        string        `mapstructure:"secret"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

type SessionConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

type WebsocketConfig struct {
	OriginPatterns []string      `mapstructure:"origin_patterns"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps the configured level name, defaulting to info
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.draft_ttl", "24h")
	v.SetDefault("postgres.dsn", "")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_duration", "24h")

	v.SetDefault("session.ttl", "60m")
	v.SetDefault("session.reap_interval", "1m")

	v.SetDefault("websocket.origin_patterns", []string{})
	v.SetDefault("websocket.ping_interval", "30s")

	v.SetDefault("log.level", "info")
}

// Load reads configuration from defaults, an optional draftroom.yaml in any of
// paths (the working directory when none are given), then DRAFTROOM_* env vars.
func Load(logger *slog.Logger, paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Debug("no config file found, using defaults and environment")
	} else {
		logger.Info("loaded config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when storage.type is redis")
		}
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required when storage.type is postgres")
		}
	default:
		return fmt.Errorf("invalid storage.type %q: must be memory, redis or postgres", c.Storage.Type)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Session.TTL <= 0 || c.Session.ReapInterval <= 0 {
		return errors.New("session.ttl and session.reap_interval must be positive")
	}
	return nil
}
