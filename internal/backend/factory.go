package backend

import (
	"context"
	"fmt"

	"ceycent/internal/log"
	"ceycent/internal/session"
	sessionredis "ceycent/internal/session/redis"
	"ceycent/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	store := storage.NewSessionStore(repo)

	f.logger.Info("Initialized SQLite session backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   store,
		Cleaner: store,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	rdb, err := sessionredis.Connect(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	f.logger.Info("Initialized Redis session backend", "addr", config.RedisAddr, "db", config.RedisDB)

	return &BackendResult{
		Store: sessionredis.New(rdb),
		Ready: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
		Cleanup: rdb.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	maxSessions := config.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	store := session.NewMemoryStore(maxSessions, config.SessionTTL)

	f.logger.Info("Initialized memory session backend", "max_sessions", maxSessions)

	return &BackendResult{
		Store:   store,
		Cleaner: store.Cleaner(),
	}, nil
}
