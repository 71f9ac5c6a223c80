// Package backend builds the session store selected by SESSION_BACKEND.
package backend

import (
	"context"
	"time"

	"ceycent/internal/cache"
	"ceycent/internal/session"
)

type CleanupFunc func() error

// ReadyFunc reports whether the backing service is reachable.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the store and its optional lifecycle hooks.
type BackendResult struct {
	Store session.Store
	// Cleaner is set for stores whose expired entries need sweeping.
	Cleaner cache.Cleaner
	Ready   ReadyFunc
	Cleanup CleanupFunc
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// memory
	MaxSessions int
	SessionTTL  time.Duration

	// sqlite
	SQLiteDBPath string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
