package report

import (
	"sync"
	"time"

	"ceycent/internal/activity"
	"ceycent/internal/cache"
	"ceycent/internal/log"
)

// Registry keeps one Viewer per session. Idle viewers expire with the
// cache TTL; evicted viewers have their in-flight cycle cancelled.
type Registry struct {
	mu        sync.Mutex
	viewers   *cache.LRUCache[*Viewer]
	source    Source
	publisher activity.Publisher
	logger    *log.Logger
	opts      Options
}

func NewRegistry(source Source, publisher activity.Publisher, logger *log.Logger, maxViewers int, ttl time.Duration, opts Options) *Registry {
	viewers := cache.NewLRUCache[*Viewer](maxViewers, ttl)
	viewers.OnEvict = func(_ string, v *Viewer) { v.Close() }
	return &Registry{
		viewers:   viewers,
		source:    source,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// Viewer returns the session's viewer, creating it on first use, and
// refreshes the token it sends.
func (r *Registry) Viewer(sessionID, token string) *Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.viewers.Get(sessionID)
	if !ok {
		v = NewViewer(sessionID, r.source, r.publisher, r.logger, r.opts)
		r.viewers.Set(sessionID, v)
	} else {
		r.viewers.Touch(sessionID)
	}
	v.SetToken(token)
	return v
}

// Lookup returns the session's viewer without creating one.
func (r *Registry) Lookup(sessionID string) (*Viewer, bool) {
	return r.viewers.Get(sessionID)
}

// Drop discards the session's viewer.
func (r *Registry) Drop(sessionID string) {
	r.viewers.Delete(sessionID)
}

func (r *Registry) Size() int {
	return r.viewers.Size()
}

func (r *Registry) Cleaner() cache.Cleaner {
	return r.viewers
}
