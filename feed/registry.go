package feed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultMaxSessions bounds how many controllers a Registry keeps in memory.
const DefaultMaxSessions = 1024

// KeyValueFactory returns the settings store for one session.
type KeyValueFactory func(sessionID string) KeyValueStore

type registryEntry struct {
	controller *Controller
	lastUsed   time.Time
}

// Registry hands out one Controller per session, creating and initialising
// it on first use. Settings of an evicted session stay persisted and are
// reloaded when it returns.
type Registry struct {
	mu          sync.Mutex
	store       VerseSource
	renderer    CardRenderer
	kvFor       KeyValueFactory
	opts        Options
	maxSessions int
	entries     map[string]*registryEntry
	now         func() time.Time
}

func NewRegistry(store VerseSource, renderer CardRenderer, kvFor KeyValueFactory, opts Options, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		store:       store,
		renderer:    renderer,
		kvFor:       kvFor,
		opts:        opts,
		maxSessions: maxSessions,
		entries:     make(map[string]*registryEntry),
		now:         time.Now,
	}
}

// Get returns the controller for sessionID. A new controller loads its
// persisted settings and fills its initial buffer before it is returned.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Controller, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sessionID]; ok {
		e.lastUsed = r.now()
		return e.controller, nil
	}

	c := NewController(r.store, r.kvFor(sessionID), r.renderer, r.opts)
	c.Load(ctx)
	if _, err := c.InitFeed(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialise feed for session %s: %w", sessionID, err)
	}

	if len(r.entries) >= r.maxSessions {
		r.evictOldestLocked()
	}
	r.entries[sessionID] = &registryEntry{controller: c, lastUsed: r.now()}
	return c, nil
}

// Touch marks sessionID as used so long-lived consumers such as a stream
// keep their controller ahead of idle sessions.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		e.lastUsed = r.now()
	}
}

// Len reports how many sessions are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evictOldestLocked drops the least recently used session that nobody is
// subscribed to. Subscribed controllers are never evicted, so the registry
// may briefly hold more than maxSessions entries.
func (r *Registry) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.entries {
		if e.controller.Subscribers() > 0 {
			continue
		}
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID != "" {
		delete(r.entries, oldestID)
		log.Printf("INFO (Feed): Evicted idle session %s", oldestID)
		return
	}
	log.Printf("WARN (Feed): All %d sessions are subscribed, exceeding the session limit", len(r.entries))
}
