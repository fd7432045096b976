package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry holds one Manager per live browser session and evicts
// managers that have not been touched within the session TTL. Dropping a
// manager is safe at any time: the next request re-creates one, which
// re-resolves from the credential store.
type Registry struct {
	store    CredentialStore
	profiles ProfileService
	logger   *zap.Logger
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	manager  *Manager
	lastSeen time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(store CredentialStore, profiles ProfileService, ttl time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		profiles: profiles,
		logger:   logger,
		ttl:      ttl,
		entries:  make(map[string]*registryEntry),
	}
}

// Manager returns the state machine for the session, creating it on
// first sight.
func (r *Registry) Manager(sessionID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		entry = &registryEntry{
			manager: NewManager(sessionID, r.store, r.profiles, r.logger),
		}
		r.entries[sessionID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.manager
}

// Drop discards the session's manager. Used on logout so no in-memory
// state outlives the old session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// Len reports the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts managers idle longer than the TTL and returns the
// evicted session IDs so dependent per-session state (the notification
// hub) can be dropped with them.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for sid, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.entries, sid)
			evicted = append(evicted, sid)
		}
	}
	return evicted
}

// StartSweeper runs Sweep on the given interval until ctx is done,
// calling onEvict for every evicted session.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration, onEvict func(sessionID string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				evicted := r.Sweep(now)
				for _, sid := range evicted {
					if onEvict != nil {
						onEvict(sid)
					}
				}
				if len(evicted) > 0 {
					r.logger.Debug("swept idle sessions", zap.Int("removed", len(evicted)))
				}
			}
		}
	}()
}
