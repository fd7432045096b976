package notification

import (
	"sync"

	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/session"
)

// Hub holds one Center per live session, parallel to the session
// registry. The two are dropped together on logout.
type Hub struct {
	api      Service
	store    session.CredentialStore
	pageSize int
	logger   *zap.Logger

	mu      sync.Mutex
	centers map[string]*Center
}

// NewHub creates an empty hub.
func NewHub(api Service, store session.CredentialStore, pageSize int, logger *zap.Logger) *Hub {
	return &Hub{
		api:      api,
		store:    store,
		pageSize: pageSize,
		logger:   logger,
		centers:  make(map[string]*Center),
	}
}

// Center returns the session's notification center, creating and
// subscribing it on first sight.
func (h *Hub) Center(mgr *session.Manager) *Center {
	h.mu.Lock()
	if c, ok := h.centers[mgr.SessionID()]; ok {
		h.mu.Unlock()
		return c
	}
	// Register before subscribing so the initial fetch inside NewCenter
	// does not run under the hub lock.
	c := newCenter(mgr.SessionID(), h.api, h.store, h.pageSize, h.logger)
	h.centers[mgr.SessionID()] = c
	h.mu.Unlock()

	c.subscribe(mgr)
	return c
}

// Drop discards the session's center. Called on logout and whenever the
// session registry evicts the matching manager, so centers never outlive
// their sessions.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	delete(h.centers, sessionID)
	h.mu.Unlock()
}

// Len reports the number of live centers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.centers)
}
