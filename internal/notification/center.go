// Package notification mirrors the session state machine at smaller
// scope: one Center per browser session, enabled exactly while the
// session is logged in.
package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/domain"
	"github.com/youthloop/webgate/internal/session"
)

// Service is the slice of the upstream client the center needs.
type Service interface {
	GetMyNotifications(ctx context.Context, token string, page, size int) (*domain.NotificationPage, error)
	MarkNotificationsRead(ctx context.Context, token string, ids []string, all bool) error
}

// MarkResult reports the outcome of an optimistic mark-as-read. When the
// confirming call fails the local patch has been reverted.
type MarkResult struct {
	OK       bool
	Reverted bool
	Err      error
}

// Center holds one session's notification state. It subscribes to the
// session manager: a logged-in transition triggers exactly one fetch of
// the first page, a logged-out transition clears everything locally
// without an API call.
//
// UnreadCount is derived from the fetched page, not a server-side total,
// so it can undercount past the page size. The API exposes no dedicated
// unread-count endpoint to prefer.
type Center struct {
	sessionID string
	api       Service
	store     session.CredentialStore
	logger    *zap.Logger
	pageSize  int

	mu            sync.Mutex
	enabled       bool
	notifications []domain.Notification
	unreadCount   int
}

// NewCenter creates a center and subscribes it to the manager's
// snapshot changes.
func NewCenter(mgr *session.Manager, api Service, store session.CredentialStore, pageSize int, logger *zap.Logger) *Center {
	c := newCenter(mgr.SessionID(), api, store, pageSize, logger)
	c.subscribe(mgr)
	return c
}

func newCenter(sessionID string, api Service, store session.CredentialStore, pageSize int, logger *zap.Logger) *Center {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Center{
		sessionID: sessionID,
		api:       api,
		store:     store,
		logger:    logger.With(zap.String("session_id", sessionID)),
		pageSize:  pageSize,
	}
}

// subscribe wires the center to the manager and evaluates the current
// snapshot once, so a session that is already logged in fetches its
// first page immediately.
func (c *Center) subscribe(mgr *session.Manager) {
	mgr.OnChange(c.handleAuthChange)
	c.handleAuthChange(mgr.Snapshot())
}

func (c *Center) handleAuthChange(snap session.Snapshot) {
	if snap.Loading {
		return
	}

	c.mu.Lock()
	wasEnabled := c.enabled
	c.enabled = snap.IsLoggedIn
	if wasEnabled && !snap.IsLoggedIn {
		c.notifications = nil
		c.unreadCount = 0
	}
	fetch := snap.IsLoggedIn && !wasEnabled
	c.mu.Unlock()

	if fetch {
		c.Refresh(context.Background())
	}
}

// Notifications returns the current page of items.
func (c *Center) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]domain.Notification, len(c.notifications))
	copy(items, c.notifications)
	return items
}

// UnreadCount returns the unread items in the current page.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unreadCount
}

// Refresh replaces the local page with a fresh fetch. Errors are logged
// and swallowed; the user sees stale data until the next refresh heals.
func (c *Center) Refresh(ctx context.Context) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	cred, err := c.store.Credential(ctx, c.sessionID)
	if err != nil {
		c.logger.Warn("notification refresh skipped, credential unavailable", zap.Error(err))
		return
	}

	page, err := c.api.GetMyNotifications(ctx, cred.AccessToken, 1, c.pageSize)
	if err != nil {
		c.logger.Warn("failed to load notifications", zap.Error(err))
		return
	}

	unread := 0
	for _, item := range page.Items {
		if !item.IsRead {
			unread++
		}
	}

	c.mu.Lock()
	if c.enabled {
		c.notifications = page.Items
		c.unreadCount = unread
	}
	c.mu.Unlock()
}

// MarkAsRead optimistically marks the given items read, confirms
// upstream, and reverts on failure.
func (c *Center) MarkAsRead(ctx context.Context, ids []string) MarkResult {
	if len(ids) == 0 {
		return MarkResult{OK: true}
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return MarkResult{OK: false}
	}
	patched := c.patchReadLocked(ids, true)
	c.mu.Unlock()

	err := c.confirm(ctx, ids, false)
	if err == nil {
		return MarkResult{OK: true}
	}

	c.logger.Warn("mark-as-read rejected upstream, reverting", zap.Error(err))
	c.mu.Lock()
	c.patchReadLocked(patched, false)
	c.mu.Unlock()
	return MarkResult{OK: false, Reverted: true, Err: err}
}

// MarkAllAsRead optimistically marks everything read, confirms upstream,
// and reverts on failure.
func (c *Center) MarkAllAsRead(ctx context.Context) MarkResult {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return MarkResult{OK: false}
	}
	var unreadIDs []string
	for i := range c.notifications {
		if !c.notifications[i].IsRead {
			unreadIDs = append(unreadIDs, c.notifications[i].ID)
			c.notifications[i].IsRead = true
		}
	}
	c.unreadCount = 0
	c.mu.Unlock()

	err := c.confirm(ctx, nil, true)
	if err == nil {
		return MarkResult{OK: true}
	}

	c.logger.Warn("mark-all-as-read rejected upstream, reverting", zap.Error(err))
	c.mu.Lock()
	c.patchReadLocked(unreadIDs, false)
	c.mu.Unlock()
	return MarkResult{OK: false, Reverted: true, Err: err}
}

// patchReadLocked flips the read flag for the given ids and maintains
// the unread counter. It returns the ids whose flag actually changed.
func (c *Center) patchReadLocked(ids []string, read bool) []string {
	changed := make([]string, 0, len(ids))
	for _, id := range ids {
		for i := range c.notifications {
			if c.notifications[i].ID != id || c.notifications[i].IsRead == read {
				continue
			}
			c.notifications[i].IsRead = read
			changed = append(changed, id)
			if read {
				if c.unreadCount > 0 {
					c.unreadCount--
				}
			} else {
				c.unreadCount++
			}
		}
	}
	return changed
}

func (c *Center) confirm(ctx context.Context, ids []string, all bool) error {
	cred, err := c.store.Credential(ctx, c.sessionID)
	if err != nil {
		return err
	}
	return c.api.MarkNotificationsRead(ctx, cred.AccessToken, ids, all)
}
