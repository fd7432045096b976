package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youthloop/webgate/internal/dto"
	"github.com/youthloop/webgate/internal/notification"
	"github.com/youthloop/webgate/internal/session"
	"github.com/youthloop/webgate/pkg/observability"
)

// Context keys set by SessionMiddleware.
const (
	ctxSessionID = "session_id"
	ctxManager   = "session_manager"
	ctxCenter    = "notification_center"
)

// CookieConfig carries the session cookie settings.
type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionMiddleware attaches the session's state machine and
// notification center to the request. A missing or invalid cookie gets
// a fresh anonymous session. Resolution runs here, before any guard or
// handler, so downstream code always sees a settled snapshot.
func SessionMiddleware(
	registry *session.Registry,
	hub *notification.Hub,
	codec *session.CookieCodec,
	cookie CookieConfig,
	metrics *observability.SessionMetrics,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionID string
		if value, err := c.Cookie(cookie.Name); err == nil {
			if parsed, parseErr := codec.Parse(value); parseErr == nil {
				sessionID = parsed
			}
		}

		if sessionID == "" {
			sessionID = session.NewSessionID()
			minted, err := codec.Mint(sessionID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
					Error:   "Internal server error",
					Message: "failed to establish session",
				})
				c.Abort()
				return
			}
			c.SetCookie(cookie.Name, minted, int(codec.TTL().Seconds()), "/", "", cookie.Secure, true)
		}

		manager := registry.Manager(sessionID)
		if manager.Snapshot().Loading && metrics != nil {
			metrics.Add(c.Request.Context(), metrics.Resolutions, 1)
		}
		if err := manager.Resolve(c.Request.Context()); err != nil {
			if c.Request.Context().Err() != nil {
				// The client went away mid-resolution.
				c.Abort()
				return
			}
			// The credential store had no answer; the pass was rolled
			// back and the next request retries.
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
				Error:   "Service unavailable",
				Message: "session temporarily unavailable",
			})
			c.Abort()
			return
		}

		c.Set(ctxSessionID, sessionID)
		c.Set(ctxManager, manager)
		c.Set(ctxCenter, hub.Center(manager))

		c.Next()
	}
}

// ManagerFrom returns the request's session state machine.
func ManagerFrom(c *gin.Context) *session.Manager {
	if v, ok := c.Get(ctxManager); ok {
		if mgr, ok := v.(*session.Manager); ok {
			return mgr
		}
	}
	return nil
}

// CenterFrom returns the request's notification center.
func CenterFrom(c *gin.Context) *notification.Center {
	if v, ok := c.Get(ctxCenter); ok {
		if center, ok := v.(*notification.Center); ok {
			return center
		}
	}
	return nil
}

// SessionIDFrom returns the request's session ID.
func SessionIDFrom(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
