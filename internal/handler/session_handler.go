package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/dto"
	"github.com/youthloop/webgate/internal/notification"
	"github.com/youthloop/webgate/internal/session"
	"github.com/youthloop/webgate/internal/upstream"
	"github.com/youthloop/webgate/internal/utils"
	"github.com/youthloop/webgate/pkg/observability"
)

// SessionHandler serves the auth snapshot and the session lifecycle
// operations: profile edits, refreshes, token renewal, and logout.
type SessionHandler struct {
	api      *upstream.Client
	store    session.CredentialStore
	registry *session.Registry
	hub      *notification.Hub
	metrics  *observability.SessionMetrics
	logger   *zap.Logger

	cookie        CookieConfig
	locales       []string
	defaultLocale string
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	api *upstream.Client,
	store session.CredentialStore,
	registry *session.Registry,
	hub *notification.Hub,
	metrics *observability.SessionMetrics,
	logger *zap.Logger,
	cookie CookieConfig,
	locales []string,
	defaultLocale string,
) *SessionHandler {
	return &SessionHandler{
		api:           api,
		store:         store,
		registry:      registry,
		hub:           hub,
		metrics:       metrics,
		logger:        logger,
		cookie:        cookie,
		locales:       locales,
		defaultLocale: defaultLocale,
	}
}

// Snapshot returns the session's current auth tuple.
func (h *SessionHandler) Snapshot(c *gin.Context) {
	manager := ManagerFrom(c)
	if manager == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	snap := manager.Snapshot()
	c.JSON(http.StatusOK, dto.SnapshotResponse{
		User:       snap.User,
		Loading:    snap.Loading,
		IsLoggedIn: snap.IsLoggedIn,
	})
}

// UpdateProfile applies a partial profile edit. The edit is visible in
// the snapshot immediately; if the backend rejects it the previous
// profile is restored and returned alongside the error.
func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	manager := ManagerFrom(c)
	if manager == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result := manager.UpdateUser(c.Request.Context(), req.Patch())
	switch {
	case !result.OK && result.Err == nil:
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "not logged in",
		})
	case result.Err != nil:
		c.JSON(http.StatusBadGateway, gin.H{
			"ok":       false,
			"message":  upstream.UserMessage(result.Err),
			"previous": result.Previous,
		})
	default:
		snap := manager.Snapshot()
		c.JSON(http.StatusOK, dto.SnapshotResponse{
			User:       snap.User,
			Loading:    snap.Loading,
			IsLoggedIn: snap.IsLoggedIn,
		})
	}
}

// RefreshProfile re-fetches the profile from the backend and returns the
// resulting snapshot. Fetch failures keep the current profile.
func (h *SessionHandler) RefreshProfile(c *gin.Context) {
	manager := ManagerFrom(c)
	if manager == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	manager.RefreshProfile(c.Request.Context())

	snap := manager.Snapshot()
	c.JSON(http.StatusOK, dto.SnapshotResponse{
		User:       snap.User,
		Loading:    snap.Loading,
		IsLoggedIn: snap.IsLoggedIn,
	})
}

// RenewToken exchanges the stored refresh token for a fresh credential.
func (h *SessionHandler) RenewToken(c *gin.Context) {
	sessionID := SessionIDFrom(c)
	ctx := c.Request.Context()

	cred, err := h.store.Credential(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "no active session",
		})
		return
	}

	renewed, err := h.api.Auth().RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: upstream.UserMessage(err),
		})
		return
	}

	if err := h.store.Save(ctx, sessionID, renewed); err != nil {
		h.logger.Error("failed to save renewed credential", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Service unavailable",
			Message: "failed to persist session",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "token renewed"})
}

// Logout clears the credential and all per-session state, then redirects
// to the locale-aware login page. The redirect is a full navigation so
// that every page reloads with an anonymous session.
func (h *SessionHandler) Logout(c *gin.Context) {
	sessionID := SessionIDFrom(c)
	manager := ManagerFrom(c)
	if manager == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	if err := manager.Logout(c.Request.Context()); err != nil {
		// The in-memory state is already anonymous; a store failure only
		// means the credential outlives the session until its TTL.
		h.logger.Warn("logout left a stale credential behind", zap.Error(err))
	}

	h.registry.Drop(sessionID)
	h.hub.Drop(sessionID)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)

	h.metrics.Add(c.Request.Context(), h.metrics.Logouts, 1)

	c.Redirect(http.StatusSeeOther, utils.LoginPath(h.logoutOrigin(c), h.locales, h.defaultLocale))
}

// logoutOrigin picks the page path whose locale the post-logout redirect
// should keep: the "from" query parameter when present, otherwise the
// Referer path.
func (h *SessionHandler) logoutOrigin(c *gin.Context) string {
	if from := c.Query("from"); from != "" {
		return from
	}
	if ref := c.Request.Referer(); ref != "" {
		if parsed, err := url.Parse(ref); err == nil {
			return parsed.Path
		}
	}
	return "/"
}
