package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/domain"
	"github.com/youthloop/webgate/internal/dto"
	"github.com/youthloop/webgate/internal/notification"
	"github.com/youthloop/webgate/internal/upstream"
)

// NotificationHandler serves the session's notification inbox.
type NotificationHandler struct {
	logger *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{logger: logger}
}

// List returns the current page of notifications with its unread count.
// Anonymous sessions get an empty inbox rather than an error; the bell
// simply has nothing to show.
func (h *NotificationHandler) List(c *gin.Context) {
	center := CenterFrom(c)
	if center == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	items := center.Notifications()
	if items == nil {
		items = []domain.Notification{}
	}
	c.JSON(http.StatusOK, dto.NotificationsResponse{
		Items:       items,
		UnreadCount: center.UnreadCount(),
	})
}

// MarkRead marks notifications read, individually or wholesale.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	center := CenterFrom(c)
	if center == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}
	if !req.MarkAllAsRead && len(req.NotificationIDs) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "nothing to mark read",
		})
		return
	}

	ctx := c.Request.Context()
	var result notification.MarkResult
	if req.MarkAllAsRead {
		result = center.MarkAllAsRead(ctx)
	} else {
		result = center.MarkAsRead(ctx, req.NotificationIDs)
	}

	switch {
	case result.OK:
		c.JSON(http.StatusOK, dto.NotificationsResponse{
			Items:       center.Notifications(),
			UnreadCount: center.UnreadCount(),
		})
	case result.Err != nil:
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Bad gateway",
			Message: upstream.UserMessage(result.Err),
		})
	default:
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "not logged in",
		})
	}
}

// Refresh re-fetches the first page from the backend.
func (h *NotificationHandler) Refresh(c *gin.Context) {
	center := CenterFrom(c)
	if center == nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "session middleware not installed",
		})
		return
	}

	center.Refresh(c.Request.Context())

	items := center.Notifications()
	if items == nil {
		items = []domain.Notification{}
	}
	c.JSON(http.StatusOK, dto.NotificationsResponse{
		Items:       items,
		UnreadCount: center.UnreadCount(),
	})
}
