package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/youthloop/webgate/internal/domain"
)

// NotificationAPI is the inbox namespace of the backend API.
type NotificationAPI struct {
	client *Client
}

// Backend wire codes for notification and target types.
const (
	typeComment = 1
	typeReply   = 2
	typeLike    = 3
	typeSystem  = 4

	targetContent = 1
)

type notificationDTO struct {
	ID            string `json:"id"`
	Type          int    `json:"type"`
	IsRead        bool   `json:"isRead"`
	CreatedAt     string `json:"createdAt"`
	ActorNickname string `json:"actorNickname"`
	TargetType    int    `json:"targetType"`
	TargetID      string `json:"targetId"`
	TargetPreview string `json:"targetPreview"`
	CommentText   string `json:"commentContent"`
}

type notificationPageDTO struct {
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Total int               `json:"total"`
	Items []notificationDTO `json:"items"`
}

// item maps a wire DTO to the view model used by the web app.
func (d notificationDTO) item() domain.Notification {
	created, _ := time.Parse(time.RFC3339, d.CreatedAt)
	n := domain.Notification{
		ID:            d.ID,
		ActorNickname: d.ActorNickname,
		IsRead:        d.IsRead,
		CreatedAt:     created,
	}

	switch d.Type {
	case typeComment:
		n.Type = domain.NotificationComment
		n.Content = d.CommentText
		n.LinkURL = d.targetLink()
	case typeReply:
		n.Type = domain.NotificationReply
		n.Content = d.CommentText
		n.LinkURL = d.targetLink()
	case typeLike:
		n.Type = domain.NotificationLike
		n.Content = d.TargetPreview
		n.LinkURL = d.targetLink()
	case typeSystem:
		n.Type = domain.NotificationSystem
		n.Content = d.TargetPreview
	default:
		n.Type = domain.NotificationSystem
		n.Content = d.TargetPreview
	}

	n.Title = d.title(n.Type)
	return n
}

func (d notificationDTO) targetLink() string {
	if d.TargetID == "" {
		return ""
	}
	if d.TargetType == targetContent {
		return "/science/" + d.TargetID
	}
	return "/activities/" + d.TargetID
}

func (d notificationDTO) title(kind string) string {
	actor := d.ActorNickname
	if actor == "" {
		actor = "Someone"
	}
	switch kind {
	case domain.NotificationComment:
		return actor + " commented on your post"
	case domain.NotificationReply:
		return actor + " replied to you"
	case domain.NotificationLike:
		return actor + " liked your post"
	default:
		return "System notification"
	}
}

// GetMyNotifications fetches one page of the credential owner's inbox.
func (n *NotificationAPI) GetMyNotifications(ctx context.Context, token string, page, size int) (*domain.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var dto notificationPageDTO
	if err := n.client.do(ctx, http.MethodGet, "/api/v1/me/notifications", token, query, nil, &dto); err != nil {
		return nil, fmt.Errorf("get my notifications: %w", err)
	}

	result := &domain.NotificationPage{
		Page:  dto.Page,
		Size:  dto.Size,
		Total: dto.Total,
		Items: make([]domain.Notification, 0, len(dto.Items)),
	}
	for _, item := range dto.Items {
		result.Items = append(result.Items, item.item())
	}
	return result, nil
}

// MarkNotificationsRead marks the given notifications as read, or all of
// them when all is true.
func (n *NotificationAPI) MarkNotificationsRead(ctx context.Context, token string, ids []string, all bool) error {
	body := map[string]any{}
	if all {
		body["markAllAsRead"] = true
	} else {
		body["notificationIds"] = ids
	}

	if err := n.client.do(ctx, http.MethodPost, "/api/v1/me/notifications/read", token, nil, body, nil); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
