package domain

import "time"

// Notification type codes as served by the YouthLoop API
const (
	NotificationComment = "comment"
	NotificationReply   = "reply"
	NotificationLike    = "like"
	NotificationSystem  = "system"
)

// Notification is a single inbox item.
type Notification struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	ActorNickname string    `json:"actorNickname,omitempty"`
	LinkURL       string    `json:"linkUrl,omitempty"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NotificationPage is one page of inbox items.
type NotificationPage struct {
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Total int            `json:"total"`
	Items []Notification `json:"items"`
}
