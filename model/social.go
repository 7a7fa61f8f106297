package model

import "time"

const (
	NotificationFollow  = "follow"
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationMessage = "message"
	NotificationProject = "project"
)

// Notification references a User and optionally a Track.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Type       string    `json:"type"`
	FromUserID string    `json:"fromUserId"`
	TrackID    string    `json:"trackId,omitempty"`
	Message    string    `json:"message,omitempty"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

type NotificationInput struct {
	UserID     string `json:"userId"`
	Type       string `json:"type"`
	FromUserID string `json:"fromUserId"`
	TrackID    string `json:"trackId,omitempty"`
	Message    string `json:"message,omitempty"`
}

type NotificationPatch struct {
	IsRead  *bool   `json:"isRead,omitempty"`
	Message *string `json:"message,omitempty"`
}

func (p NotificationPatch) Apply(n *Notification) {
	if p.IsRead != nil {
		n.IsRead = *p.IsRead
	}
	if p.Message != nil {
		n.Message = *p.Message
	}
}

// FollowRelationship 关注关系，(FollowerID, FollowingID) 唯一
type FollowRelationship struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"followerId"`
	FollowingID string    `json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}
