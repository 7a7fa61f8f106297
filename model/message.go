package model

import (
	"slices"
	"time"
)

const (
	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
	MessageTypeImage = "image"
)

// Conversation 私信会话。参与者集合唯一，顺序无关
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
	UnreadCount  int       `json:"unreadCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ConversationPatch struct {
	UnreadCount  *int       `json:"unreadCount,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

func (p ConversationPatch) Apply(c *Conversation) {
	if p.UnreadCount != nil {
		c.UnreadCount = *p.UnreadCount
	}
	if p.LastActivity != nil {
		c.LastActivity = *p.LastActivity
	}
}

func (c Conversation) Clone() Conversation {
	c.Participants = slices.Clone(c.Participants)
	if c.LastMessage != nil {
		m := *c.LastMessage
		c.LastMessage = &m
	}
	return c
}

// Message belongs to a Conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Type           string    `json:"type"`
	Text           string    `json:"text,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	IsRead         bool      `json:"isRead"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageInput carries the caller-supplied fields of a new Message.
// A zero Timestamp is replaced by the store's clock.
type MessageInput struct {
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Type           string    `json:"type"`
	Text           string    `json:"text,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
}
