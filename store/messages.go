package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"Bt1QSocial/model"
)

func cloneConversations(in []model.Conversation) []model.Conversation {
	out := make([]model.Conversation, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}

func (s *Store) GetAllConversations(ctx context.Context) []model.Conversation {
	var out []model.Conversation
	s.read(ctx, func(db *model.Snapshot) {
		out = cloneConversations(db.Conversations)
	})
	return out
}

// GetConversations returns the conversations userID takes part in, most
// recently active first.
func (s *Store) GetConversations(ctx context.Context, userID string) []model.Conversation {
	var out []model.Conversation
	s.read(ctx, func(db *model.Snapshot) {
		out = []model.Conversation{}
		for _, c := range db.Conversations {
			if slices.Contains(c.Participants, userID) {
				out = append(out, c.Clone())
			}
		}
	})
	slices.SortStableFunc(out, func(a, b model.Conversation) int {
		return b.LastActivity.Compare(a.LastActivity)
	})
	return out
}

func (s *Store) GetConversationByID(ctx context.Context, id string) *model.Conversation {
	var out *model.Conversation
	s.read(ctx, func(db *model.Snapshot) {
		if i := slices.IndexFunc(db.Conversations, func(c model.Conversation) bool { return c.ID == id }); i >= 0 {
			v := db.Conversations[i].Clone()
			out = &v
		}
	})
	return out
}

// participantSet trims, drops empties and collapses duplicates, keeping
// first-seen order.
func participantSet(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func sameParticipants(a, b []string) bool {
	a, b = participantSet(a), participantSet(b)
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}
	return true
}

// CreateConversation returns the existing conversation with exactly the
// same participant set, in any order, or creates one.
func (s *Store) CreateConversation(ctx context.Context, participants []string) (*model.Conversation, error) {
	members := participantSet(participants)
	if len(members) < 2 {
		return nil, fmt.Errorf("%w: a conversation needs at least two distinct participants", ErrValidation)
	}

	var out model.Conversation
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		if i := slices.IndexFunc(db.Conversations, func(c model.Conversation) bool {
			return sameParticipants(c.Participants, members)
		}); i >= 0 {
			out = db.Conversations[i].Clone()
			return false, nil
		}

		c := model.Conversation{
			ID:           newID(idPrefixConversation, now),
			Participants: members,
			LastActivity: now,
			CreatedAt:    now,
		}
		db.Conversations = append(db.Conversations, c)
		out = c.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateConversation(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error) {
	var updated *model.Conversation
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Conversations, func(c model.Conversation) bool { return c.ID == id })
		if i < 0 {
			return false, nil
		}
		next := db.Conversations[i].Clone()
		patch.Apply(&next)
		if next.UnreadCount < 0 {
			next.UnreadCount = 0
		}
		next.LastActivity = next.LastActivity.UTC()
		db.Conversations[i] = next
		v := next.Clone()
		updated = &v
		return true, nil
	})
	return updated, err
}

// MarkConversationRead 清零未读数并把会话中的消息标记为已读
func (s *Store) MarkConversationRead(ctx context.Context, id string) (*model.Conversation, error) {
	var updated *model.Conversation
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Conversations, func(c model.Conversation) bool { return c.ID == id })
		if i < 0 {
			return false, nil
		}
		conv := &db.Conversations[i]
		changed := conv.UnreadCount != 0
		conv.UnreadCount = 0
		for j := range db.Messages {
			if db.Messages[j].ConversationID == id && !db.Messages[j].IsRead {
				db.Messages[j].IsRead = true
				changed = true
			}
		}
		if conv.LastMessage != nil && !conv.LastMessage.IsRead {
			conv.LastMessage.IsRead = true
			changed = true
		}
		v := conv.Clone()
		updated = &v
		return changed, nil
	})
	return updated, err
}

func (s *Store) GetAllMessages(ctx context.Context) []model.Message {
	var out []model.Message
	s.read(ctx, func(db *model.Snapshot) {
		out = slices.Clone(db.Messages)
	})
	return out
}

// GetMessages returns a conversation's messages in ascending timestamp order.
func (s *Store) GetMessages(ctx context.Context, conversationID string) []model.Message {
	var out []model.Message
	s.read(ctx, func(db *model.Snapshot) {
		out = []model.Message{}
		for _, m := range db.Messages {
			if m.ConversationID == conversationID {
				out = append(out, m)
			}
		}
	})
	slices.SortStableFunc(out, func(a, b model.Message) int { return a.Timestamp.Compare(b.Timestamp) })
	return out
}

func validMessageType(t string) bool {
	switch t {
	case model.MessageTypeText, model.MessageTypeAudio, model.MessageTypeImage:
		return true
	}
	return false
}

// CreateMessage appends a message and, in the same write, makes it the
// conversation's last message, moves lastActivity to its timestamp and
// bumps unreadCount by one.
func (s *Store) CreateMessage(ctx context.Context, in model.MessageInput) (*model.Message, error) {
	if strings.TrimSpace(in.SenderID) == "" {
		return nil, fmt.Errorf("%w: message sender is required", ErrValidation)
	}
	kind := in.Type
	if kind == "" {
		kind = model.MessageTypeText
	}
	if !validMessageType(kind) {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrValidation, kind)
	}

	var created model.Message
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Conversations, func(c model.Conversation) bool { return c.ID == in.ConversationID })
		if i < 0 {
			return false, fmt.Errorf("%w: conversation %s", ErrNotFound, in.ConversationID)
		}

		ts := now
		if !in.Timestamp.IsZero() {
			ts = in.Timestamp.UTC()
		}
		created = model.Message{
			ID:             newID(idPrefixMessage, now),
			ConversationID: in.ConversationID,
			SenderID:       in.SenderID,
			Type:           kind,
			Text:           in.Text,
			AudioURL:       in.AudioURL,
			ImageURL:       in.ImageURL,
			Timestamp:      ts,
		}
		db.Messages = append(db.Messages, created)

		last := created
		conv := &db.Conversations[i]
		conv.LastMessage = &last
		conv.LastActivity = ts
		conv.UnreadCount++
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
