package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/model"
)

// 旧版本各模块的持久化格式: { "state": {...}, "version": n }

type legacyEnvelope[T any] struct {
	State   T   `json:"state"`
	Version int `json:"version"`
}

// legacyID accepts ids written as strings or numbers.
type legacyID string

func (id *legacyID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = legacyID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = legacyID(n.String())
	return nil
}

// legacyTime accepts RFC 3339 strings, plain dates and unix milliseconds.
type legacyTime struct {
	time.Time
}

func (t *legacyTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		return fmt.Errorf("unrecognized time %q", s)
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("unrecognized time %s", b)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t legacyTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type legacyUser struct {
	ID             legacyID              `json:"id"`
	Username       string                `json:"username"`
	Email          string                `json:"email"`
	DisplayName    string                `json:"displayName"`
	Name           string                `json:"name"`
	Bio            string                `json:"bio"`
	Website        string                `json:"website"`
	Avatar         string                `json:"avatar"`
	PaymentMethods []model.PaymentMethod `json:"paymentMethods"`
}

type legacyAuthState struct {
	User            *json.RawMessage `json:"user"`
	IsAuthenticated bool             `json:"isAuthenticated"`
}

// signedIn 只有已登录的会话用户才需要迁移
func (a legacyAuthState) signedIn() bool {
	return a.IsAuthenticated && a.User != nil && string(*a.User) != "null"
}

type legacyUsersState struct {
	Users []json.RawMessage `json:"users"`
	// followerId → followingIds
	Following map[string][]legacyID `json:"following"`
}

type legacyTrack struct {
	ID         legacyID   `json:"id"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	UploadedBy legacyID   `json:"uploadedBy"`
	UserID     legacyID   `json:"userId"`
	AudioURL   string     `json:"audioUrl"`
	URL        string     `json:"url"`
	CoverURL   string     `json:"coverUrl"`
	Genre      string     `json:"genre"`
	Duration   float64    `json:"duration"`
	Source     string     `json:"source"`
	Plays      int        `json:"plays"`
	Likes      int        `json:"likes"`
	Shares     int        `json:"shares"`
	CreatedAt  legacyTime `json:"createdAt"`
}

type legacyPlaylist struct {
	ID          legacyID   `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	UserID      legacyID   `json:"userId"`
	CreatedBy   legacyID   `json:"createdBy"`
	Tracks      []legacyID `json:"tracks"`
	IsPublic    *bool      `json:"isPublic"`
}

type legacyMusicState struct {
	Tracks    []json.RawMessage `json:"tracks"`
	Playlists []json.RawMessage `json:"playlists"`
}

type legacyConversation struct {
	ID           legacyID   `json:"id"`
	Participants []legacyID `json:"participants"`
}

type legacyMessage struct {
	ID        legacyID   `json:"id"`
	SenderID  legacyID   `json:"senderId"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Text      string     `json:"text"`
	AudioURL  string     `json:"audioUrl"`
	ImageURL  string     `json:"imageUrl"`
	Timestamp legacyTime `json:"timestamp"`
}

type legacyMessagesState struct {
	Conversations []json.RawMessage `json:"conversations"`
	// conversationId → messages
	Messages map[string][]json.RawMessage `json:"messages"`
}

type legacyProject struct {
	ID           legacyID   `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CreatedBy    legacyID   `json:"createdBy"`
	UserID       legacyID   `json:"userId"`
	Genre        string     `json:"genre"`
	SkillsNeeded []string   `json:"skillsNeeded"`
	Status       string     `json:"status"`
	Deadline     legacyTime `json:"deadline"`
}

type legacyApplication struct {
	ID        legacyID `json:"id"`
	ProjectID legacyID `json:"projectId"`
	UserID    legacyID `json:"userId"`
	Message   string   `json:"message"`
	Status    string   `json:"status"`
}

type legacyCollaborationState struct {
	Projects     []json.RawMessage `json:"projects"`
	Applications []json.RawMessage `json:"applications"`
}

// readLegacy decodes the legacy namespace under key into out. A missing key
// leaves out untouched and reports false.
func readLegacy[T any](ctx context.Context, c cache.LocalCache, key string, out *T) (bool, error) {
	raw, err := c.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	var env legacyEnvelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	*out = env.State
	return true, nil
}

// normalizeProjectStatus maps legacy status names onto the canonical set.
func normalizeProjectStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", model.ProjectStatusOpen:
		return model.ProjectStatusOpen
	case "in-progress", "inprogress", model.ProjectStatusInProgress:
		return model.ProjectStatusInProgress
	case "done", model.ProjectStatusCompleted:
		return model.ProjectStatusCompleted
	case "cancelled", "canceled", model.ProjectStatusClosed:
		return model.ProjectStatusClosed
	}
	return s
}

func normalizeApplicationStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return model.ApplicationStatusPending
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
