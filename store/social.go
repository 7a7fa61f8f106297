package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"Bt1QSocial/model"
)

func (s *Store) GetAllFollows(ctx context.Context) []model.FollowRelationship {
	var out []model.FollowRelationship
	s.read(ctx, func(db *model.Snapshot) {
		out = slices.Clone(db.Follows)
	})
	return out
}

func followPair(followerID, followingID string) (string, string, error) {
	followerID = strings.TrimSpace(followerID)
	followingID = strings.TrimSpace(followingID)
	if followerID == "" || followingID == "" {
		return "", "", fmt.Errorf("%w: follower and followee are required", ErrValidation)
	}
	if followerID == followingID {
		return "", "", fmt.Errorf("%w: users cannot follow themselves", ErrValidation)
	}
	return followerID, followingID, nil
}

// FollowUser records that followerID follows followingID. It reports false
// without writing when the relationship already exists.
func (s *Store) FollowUser(ctx context.Context, followerID, followingID string) (bool, error) {
	followerID, followingID, err := followPair(followerID, followingID)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		if slices.ContainsFunc(db.Follows, func(f model.FollowRelationship) bool {
			return f.FollowerID == followerID && f.FollowingID == followingID
		}) {
			return false, nil
		}
		db.Follows = append(db.Follows, model.FollowRelationship{
			ID:          newID(idPrefixFollow, now),
			FollowerID:  followerID,
			FollowingID: followingID,
			CreatedAt:   now,
		})
		added = true
		return true, nil
	})
	return added, err
}

// UnfollowUser removes the relationship; false means there was none.
func (s *Store) UnfollowUser(ctx context.Context, followerID, followingID string) (bool, error) {
	followerID, followingID, err := followPair(followerID, followingID)
	if err != nil {
		return false, err
	}

	var removed bool
	err = s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		before := len(db.Follows)
		db.Follows = slices.DeleteFunc(db.Follows, func(f model.FollowRelationship) bool {
			return f.FollowerID == followerID && f.FollowingID == followingID
		})
		removed = len(db.Follows) < before
		return removed, nil
	})
	return removed, err
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followingID string) bool {
	var found bool
	s.read(ctx, func(db *model.Snapshot) {
		found = slices.ContainsFunc(db.Follows, func(f model.FollowRelationship) bool {
			return f.FollowerID == followerID && f.FollowingID == followingID
		})
	})
	return found
}

// relatedUsers returns the users selected by pick over the follow rows.
// Ids with no matching user are skipped.
func (s *Store) relatedUsers(ctx context.Context, pick func(f model.FollowRelationship) (string, bool)) []model.User {
	var out []model.User
	s.read(ctx, func(db *model.Snapshot) {
		ids := make(map[string]bool)
		for _, f := range db.Follows {
			if id, ok := pick(f); ok {
				ids[id] = true
			}
		}
		var users []model.User
		for _, u := range db.Users {
			if ids[u.ID] {
				users = append(users, u)
			}
		}
		out = userViews(db, users)
	})
	return out
}

// GetFollowers 关注 userID 的用户
func (s *Store) GetFollowers(ctx context.Context, userID string) []model.User {
	return s.relatedUsers(ctx, func(f model.FollowRelationship) (string, bool) {
		return f.FollowerID, f.FollowingID == userID
	})
}

// GetFollowing userID 关注的用户
func (s *Store) GetFollowing(ctx context.Context, userID string) []model.User {
	return s.relatedUsers(ctx, func(f model.FollowRelationship) (string, bool) {
		return f.FollowingID, f.FollowerID == userID
	})
}

func (s *Store) GetAllNotifications(ctx context.Context) []model.Notification {
	var out []model.Notification
	s.read(ctx, func(db *model.Snapshot) {
		out = slices.Clone(db.Notifications)
	})
	return out
}

// GetNotifications returns userID's notifications, newest first.
func (s *Store) GetNotifications(ctx context.Context, userID string) []model.Notification {
	var out []model.Notification
	s.read(ctx, func(db *model.Snapshot) {
		out = []model.Notification{}
		for _, n := range db.Notifications {
			if n.UserID == userID {
				out = append(out, n)
			}
		}
	})
	slices.SortStableFunc(out, func(a, b model.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (s *Store) CreateNotification(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: notification recipient is required", ErrValidation)
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, fmt.Errorf("%w: notification type is required", ErrValidation)
	}

	var created model.Notification
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		created = model.Notification{
			ID:         newID(idPrefixNotification, now),
			UserID:     in.UserID,
			Type:       in.Type,
			FromUserID: in.FromUserID,
			TrackID:    in.TrackID,
			Message:    in.Message,
			CreatedAt:  now,
		}
		db.Notifications = append(db.Notifications, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateNotification(ctx context.Context, id string, patch model.NotificationPatch) (*model.Notification, error) {
	var updated *model.Notification
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Notifications, func(n model.Notification) bool { return n.ID == id })
		if i < 0 {
			return false, nil
		}
		patch.Apply(&db.Notifications[i])
		v := db.Notifications[i]
		updated = &v
		return true, nil
	})
	return updated, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (*model.Notification, error) {
	read := true
	return s.UpdateNotification(ctx, id, model.NotificationPatch{IsRead: &read})
}
