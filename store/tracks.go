package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"Bt1QSocial/model"
)

func (s *Store) GetAllTracks(ctx context.Context) []model.Track {
	var out []model.Track
	s.read(ctx, func(db *model.Snapshot) {
		out = trackViews(db, db.Tracks)
	})
	return out
}

// GetTracksByUser 获取用户上传的歌曲
func (s *Store) GetTracksByUser(ctx context.Context, userID string) []model.Track {
	var out []model.Track
	s.read(ctx, func(db *model.Snapshot) {
		var mine []model.Track
		for _, t := range db.Tracks {
			if t.UserID == userID {
				mine = append(mine, t)
			}
		}
		out = trackViews(db, mine)
	})
	return out
}

func (s *Store) GetTrackByID(ctx context.Context, id string) *model.Track {
	var out *model.Track
	s.read(ctx, func(db *model.Snapshot) {
		if i := slices.IndexFunc(db.Tracks, func(t model.Track) bool { return t.ID == id }); i >= 0 {
			v := trackView(db, db.Tracks[i])
			out = &v
		}
	})
	return out
}

// CreateTrack adds a track with zeroed counters. Title and artist are required.
func (s *Store) CreateTrack(ctx context.Context, in model.TrackInput) (*model.Track, error) {
	title := strings.TrimSpace(in.Title)
	artist := strings.TrimSpace(in.Artist)
	if title == "" {
		return nil, fmt.Errorf("%w: track title is required", ErrValidation)
	}
	if artist == "" {
		return nil, fmt.Errorf("%w: track artist is required", ErrValidation)
	}
	source := in.Source
	if source == "" {
		source = model.TrackSourceUpload
	}

	var created model.Track
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		t := model.Track{
			ID:        newID(idPrefixTrack, now),
			Title:     title,
			Artist:    artist,
			UserID:    in.UserID,
			URL:       in.URL,
			CoverURL:  in.CoverURL,
			Genre:     in.Genre,
			Duration:  in.Duration,
			Source:    source,
			CreatedAt: now,
			UpdatedAt: now,
		}
		db.Tracks = append(db.Tracks, t)
		created = trackView(db, t)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTrack returns nil, nil when id is unknown.
func (s *Store) UpdateTrack(ctx context.Context, id string, patch model.TrackPatch) (*model.Track, error) {
	var updated *model.Track
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Tracks, func(t model.Track) bool { return t.ID == id })
		if i < 0 {
			return false, nil
		}
		next := db.Tracks[i].Clone()
		patch.Apply(&next)
		if strings.TrimSpace(next.Title) == "" || strings.TrimSpace(next.Artist) == "" {
			return false, fmt.Errorf("%w: track title and artist are required", ErrValidation)
		}
		next.UpdatedAt = now
		db.Tracks[i] = next
		v := trackView(db, next)
		updated = &v
		return true, nil
	})
	return updated, err
}

// DeleteTrack reports whether a track was removed. Comments and playlist
// entries that point at it are left in place.
func (s *Store) DeleteTrack(ctx context.Context, id string) bool {
	var removed bool
	_ = s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		before := len(db.Tracks)
		db.Tracks = slices.DeleteFunc(db.Tracks, func(t model.Track) bool { return t.ID == id })
		removed = len(db.Tracks) < before
		return removed, nil
	})
	return removed
}

// IncrementStreamCount 播放次数 +1，不存在返回 nil
func (s *Store) IncrementStreamCount(ctx context.Context, id string) *model.Track {
	var updated *model.Track
	_ = s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Tracks, func(t model.Track) bool { return t.ID == id })
		if i < 0 {
			return false, nil
		}
		db.Tracks[i].StreamCount++
		db.Tracks[i].UpdatedAt = now
		v := trackView(db, db.Tracks[i])
		updated = &v
		return true, nil
	})
	return updated
}

func (s *Store) GetAllComments(ctx context.Context) []model.Comment {
	var out []model.Comment
	s.read(ctx, func(db *model.Snapshot) {
		out = slices.Clone(db.Comments)
	})
	return out
}

// GetComments returns the comments of a track, oldest first.
func (s *Store) GetComments(ctx context.Context, trackID string) []model.Comment {
	var out []model.Comment
	s.read(ctx, func(db *model.Snapshot) {
		out = commentsOf(db, trackID)
	})
	slices.SortStableFunc(out, func(a, b model.Comment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// CreateComment adds a comment to an existing track.
func (s *Store) CreateComment(ctx context.Context, in model.CommentInput) (*model.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrValidation)
	}

	var created model.Comment
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		if !slices.ContainsFunc(db.Tracks, func(t model.Track) bool { return t.ID == in.TrackID }) {
			return false, fmt.Errorf("%w: track %s", ErrNotFound, in.TrackID)
		}
		created = model.Comment{
			ID:        newID(idPrefixComment, now),
			TrackID:   in.TrackID,
			UserID:    in.UserID,
			Text:      text,
			CreatedAt: now,
		}
		db.Comments = append(db.Comments, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, patch model.CommentPatch) (*model.Comment, error) {
	var updated *model.Comment
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Comments, func(c model.Comment) bool { return c.ID == id })
		if i < 0 {
			return false, nil
		}
		next := db.Comments[i]
		patch.Apply(&next)
		if strings.TrimSpace(next.Text) == "" {
			return false, fmt.Errorf("%w: comment text is required", ErrValidation)
		}
		db.Comments[i] = next
		updated = &next
		return true, nil
	})
	return updated, err
}
