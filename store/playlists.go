package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"Bt1QSocial/model"
)

func clonePlaylists(in []model.Playlist) []model.Playlist {
	out := make([]model.Playlist, 0, len(in))
	for _, p := range in {
		out = append(out, p.Clone())
	}
	return out
}

func (s *Store) GetAllPlaylists(ctx context.Context) []model.Playlist {
	var out []model.Playlist
	s.read(ctx, func(db *model.Snapshot) {
		out = clonePlaylists(db.Playlists)
	})
	return out
}

func (s *Store) GetPlaylistsByUser(ctx context.Context, userID string) []model.Playlist {
	var out []model.Playlist
	s.read(ctx, func(db *model.Snapshot) {
		out = []model.Playlist{}
		for _, p := range db.Playlists {
			if p.UserID == userID {
				out = append(out, p.Clone())
			}
		}
	})
	return out
}

func (s *Store) GetPlaylistByID(ctx context.Context, id string) *model.Playlist {
	var out *model.Playlist
	s.read(ctx, func(db *model.Snapshot) {
		if i := slices.IndexFunc(db.Playlists, func(p model.Playlist) bool { return p.ID == id }); i >= 0 {
			v := db.Playlists[i].Clone()
			out = &v
		}
	})
	return out
}

// CreatePlaylist 创建歌单。歌曲 ID 不校验是否存在
func (s *Store) CreatePlaylist(ctx context.Context, in model.PlaylistInput) (*model.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", ErrValidation)
	}

	var created model.Playlist
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		p := model.Playlist{
			ID:          newID(idPrefixPlaylist, now),
			Name:        name,
			Description: in.Description,
			UserID:      in.UserID,
			Tracks:      slices.Clone(in.Tracks),
			IsPublic:    in.IsPublic,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if p.Tracks == nil {
			p.Tracks = []string{}
		}
		db.Playlists = append(db.Playlists, p)
		created = p.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// editPlaylist applies edit to the playlist with the given id. edit reports
// whether anything changed; an unchanged playlist is returned without a write.
func (s *Store) editPlaylist(ctx context.Context, id string, edit func(p *model.Playlist) (bool, error)) (*model.Playlist, error) {
	var out *model.Playlist
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Playlists, func(p model.Playlist) bool { return p.ID == id })
		if i < 0 {
			return false, nil
		}
		next := db.Playlists[i].Clone()
		changed, err := edit(&next)
		if err != nil {
			return false, err
		}
		if changed {
			next.UpdatedAt = now
			db.Playlists[i] = next
		}
		v := next.Clone()
		out = &v
		return changed, nil
	})
	return out, err
}

func (s *Store) UpdatePlaylist(ctx context.Context, id string, patch model.PlaylistPatch) (*model.Playlist, error) {
	return s.editPlaylist(ctx, id, func(p *model.Playlist) (bool, error) {
		patch.Apply(p)
		if strings.TrimSpace(p.Name) == "" {
			return false, fmt.Errorf("%w: playlist name is required", ErrValidation)
		}
		if p.Tracks == nil {
			p.Tracks = []string{}
		}
		return true, nil
	})
}

func (s *Store) DeletePlaylist(ctx context.Context, id string) bool {
	var removed bool
	_ = s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		before := len(db.Playlists)
		db.Playlists = slices.DeleteFunc(db.Playlists, func(p model.Playlist) bool { return p.ID == id })
		removed = len(db.Playlists) < before
		return removed, nil
	})
	return removed
}

// AddTrackToPlaylist appends trackID unless the playlist already holds it.
func (s *Store) AddTrackToPlaylist(ctx context.Context, playlistID, trackID string) (*model.Playlist, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id is required", ErrValidation)
	}
	return s.editPlaylist(ctx, playlistID, func(p *model.Playlist) (bool, error) {
		if slices.Contains(p.Tracks, trackID) {
			return false, nil
		}
		p.Tracks = append(p.Tracks, trackID)
		return true, nil
	})
}

func (s *Store) RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) (*model.Playlist, error) {
	return s.editPlaylist(ctx, playlistID, func(p *model.Playlist) (bool, error) {
		before := len(p.Tracks)
		p.Tracks = slices.DeleteFunc(p.Tracks, func(id string) bool { return id == trackID })
		return len(p.Tracks) < before, nil
	})
}
