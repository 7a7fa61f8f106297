package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/model"
)

const unknownOwner = "unknown"

// readMusic is shared by the track and playlist steps; a broken blob is
// reported once per run, not once per step.
func (e *Engine) readMusic(ctx context.Context, res *Result) legacyMusicState {
	var music legacyMusicState
	if _, err := readLegacy(ctx, e.c, cache.LegacyMusicKey, &music); err != nil {
		if msg := err.Error(); !slices.Contains(res.Errors, msg) {
			res.Errors = append(res.Errors, msg)
		}
	}
	return music
}

// MigrateTracks creates a track per legacy track: uploadedBy becomes userId
// and audioUrl becomes url. Legacy play and like counters are carried over.
func (e *Engine) MigrateTracks(ctx context.Context, res *Result) int {
	if !e.begin(ctx, res) {
		return 0
	}
	defer e.saveLedger(ctx, res)

	music := e.readMusic(ctx, res)
	created := 0
	for i, raw := range music.Tracks {
		var lt legacyTrack
		if err := json.Unmarshal(raw, &lt); err != nil {
			res.addError(familyTrack, fmt.Sprintf("tracks#%d", i), err)
			continue
		}
		key := recordKey(lt.ID, "tracks", i)
		if _, done := e.ledger.lookup(familyTrack, key); done {
			continue
		}

		if guard(res, familyTrack, key, func() error {
			id, err := e.migrateTrack(ctx, lt)
			if err != nil {
				return err
			}
			e.ledger.record(familyTrack, key, id)
			return nil
		}) {
			created++
		}
	}
	res.Migrated.Tracks += created
	logger.Info("[Migration] tracks migrated", logger.Int("tracks", created))
	return created
}

func (e *Engine) migrateTrack(ctx context.Context, lt legacyTrack) (string, error) {
	owner := firstNonEmpty(string(lt.UploadedBy), string(lt.UserID))
	t, err := e.st.CreateTrack(ctx, model.TrackInput{
		Title:    lt.Title,
		Artist:   lt.Artist,
		UserID:   e.ledger.relink(familyUser, owner),
		URL:      firstNonEmpty(lt.AudioURL, lt.URL),
		CoverURL: lt.CoverURL,
		Genre:    lt.Genre,
		Duration: lt.Duration,
		Source:   lt.Source,
	})
	if err != nil {
		return "", err
	}

	if lt.Plays > 0 || lt.Likes > 0 || lt.Shares > 0 {
		patch := model.TrackPatch{StreamCount: &lt.Plays, Likes: &lt.Likes, Shares: &lt.Shares}
		if _, err := e.st.UpdateTrack(ctx, t.ID, patch); err != nil {
			logger.Warn("[Migration] failed to carry over track counters",
				logger.String("trackId", t.ID), logger.ErrorField(err))
		}
	}
	return t.ID, nil
}

// MigratePlaylists creates a playlist per legacy playlist. A missing owner
// becomes "unknown" and isPublic defaults to true unless explicitly false.
func (e *Engine) MigratePlaylists(ctx context.Context, res *Result) int {
	if !e.begin(ctx, res) {
		return 0
	}
	defer e.saveLedger(ctx, res)

	music := e.readMusic(ctx, res)
	created := 0
	for i, raw := range music.Playlists {
		var lp legacyPlaylist
		if err := json.Unmarshal(raw, &lp); err != nil {
			res.addError(familyPlaylist, fmt.Sprintf("playlists#%d", i), err)
			continue
		}
		key := recordKey(lp.ID, "playlists", i)
		if _, done := e.ledger.lookup(familyPlaylist, key); done {
			continue
		}

		if guard(res, familyPlaylist, key, func() error {
			owner := firstNonEmpty(string(lp.UserID), string(lp.CreatedBy))
			if owner == "" {
				owner = unknownOwner
			} else {
				owner = e.ledger.relink(familyUser, owner)
			}
			tracks := make([]string, 0, len(lp.Tracks))
			for _, tid := range lp.Tracks {
				tracks = append(tracks, e.ledger.relink(familyTrack, string(tid)))
			}
			isPublic := lp.IsPublic == nil || *lp.IsPublic

			p, err := e.st.CreatePlaylist(ctx, model.PlaylistInput{
				Name:        lp.Name,
				Description: lp.Description,
				UserID:      owner,
				Tracks:      tracks,
				IsPublic:    isPublic,
			})
			if err != nil {
				return err
			}
			e.ledger.record(familyPlaylist, key, p.ID)
			return nil
		}) {
			created++
		}
	}
	res.Migrated.Playlists += created
	logger.Info("[Migration] playlists migrated", logger.Int("playlists", created))
	return created
}
