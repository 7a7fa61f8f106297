package migration

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"Bt1QSocial/cache"
)

// Verification puts store counts next to counts re-read from the legacy
// blobs for manual reconciliation.
type Verification struct {
	Store     Counts    `json:"store"`
	Legacy    Counts    `json:"legacy"`
	Errors    []string  `json:"errors,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// VerifyMigration counts without writing anything.
func (e *Engine) VerifyMigration(ctx context.Context) Verification {
	v := Verification{CheckedAt: e.now().UTC()}

	snap := e.st.Export(ctx)
	v.Store = Counts{
		Users:         len(snap.Users),
		Follows:       len(snap.Follows),
		Tracks:        len(snap.Tracks),
		Playlists:     len(snap.Playlists),
		Conversations: len(snap.Conversations),
		Messages:      len(snap.Messages),
		Projects:      len(snap.Projects),
		Applications:  len(snap.Applications),
	}

	v.Legacy = e.legacyCounts(ctx, &v.Errors)
	return v
}

func (e *Engine) legacyCounts(ctx context.Context, errs *[]string) Counts {
	var n Counts
	fail := func(err error) { *errs = append(*errs, err.Error()) }

	// 同一邮箱只算一个用户
	emails := make(map[string]bool)
	countUser := func(raw json.RawMessage) {
		var lu legacyUser
		if json.Unmarshal(raw, &lu) != nil {
			return
		}
		if email := strings.ToLower(strings.TrimSpace(lu.Email)); email != "" {
			emails[email] = true
		}
	}

	var auth legacyAuthState
	if _, err := readLegacy(ctx, e.c, cache.LegacyAuthKey, &auth); err != nil {
		fail(err)
	} else if auth.signedIn() {
		countUser(*auth.User)
	}

	var known legacyUsersState
	if _, err := readLegacy(ctx, e.c, cache.LegacyUsersKey, &known); err != nil {
		fail(err)
	}
	for _, raw := range known.Users {
		countUser(raw)
	}
	n.Users = len(emails)
	for follower, following := range known.Following {
		for _, f := range following {
			if string(f) != follower {
				n.Follows++
			}
		}
	}

	var music legacyMusicState
	if _, err := readLegacy(ctx, e.c, cache.LegacyMusicKey, &music); err != nil {
		fail(err)
	}
	n.Tracks = len(music.Tracks)
	n.Playlists = len(music.Playlists)

	var msgs legacyMessagesState
	if _, err := readLegacy(ctx, e.c, cache.LegacyMessagesKey, &msgs); err != nil {
		fail(err)
	}
	n.Conversations = len(msgs.Conversations)
	for _, list := range msgs.Messages {
		n.Messages += len(list)
	}

	var collab legacyCollaborationState
	if _, err := readLegacy(ctx, e.c, cache.LegacyCollaborationKey, &collab); err != nil {
		fail(err)
	}
	n.Projects = len(collab.Projects)
	n.Applications = len(collab.Applications)

	return n
}
