package store

import "Bt1QSocial/model"

// User counters, Track.Comments and Project.Applicants are never stored.
// They are computed from the flat collections each time a record leaves
// the store, so they cannot drift from the rows they summarize.

type userCounts struct {
	followers, following, tracks int
}

func countsByUser(db *model.Snapshot) map[string]userCounts {
	counts := make(map[string]userCounts, len(db.Users))
	for _, f := range db.Follows {
		c := counts[f.FollowingID]
		c.followers++
		counts[f.FollowingID] = c

		c = counts[f.FollowerID]
		c.following++
		counts[f.FollowerID] = c
	}
	for _, t := range db.Tracks {
		c := counts[t.UserID]
		c.tracks++
		counts[t.UserID] = c
	}
	return counts
}

func applyCounts(u *model.User, c userCounts) {
	u.FollowersCount = c.followers
	u.FollowingCount = c.following
	u.TracksCount = c.tracks
}

func userView(db *model.Snapshot, u model.User) model.User {
	out := u.Clone()
	var c userCounts
	for _, f := range db.Follows {
		if f.FollowingID == u.ID {
			c.followers++
		}
		if f.FollowerID == u.ID {
			c.following++
		}
	}
	for _, t := range db.Tracks {
		if t.UserID == u.ID {
			c.tracks++
		}
	}
	applyCounts(&out, c)
	return out
}

func userViews(db *model.Snapshot, users []model.User) []model.User {
	counts := countsByUser(db)
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		v := u.Clone()
		applyCounts(&v, counts[u.ID])
		out = append(out, v)
	}
	return out
}

func commentsOf(db *model.Snapshot, trackID string) []model.Comment {
	out := []model.Comment{}
	for _, c := range db.Comments {
		if c.TrackID == trackID {
			out = append(out, c)
		}
	}
	return out
}

func trackView(db *model.Snapshot, t model.Track) model.Track {
	out := t.Clone()
	out.Comments = commentsOf(db, t.ID)
	return out
}

func trackViews(db *model.Snapshot, tracks []model.Track) []model.Track {
	byTrack := make(map[string][]model.Comment)
	for _, c := range db.Comments {
		byTrack[c.TrackID] = append(byTrack[c.TrackID], c)
	}
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		v := t.Clone()
		v.Comments = append([]model.Comment{}, byTrack[t.ID]...)
		out = append(out, v)
	}
	return out
}

func applicationsOf(db *model.Snapshot, projectID string) []model.ProjectApplication {
	out := []model.ProjectApplication{}
	for _, a := range db.Applications {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out
}

func projectView(db *model.Snapshot, p model.CollaborationProject) model.CollaborationProject {
	out := p.Clone()
	out.Applicants = applicationsOf(db, p.ID)
	return out
}

func projectViews(db *model.Snapshot, projects []model.CollaborationProject) []model.CollaborationProject {
	byProject := make(map[string][]model.ProjectApplication)
	for _, a := range db.Applications {
		byProject[a.ProjectID] = append(byProject[a.ProjectID], a)
	}
	out := make([]model.CollaborationProject, 0, len(projects))
	for _, p := range projects {
		v := p.Clone()
		v.Applicants = append([]model.ProjectApplication{}, byProject[p.ID]...)
		out = append(out, v)
	}
	return out
}

// exportLocked returns a deep copy of the snapshot with derived fields filled.
func (s *Store) exportLocked() *model.Snapshot {
	out := s.db.Clone()
	out.Users = userViews(s.db, s.db.Users)
	out.Tracks = trackViews(s.db, s.db.Tracks)
	out.Projects = projectViews(s.db, s.db.Projects)
	return out
}

// absorbDerived moves embedded comments and applicants of an adopted
// snapshot into the flat collections and clears the embedded copies.
// Snapshots written by older clients may only carry the embedded form.
func absorbDerived(snap *model.Snapshot) {
	snap.Normalize()

	commentIDs := make(map[string]bool, len(snap.Comments))
	for _, c := range snap.Comments {
		commentIDs[c.ID] = true
	}
	for i := range snap.Tracks {
		t := &snap.Tracks[i]
		for _, c := range t.Comments {
			if c.ID == "" || commentIDs[c.ID] {
				continue
			}
			if c.TrackID == "" {
				c.TrackID = t.ID
			}
			commentIDs[c.ID] = true
			snap.Comments = append(snap.Comments, c)
		}
		t.Comments = nil
	}

	appIDs := make(map[string]bool, len(snap.Applications))
	for _, a := range snap.Applications {
		appIDs[a.ID] = true
	}
	for i := range snap.Projects {
		p := &snap.Projects[i]
		for _, a := range p.Applicants {
			if a.ID == "" || appIDs[a.ID] {
				continue
			}
			if a.ProjectID == "" {
				a.ProjectID = p.ID
			}
			appIDs[a.ID] = true
			snap.Applications = append(snap.Applications, a)
		}
		p.Applicants = nil
		if p.SkillsNeeded == nil {
			p.SkillsNeeded = []string{}
		}
	}

	for i := range snap.Playlists {
		if snap.Playlists[i].Tracks == nil {
			snap.Playlists[i].Tracks = []string{}
		}
	}
	for i := range snap.Users {
		if snap.Users[i].PaymentMethods == nil {
			snap.Users[i].PaymentMethods = []model.PaymentMethod{}
		}
	}
}
