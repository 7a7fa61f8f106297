package model

import "time"

// SnapshotVersion is the schema version written into new snapshots.
const SnapshotVersion = 1

// Snapshot is the whole canonical database: the unit of local persistence
// and of remote transfer.
type Snapshot struct {
	Users         []User                 `json:"users"`
	Tracks        []Track                `json:"tracks"`
	Playlists     []Playlist             `json:"playlists"`
	Conversations []Conversation         `json:"conversations"`
	Messages      []Message              `json:"messages"`
	Comments      []Comment              `json:"comments"`
	Notifications []Notification         `json:"notifications"`
	Follows       []FollowRelationship   `json:"follows"`
	Projects      []CollaborationProject `json:"collaborationProjects"`
	Applications  []ProjectApplication   `json:"projectApplications"`
	LastSync      time.Time              `json:"lastSync"`
	Version       int                    `json:"version"`
}

// NewSnapshot returns an empty snapshot with every collection non-nil.
func NewSnapshot(now time.Time) *Snapshot {
	s := &Snapshot{LastSync: now, Version: SnapshotVersion}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones so that JSON always
// carries arrays, never null.
func (s *Snapshot) Normalize() {
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Tracks == nil {
		s.Tracks = []Track{}
	}
	if s.Playlists == nil {
		s.Playlists = []Playlist{}
	}
	if s.Conversations == nil {
		s.Conversations = []Conversation{}
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.Comments == nil {
		s.Comments = []Comment{}
	}
	if s.Notifications == nil {
		s.Notifications = []Notification{}
	}
	if s.Follows == nil {
		s.Follows = []FollowRelationship{}
	}
	if s.Projects == nil {
		s.Projects = []CollaborationProject{}
	}
	if s.Applications == nil {
		s.Applications = []ProjectApplication{}
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
}

// Clone returns a deep copy; no slice of the result aliases s.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{LastSync: s.LastSync, Version: s.Version}
	out.Users = make([]User, len(s.Users))
	for i, u := range s.Users {
		out.Users[i] = u.Clone()
	}
	out.Tracks = make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		out.Tracks[i] = t.Clone()
	}
	out.Playlists = make([]Playlist, len(s.Playlists))
	for i, p := range s.Playlists {
		out.Playlists[i] = p.Clone()
	}
	out.Conversations = make([]Conversation, len(s.Conversations))
	for i, c := range s.Conversations {
		out.Conversations[i] = c.Clone()
	}
	out.Messages = append([]Message{}, s.Messages...)
	out.Comments = append([]Comment{}, s.Comments...)
	out.Notifications = append([]Notification{}, s.Notifications...)
	out.Follows = append([]FollowRelationship{}, s.Follows...)
	out.Projects = make([]CollaborationProject, len(s.Projects))
	for i, p := range s.Projects {
		out.Projects[i] = p.Clone()
	}
	out.Applications = append([]ProjectApplication{}, s.Applications...)
	return out
}

// DataSummary is the health-check view of the store.
type DataSummary struct {
	TotalUsers         int       `json:"totalUsers"`
	TotalTracks        int       `json:"totalTracks"`
	TotalPlaylists     int       `json:"totalPlaylists"`
	TotalConversations int       `json:"totalConversations"`
	TotalMessages      int       `json:"totalMessages"`
	TotalComments      int       `json:"totalComments"`
	TotalNotifications int       `json:"totalNotifications"`
	TotalFollows       int       `json:"totalFollows"`
	TotalProjects      int       `json:"totalProjects"`
	TotalApplications  int       `json:"totalApplications"`
	LastSync           time.Time `json:"lastSync"`
	IsCloudConnected   bool      `json:"isCloudConnected"`
	DeviceID           string    `json:"deviceId,omitempty"`
	State              string    `json:"state"`
}
