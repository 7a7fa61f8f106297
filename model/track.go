package model

import (
	"slices"
	"time"
)

const (
	TrackSourceUpload  = "upload"
	TrackSourceNetease = "netease"
	TrackSourceLink    = "link"
)

// Track represents an audio track shared by a user.
type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	UserID      string    `json:"userId"`
	URL         string    `json:"url"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Duration    float64   `json:"duration"` // seconds
	Source      string    `json:"source"`
	StreamCount int       `json:"streamCount"`
	Likes       int       `json:"likes"`
	Shares      int       `json:"shares"`
	Comments    []Comment `json:"comments"` // derived from the comments collection
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TrackInput carries the caller-supplied fields of a new Track.
type TrackInput struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	UserID   string  `json:"userId"`
	URL      string  `json:"url"`
	CoverURL string  `json:"coverUrl,omitempty"`
	Genre    string  `json:"genre,omitempty"`
	Duration float64 `json:"duration"`
	Source   string  `json:"source,omitempty"`
}

// TrackPatch 部分更新；nil 字段保持不变
type TrackPatch struct {
	Title       *string  `json:"title,omitempty"`
	Artist      *string  `json:"artist,omitempty"`
	URL         *string  `json:"url,omitempty"`
	CoverURL    *string  `json:"coverUrl,omitempty"`
	Genre       *string  `json:"genre,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	Source      *string  `json:"source,omitempty"`
	StreamCount *int     `json:"streamCount,omitempty"`
	Likes       *int     `json:"likes,omitempty"`
	Shares      *int     `json:"shares,omitempty"`
}

func (p TrackPatch) Apply(t *Track) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Artist != nil {
		t.Artist = *p.Artist
	}
	if p.URL != nil {
		t.URL = *p.URL
	}
	if p.CoverURL != nil {
		t.CoverURL = *p.CoverURL
	}
	if p.Genre != nil {
		t.Genre = *p.Genre
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Source != nil {
		t.Source = *p.Source
	}
	if p.StreamCount != nil {
		t.StreamCount = *p.StreamCount
	}
	if p.Likes != nil {
		t.Likes = *p.Likes
	}
	if p.Shares != nil {
		t.Shares = *p.Shares
	}
}

func (t Track) Clone() Track {
	t.Comments = slices.Clone(t.Comments)
	return t
}

// Comment is attached to a Track.
type Comment struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"trackId"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommentInput struct {
	TrackID string `json:"trackId"`
	UserID  string `json:"userId"`
	Text    string `json:"text"`
}

type CommentPatch struct {
	Text  *string `json:"text,omitempty"`
	Likes *int    `json:"likes,omitempty"`
}

func (p CommentPatch) Apply(c *Comment) {
	if p.Text != nil {
		c.Text = *p.Text
	}
	if p.Likes != nil {
		c.Likes = *p.Likes
	}
}
