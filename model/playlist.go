package model

import (
	"slices"
	"time"
)

// Playlist 用户歌单。Tracks 保存 Track ID，不做外键校验
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"userId"`
	Tracks      []string  `json:"tracks"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PlaylistInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	UserID      string   `json:"userId"`
	Tracks      []string `json:"tracks,omitempty"`
	IsPublic    bool     `json:"isPublic"`
}

type PlaylistPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tracks      *[]string `json:"tracks,omitempty"`
	IsPublic    *bool     `json:"isPublic,omitempty"`
}

func (p PlaylistPatch) Apply(pl *Playlist) {
	if p.Name != nil {
		pl.Name = *p.Name
	}
	if p.Description != nil {
		pl.Description = *p.Description
	}
	if p.Tracks != nil {
		pl.Tracks = slices.Clone(*p.Tracks)
	}
	if p.IsPublic != nil {
		pl.IsPublic = *p.IsPublic
	}
}

func (pl Playlist) Clone() Playlist {
	pl.Tracks = slices.Clone(pl.Tracks)
	return pl
}
