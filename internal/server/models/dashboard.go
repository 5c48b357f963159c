package models

import "time"

// TrackView is a track as handed to the player: metadata plus a signed URL.
type TrackView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Title       string    `json:"title"`
	Artist      *string   `json:"artist"`
	Album       *string   `json:"album"`
	CoverArtURL *string   `json:"coverArtUrl"`
	Duration    *float64  `json:"duration"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// PlaylistView is a playlist with its members in order. TrackIDs lists every
// membership; Tracks drops members whose track could not be resolved.
type PlaylistView struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	TrackIDs    []string    `json:"trackIds"`
	Tracks      []TrackView `json:"tracks"`
}

// Dashboard is everything the dashboard panels render for one identity.
type Dashboard struct {
	Tracks    []TrackView    `json:"tracks"`
	Playlists []PlaylistView `json:"playlists"`
	CanModify bool           `json:"canModify"`
}
