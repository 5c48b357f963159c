package models

import "time"

// Playlist is a named, owned, ordered collection of tracks.
type Playlist struct {
	ID          string
	Username    string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlaylistUpdate carries optional metadata changes; nil fields are left alone.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// PlaylistItem is a membership row: one track at one position of one playlist.
type PlaylistItem struct {
	PlaylistID string
	TrackID    string
	Position   int
}

// PlaylistEntry is a member track together with its position.
type PlaylistEntry struct {
	Position int
	Track    Track
}
