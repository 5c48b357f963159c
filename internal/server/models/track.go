package models

import "time"

// Track is an uploaded audio asset's metadata. The binary itself lives in
// object storage under StorageKey.
type Track struct {
	ID       string
	Username string
	Title    string
	Artist   *string
	Album    *string
	// CoverKey is the object-storage key of the cover image, if any.
	CoverKey *string
	// DurationSeconds stays nil until known.
	DurationSeconds *float64
	StorageKey      string
	ContentType     string
	FileSize        int64
	CreatedAt       time.Time
}
