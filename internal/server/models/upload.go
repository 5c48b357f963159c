package models

import "io"

// UploadedFile is a file received at the transport boundary. Every field is
// required; Open may be called more than once.
type UploadedFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadSeekCloser, error)
}

// TrackUpload is a validated upload request.
type TrackUpload struct {
	Title    string
	Artist   string
	Album    string
	Duration *float64
	Audio    *UploadedFile
	Cover    *UploadedFile
}
