// Package services contains server-side business logic: sessions, playlist
// membership, the track library, playlist metadata and the dashboard view.
//
// Services return common.UserError values whose message is safe to show
// to the user; errors.Is(err, common.ErrXxx) tells their kind.
package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/google/uuid"
)

// BlobStore is the object storage the services need.
type BlobStore interface {
	AudioKey(filename string) string
	CoverKey(filename string) string
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, validity time.Duration) (string, error)
}

// Fixed user-facing messages.
const (
	msgPlaylistNotFound = "Playlist not found"
	msgTrackNotFound    = "Track not found"
	msgDuplicate        = "Track already exists in playlist"
	msgOrderMismatch    = "Track order does not match playlist contents"
)

func notFound(msg string) error { return common.NewUserError(common.ErrNotFound, msg) }

func validation(msg string) error { return common.NewUserError(common.ErrValidation, msg) }

// storeError passes user errors through and turns anything else into a
// persistence error carrying the driver message.
func storeError(err error) error {
	var ue *common.UserError
	if errors.As(err, &ue) {
		return err
	}
	return common.NewUserError(common.ErrPersistence, err.Error())
}

// lookupError maps a repository not-found to msg and everything else to
// storeError.
func lookupError(err error, msg string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return notFound(msg)
	}
	return storeError(err)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
