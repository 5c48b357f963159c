// Package actions is the boundary the transport calls into. Every action
// returns an ActionResult; failures never escape as Go errors.
package actions

import "github.com/dmitrijs2005/playlistdash/internal/common"

// ActionResult is the tagged outcome of one action. Error is set only when
// Success is false; Data only when it is true.
type ActionResult[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data,omitempty"`

	// Kind classifies a failure for the transport; it is not serialized.
	Kind error `json:"-"`
}

// Void is the result of an action that carries no payload.
type Void = ActionResult[any]

func ok[T any](data T) ActionResult[T] {
	return ActionResult[T]{Success: true, Data: data}
}

func fail[T any](err error) ActionResult[T] {
	return ActionResult[T]{Error: common.Message(err), Kind: common.Kind(err)}
}

// CreatedPlaylist is returned by CreatePlaylist.
type CreatedPlaylist struct {
	PlaylistID string `json:"playlistId"`
}

// UploadedTrack is returned by UploadTrack.
type UploadedTrack struct {
	TrackID string `json:"trackId"`
}
