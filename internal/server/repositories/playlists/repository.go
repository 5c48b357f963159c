package playlists

import (
	"context"

	"github.com/dmitrijs2005/playlistdash/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, username, name string, description *string) (*models.Playlist, error)
	GetOwned(ctx context.Context, id, username string) (*models.Playlist, error)
	LockOwned(ctx context.Context, id, username string) error
	LockByTrack(ctx context.Context, trackID string) ([]string, error)
	ListByOwner(ctx context.Context, username string) ([]models.Playlist, error)
	Update(ctx context.Context, id, username string, upd models.PlaylistUpdate) (*models.Playlist, error)
	Delete(ctx context.Context, id, username string) error
	Touch(ctx context.Context, id string) error
}
