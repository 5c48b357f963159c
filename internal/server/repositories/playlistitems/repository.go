package playlistitems

import (
	"context"

	"github.com/dmitrijs2005/playlistdash/internal/server/models"
)

type Repository interface {
	Exists(ctx context.Context, playlistID, trackID string) (bool, error)
	NextPosition(ctx context.Context, playlistID string) (int, error)
	Insert(ctx context.Context, item models.PlaylistItem) error
	Delete(ctx context.Context, playlistID, trackID string) (position int, deleted bool, err error)
	ShiftDown(ctx context.Context, playlistID string, after int) error
	ListTrackIDs(ctx context.Context, playlistID string) ([]string, error)
	SetPositions(ctx context.Context, playlistID string, trackIDs []string) error
	ListOrderedTracks(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error)
	ListByOwner(ctx context.Context, username string) ([]models.PlaylistItem, error)
	DeleteByTrack(ctx context.Context, trackID string) ([]models.PlaylistItem, error)
}
