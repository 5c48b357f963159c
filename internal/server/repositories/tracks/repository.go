package tracks

import (
	"context"

	"github.com/dmitrijs2005/playlistdash/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, track *models.Track) (*models.Track, error)
	GetOwned(ctx context.Context, id, username string) (*models.Track, error)
	ListByOwner(ctx context.Context, username string) ([]models.Track, error)
	Delete(ctx context.Context, id, username string) error
}
