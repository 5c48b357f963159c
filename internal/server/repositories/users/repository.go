package users

import (
	"context"

	"github.com/dmitrijs2005/playlistdash/internal/server/models"
)

type Repository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
