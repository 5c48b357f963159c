package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/repomanager"
)

// PlaylistService creates, renames and deletes playlists.
type PlaylistService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewPlaylistService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *PlaylistService {
	return &PlaylistService{db: db, repomanager: m, log: log.With("module", "playlists")}
}

// Create makes an empty playlist. A blank description is stored as none.
func (s *PlaylistService) Create(ctx context.Context, username, name, description string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("Playlist name is required")
	}

	p, err := s.repomanager.Playlists(s.db).Create(ctx, username, name, strPtr(strings.TrimSpace(description)))
	if err != nil {
		return nil, storeError(err)
	}

	s.log.Info(ctx, "playlist created", "user", username, "playlist_id", p.ID)
	return p, nil
}

// Delete removes the playlist and its memberships.
func (s *PlaylistService) Delete(ctx context.Context, username, playlistID string) error {
	if !validID(playlistID) {
		return notFound(msgPlaylistNotFound)
	}
	if err := s.repomanager.Playlists(s.db).Delete(ctx, playlistID, username); err != nil {
		return lookupError(err, msgPlaylistNotFound)
	}

	s.log.Info(ctx, "playlist deleted", "user", username, "playlist_id", playlistID)
	return nil
}

// UpdateMetadata changes name and/or description; nil leaves a field as is.
func (s *PlaylistService) UpdateMetadata(ctx context.Context, username, playlistID string, name, description *string) (*models.Playlist, error) {
	if !validID(playlistID) {
		return nil, validation("Invalid playlist id")
	}

	var upd models.PlaylistUpdate
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, validation("Name required")
		}
		upd.Name = &n
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		upd.Description = &d
	}

	p, err := s.repomanager.Playlists(s.db).Update(ctx, playlistID, username, upd)
	if err != nil {
		return nil, lookupError(err, msgPlaylistNotFound)
	}
	return p, nil
}
