package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MembershipService maintains the ordered track list of each playlist.
//
// Every mutation runs in one transaction that first locks the playlist row,
// so concurrent mutations of the same playlist apply one after another and
// positions stay 0..n-1.
type MembershipService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewMembershipService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *MembershipService {
	return &MembershipService{db: db, repomanager: m, log: log.With("module", "membership")}
}

// AddTrack appends trackID to the end of the playlist.
func (s *MembershipService) AddTrack(ctx context.Context, username, playlistID, trackID string) error {
	if !validID(playlistID) {
		return notFound(msgPlaylistNotFound)
	}
	if !validID(trackID) {
		return notFound(msgTrackNotFound)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Playlists(tx).LockOwned(ctx, playlistID, username); err != nil {
			return lookupError(err, msgPlaylistNotFound)
		}
		if _, err := s.repomanager.Tracks(tx).GetOwned(ctx, trackID, username); err != nil {
			return lookupError(err, msgTrackNotFound)
		}

		items := s.repomanager.PlaylistItems(tx)
		exists, err := items.Exists(ctx, playlistID, trackID)
		if err != nil {
			return storeError(err)
		}
		if exists {
			return common.NewUserError(common.ErrDuplicateMembership, msgDuplicate)
		}

		pos, err := items.NextPosition(ctx, playlistID)
		if err != nil {
			return storeError(err)
		}
		if err := items.Insert(ctx, models.PlaylistItem{PlaylistID: playlistID, TrackID: trackID, Position: pos}); err != nil {
			if errors.Is(err, common.ErrDuplicateMembership) {
				return common.NewUserError(common.ErrDuplicateMembership, msgDuplicate)
			}
			return lookupError(err, msgTrackNotFound)
		}

		return touch(ctx, s.repomanager, tx, playlistID)
	})
	if err != nil {
		return err
	}

	s.log.Debug(ctx, "track added", "user", username, "playlist_id", playlistID, "track_id", trackID)
	return nil
}

// RemoveTrack takes trackID out of the playlist and closes the gap. Removing
// a track that is not a member succeeds and changes nothing.
func (s *MembershipService) RemoveTrack(ctx context.Context, username, playlistID, trackID string) error {
	if !validID(playlistID) {
		return notFound(msgPlaylistNotFound)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Playlists(tx).LockOwned(ctx, playlistID, username); err != nil {
			return lookupError(err, msgPlaylistNotFound)
		}
		if !validID(trackID) {
			return nil
		}

		items := s.repomanager.PlaylistItems(tx)
		pos, deleted, err := items.Delete(ctx, playlistID, trackID)
		if err != nil {
			return storeError(err)
		}
		if !deleted {
			return nil
		}
		if err := items.ShiftDown(ctx, playlistID, pos); err != nil {
			return storeError(err)
		}

		s.log.Debug(ctx, "track removed", "user", username, "playlist_id", playlistID, "track_id", trackID)
		return touch(ctx, s.repomanager, tx, playlistID)
	})
}

// ReorderTracks makes trackIDs the new order. trackIDs must hold every
// current member exactly once and nothing else.
func (s *MembershipService) ReorderTracks(ctx context.Context, username, playlistID string, trackIDs []string) error {
	if !validID(playlistID) {
		return notFound(msgPlaylistNotFound)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Playlists(tx).LockOwned(ctx, playlistID, username); err != nil {
			return lookupError(err, msgPlaylistNotFound)
		}

		items := s.repomanager.PlaylistItems(tx)
		current, err := items.ListTrackIDs(ctx, playlistID)
		if err != nil {
			return storeError(err)
		}
		proposed, ok := canonicalIDs(trackIDs)
		if !ok || !sameMembers(current, proposed) {
			return validation(msgOrderMismatch)
		}

		if err := items.SetPositions(ctx, playlistID, proposed); err != nil {
			return storeError(err)
		}
		return touch(ctx, s.repomanager, tx, playlistID)
	})
}

// ListOrdered returns the playlist's tracks by ascending position.
func (s *MembershipService) ListOrdered(ctx context.Context, username, playlistID string) ([]models.PlaylistEntry, error) {
	if !validID(playlistID) {
		return nil, notFound(msgPlaylistNotFound)
	}
	if _, err := s.repomanager.Playlists(s.db).GetOwned(ctx, playlistID, username); err != nil {
		return nil, lookupError(err, msgPlaylistNotFound)
	}

	entries, err := s.repomanager.PlaylistItems(s.db).ListOrderedTracks(ctx, playlistID)
	if err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

func touch(ctx context.Context, m repomanager.RepositoryManager, tx dbx.DBTX, playlistID string) error {
	if err := m.Playlists(tx).Touch(ctx, playlistID); err != nil {
		return storeError(err)
	}
	return nil
}

// canonicalIDs rewrites ids in the lowercase hyphenated form the database
// returns. It fails on anything that is not a UUID.
func canonicalIDs(ids []string) ([]string, bool) {
	out := make([]string, len(ids))
	for i, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, false
		}
		out[i] = u.String()
	}
	return out, true
}

// sameMembers reports whether proposed is a permutation of current.
func sameMembers(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = false
	}
	for _, id := range proposed {
		used, ok := seen[id]
		if !ok || used {
			return false
		}
		seen[id] = true
	}
	return true
}
