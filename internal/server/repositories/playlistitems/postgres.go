// Package playlistitems persists playlist membership: which track sits at
// which position of which playlist.
//
// Positions within a playlist are unique (the constraint is deferred to
// commit) and a track appears at most once per playlist. Callers mutate
// membership inside a transaction holding the playlist row lock.
package playlistitems

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/tracks"
)

// ConstraintPlaylistTrack is the unique (playlist_id, audio_id) constraint.
const ConstraintPlaylistTrack = "playlist_items_playlist_audio_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, playlistID, trackID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM playlist_items WHERE playlist_id = $1 AND audio_id = $2
		 )`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, playlistID, trackID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// NextPosition returns max(position)+1, or 0 for an empty playlist.
func (r *PostgresRepository) NextPosition(ctx context.Context, playlistID string) (int, error) {
	query := `SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_items WHERE playlist_id = $1`

	var next int
	if err := r.db.QueryRowContext(ctx, query, playlistID).Scan(&next); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return next, nil
}

// Insert adds a membership. A second insert of the same track reports
// common.ErrDuplicateMembership.
func (r *PostgresRepository) Insert(ctx context.Context, item models.PlaylistItem) error {
	query :=
		`INSERT INTO playlist_items (playlist_id, audio_id, position)
		 VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, item.PlaylistID, item.TrackID, item.Position); err != nil {
		if dbx.IsUniqueViolation(err, ConstraintPlaylistTrack) {
			return common.ErrDuplicateMembership
		}
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("failed to insert playlist item: %w", err)
	}
	return nil
}

// Delete removes one membership and reports the position it held.
func (r *PostgresRepository) Delete(ctx context.Context, playlistID, trackID string) (int, bool, error) {
	query :=
		`DELETE FROM playlist_items
		 WHERE playlist_id = $1 AND audio_id = $2
		 RETURNING position`

	rows, err := r.db.QueryContext(ctx, query, playlistID, trackID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to delete playlist item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var pos int
	if err := rows.Scan(&pos); err != nil {
		return 0, false, fmt.Errorf("scan failed: %w", err)
	}
	return pos, true, rows.Err()
}

// ShiftDown moves every member after the given position one slot up the
// list, closing the gap a removal left.
func (r *PostgresRepository) ShiftDown(ctx context.Context, playlistID string, after int) error {
	query :=
		`UPDATE playlist_items
		 SET position = position - 1
		 WHERE playlist_id = $1 AND position > $2`

	if _, err := r.db.ExecContext(ctx, query, playlistID, after); err != nil {
		return fmt.Errorf("failed to compact positions: %w", err)
	}
	return nil
}

// ListTrackIDs returns member track ids by ascending position.
func (r *PostgresRepository) ListTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	query :=
		`SELECT audio_id FROM playlist_items
		 WHERE playlist_id = $1
		 ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to select playlist items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return ids, nil
}

// SetPositions writes trackIDs[i] at position i. Intermediate duplicate
// positions are tolerated because the position constraint is checked at
// commit.
func (r *PostgresRepository) SetPositions(ctx context.Context, playlistID string, trackIDs []string) error {
	query :=
		`INSERT INTO playlist_items (playlist_id, audio_id, position)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (playlist_id, audio_id) DO UPDATE
		 SET position = EXCLUDED.position`

	for i, id := range trackIDs {
		if _, err := r.db.ExecContext(ctx, query, playlistID, id, i); err != nil {
			return fmt.Errorf("failed to set position of %s: %w", id, err)
		}
	}
	return nil
}

// ListOrderedTracks joins membership to track rows by ascending position.
// Memberships whose track row is gone are not returned.
func (r *PostgresRepository) ListOrderedTracks(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error) {
	query :=
		`SELECT pi.position, ` + prefixed("a.") + `
		 FROM playlist_items pi
		 JOIN audio_files a ON a.id = pi.audio_id
		 WHERE pi.playlist_id = $1
		 ORDER BY pi.position ASC`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to select playlist tracks: %w", err)
	}
	defer rows.Close()

	var result []models.PlaylistEntry
	for rows.Next() {
		var pos int
		t, err := tracks.ScanTrack(rows, &pos)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		result = append(result, models.PlaylistEntry{Position: pos, Track: *t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}

// ListByOwner returns every membership of every playlist owned by username,
// grouped by playlist and ordered by position.
func (r *PostgresRepository) ListByOwner(ctx context.Context, username string) ([]models.PlaylistItem, error) {
	query :=
		`SELECT pi.playlist_id, pi.audio_id, pi.position
		 FROM playlist_items pi
		 JOIN playlists p ON p.id = pi.playlist_id
		 WHERE p.username = $1
		 ORDER BY pi.playlist_id, pi.position ASC`

	return r.queryItems(ctx, query, username)
}

// DeleteByTrack removes the track from every playlist and returns the
// memberships that were removed.
func (r *PostgresRepository) DeleteByTrack(ctx context.Context, trackID string) ([]models.PlaylistItem, error) {
	query :=
		`DELETE FROM playlist_items
		 WHERE audio_id = $1
		 RETURNING playlist_id, audio_id, position`

	return r.queryItems(ctx, query, trackID)
}

func (r *PostgresRepository) queryItems(ctx context.Context, query string, args ...any) ([]models.PlaylistItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select playlist items: %w", err)
	}
	defer rows.Close()

	var items []models.PlaylistItem
	for rows.Next() {
		var it models.PlaylistItem
		if err := rows.Scan(&it.PlaylistID, &it.TrackID, &it.Position); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return items, nil
}

func prefixed(p string) string {
	return p + "id, " + p + "username, " + p + "title, " + p + "artist, " + p + "album, " +
		p + "cover_key, " + p + "duration_seconds, " + p + "storage_path, " +
		p + "content_type, " + p + "file_size, " + p + "created_at"
}
