// Package tracks stores uploaded track metadata in PostgreSQL. Binary
// content lives in object storage and is referenced by storage key.
package tracks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
)

// Columns is the select list ScanTrack expects, in order.
const Columns = `id, username, title, artist, album, cover_key, duration_seconds,
		 storage_path, content_type, file_size, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanTrack reads one row selected with Columns, plus any extra leading
// destinations.
func ScanTrack(s Scanner, extra ...any) (*models.Track, error) {
	t := &models.Track{}
	var (
		artist, album, cover sql.NullString
		duration             sql.NullFloat64
	)
	dest := append(extra, &t.ID, &t.Username, &t.Title, &artist, &album, &cover, &duration,
		&t.StorageKey, &t.ContentType, &t.FileSize, &t.CreatedAt)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	t.Artist = nullString(artist)
	t.Album = nullString(album)
	t.CoverKey = nullString(cover)
	if duration.Valid {
		d := duration.Float64
		t.DurationSeconds = &d
	}
	return t, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Create inserts a track row and returns it with the generated id and
// creation time filled in.
func (r *PostgresRepository) Create(ctx context.Context, track *models.Track) (*models.Track, error) {
	query :=
		`INSERT INTO audio_files (username, title, artist, album, cover_key, duration_seconds,
		 storage_path, content_type, file_size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING ` + Columns

	row := r.db.QueryRowContext(ctx, query,
		track.Username, track.Title, track.Artist, track.Album, track.CoverKey,
		track.DurationSeconds, track.StorageKey, track.ContentType, track.FileSize)

	created, err := ScanTrack(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert track: %w", err)
	}
	return created, nil
}

// GetOwned returns the track only when it belongs to username.
func (r *PostgresRepository) GetOwned(ctx context.Context, id, username string) (*models.Track, error) {
	query :=
		`SELECT ` + Columns + `
		 FROM audio_files
		 WHERE id = $1 AND username = $2`

	t, err := ScanTrack(r.db.QueryRowContext(ctx, query, id, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// ListByOwner returns the identity's tracks, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, username string) ([]models.Track, error) {
	query :=
		`SELECT ` + Columns + `
		 FROM audio_files
		 WHERE username = $1
		 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to select tracks: %w", err)
	}
	defer rows.Close()

	var result []models.Track
	for rows.Next() {
		t, err := ScanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}

// Delete removes the track row. It returns common.ErrorNotFound when no row
// owned by username matched.
func (r *PostgresRepository) Delete(ctx context.Context, id, username string) error {
	query := `DELETE FROM audio_files WHERE id = $1 AND username = $2`

	res, err := r.db.ExecContext(ctx, query, id, username)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
