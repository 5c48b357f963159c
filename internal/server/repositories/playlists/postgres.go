// Package playlists persists playlist rows in PostgreSQL. Membership lives
// in the playlistitems package.
package playlists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
)

const columns = `id, username, name, description, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	p := &models.Playlist{}
	var desc sql.NullString
	if err := s.Scan(&p.ID, &p.Username, &p.Name, &desc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, username, name string, description *string) (*models.Playlist, error) {
	query :=
		`INSERT INTO playlists (username, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING ` + columns

	p, err := scanPlaylist(r.db.QueryRowContext(ctx, query, username, name, description))
	if err != nil {
		return nil, fmt.Errorf("failed to insert playlist: %w", err)
	}
	return p, nil
}

// GetOwned returns the playlist only when it belongs to username.
func (r *PostgresRepository) GetOwned(ctx context.Context, id, username string) (*models.Playlist, error) {
	query :=
		`SELECT ` + columns + `
		 FROM playlists
		 WHERE id = $1 AND username = $2`

	p, err := scanPlaylist(r.db.QueryRowContext(ctx, query, id, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// LockOwned takes a row lock on the playlist for the rest of the enclosing
// transaction. Membership mutations on one playlist serialize on this lock.
func (r *PostgresRepository) LockOwned(ctx context.Context, id, username string) error {
	query :=
		`SELECT id FROM playlists
		 WHERE id = $1 AND username = $2
		 FOR UPDATE`

	var got string
	if err := r.db.QueryRowContext(ctx, query, id, username).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// LockByTrack row-locks every playlist that contains trackID, in id order,
// and returns their ids. Locks are taken in the same order as LockOwned
// callers take theirs, before any membership row is touched.
func (r *PostgresRepository) LockByTrack(ctx context.Context, trackID string) ([]string, error) {
	query :=
		`SELECT id FROM playlists
		 WHERE id IN (SELECT playlist_id FROM playlist_items WHERE audio_id = $1)
		 ORDER BY id
		 FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock playlists: %w", err)
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

// ListByOwner returns the identity's playlists, most recently updated first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, username string) ([]models.Playlist, error) {
	query :=
		`SELECT ` + columns + `
		 FROM playlists
		 WHERE username = $1
		 ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to select playlists: %w", err)
	}
	defer rows.Close()

	var result []models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}

// Update applies the non-nil fields of upd and bumps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, id, username string, upd models.PlaylistUpdate) (*models.Playlist, error) {
	query :=
		`UPDATE playlists
		 SET name = COALESCE($3, name),
		     description = CASE WHEN $4::boolean THEN $5 ELSE description END,
		     updated_at = now()
		 WHERE id = $1 AND username = $2
		 RETURNING ` + columns

	p, err := scanPlaylist(r.db.QueryRowContext(ctx, query,
		id, username, upd.Name, upd.Description != nil, upd.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to update playlist: %w", err)
	}
	return p, nil
}

// Delete removes the playlist; its memberships go with it.
func (r *PostgresRepository) Delete(ctx context.Context, id, username string) error {
	query := `DELETE FROM playlists WHERE id = $1 AND username = $2`

	res, err := r.db.ExecContext(ctx, query, id, username)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
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

// Touch sets updated_at to now.
func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE playlists SET updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to touch playlist: %w", err)
	}
	return nil
}
