package playlistitems

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT EXISTS .*playlist_id = \$1 AND audio_id = \$2`).
		WithArgs("p1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "p1", "t1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNextPosition(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), -1\) \+ 1 FROM playlist_items`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(0))

	next, err := repo.NextPosition(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, next)
}

func TestInsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO playlist_items \(playlist_id, audio_id, position\)`).
		WithArgs("p1", "t1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), models.PlaylistItem{PlaylistID: "p1", TrackID: "t1", Position: 2}))
}

func TestInsert_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO playlist_items`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ConstraintPlaylistTrack})

	err := repo.Insert(context.Background(), models.PlaylistItem{PlaylistID: "p1", TrackID: "t1"})
	assert.ErrorIs(t, err, common.ErrDuplicateMembership)
}

func TestInsert_MissingReference(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO playlist_items`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Insert(context.Background(), models.PlaylistItem{PlaylistID: "p1", TrackID: "t1"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)DELETE FROM playlist_items\s+WHERE playlist_id = \$1 AND audio_id = \$2\s+RETURNING position`).
		WithArgs("p1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(3))

	pos, deleted, err := repo.Delete(context.Background(), "p1", "t1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 3, pos)
}

func TestDelete_NotMember(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`DELETE FROM playlist_items`).
		WithArgs("p1", "t9").
		WillReturnRows(sqlmock.NewRows([]string{"position"}))

	_, deleted, err := repo.Delete(context.Background(), "p1", "t9")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestShiftDown(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)SET position = position - 1\s+WHERE playlist_id = \$1 AND position > \$2`).
		WithArgs("p1", 1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ShiftDown(context.Background(), "p1", 1))
}

func TestListTrackIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT audio_id FROM playlist_items.*ORDER BY position ASC`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"audio_id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ListTrackIDs(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestSetPositions(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)ON CONFLICT \(playlist_id, audio_id\) DO UPDATE`
	mock.ExpectExec(q).WithArgs("p1", "c", 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p1", "a", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p1", "b", 2).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPositions(context.Background(), "p1", []string{"c", "a", "b"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPositions_Error(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`ON CONFLICT`).WillReturnError(errors.New("boom"))

	err := repo.SetPositions(context.Background(), "p1", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set position of a")
}

func TestListOrderedTracks(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"position", "id", "username", "title", "artist", "album", "cover_key",
		"duration_seconds", "storage_path", "content_type", "file_size", "created_at"}
	mock.ExpectQuery(`(?s)FROM playlist_items pi\s+JOIN audio_files a ON a.id = pi.audio_id.*ORDER BY pi.position ASC`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(0, "b", "alice", "B", nil, nil, nil, nil, "kb", "audio/mpeg", int64(2), now).
			AddRow(1, "a", "alice", "A", nil, nil, nil, nil, "ka", "audio/mpeg", int64(1), now))

	got, err := repo.ListOrderedTracks(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, "b", got[0].Track.ID)
	assert.Equal(t, 1, got[1].Position)
	assert.Equal(t, "ka", got[1].Track.StorageKey)
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)JOIN playlists p ON p.id = pi.playlist_id\s+WHERE p.username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"playlist_id", "audio_id", "position"}).
			AddRow("p1", "a", 0).
			AddRow("p1", "b", 1).
			AddRow("p2", "a", 0))

	got, err := repo.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	want := []models.PlaylistItem{
		{PlaylistID: "p1", TrackID: "a", Position: 0},
		{PlaylistID: "p1", TrackID: "b", Position: 1},
		{PlaylistID: "p2", TrackID: "a", Position: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteByTrack(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)DELETE FROM playlist_items\s+WHERE audio_id = \$1\s+RETURNING playlist_id, audio_id, position`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"playlist_id", "audio_id", "position"}).
			AddRow("p1", "t1", 2).
			AddRow("p2", "t1", 0))

	got, err := repo.DeleteByTrack(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[1].PlaylistID)
}

func TestDeleteByTrack_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`DELETE FROM playlist_items`).WillReturnError(errors.New("boom"))

	_, err := repo.DeleteByTrack(context.Background(), "t1")
	require.Error(t, err)
}
