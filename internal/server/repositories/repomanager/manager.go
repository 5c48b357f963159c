package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/playlistitems"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/playlists"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/tracks"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can group writes with dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tracks(db dbx.DBTX) tracks.Repository
	Playlists(db dbx.DBTX) playlists.Repository
	PlaylistItems(db dbx.DBTX) playlistitems.Repository
}
