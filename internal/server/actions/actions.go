package actions

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/getsentry/sentry-go"
)

type Sessions interface {
	Login(ctx context.Context, username string) (string, error)
}

type Membership interface {
	AddTrack(ctx context.Context, username, playlistID, trackID string) error
	RemoveTrack(ctx context.Context, username, playlistID, trackID string) error
	ReorderTracks(ctx context.Context, username, playlistID string, trackIDs []string) error
	ListOrdered(ctx context.Context, username, playlistID string) ([]models.PlaylistEntry, error)
}

type Library interface {
	UploadTrack(ctx context.Context, username string, up models.TrackUpload) (*models.Track, error)
	DeleteTrack(ctx context.Context, username, trackID string) error
}

type Playlists interface {
	Create(ctx context.Context, username, name, description string) (*models.Playlist, error)
	Delete(ctx context.Context, username, playlistID string) error
	UpdateMetadata(ctx context.Context, username, playlistID string, name, description *string) (*models.Playlist, error)
}

type Dashboard interface {
	Load(ctx context.Context, username string) (*models.Dashboard, error)
	Invalidate(ctx context.Context, username string)
	Views(ctx context.Context, rows []models.Track) ([]models.TrackView, error)
}

// Gate decides whether an identity may modify data.
type Gate interface {
	RequireModifyPermission(identity string) error
}

// Actions runs every user-facing operation. Mutations pass the gate first
// and drop the identity's cached dashboard when they succeed.
type Actions struct {
	sessions   Sessions
	membership Membership
	library    Library
	playlists  Playlists
	dashboard  Dashboard
	gate       Gate
	log        logging.Logger
}

func New(sessions Sessions, membership Membership, library Library, playlists Playlists,
	dashboard Dashboard, gate Gate, log logging.Logger) *Actions {
	return &Actions{
		sessions:   sessions,
		membership: membership,
		library:    library,
		playlists:  playlists,
		dashboard:  dashboard,
		gate:       gate,
		log:        log.With("module", "actions"),
	}
}

var errUnauthorized = common.NewUserError(common.ErrUnauthorized, "Unauthorized")

// Login returns a session token for a registered username.
func (a *Actions) Login(ctx context.Context, username string) ActionResult[string] {
	token, err := a.sessions.Login(ctx, username)
	if err != nil {
		return failed[string](a, ctx, "login", err)
	}
	return ok(token)
}

func (a *Actions) LoadDashboard(ctx context.Context, identity string) ActionResult[*models.Dashboard] {
	if identity == "" {
		return fail[*models.Dashboard](errUnauthorized)
	}
	d, err := a.dashboard.Load(ctx, identity)
	if err != nil {
		return failed[*models.Dashboard](a, ctx, "load dashboard", err)
	}
	return ok(d)
}

// ListOrdered returns the playlist's tracks in order, ready for playback.
func (a *Actions) ListOrdered(ctx context.Context, identity, playlistID string) ActionResult[[]models.TrackView] {
	if identity == "" {
		return fail[[]models.TrackView](errUnauthorized)
	}
	entries, err := a.membership.ListOrdered(ctx, identity, playlistID)
	if err != nil {
		return failed[[]models.TrackView](a, ctx, "list playlist", err)
	}

	rows := make([]models.Track, len(entries))
	for i, e := range entries {
		rows[i] = e.Track
	}
	views, err := a.dashboard.Views(ctx, rows)
	if err != nil {
		return failed[[]models.TrackView](a, ctx, "list playlist", err)
	}
	return ok(views)
}

func (a *Actions) AddTrackToPlaylist(ctx context.Context, identity, playlistID, trackID string) Void {
	return a.mutate(ctx, identity, "add track", func() error {
		return a.membership.AddTrack(ctx, identity, playlistID, trackID)
	})
}

func (a *Actions) RemoveTrackFromPlaylist(ctx context.Context, identity, playlistID, trackID string) Void {
	return a.mutate(ctx, identity, "remove track", func() error {
		return a.membership.RemoveTrack(ctx, identity, playlistID, trackID)
	})
}

func (a *Actions) ReorderPlaylistTracks(ctx context.Context, identity, playlistID string, trackIDs []string) Void {
	return a.mutate(ctx, identity, "reorder tracks", func() error {
		return a.membership.ReorderTracks(ctx, identity, playlistID, trackIDs)
	})
}

func (a *Actions) CreatePlaylist(ctx context.Context, identity, name, description string) ActionResult[*CreatedPlaylist] {
	var created *CreatedPlaylist
	res := a.mutate(ctx, identity, "create playlist", func() error {
		p, err := a.playlists.Create(ctx, identity, name, description)
		if err != nil {
			return err
		}
		created = &CreatedPlaylist{PlaylistID: p.ID}
		return nil
	})
	return carry(res, created)
}

func (a *Actions) DeletePlaylist(ctx context.Context, identity, playlistID string) Void {
	return a.mutate(ctx, identity, "delete playlist", func() error {
		return a.playlists.Delete(ctx, identity, playlistID)
	})
}

func (a *Actions) UpdatePlaylistMetadata(ctx context.Context, identity, playlistID string, name, description *string) Void {
	return a.mutate(ctx, identity, "update playlist", func() error {
		_, err := a.playlists.UpdateMetadata(ctx, identity, playlistID, name, description)
		return err
	})
}

func (a *Actions) UploadTrack(ctx context.Context, identity string, up models.TrackUpload) ActionResult[*UploadedTrack] {
	var uploaded *UploadedTrack
	res := a.mutate(ctx, identity, "upload track", func() error {
		t, err := a.library.UploadTrack(ctx, identity, up)
		if err != nil {
			return err
		}
		uploaded = &UploadedTrack{TrackID: t.ID}
		return nil
	})
	return carry(res, uploaded)
}

func (a *Actions) DeleteTrack(ctx context.Context, identity, trackID string) Void {
	return a.mutate(ctx, identity, "delete track", func() error {
		return a.library.DeleteTrack(ctx, identity, trackID)
	})
}

// mutate checks the identity and the gate, runs fn and invalidates the
// identity's dashboard on success.
func (a *Actions) mutate(ctx context.Context, identity, op string, fn func() error) Void {
	if identity == "" {
		return fail[any](errUnauthorized)
	}
	if err := a.gate.RequireModifyPermission(identity); err != nil {
		a.log.Info(ctx, "read-only identity rejected", "user", identity, "op", op)
		return fail[any](err)
	}
	if err := fn(); err != nil {
		return failed[any](a, ctx, op, err)
	}
	a.dashboard.Invalidate(ctx, identity)
	return ok[any](nil)
}

func carry[T any](res Void, data T) ActionResult[T] {
	if !res.Success {
		return ActionResult[T]{Error: res.Error, Kind: res.Kind}
	}
	return ok(data)
}

// failed converts err into a failed result. Storage and persistence
// failures are logged and reported; everything else is an expected outcome.
func failed[T any](a *Actions, ctx context.Context, op string, err error) ActionResult[T] {
	if errors.Is(err, common.ErrStorage) || errors.Is(err, common.ErrPersistence) || common.Kind(err) == nil {
		a.log.Error(ctx, op+" failed", "error", err)
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
	} else {
		a.log.Debug(ctx, op+" rejected", "error", err)
	}
	return fail[T](err)
}
