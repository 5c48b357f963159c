// Package httpapi exposes the actions over HTTP. Every body is a JSON
// ActionResult; the status code mirrors the failure kind.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/actions"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// Actions is what the handlers call.
type Actions interface {
	Login(ctx context.Context, username string) actions.ActionResult[string]
	LoadDashboard(ctx context.Context, identity string) actions.ActionResult[*models.Dashboard]
	ListOrdered(ctx context.Context, identity, playlistID string) actions.ActionResult[[]models.TrackView]
	AddTrackToPlaylist(ctx context.Context, identity, playlistID, trackID string) actions.Void
	RemoveTrackFromPlaylist(ctx context.Context, identity, playlistID, trackID string) actions.Void
	ReorderPlaylistTracks(ctx context.Context, identity, playlistID string, trackIDs []string) actions.Void
	CreatePlaylist(ctx context.Context, identity, name, description string) actions.ActionResult[*actions.CreatedPlaylist]
	DeletePlaylist(ctx context.Context, identity, playlistID string) actions.Void
	UpdatePlaylistMetadata(ctx context.Context, identity, playlistID string, name, description *string) actions.Void
	UploadTrack(ctx context.Context, identity string, up models.TrackUpload) actions.ActionResult[*actions.UploadedTrack]
	DeleteTrack(ctx context.Context, identity, trackID string) actions.Void
}

// Sessions resolves session tokens.
type Sessions interface {
	Identify(token string) (string, error)
	Validity() time.Duration
}

type Server struct {
	address       string
	actions       Actions
	sessions      Sessions
	logger        logging.Logger
	secureCookies bool
	maxBody       int64
}

// Options tunes a Server.
type Options struct {
	Address       string
	SecureCookies bool
	// MaxUploadBytes bounds a request body; uploads above it are cut off.
	MaxUploadBytes int64
}

func NewServer(opts Options, l logging.Logger, a Actions, s Sessions) *Server {
	return &Server{
		address:       opts.Address,
		actions:       a,
		sessions:      s,
		logger:        l.With("module", "http_server"),
		secureCookies: opts.SecureCookies,
		maxBody:       opts.MaxUploadBytes,
	}
}

// Router builds the route table. Extra middlewares run before the session
// middleware.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	for _, mw := range middlewares {
		r.Use(mw)
	}
	r.Use(s.sessionMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", s.handleLogin)
		r.Delete("/session", s.handleLogout)

		r.Get("/dashboard", s.handleDashboard)

		r.Post("/tracks", s.handleUploadTrack)
		r.Delete("/tracks/{trackID}", s.handleDeleteTrack)

		r.Post("/playlists", s.handleCreatePlaylist)
		r.Patch("/playlists/{playlistID}", s.handleUpdatePlaylist)
		r.Delete("/playlists/{playlistID}", s.handleDeletePlaylist)

		r.Get("/playlists/{playlistID}/tracks", s.handleListOrdered)
		r.Post("/playlists/{playlistID}/tracks", s.handleAddTrack)
		r.Put("/playlists/{playlistID}/tracks", s.handleReorderTracks)
		r.Delete("/playlists/{playlistID}/tracks/{trackID}", s.handleRemoveTrack)
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, middlewares ...func(http.Handler) http.Handler) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(middlewares...),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
