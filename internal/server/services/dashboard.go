package services

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/cache"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// signConcurrency caps parallel URL signing per dashboard load.
const signConcurrency = 8

// Permissions answers whether an identity may modify data.
type Permissions interface {
	CanModify(identity string) bool
}

// DashboardService assembles everything the dashboard renders for one
// identity and caches the result until that identity changes something.
type DashboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       BlobStore
	perms       Permissions
	cache       cache.Dashboard
	log         logging.Logger
}

func NewDashboardService(db *sql.DB, m repomanager.RepositoryManager, store BlobStore, perms Permissions,
	c cache.Dashboard, log logging.Logger) *DashboardService {
	return &DashboardService{
		db:          db,
		repomanager: m,
		store:       store,
		perms:       perms,
		cache:       c,
		log:         log.With("module", "dashboard"),
	}
}

// Load returns the identity's dashboard: tracks newest first, playlists by
// most recent update with their members in order, and whether the identity
// may modify data.
func (s *DashboardService) Load(ctx context.Context, username string) (*models.Dashboard, error) {
	if d, ok, err := s.cache.Get(ctx, username); err != nil {
		s.log.Warn(ctx, "dashboard cache read failed", "user", username, "error", err)
	} else if ok {
		return d, nil
	}

	// Read before the database so a concurrent invalidation voids the write.
	gen, genErr := s.cache.Generation(ctx, username)
	if genErr != nil {
		s.log.Warn(ctx, "dashboard cache generation read failed", "user", username, "error", genErr)
	}

	trackRows, err := s.repomanager.Tracks(s.db).ListByOwner(ctx, username)
	if err != nil {
		return nil, storeError(err)
	}
	playlistRows, err := s.repomanager.Playlists(s.db).ListByOwner(ctx, username)
	if err != nil {
		return nil, storeError(err)
	}

	tracks, err := s.Views(ctx, trackRows)
	if err != nil {
		return nil, err
	}

	d := &models.Dashboard{
		Tracks:    tracks,
		Playlists: []models.PlaylistView{},
		CanModify: s.perms.CanModify(username),
	}

	if len(playlistRows) > 0 {
		items, err := s.repomanager.PlaylistItems(s.db).ListByOwner(ctx, username)
		if err != nil {
			return nil, storeError(err)
		}
		d.Playlists = assemblePlaylists(playlistRows, items, tracks)
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, username, gen, d); err != nil {
			s.log.Warn(ctx, "dashboard cache write failed", "user", username, "error", err)
		}
	}
	return d, nil
}

// Invalidate drops the cached dashboard of username.
func (s *DashboardService) Invalidate(ctx context.Context, username string) {
	if err := s.cache.Invalidate(ctx, username); err != nil {
		s.log.Warn(ctx, "dashboard cache invalidation failed", "user", username, "error", err)
	}
}

// Views turns track rows into player-ready views with signed URLs. Signing
// runs concurrently; a blob that no longer exists gets an empty URL.
func (s *DashboardService) Views(ctx context.Context, rows []models.Track) ([]models.TrackView, error) {
	views := make([]models.TrackView, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i := range rows {
		i := i
		g.Go(func() error {
			v, err := s.view(gctx, &rows[i])
			if err != nil {
				return err
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *DashboardService) view(ctx context.Context, t *models.Track) (models.TrackView, error) {
	url, err := s.store.SignedURL(ctx, t.StorageKey, common.SignedURLValidity)
	if err != nil {
		return models.TrackView{}, common.NewUserError(common.ErrStorage,
			fmt.Sprintf("Failed to sign URL for track %s: %v", t.ID, err))
	}

	v := models.TrackView{
		ID:          t.ID,
		Username:    t.Username,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		Duration:    t.DurationSeconds,
		URL:         url,
		ContentType: t.ContentType,
		FileSize:    t.FileSize,
		UploadedAt:  t.CreatedAt,
	}

	if t.CoverKey != nil {
		cover, err := s.store.SignedURL(ctx, *t.CoverKey, common.SignedURLValidity)
		if err != nil {
			s.log.Warn(ctx, "cover not signed", "track_id", t.ID, "error", err)
		}
		v.CoverArtURL = strPtr(cover)
	}
	return v, nil
}

// assemblePlaylists attaches members to each playlist. TrackIDs lists every
// membership in order; Tracks keeps only the members whose track is known.
func assemblePlaylists(rows []models.Playlist, items []models.PlaylistItem, tracks []models.TrackView) []models.PlaylistView {
	byID := make(map[string]models.TrackView, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	members := make(map[string][]models.PlaylistItem, len(rows))
	for _, it := range items {
		members[it.PlaylistID] = append(members[it.PlaylistID], it)
	}

	out := make([]models.PlaylistView, 0, len(rows))
	for _, p := range rows {
		v := models.PlaylistView{
			ID:          p.ID,
			Username:    p.Username,
			Name:        p.Name,
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
			TrackIDs:    []string{},
			Tracks:      []models.TrackView{},
		}
		for _, it := range sortedByPosition(members[p.ID]) {
			v.TrackIDs = append(v.TrackIDs, it.TrackID)
			if t, ok := byID[it.TrackID]; ok {
				v.Tracks = append(v.Tracks, t)
			}
		}
		out = append(out, v)
	}
	return out
}

func sortedByPosition(items []models.PlaylistItem) []models.PlaylistItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b models.PlaylistItem) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}
