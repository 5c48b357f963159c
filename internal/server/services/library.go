package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/artwork"
	"github.com/dmitrijs2005/playlistdash/internal/server/config"
	"github.com/dmitrijs2005/playlistdash/internal/server/metadata"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/repomanager"
	"github.com/dustin/go-humanize"
	"github.com/sethvargo/go-retry"
)

const mib = 1024 * 1024

// cleanupBackoff bounds the retries of a compensating blob delete.
var cleanupBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
}

// LibraryService uploads and deletes tracks. A track is a metadata row plus
// an audio blob and an optional cover blob; when a later step fails the
// blobs already written are deleted again.
type LibraryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       BlobStore
	log         logging.Logger
	maxAudio    int64
	maxCoverDim int
}

func NewLibraryService(db *sql.DB, m repomanager.RepositoryManager, store BlobStore, cfg *config.Config, log logging.Logger) *LibraryService {
	return &LibraryService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "library"),
		maxAudio:    cfg.MaxAudioBytes,
		maxCoverDim: cfg.MaxCoverDimension,
	}
}

// UploadTrack validates the upload, stores the blobs and records the track.
func (s *LibraryService) UploadTrack(ctx context.Context, username string, up models.TrackUpload) (*models.Track, error) {
	title := strings.TrimSpace(up.Title)
	if title == "" {
		return nil, validation("Title is required")
	}
	audio := up.Audio
	if audio == nil {
		return nil, validation("Missing audio file")
	}
	if !strings.HasPrefix(audio.ContentType, "audio") {
		return nil, validation("File must be an audio format")
	}
	if audio.Size > s.maxAudio {
		s.log.Info(ctx, "audio too large", "user", username, "size", humanize.IBytes(uint64(audio.Size)))
		return nil, validation(fmt.Sprintf("Audio file must be less than %d MB", s.maxAudio/mib))
	}

	artist := strings.TrimSpace(up.Artist)
	album := strings.TrimSpace(up.Album)
	duration := up.Duration

	audioKey := s.store.AudioKey(audio.Name)
	err := withFile(audio, func(r io.ReadSeeker) error {
		if duration == nil || artist == "" || album == "" {
			info := metadata.Probe(r, audio.ContentType, audio.Name)
			if artist == "" {
				artist = info.Artist
			}
			if album == "" {
				album = info.Album
			}
			if duration == nil {
				duration = info.Duration
			}
			if _, err := r.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
		return s.store.Put(ctx, audioKey, audio.ContentType, r, audio.Size)
	})
	if err != nil {
		return nil, common.NewUserError(common.ErrStorage, err.Error())
	}

	var coverKey *string
	if c := up.Cover; c != nil && strings.HasPrefix(c.ContentType, "image") {
		if c.Size > common.MaxCoverBytes {
			s.cleanup(ctx, audioKey)
			return nil, validation("Cover image must be less than 5 MB")
		}
		key := s.store.CoverKey(c.Name)
		if err := s.putCover(ctx, key, c); err != nil {
			s.cleanup(ctx, audioKey)
			return nil, common.NewUserError(common.ErrStorage, "Failed to upload cover: "+err.Error())
		}
		coverKey = &key
	}

	track, err := s.repomanager.Tracks(s.db).Create(ctx, &models.Track{
		Username:        username,
		Title:           title,
		Artist:          strPtr(artist),
		Album:           strPtr(album),
		CoverKey:        coverKey,
		DurationSeconds: duration,
		StorageKey:      audioKey,
		ContentType:     audio.ContentType,
		FileSize:        audio.Size,
	})
	if err != nil {
		s.cleanup(ctx, audioKey)
		if coverKey != nil {
			s.cleanup(ctx, *coverKey)
		}
		return nil, storeError(err)
	}

	s.log.Info(ctx, "track uploaded", "user", username, "track_id", track.ID,
		"size", humanize.IBytes(uint64(audio.Size)))
	return track, nil
}

// putCover stores the cover, downscaled first when it exceeds the
// configured dimension. An undecodable image is stored as received.
func (s *LibraryService) putCover(ctx context.Context, key string, c *models.UploadedFile) error {
	return withFile(c, func(r io.ReadSeeker) error {
		data, resized, err := artwork.Fit(r, c.ContentType, s.maxCoverDim)
		if err != nil {
			s.log.Warn(ctx, "cover not resized", "error", err)
		}
		if resized {
			return s.store.Put(ctx, key, c.ContentType, bytes.NewReader(data), int64(len(data)))
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return s.store.Put(ctx, key, c.ContentType, r, c.Size)
	})
}

// DeleteTrack removes the track's blobs, its memberships (closing the gaps
// it leaves in every playlist) and the track row.
func (s *LibraryService) DeleteTrack(ctx context.Context, username, trackID string) error {
	if !validID(trackID) {
		return notFound(msgTrackNotFound)
	}

	track, err := s.repomanager.Tracks(s.db).GetOwned(ctx, trackID, username)
	if err != nil {
		return lookupError(err, msgTrackNotFound)
	}

	if err := s.store.Delete(ctx, track.StorageKey); err != nil {
		return common.NewUserError(common.ErrStorage, err.Error())
	}
	if track.CoverKey != nil {
		if err := s.store.Delete(ctx, *track.CoverKey); err != nil {
			return common.NewUserError(common.ErrStorage, err.Error())
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		items := s.repomanager.PlaylistItems(tx)
		playlists := s.repomanager.Playlists(tx)

		// Playlist locks come before any membership row, as in every
		// membership mutation.
		if _, err := playlists.LockByTrack(ctx, trackID); err != nil {
			return storeError(err)
		}

		removed, err := items.DeleteByTrack(ctx, trackID)
		if err != nil {
			return storeError(err)
		}
		for _, it := range removed {
			if err := items.ShiftDown(ctx, it.PlaylistID, it.Position); err != nil {
				return storeError(err)
			}
			if err := playlists.Touch(ctx, it.PlaylistID); err != nil {
				return storeError(err)
			}
		}

		if err := s.repomanager.Tracks(tx).Delete(ctx, trackID, username); err != nil {
			return lookupError(err, msgTrackNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "track deleted", "user", username, "track_id", trackID)
	return nil
}

// cleanup deletes a blob written earlier in a failed upload. It outlives
// request cancellation and gives up after a few attempts.
func (s *LibraryService) cleanup(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	attempt := 0
	err := retry.Do(ctx, cleanupBackoff(), func(ctx context.Context) error {
		attempt++
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "cleanup attempt failed", "key", key, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "orphaned blob", "key", key, "error", err)
	}
}

func withFile(f *models.UploadedFile, fn func(r io.ReadSeeker) error) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return fn(rc)
}
