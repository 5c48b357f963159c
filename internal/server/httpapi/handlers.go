package httpapi

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/playlistdash/internal/server/actions"
	"github.com/dmitrijs2005/playlistdash/internal/server/auth"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !decodeJSON(r, &body) {
		writeBadRequest(w, msgBadRequest)
		return
	}

	res := s.actions.Login(r.Context(), body.Username)
	if !res.Success {
		writeResult(w, res, http.StatusOK)
		return
	}

	http.SetCookie(w, auth.SessionCookie(res.Data, s.sessions.Validity(), s.secureCookies))
	writeJSON(w, http.StatusOK, actions.Void{Success: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredSessionCookie(s.secureCookies))
	writeJSON(w, http.StatusOK, actions.Void{Success: true})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeResult(w, s.actions.LoadDashboard(ctx, identityFrom(ctx)), http.StatusOK)
}

func (s *Server) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBadRequest(w, "Upload is too large")
			return
		}
		writeBadRequest(w, "Invalid upload form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	up := models.TrackUpload{
		Title:    r.FormValue("title"),
		Artist:   r.FormValue("artist"),
		Album:    r.FormValue("album"),
		Duration: parseDuration(r.FormValue("duration")),
		Audio:    formFile(r.MultipartForm, "file"),
		Cover:    formFile(r.MultipartForm, "cover"),
	}

	writeResult(w, s.actions.UploadTrack(ctx, identityFrom(ctx), up), http.StatusCreated)
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.actions.DeleteTrack(ctx, identityFrom(ctx), chi.URLParam(r, "trackID"))
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeJSON(r, &body) {
		writeBadRequest(w, msgBadRequest)
		return
	}
	res := s.actions.CreatePlaylist(ctx, identityFrom(ctx), body.Name, body.Description)
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if !decodeJSON(r, &body) {
		writeBadRequest(w, msgBadRequest)
		return
	}
	res := s.actions.UpdatePlaylistMetadata(ctx, identityFrom(ctx), chi.URLParam(r, "playlistID"), body.Name, body.Description)
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.actions.DeletePlaylist(ctx, identityFrom(ctx), chi.URLParam(r, "playlistID"))
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleListOrdered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.actions.ListOrdered(ctx, identityFrom(ctx), chi.URLParam(r, "playlistID"))
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		TrackID string `json:"trackId"`
	}
	if !decodeJSON(r, &body) {
		writeBadRequest(w, msgBadRequest)
		return
	}
	res := s.actions.AddTrackToPlaylist(ctx, identityFrom(ctx), chi.URLParam(r, "playlistID"), body.TrackID)
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleReorderTracks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		TrackIDs []string `json:"trackIds"`
	}
	if !decodeJSON(r, &body) {
		writeBadRequest(w, msgBadRequest)
		return
	}
	res := s.actions.ReorderPlaylistTracks(ctx, identityFrom(ctx), chi.URLParam(r, "playlistID"), body.TrackIDs)
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.actions.RemoveTrackFromPlaylist(ctx, identityFrom(ctx), chi.URLParam(r, "playlistID"), chi.URLParam(r, "trackID"))
	writeResult(w, res, http.StatusOK)
}

// formFile turns the first file of a form field into an UploadedFile, or
// nil when the field holds no usable file.
func formFile(form *multipart.Form, field string) *models.UploadedFile {
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	fh := form.File[field][0]
	if fh.Filename == "" || fh.Size == 0 {
		return nil
	}
	return &models.UploadedFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadSeekCloser, error) {
			return fh.Open()
		},
	}
}

// parseDuration reads seconds; anything unparsable is unknown.
func parseDuration(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	return &d
}
