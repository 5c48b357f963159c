package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/dbx"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/playlistitems"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/playlists"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/tracks"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- database plumbing ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// --- in-memory repositories ---

// memStore is a tiny in-memory database behind every fake repository. It
// enforces the same uniqueness and ownership rules as the SQL schema.
type memStore struct {
	mu        sync.Mutex
	users     map[string]bool
	tracks    map[string]*models.Track
	playlists map[string]*models.Playlist
	items     []models.PlaylistItem
	clock     time.Time

	errOn map[string]error
	calls []string
}

func newMemStore(usernames ...string) *memStore {
	m := &memStore{
		users:     map[string]bool{},
		tracks:    map[string]*models.Track{},
		playlists: map[string]*models.Playlist{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		errOn:     map[string]error{},
	}
	for _, u := range usernames {
		m.users[u] = true
	}
	return m
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) fail(op string) error { return m.errOn[op] }

// record appends op to the call log. Callers hold m.mu.
func (m *memStore) record(op string) { m.calls = append(m.calls, op) }

func (m *memStore) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *memStore) addTrack(username, title string) *models.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &models.Track{ID: uuid.NewString(), Username: username, Title: title,
		StorageKey: "audio/" + title + ".mp3", ContentType: "audio/mpeg", FileSize: 1, CreatedAt: m.tick()}
	m.tracks[t.ID] = t
	return t
}

func (m *memStore) addPlaylist(username, name string) *models.Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	p := &models.Playlist{ID: uuid.NewString(), Username: username, Name: name, CreatedAt: now, UpdatedAt: now}
	m.playlists[p.ID] = p
	return p
}

// order returns the member track ids of a playlist by position.
func (m *memStore) order(playlistID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var its []models.PlaylistItem
	for _, it := range m.items {
		if it.PlaylistID == playlistID {
			its = append(its, it)
		}
	}
	sort.Slice(its, func(i, j int) bool { return its[i].Position < its[j].Position })
	ids := []string{}
	for _, it := range its {
		ids = append(ids, it.TrackID)
	}
	return ids
}

// positions returns the positions of a playlist's members in ascending order.
func (m *memStore) positions(playlistID string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps := []int{}
	for _, it := range m.items {
		if it.PlaylistID == playlistID {
			ps = append(ps, it.Position)
		}
	}
	sort.Ints(ps)
	return ps
}

type memUsers struct{ m *memStore }

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := r.m.fail("users.get"); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if !r.m.users[username] {
		return nil, common.ErrorNotFound
	}
	return &models.User{Username: username}, nil
}

type memTracks struct{ m *memStore }

func (r memTracks) Create(ctx context.Context, t *models.Track) (*models.Track, error) {
	if err := r.m.fail("tracks.create"); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *t
	c.ID = uuid.NewString()
	c.CreatedAt = r.m.tick()
	r.m.tracks[c.ID] = &c
	out := c
	return &out, nil
}

func (r memTracks) GetOwned(ctx context.Context, id, username string) (*models.Track, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tracks[id]
	if !ok || t.Username != username {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (r memTracks) ListByOwner(ctx context.Context, username string) ([]models.Track, error) {
	if err := r.m.fail("tracks.list"); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Track
	for _, t := range r.m.tracks {
		if t.Username == username {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memTracks) Delete(ctx context.Context, id, username string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tracks[id]
	if !ok || t.Username != username {
		return common.ErrorNotFound
	}
	delete(r.m.tracks, id)
	return nil
}

type memPlaylists struct{ m *memStore }

func (r memPlaylists) Create(ctx context.Context, username, name string, description *string) (*models.Playlist, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := r.m.tick()
	p := &models.Playlist{ID: uuid.NewString(), Username: username, Name: name, Description: description,
		CreatedAt: now, UpdatedAt: now}
	r.m.playlists[p.ID] = p
	c := *p
	return &c, nil
}

func (r memPlaylists) GetOwned(ctx context.Context, id, username string) (*models.Playlist, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.playlists[id]
	if !ok || p.Username != username {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (r memPlaylists) LockOwned(ctx context.Context, id, username string) error {
	if err := r.m.fail("playlists.lock"); err != nil {
		return err
	}
	_, err := r.GetOwned(ctx, id, username)
	return err
}

func (r memPlaylists) LockByTrack(ctx context.Context, trackID string) ([]string, error) {
	if err := r.m.fail("playlists.lockbytrack"); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.record("playlists.lockbytrack")
	seen := map[string]bool{}
	var ids []string
	for _, it := range r.m.items {
		if it.TrackID == trackID && !seen[it.PlaylistID] {
			seen[it.PlaylistID] = true
			ids = append(ids, it.PlaylistID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memPlaylists) ListByOwner(ctx context.Context, username string) ([]models.Playlist, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Playlist
	for _, p := range r.m.playlists {
		if p.Username == username {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r memPlaylists) Update(ctx context.Context, id, username string, upd models.PlaylistUpdate) (*models.Playlist, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.playlists[id]
	if !ok || p.Username != username {
		return nil, common.ErrorNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		d := *upd.Description
		p.Description = &d
	}
	p.UpdatedAt = r.m.tick()
	c := *p
	return &c, nil
}

func (r memPlaylists) Delete(ctx context.Context, id, username string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.playlists[id]
	if !ok || p.Username != username {
		return common.ErrorNotFound
	}
	delete(r.m.playlists, id)
	kept := r.m.items[:0]
	for _, it := range r.m.items {
		if it.PlaylistID != id {
			kept = append(kept, it)
		}
	}
	r.m.items = kept
	return nil
}

func (r memPlaylists) Touch(ctx context.Context, id string) error {
	if err := r.m.fail("playlists.touch"); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.record("playlists.touch")
	if p, ok := r.m.playlists[id]; ok {
		p.UpdatedAt = r.m.tick()
	}
	return nil
}

type memItems struct{ m *memStore }

func (r memItems) Exists(ctx context.Context, playlistID, trackID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, it := range r.m.items {
		if it.PlaylistID == playlistID && it.TrackID == trackID {
			return true, nil
		}
	}
	return false, nil
}

func (r memItems) NextPosition(ctx context.Context, playlistID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	next := 0
	for _, it := range r.m.items {
		if it.PlaylistID == playlistID && it.Position >= next {
			next = it.Position + 1
		}
	}
	return next, nil
}

func (r memItems) Insert(ctx context.Context, item models.PlaylistItem) error {
	if err := r.m.fail("items.insert"); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, it := range r.m.items {
		if it.PlaylistID == item.PlaylistID && it.TrackID == item.TrackID {
			return common.ErrDuplicateMembership
		}
	}
	r.m.items = append(r.m.items, item)
	return nil
}

func (r memItems) Delete(ctx context.Context, playlistID, trackID string) (int, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, it := range r.m.items {
		if it.PlaylistID == playlistID && it.TrackID == trackID {
			r.m.items = append(r.m.items[:i], r.m.items[i+1:]...)
			return it.Position, true, nil
		}
	}
	return 0, false, nil
}

func (r memItems) ShiftDown(ctx context.Context, playlistID string, after int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.record("items.shiftdown")
	for i := range r.m.items {
		if r.m.items[i].PlaylistID == playlistID && r.m.items[i].Position > after {
			r.m.items[i].Position--
		}
	}
	return nil
}

func (r memItems) ListTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	return r.m.order(playlistID), nil
}

func (r memItems) SetPositions(ctx context.Context, playlistID string, trackIDs []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for pos, id := range trackIDs {
		found := false
		for i := range r.m.items {
			if r.m.items[i].PlaylistID == playlistID && r.m.items[i].TrackID == id {
				r.m.items[i].Position = pos
				found = true
			}
		}
		if !found {
			r.m.items = append(r.m.items, models.PlaylistItem{PlaylistID: playlistID, TrackID: id, Position: pos})
		}
	}
	return nil
}

func (r memItems) ListOrderedTracks(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error) {
	ids := r.m.order(playlistID)
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.PlaylistEntry
	for pos, id := range ids {
		if t, ok := r.m.tracks[id]; ok {
			out = append(out, models.PlaylistEntry{Position: pos, Track: *t})
		}
	}
	return out, nil
}

func (r memItems) ListByOwner(ctx context.Context, username string) ([]models.PlaylistItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.PlaylistItem
	for _, it := range r.m.items {
		if p, ok := r.m.playlists[it.PlaylistID]; ok && p.Username == username {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r memItems) DeleteByTrack(ctx context.Context, trackID string) ([]models.PlaylistItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.record("items.deletebytrack")
	var removed []models.PlaylistItem
	kept := r.m.items[:0]
	for _, it := range r.m.items {
		if it.TrackID == trackID {
			removed = append(removed, it)
			continue
		}
		kept = append(kept, it)
	}
	r.m.items = kept
	return removed, nil
}

type fakeRepoManager struct{ m *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return memUsers{f.m} }
func (f *fakeRepoManager) Tracks(dbx.DBTX) tracks.Repository           { return memTracks{f.m} }
func (f *fakeRepoManager) Playlists(dbx.DBTX) playlists.Repository     { return memPlaylists{f.m} }
func (f *fakeRepoManager) PlaylistItems(dbx.DBTX) playlistitems.Repository {
	return memItems{f.m}
}

// --- object storage ---

type fakeBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    map[string]error
	deleteErr error
	deletes   int
	signErr   error
	seq       int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}, putErr: map[string]error{}}
}

func (f *fakeBlobStore) AudioKey(filename string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return "audio/" + uuid.NewString() + "-" + filename
}

func (f *fakeBlobStore) CoverKey(filename string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return "audio/covers/" + uuid.NewString() + "-" + filename
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	prefix := "audio"
	if strings.HasPrefix(key, "audio/covers/") {
		prefix = "cover"
	}
	if err := f.putErr[prefix]; err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) SignedURL(ctx context.Context, key string, validity time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", nil
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeBlobStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ks []string
	for k := range f.objects {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// --- uploads ---

type nopSeekCloser struct{ *bytes.Reader }

func (nopSeekCloser) Close() error { return nil }

func uploadedFile(name, contentType string, data []byte) *models.UploadedFile {
	return &models.UploadedFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadSeekCloser, error) {
			return nopSeekCloser{bytes.NewReader(data)}, nil
		},
	}
}

var errBoom = errors.New("boom")
