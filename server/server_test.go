package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/migration"
	"Bt1QSocial/model"
	"Bt1QSocial/remote"
	"Bt1QSocial/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	cache   *cache.MemoryCache
	st      *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	c := cache.NewMemoryCache()
	st := store.New(c, remote.NopTransport{}, store.Options{Namespace: "test"})
	t.Cleanup(func() { _ = st.Close() })
	engine := migration.NewEngine(st, c, migration.Options{})
	return &testServer{t: t, handler: NewHandler(NewAPIHandler(st, engine)), cache: c, st: st}
}

func (ts *testServer) do(method, path string, body interface{}) (int, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (ts *testServer) createUser(name string) model.User {
	ts.t.Helper()
	code, env := ts.do(http.MethodPost, "/api/users", model.UserInput{Username: name, Email: name + "@example.com"})
	require.Equal(ts.t, http.StatusCreated, code, env.Error)
	return decodeData[model.User](ts.t, env)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestUserEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice")
	assert.NotEmpty(t, alice.ID)

	code, env := ts.do(http.MethodPost, "/api/users", model.UserInput{Username: "ALICE", Email: "other@example.com"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, _ = ts.do(http.MethodPost, "/api/users", model.UserInput{Username: "nomail"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(http.MethodGet, "/api/users/"+alice.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", decodeData[model.User](t, env).Username)

	code, _ = ts.do(http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	bio := "hello"
	code, env = ts.do(http.MethodPatch, "/api/users/"+alice.ID, model.UserPatch{Bio: &bio})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", decodeData[model.User](t, env).Bio)

	code, env = ts.do(http.MethodGet, "/api/users/lookup?email=ALICE@example.com", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, alice.ID, decodeData[model.User](t, env).ID)

	code, _ = ts.do(http.MethodGet, "/api/users/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	ts.createUser("bob")
	code, env = ts.do(http.MethodGet, "/api/users?q=bo", nil)
	require.Equal(t, http.StatusOK, code)
	users := decodeData[[]model.User](t, env)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}

func TestFollowEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice")
	bob := ts.createUser("bob")
	path := "/api/users/" + alice.ID + "/follow/" + bob.ID

	code, env := ts.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeData[map[string]bool](t, env)["changed"])

	_, env = ts.do(http.MethodPost, path, nil)
	assert.False(t, decodeData[map[string]bool](t, env)["changed"])

	_, env = ts.do(http.MethodGet, path, nil)
	assert.True(t, decodeData[map[string]bool](t, env)["following"])

	_, env = ts.do(http.MethodGet, "/api/users/"+bob.ID+"/followers", nil)
	followers := decodeData[[]model.User](t, env)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)

	_, env = ts.do(http.MethodGet, "/api/users/"+bob.ID, nil)
	assert.Equal(t, 1, decodeData[model.User](t, env).FollowersCount)

	code, _ = ts.do(http.MethodPost, "/api/users/"+alice.ID+"/follow/"+alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	_, env = ts.do(http.MethodDelete, path, nil)
	assert.True(t, decodeData[map[string]bool](t, env)["changed"])
}

func TestTrackAndPlaylistEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice")

	code, env := ts.do(http.MethodPost, "/api/tracks", model.TrackInput{Title: "Song", Artist: "A", UserID: alice.ID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	track := decodeData[model.Track](t, env)

	code, env = ts.do(http.MethodPost, "/api/tracks/"+track.ID+"/stream", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decodeData[model.Track](t, env).StreamCount)

	code, env = ts.do(http.MethodPost, "/api/tracks/"+track.ID+"/comments", model.CommentInput{UserID: alice.ID, Text: "nice"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.Equal(t, track.ID, decodeData[model.Comment](t, env).TrackID)

	code, _ = ts.do(http.MethodPost, "/api/tracks/missing/comments", model.CommentInput{UserID: alice.ID, Text: "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = ts.do(http.MethodPost, "/api/playlists", model.PlaylistInput{Name: "Mix", UserID: alice.ID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	pl := decodeData[model.Playlist](t, env)

	for range 2 {
		code, env = ts.do(http.MethodPost, "/api/playlists/"+pl.ID+"/tracks", map[string]string{"trackId": track.ID})
		require.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, []string{track.ID}, decodeData[model.Playlist](t, env).Tracks)

	_, env = ts.do(http.MethodDelete, "/api/playlists/"+pl.ID+"/tracks/"+track.ID, nil)
	assert.Empty(t, decodeData[model.Playlist](t, env).Tracks)

	code, _ = ts.do(http.MethodDelete, "/api/tracks/"+track.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(http.MethodDelete, "/api/tracks/"+track.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMessageEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice")
	bob := ts.createUser("bob")

	code, env := ts.do(http.MethodPost, "/api/conversations", map[string][]string{"participants": {alice.ID, bob.ID}})
	require.Equal(t, http.StatusOK, code, env.Error)
	conv := decodeData[model.Conversation](t, env)

	_, env = ts.do(http.MethodPost, "/api/conversations", map[string][]string{"participants": {bob.ID, alice.ID}})
	assert.Equal(t, conv.ID, decodeData[model.Conversation](t, env).ID)

	code, env = ts.do(http.MethodPost, "/api/conversations/"+conv.ID+"/messages", model.MessageInput{SenderID: alice.ID, Text: "hi"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	_, env = ts.do(http.MethodGet, "/api/conversations/"+conv.ID, nil)
	got := decodeData[model.Conversation](t, env)
	assert.Equal(t, 1, got.UnreadCount)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hi", got.LastMessage.Text)

	_, env = ts.do(http.MethodPost, "/api/conversations/"+conv.ID+"/read", nil)
	assert.Equal(t, 0, decodeData[model.Conversation](t, env).UnreadCount)

	code, _ = ts.do(http.MethodPost, "/api/conversations/missing/messages", model.MessageInput{SenderID: alice.ID, Text: "hi"})
	assert.Equal(t, http.StatusNotFound, code)

	_, env = ts.do(http.MethodGet, "/api/users/"+bob.ID+"/conversations", nil)
	assert.Len(t, decodeData[[]model.Conversation](t, env), 1)
}

func TestProjectEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser("alice")

	code, env := ts.do(http.MethodPost, "/api/projects", model.ProjectInput{Title: "Collab", UserID: alice.ID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	p := decodeData[model.CollaborationProject](t, env)
	assert.Equal(t, "open", p.Status)

	code, env = ts.do(http.MethodPost, "/api/projects/"+p.ID+"/applications", model.ApplicationInput{UserID: alice.ID, Message: "me"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	_, env = ts.do(http.MethodGet, "/api/projects/"+p.ID, nil)
	assert.Len(t, decodeData[model.CollaborationProject](t, env).Applicants, 1)

	bad := "bogus"
	code, _ = ts.do(http.MethodPatch, "/api/projects/"+p.ID, model.ProjectPatch{Status: &bad})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSummaryAndMigrate(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.cache.Set(context.Background(), cache.LegacyUsersKey,
		[]byte(`{"state":{"users":[{"id":"1","username":"old","email":"old@example.com"}]}}`)))

	code, env := ts.do(http.MethodPost, "/api/migrate", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	res := decodeData[migration.Result](t, env)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Migrated.Users)

	_, env = ts.do(http.MethodPost, "/api/migrate", nil)
	assert.Equal(t, 0, decodeData[migration.Result](t, env).Migrated.Users)

	_, env = ts.do(http.MethodGet, "/api/summary", nil)
	summary := decodeData[model.DataSummary](t, env)
	assert.Equal(t, 1, summary.TotalUsers)
	assert.Equal(t, string(store.StateReady), summary.State)
	assert.False(t, summary.LastSync.IsZero())

	_, env = ts.do(http.MethodGet, "/api/migrate/verify", nil)
	v := decodeData[migration.Verification](t, env)
	assert.Equal(t, v.Legacy.Users, v.Store.Users)

	// NopTransport 没有远端数据，返回本地快照
	code, env = ts.do(http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusOK, code)
	synced := decodeData[struct {
		Synced   bool           `json:"synced"`
		Snapshot model.Snapshot `json:"snapshot"`
	}](t, env)
	assert.False(t, synced.Synced)
	assert.Len(t, synced.Snapshot.Users, 1)
}

func TestMigrateWithoutEngine(t *testing.T) {
	st := store.New(cache.NewMemoryCache(), nil, store.Options{Now: func() time.Time { return time.Unix(0, 0) }})
	t.Cleanup(func() { _ = st.Close() })
	handler := NewHandler(NewAPIHandler(st, nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/migrate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
